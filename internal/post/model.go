package post

import "time"

// Post is a top-level entry in the community feed.
type Post struct {
	ID           string
	AuthorID     string
	AuthorName   string // joined
	Body         string
	CommentCount int    // computed field
	CreatedAt    time.Time
}

// Comment is a reply nested under a post.
type Comment struct {
	ID         string
	PostID     string
	AuthorID   string
	AuthorName string // joined
	Body       string
	CreatedAt  time.Time
}
