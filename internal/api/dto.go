package api

import (
	"time"

	"github.com/notepid/lexcircle/internal/account"
	"github.com/notepid/lexcircle/internal/group"
	"github.com/notepid/lexcircle/internal/message"
	"github.com/notepid/lexcircle/internal/post"
)

type accountView struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	DisplayName string   `json:"displayName"`
	Roles       []string `json:"roles"`
	CreatedAt   int64    `json:"createdAt"`
}

func newAccountView(a *account.Account) accountView {
	roles := make([]string, 0, len(a.Roles))
	for _, r := range a.Roles {
		roles = append(roles, string(r))
	}
	return accountView{
		ID:          a.ID,
		Username:    a.Username,
		DisplayName: a.DisplayName,
		Roles:       roles,
		CreatedAt:   a.CreatedAt.UnixNano(),
	}
}

type groupView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MemberCount int    `json:"memberCount"`
	Hidden      bool   `json:"hidden"`
	HiddenAt    *int64 `json:"hiddenAt,omitempty"`
	PurgedAt    *int64 `json:"purgedAt,omitempty"`
}

func newGroupView(s *group.Summary) groupView {
	return groupView{
		ID:          s.ID,
		Name:        s.Name,
		MemberCount: s.MemberCount,
		Hidden:      s.Hidden,
		HiddenAt:    nanosPtr(s.HiddenAt),
		PurgedAt:    nanosPtr(s.PurgedAt),
	}
}

func nanosPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	n := t.UnixNano()
	return &n
}

type messageView struct {
	ID         string `json:"id"`
	GroupID    string `json:"groupId"`
	AuthorID   string `json:"authorId"`
	AuthorName string `json:"authorName"`
	Content    string `json:"content"`
	CreatedAt  int64  `json:"createdAt"`
}

func newMessageView(m *message.Message) messageView {
	return messageView{
		ID:         m.ID,
		GroupID:    m.GroupID,
		AuthorID:   m.AuthorID,
		AuthorName: m.AuthorName,
		Content:    m.Content,
		CreatedAt:  m.CreatedAt.UnixNano(),
	}
}

type postView struct {
	ID           string `json:"id"`
	AuthorID     string `json:"authorId"`
	AuthorName   string `json:"authorName"`
	Body         string `json:"body"`
	CommentCount int    `json:"commentCount"`
	CreatedAt    int64  `json:"createdAt"`
}

func newPostView(p *post.Post) postView {
	return postView{
		ID:           p.ID,
		AuthorID:     p.AuthorID,
		AuthorName:   p.AuthorName,
		Body:         p.Body,
		CommentCount: p.CommentCount,
		CreatedAt:    p.CreatedAt.UnixNano(),
	}
}

type commentView struct {
	ID         string `json:"id"`
	PostID     string `json:"postId"`
	AuthorID   string `json:"authorId"`
	AuthorName string `json:"authorName"`
	Body       string `json:"body"`
	CreatedAt  int64  `json:"createdAt"`
}

func newCommentView(c *post.Comment) commentView {
	return commentView{
		ID:         c.ID,
		PostID:     c.PostID,
		AuthorID:   c.AuthorID,
		AuthorName: c.AuthorName,
		Body:       c.Body,
		CreatedAt:  c.CreatedAt.UnixNano(),
	}
}
