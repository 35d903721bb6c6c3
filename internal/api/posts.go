package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

func (s *Server) registerPosts(r *mux.Router) {
	r.HandleFunc("/posts", s.createPost).Methods(http.MethodPost)
	r.HandleFunc("/posts", s.listPosts).Methods(http.MethodGet)
	r.HandleFunc("/posts/{id}", s.getPost).Methods(http.MethodGet)
	r.HandleFunc("/posts/{id}/comments", s.addComment).Methods(http.MethodPost)
	r.HandleFunc("/posts/{id}/comments", s.listComments).Methods(http.MethodGet)
}

type bodyRequest struct {
	Body string `json:"body"`
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	var req bodyRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	me := caller(r)
	p, err := s.posts.Create(r.Context(), me.ID, req.Body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p.AuthorName = me.DisplayName
	writeJSON(w, http.StatusCreated, newPostView(p))
}

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	posts, err := s.posts.List(r.Context(), offset, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]postView, 0, len(posts))
	for _, p := range posts {
		out = append(out, newPostView(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": out})
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	p, err := s.posts.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPostView(p))
}

func (s *Server) addComment(w http.ResponseWriter, r *http.Request) {
	var req bodyRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	me := caller(r)
	c, err := s.posts.AddComment(r.Context(), mux.Vars(r)["id"], me.ID, req.Body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	c.AuthorName = me.DisplayName
	writeJSON(w, http.StatusCreated, newCommentView(c))
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["id"]
	if _, err := s.posts.Get(r.Context(), postID); err != nil {
		s.fail(w, r, err)
		return
	}
	comments, err := s.posts.ListComments(r.Context(), postID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]commentView, 0, len(comments))
	for _, c := range comments {
		out = append(out, newCommentView(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": out})
}
