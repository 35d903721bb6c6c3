package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/notepid/lexcircle/internal/conversation"
	"github.com/notepid/lexcircle/internal/group"
)

func (s *Server) registerGroups(r *mux.Router) {
	r.HandleFunc("/groups", s.createGroup).Methods(http.MethodPost)
	r.HandleFunc("/groups", s.listGroups).Methods(http.MethodGet)

	r.HandleFunc("/groups/{id}/members", s.addMember).Methods(http.MethodPost)
	r.HandleFunc("/groups/{id}/members/{userID}", s.removeMember).Methods(http.MethodDelete)

	r.HandleFunc("/groups/{id}/messages", s.listMessages).Methods(http.MethodGet)
	r.HandleFunc("/groups/{id}/messages", s.sendMessage).Methods(http.MethodPost)
	r.HandleFunc("/groups/{id}/messages/{messageID}", s.getMessage).Methods(http.MethodGet)

	r.HandleFunc("/groups/{id}/hidden", s.hideGroup).Methods(http.MethodPut)
	r.HandleFunc("/groups/{id}/hidden", s.unhideGroup).Methods(http.MethodDelete)
	r.HandleFunc("/groups/{id}/purge", s.purgeGroup).Methods(http.MethodPost)
}

// requireMember checks that the caller belongs to the group in the path.
// Unknown groups surface as not found.
func (s *Server) requireMember(r *http.Request) (string, error) {
	groupID := mux.Vars(r)["id"]
	ok, err := s.groups.IsMember(r.Context(), groupID, caller(r).ID)
	if err != nil {
		return "", err
	}
	if !ok {
		exists, err := s.groups.Exists(r.Context(), groupID)
		if err != nil {
			return "", err
		}
		if !exists {
			return "", fmt.Errorf("group %s: %w", groupID, group.ErrNotFound)
		}
		return "", errNotMember
	}
	return groupID, nil
}

func (s *Server) createGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string   `json:"name"`
		Members []string `json:"members"`
	}
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	me := caller(r)
	members := []string{me.ID}
	for _, id := range req.Members {
		if id == me.ID {
			continue
		}
		if _, err := s.accounts.GetProfile(r.Context(), id); err != nil {
			s.fail(w, r, err)
			return
		}
		members = append(members, id)
	}

	g, err := s.groups.Create(r.Context(), req.Name, members...)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, groupView{ID: g.ID, Name: g.Name, MemberCount: len(g.Members)})
}

func (s *Server) listGroups(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.groups.ListForUser(r.Context(), caller(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]groupView, 0, len(summaries))
	for _, gs := range summaries {
		out = append(out, newGroupView(gs))
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": out})
}

func (s *Server) addMember(w http.ResponseWriter, r *http.Request) {
	groupID, err := s.requireMember(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req struct {
		UserID string `json:"userId"`
	}
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := s.accounts.GetProfile(r.Context(), req.UserID); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.groups.AddMember(r.Context(), groupID, req.UserID); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// removeMember lets a member leave the group. Removing someone else is not
// allowed.
func (s *Server) removeMember(w http.ResponseWriter, r *http.Request) {
	groupID, err := s.requireMember(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	userID := mux.Vars(r)["userID"]
	if userID != caller(r).ID {
		s.fail(w, r, errRemoveOthers)
		return
	}
	if err := s.groups.RemoveMember(r.Context(), groupID, userID); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	groupID, err := s.requireMember(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var page conversation.Page
	if v := r.URL.Query().Get("limit"); v != "" {
		if page.Limit, err = strconv.Atoi(v); err != nil || page.Limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
	}
	if v := r.URL.Query().Get("before"); v != "" {
		nanos, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "before must be a unix nanosecond timestamp")
			return
		}
		before := time.Unix(0, nanos)
		page.Before = &before
	}

	msgs, err := s.conv.VisibleMessages(r.Context(), groupID, caller(r).ID, page)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, newMessageView(m))
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": out})
}

func (s *Server) getMessage(w http.ResponseWriter, r *http.Request) {
	groupID, err := s.requireMember(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := s.conv.VisibleMessage(r.Context(), groupID, caller(r).ID, mux.Vars(r)["messageID"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newMessageView(m))
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	groupID, err := s.requireMember(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	me := caller(r)
	m, err := s.messages.Send(r.Context(), groupID, me.ID, req.Content)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	m.AuthorName = me.DisplayName
	writeJSON(w, http.StatusCreated, newMessageView(m))
}

func (s *Server) hideGroup(w http.ResponseWriter, r *http.Request) {
	s.ledgerOp(w, r, s.conv.Hide)
}

func (s *Server) unhideGroup(w http.ResponseWriter, r *http.Request) {
	s.ledgerOp(w, r, s.conv.Unhide)
}

func (s *Server) purgeGroup(w http.ResponseWriter, r *http.Request) {
	s.ledgerOp(w, r, s.conv.PurgeHistory)
}

type ledgerFunc func(ctx context.Context, groupID, userID string) (conversation.Result, error)

func (s *Server) ledgerOp(w http.ResponseWriter, r *http.Request, op ledgerFunc) {
	groupID, err := s.requireMember(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := op(r.Context(), groupID, caller(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"changed": res.Changed})
}
