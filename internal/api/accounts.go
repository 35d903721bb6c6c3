package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func (s *Server) registerAccounts(r *mux.Router) {
	r.HandleFunc("/accounts/me", s.deleteMe).Methods(http.MethodDelete)
	r.HandleFunc("/accounts/{id}", s.getProfile).Methods(http.MethodGet)
	r.HandleFunc("/suggestions", s.suggestions).Methods(http.MethodGet)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username    string `json:"username"`
		Password    string `json:"password"`
		DisplayName string `json:"displayName"`
	}
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.accounts.Create(r.Context(), req.Username, req.Password, req.DisplayName)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("Account registered", zap.String("accountID", a.ID), zap.String("username", a.Username))
	writeJSON(w, http.StatusCreated, newAccountView(a))
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	a, err := s.accounts.GetProfile(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountView(a))
}

func (s *Server) suggestions(w http.ResponseWriter, r *http.Request) {
	list, err := s.accounts.Suggestions(r.Context(), caller(r).ID, 20)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]accountView, 0, len(list))
	for _, a := range list {
		out = append(out, newAccountView(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": out})
}

// deleteMe flags the caller deleted right away and queues the content rewrite
// for the reconciler.
func (s *Server) deleteMe(w http.ResponseWriter, r *http.Request) {
	me := caller(r)
	if me.IsSentinel {
		writeError(w, http.StatusForbidden, "cannot delete the sentinel account")
		return
	}
	if _, err := s.accounts.MarkDeleted(r.Context(), me.ID); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.jobs.Enqueue(r.Context(), me.ID); err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("Account deletion requested", zap.String("accountID", me.ID))
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "pending"})
}
