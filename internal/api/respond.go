package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/notepid/lexcircle/internal/account"
	"github.com/notepid/lexcircle/internal/group"
	"github.com/notepid/lexcircle/internal/message"
	"github.com/notepid/lexcircle/internal/post"
	"github.com/notepid/lexcircle/internal/redaction"
)

var (
	errUnauthenticated = errors.New("missing or unknown X-User-ID")
	errNotMember       = errors.New("not a member of this group")
	errRemoveOthers    = errors.New("members can only remove themselves")
	errBadJSON         = errors.New("invalid json")
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, errNotMember), errors.Is(err, errRemoveOthers),
		errors.Is(err, redaction.ErrSentinel):
		return http.StatusForbidden
	case errors.Is(err, account.ErrNotFound), errors.Is(err, group.ErrNotFound),
		errors.Is(err, message.ErrNotFound), errors.Is(err, post.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, account.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, account.ErrInvalid),
		errors.Is(err, group.ErrInvalid), errors.Is(err, message.ErrEmpty),
		errors.Is(err, post.ErrEmpty), errors.Is(err, errBadJSON):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errBadJSON
	}
	return nil
}
