package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/notepid/lexcircle/internal/account"
)

// UserHeader carries the caller identity established by the authentication
// layer in front of this service.
const UserHeader = "X-User-ID"

type ctxCallerKey struct{}

// identify resolves the caller from UserHeader. Unknown, deleted and
// login-disabled accounts are treated as unauthenticated.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(UserHeader))
		if id == "" {
			s.fail(w, r, errUnauthenticated)
			return
		}
		a, err := s.accounts.GetByID(r.Context(), id)
		if errors.Is(err, account.ErrNotFound) || (err == nil && !a.CanLogin) {
			s.fail(w, r, errUnauthenticated)
			return
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxCallerKey{}, a)))
	})
}

func caller(r *http.Request) *account.Account {
	a, _ := r.Context().Value(ctxCallerKey{}).(*account.Account)
	return a
}
