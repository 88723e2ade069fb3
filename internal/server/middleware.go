package server

import (
	"context"
	"net/http"

	"bluedex/internal/repository"
)

const roleAdmin = "admin"

type ctxKey int

const identityKey ctxKey = iota

func identityFrom(ctx context.Context) (*repository.User, bool) {
	user, ok := ctx.Value(identityKey).(*repository.User)
	return user, ok
}

func (s *Server) authenticate(r *http.Request) (*repository.User, bool) {
	username, password, ok := r.BasicAuth()
	if !ok {
		return nil, false
	}
	user, err := s.users.Authenticate(r.Context(), username, password)
	if err != nil {
		return nil, false
	}
	return user, true
}

// requireAuth resolves the caller's identity and stores it in the request
// context. The identity decides senderId server-side; it is never read from
// request bodies.
func (s *Server) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.authenticate(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireAdmin(next http.HandlerFunc) http.Handler {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		user, _ := identityFrom(r.Context())
		if user == nil || user.Role != roleAdmin {
			respondError(w, http.StatusForbidden, "Access denied - Admin only")
			return
		}
		next.ServeHTTP(w, r)
	})
}
