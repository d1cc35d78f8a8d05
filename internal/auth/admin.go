package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cbtexam/internal/app/apiresp"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAdminDisabled      = errors.New("admin access is disabled")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

// AdminGuard protects the bank management routes with one shared password,
// configured as a bcrypt hash. There are no admin accounts or sessions.
type AdminGuard struct {
	hash []byte
}

func NewAdminGuard(passHash string) *AdminGuard {
	return &AdminGuard{hash: []byte(strings.TrimSpace(passHash))}
}

func (g *AdminGuard) Enabled() bool {
	return len(g.hash) > 0
}

func (g *AdminGuard) Verify(password string) error {
	if !g.Enabled() {
		return ErrAdminDisabled
	}
	if password == "" {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func (g *AdminGuard) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch err := g.Verify(readAdminToken(r)); {
		case err == nil:
			next.ServeHTTP(w, r)
		case errors.Is(err, ErrAdminDisabled):
			apiresp.WriteError(w, r, http.StatusServiceUnavailable, "admin disabled")
		default:
			w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
			apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		}
	})
}

// HashPassword produces a value for ADMIN_PASS_HASH.
func HashPassword(password string, cost int) (string, error) {
	if len(password) < 8 {
		return "", ErrWeakPassword
	}
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash admin password: %w", err)
	}
	return string(h), nil
}

func readAdminToken(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("Authorization")); v != "" {
		if token, ok := strings.CutPrefix(v, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get("X-Admin-Token"))
}
