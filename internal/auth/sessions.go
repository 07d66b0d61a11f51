package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Billy-Davies-2/championship-draft/internal/models"
)

// SessionCookie carries the signed session token
const SessionCookie = "championship_session"

// Identity is the verified caller of a request
type Identity struct {
	AccountID   string      `json:"accountId"`
	DisplayName string      `json:"displayName"`
	Role        models.Role `json:"role"`
}

type ctxKey struct{}

// WithIdentity attaches a verified identity to ctx
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity attached by the session middleware
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

type claims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Sessions issues and verifies HS256 session tokens. The token travels as
// an HttpOnly cookie for browsers or as a bearer token for other clients.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewSessions(secret string, ttl time.Duration, secure bool) *Sessions {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Sessions{secret: []byte(secret), ttl: ttl, secure: secure, now: time.Now}
}

// Token signs a session token for id
func (s *Sessions) Token(id Identity) (string, error) {
	now := s.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Name: id.DisplayName,
		Role: string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.AccountID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	return tok.SignedString(s.secret)
}

// Issue signs a token and stores it in the session cookie
func (s *Sessions) Issue(w http.ResponseWriter, id Identity) error {
	token, err := s.Token(id)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  s.now().Add(s.ttl),
	})
	return nil
}

// Clear removes the session cookie
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   SessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

// Parse verifies a token and returns its identity
func (s *Sessions) Parse(token string) (Identity, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return Identity{}, err
	}

	cl, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid || cl.Subject == "" {
		return Identity{}, errors.New("invalid session claims")
	}
	role := models.Role(cl.Role)
	if !role.Valid() {
		return Identity{}, fmt.Errorf("invalid role %q", cl.Role)
	}
	return Identity{AccountID: cl.Subject, DisplayName: cl.Name, Role: role}, nil
}

// tokenFrom prefers the Authorization header over the cookie
func tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// Middleware attaches the identity of a valid session. Requests without
// one pass through anonymously; RequireRole decides what they may do.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := tokenFrom(r); token != "" {
			if id, err := s.Parse(token); err == nil {
				r = r.WithContext(WithIdentity(r.Context(), id))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects anonymous callers with 401 and callers outside roles
// with 403. With no roles any signed-in caller passes.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := FromContext(r.Context())
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "sign in required")
				return
			}
			if len(roles) > 0 && !hasRole(id.Role, roles) {
				writeAuthError(w, http.StatusForbidden, "forbidden", "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hasRole(role models.Role, allowed []models.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
}
