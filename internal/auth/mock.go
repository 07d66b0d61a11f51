package auth

import (
	"net/http"

	"github.com/Billy-Davies-2/championship-draft/internal/models"
)

// MockAuth signs in whoever asks, for local development. The account and
// role come from the query string: /auth/login?account=p1&role=player.
type MockAuth struct {
	sessions *Sessions
}

// NewMockAuth creates a new mock authentication handler
func NewMockAuth(sessions *Sessions) *MockAuth {
	return &MockAuth{sessions: sessions}
}

// LoginHandler for mock auth - auto-creates a session
func (m *MockAuth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	id := Identity{
		AccountID:   q.Get("account"),
		DisplayName: q.Get("name"),
		Role:        models.Role(q.Get("role")),
	}
	if id.AccountID == "" {
		id.AccountID = "dev-admin"
	}
	if id.DisplayName == "" {
		id.DisplayName = id.AccountID
	}
	if id.Role == "" {
		id.Role = models.RoleAdmin
	}
	if !id.Role.Valid() {
		http.Error(w, "unknown role", http.StatusBadRequest)
		return
	}

	if err := m.sessions.Issue(w, id); err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	redirect := q.Get("redirect")
	if redirect == "" || redirect[0] != '/' || (len(redirect) > 1 && redirect[1] == '/') {
		redirect = "/"
	}
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

// CallbackHandler is not needed for mock auth
func (m *MockAuth) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// LogoutHandler for mock auth
func (m *MockAuth) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	m.sessions.Clear(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
