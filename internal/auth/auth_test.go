package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Billy-Davies-2/championship-draft/internal/models"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	s := NewSessions("secret", time.Hour, false)
	id := Identity{AccountID: "p1", DisplayName: "Player One", Role: models.RolePlayer}

	token, err := s.Token(id)
	require.NoError(t, err)

	got, err := s.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestSessionRejectsForeignSecret(t *testing.T) {
	token, err := NewSessions("other", time.Hour, false).Token(Identity{AccountID: "p1", Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = NewSessions("secret", time.Hour, false).Parse(token)
	assert.Error(t, err)
}

func TestSessionExpires(t *testing.T) {
	s := NewSessions("secret", time.Minute, false)
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return issued }

	token, err := s.Token(Identity{AccountID: "p1", Role: models.RolePlayer})
	require.NoError(t, err)

	s.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = s.Parse(token)
	assert.Error(t, err)
}

func TestSessionRejectsUnknownRole(t *testing.T) {
	s := NewSessions("secret", time.Hour, false)
	token, err := s.Token(Identity{AccountID: "p1", Role: "owner"})
	require.NoError(t, err)

	_, err = s.Parse(token)
	assert.Error(t, err)
}

func whoami() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		if !ok {
			w.Write([]byte("anonymous"))
			return
		}
		w.Write([]byte(id.AccountID))
	})
}

func TestMiddlewareReadsBearerAndCookie(t *testing.T) {
	s := NewSessions("secret", time.Hour, false)
	token, err := s.Token(Identity{AccountID: "p1", Role: models.RolePlayer})
	require.NoError(t, err)
	h := s.Middleware(whoami())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "p1", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "p1", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "anonymous", rec.Body.String())
}

func TestRequireRole(t *testing.T) {
	s := NewSessions("secret", time.Hour, false)
	h := s.Middleware(RequireRole(models.RoleAdmin)(whoami()))

	tests := []struct {
		name   string
		id     *Identity
		status int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"player", &Identity{AccountID: "p1", Role: models.RolePlayer}, http.StatusForbidden},
		{"admin", &Identity{AccountID: "root", Role: models.RoleAdmin}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.id != nil {
				token, err := s.Token(*tt.id)
				require.NoError(t, err)
				req.Header.Set("Authorization", "Bearer "+token)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRoleFromGroups(t *testing.T) {
	assert.Equal(t, models.RoleViewer, RoleFromGroups(nil))
	assert.Equal(t, models.RolePlayer, RoleFromGroups([]string{"staff", PlayerGroup}))
	assert.Equal(t, models.RoleAdmin, RoleFromGroups([]string{PlayerGroup, AdminGroup}))
}

func TestUserInfoIdentity(t *testing.T) {
	id := userInfo{Sub: "abc", Groups: []string{PlayerGroup}}.identity()
	assert.Equal(t, Identity{AccountID: "abc", DisplayName: "abc", Role: models.RolePlayer}, id)

	id = userInfo{Sub: "abc", PreferredUsername: "kim", Name: "Kim"}.identity()
	assert.Equal(t, "kim", id.AccountID)
	assert.Equal(t, "Kim", id.DisplayName)
}

func TestMockAuthLogin(t *testing.T) {
	s := NewSessions("secret", time.Hour, false)
	m := NewMockAuth(s)

	rec := httptest.NewRecorder()
	m.LoginHandler(rec, httptest.NewRequest(http.MethodGet, "/auth/login?account=p2&role=player&redirect=//evil", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	id, err := s.Parse(cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, Identity{AccountID: "p2", DisplayName: "p2", Role: models.RolePlayer}, id)

	rec = httptest.NewRecorder()
	m.LoginHandler(rec, httptest.NewRequest(http.MethodGet, "/auth/login?role=owner", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthentikLoginSetsState(t *testing.T) {
	a := NewAuthentikAuth(&AuthentikConfig{
		BaseURL:     "https://sso.example.com/",
		ClientID:    "client",
		RedirectURL: "http://localhost:8001/auth/callback",
	}, NewSessions("secret", time.Hour, true))

	rec := httptest.NewRecorder()
	a.LoginHandler(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "https://sso.example.com/application/o/authorize/")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "oauth_state", cookies[0].Name)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, cookies[0].Value, loc.Query().Get("state"))
}

func TestAuthentikCallbackRejectsBadState(t *testing.T) {
	a := NewAuthentikAuth(&AuthentikConfig{BaseURL: "https://sso.example.com"}, NewSessions("secret", time.Hour, true))

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=wrong&code=x", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "right"})
	rec := httptest.NewRecorder()
	a.CallbackHandler(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	a.CallbackHandler(rec, httptest.NewRequest(http.MethodGet, "/auth/callback", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
