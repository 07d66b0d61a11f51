package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/Billy-Davies-2/championship-draft/internal/logger"
	"github.com/Billy-Davies-2/championship-draft/internal/models"
)

// Group names mapped onto roles
const (
	AdminGroup  = "admins"
	PlayerGroup = "players"
)

// AuthProvider is a common interface for authentication providers
type AuthProvider interface {
	LoginHandler(w http.ResponseWriter, r *http.Request)
	CallbackHandler(w http.ResponseWriter, r *http.Request)
	LogoutHandler(w http.ResponseWriter, r *http.Request)
}

// AuthentikConfig holds the configuration for Authentik OAuth2/OIDC
type AuthentikConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AppSlug      string
	Scopes       []string
}

// AuthentikAuth signs users in through Authentik and hands them a session
type AuthentikAuth struct {
	config       *AuthentikConfig
	oauth2Config *oauth2.Config
	sessions     *Sessions
	httpClient   *http.Client
}

// NewAuthentikAuth creates a new Authentik authentication handler
func NewAuthentikAuth(config *AuthentikConfig, sessions *Sessions) *AuthentikAuth {
	if len(config.Scopes) == 0 {
		config.Scopes = []string{"openid", "profile", "email", "groups"}
	}
	if config.AppSlug == "" {
		config.AppSlug = "championship-draft"
	}
	base := strings.TrimRight(config.BaseURL, "/")

	oauth2Config := &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		RedirectURL:  config.RedirectURL,
		Scopes:       config.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  base + "/application/o/authorize/",
			TokenURL: base + "/application/o/token/",
		},
	}

	return &AuthentikAuth{
		config:       config,
		oauth2Config: oauth2Config,
		sessions:     sessions,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// LoginHandler initiates the OAuth2 login flow
func (a *AuthentikAuth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	state := generateState()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300,
	})

	http.Redirect(w, r, a.oauth2Config.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// CallbackHandler handles the OAuth2 callback from Authentik
func (a *AuthentikAuth) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil {
		http.Error(w, "Missing state cookie", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	token, err := a.oauth2Config.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		logger.Warn("Authentik token exchange failed", "error", err)
		http.Error(w, "Failed to exchange token", http.StatusBadGateway)
		return
	}

	id, err := a.identity(r, token)
	if err != nil {
		logger.Warn("Authentik userinfo failed", "error", err)
		http.Error(w, "Failed to get user info", http.StatusBadGateway)
		return
	}

	if err := a.sessions.Issue(w, id); err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	logger.Info("User signed in", "account", id.AccountID, "role", id.Role)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// LogoutHandler handles user logout
func (a *AuthentikAuth) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	a.sessions.Clear(w)
	logoutURL := fmt.Sprintf("%s/application/o/%s/end-session/", strings.TrimRight(a.config.BaseURL, "/"), a.config.AppSlug)
	http.Redirect(w, r, logoutURL, http.StatusSeeOther)
}

type userInfo struct {
	Sub               string   `json:"sub"`
	Email             string   `json:"email"`
	Name              string   `json:"name"`
	PreferredUsername string   `json:"preferred_username"`
	Groups            []string `json:"groups"`
}

// identity fetches the userinfo document and maps it onto an Identity
func (a *AuthentikAuth) identity(r *http.Request, token *oauth2.Token) (Identity, error) {
	userInfoURL := strings.TrimRight(a.config.BaseURL, "/") + "/application/o/userinfo/"

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, userInfoURL, nil)
	if err != nil {
		return Identity{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return Identity{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Identity{}, fmt.Errorf("userinfo: %s - %s", resp.Status, string(body))
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Identity{}, err
	}
	return info.identity(), nil
}

func (u userInfo) identity() Identity {
	account := u.PreferredUsername
	if account == "" {
		account = u.Sub
	}
	name := u.Name
	if name == "" {
		name = account
	}
	return Identity{AccountID: account, DisplayName: name, Role: RoleFromGroups(u.Groups)}
}

// RoleFromGroups maps directory groups onto a role. Admin wins over player.
func RoleFromGroups(groups []string) models.Role {
	role := models.RoleViewer
	for _, g := range groups {
		switch g {
		case AdminGroup:
			return models.RoleAdmin
		case PlayerGroup:
			role = models.RolePlayer
		}
	}
	return role
}

// generateState generates a random state string for CSRF protection
func generateState() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
