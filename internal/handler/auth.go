package handler

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/readifylabs/readify/internal/domain/auth"
	"github.com/readifylabs/readify/internal/domain/user"
)

// oauthStateCookie carries the CSRF state token across the OAuth redirect.
const oauthStateCookie = "readify_oauth_state"

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type authResponse struct {
	User *auth.Identity `json:"user"`
}

// Register creates an account from email/password credentials and opens a
// session for it.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	identity, token, err := h.auth.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, user.ErrDuplicateEmail):
			writeError(w, http.StatusConflict, "an account with this email already exists")
		default:
			internalError(w, r, "failed to register", err)
		}
		return
	}

	h.setCookie(w, sessionCookie, token)
	writeJSON(w, http.StatusCreated, authResponse{User: identity})
}

// Login verifies credentials and opens a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	identity, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		internalError(w, r, "failed to log in", err)
		return
	}

	h.setCookie(w, sessionCookie, token)
	writeJSON(w, http.StatusOK, authResponse{User: identity})
}

// Logout destroys the current session, if any, and clears the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		if err := h.auth.Logout(r.Context(), c.Value); err != nil {
			internalError(w, r, "failed to log out", err)
			return
		}
	}
	h.clearCookie(w, sessionCookie)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me returns the identity attached to the current session.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFrom(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{User: identity})
}

// GoogleOAuth holds the configuration for Google sign-in.
type GoogleOAuth struct {
	config *oauth2.Config
}

// NewGoogleOAuth builds the OAuth client for the given credentials.
// redirectURL must match the callback route registered with Google.
func NewGoogleOAuth(clientID, clientSecret, redirectURL string) *GoogleOAuth {
	return &GoogleOAuth{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

// GoogleLogin starts the OAuth flow: it mints a state token, stores it in a
// short-lived cookie, and redirects to Google's consent page.
func (h *Handler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		internalError(w, r, "failed to start sign-in", err)
		return
	}
	state := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.google.config.AuthCodeURL(state), http.StatusSeeOther)
}

// GoogleCallback completes the OAuth flow: it checks the state token,
// exchanges the code, fetches the user's profile, and opens a session.
func (h *Handler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		writeError(w, http.StatusBadRequest, "invalid oauth state")
		return
	}
	h.clearCookie(w, oauthStateCookie)

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	tok, err := h.google.config.Exchange(r.Context(), code)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "oauth exchange failed")
		return
	}

	profile, err := fetchGoogleProfile(r, h.google.config, tok)
	if err != nil {
		internalError(w, r, "failed to fetch profile", err)
		return
	}
	if profile.Email == "" {
		writeError(w, http.StatusUnauthorized, "oauth provider returned no email")
		return
	}

	_, token, err := h.auth.LoginOAuth(r.Context(), profile.Email, profile.Name)
	if err != nil {
		internalError(w, r, "failed to sign in", err)
		return
	}

	h.setCookie(w, sessionCookie, token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type googleProfile struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func fetchGoogleProfile(r *http.Request, cfg *oauth2.Config, tok *oauth2.Token) (*googleProfile, error) {
	resp, err := cfg.Client(r.Context(), tok).Get(googleUserInfoURL)
	if err != nil {
		return nil, errors.Wrap(err, "userinfo request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("userinfo request: unexpected status %d", resp.StatusCode)
	}

	var profile googleProfile
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&profile); err != nil {
		return nil, errors.Wrap(err, "decode userinfo")
	}
	return &profile, nil
}
