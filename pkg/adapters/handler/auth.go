package handler

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/DenQuizon/comet-collections-extension/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const userInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// TokenStore keeps the Google token used for license checks.
type TokenStore interface {
	Save(token *oauth2.Token) error
	Delete() error
}

type AuthHandler struct {
	oauthConfig   *oauth2.Config
	jwtSecret     []byte
	frontendURL   string
	allowedEmails []string
	isProduction  bool
	tokens        TokenStore
	log           *slog.Logger
}

type GoogleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// OAuthConfig is the Google client shared by sign-in and token refresh.
func OAuthConfig(cfg *config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
			"https://www.googleapis.com/auth/chromewebstore.readonly",
		},
		Endpoint: google.Endpoint,
	}
}

func NewAuthHandler(cfg *config.Config, tokens TokenStore, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		oauthConfig:   OAuthConfig(cfg),
		jwtSecret:     []byte(cfg.JWTSecret),
		frontendURL:   cfg.FrontendURL,
		allowedEmails: cfg.AllowedEmails,
		isProduction:  cfg.IsProduction(),
		tokens:        tokens,
		log:           logger,
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := h.generateStateOauthCookie(w)
	if err != nil {
		h.log.Error("login: generating state", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	url := h.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	oauthState, err := r.Cookie("oauthstate")
	if err != nil {
		h.log.Warn("callback: missing oauthstate cookie", "err", err)
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}
	if r.FormValue("state") != oauthState.Value {
		h.log.Warn("callback: invalid oauth state")
		writeError(w, http.StatusBadRequest, "invalid oauth google state")
		return
	}

	ctx := r.Context()
	token, err := h.oauthConfig.Exchange(ctx, r.FormValue("code"))
	if err != nil {
		h.log.Error("callback: code exchange failed", "err", err)
		writeError(w, http.StatusInternalServerError, "code exchange failed")
		return
	}

	googleUser, err := h.fetchUser(r, token)
	if err != nil {
		h.log.Error("callback: fetching user info", "err", err)
		writeError(w, http.StatusInternalServerError, "failed getting user info")
		return
	}

	if len(h.allowedEmails) > 0 && !slices.Contains(h.allowedEmails, googleUser.Email) {
		h.log.Warn("callback: email not in allowlist", "email", googleUser.Email)
		writeError(w, http.StatusForbidden, "Access denied: your email is not in the allowlist")
		return
	}

	if h.tokens != nil {
		if err := h.tokens.Save(token); err != nil {
			h.log.Error("callback: storing google token", "err", err)
		}
	}

	expirationTime := time.Now().Add(24 * time.Hour)
	tokenString, err := h.issueToken(googleUser.Email, expirationTime)
	if err != nil {
		h.log.Error("callback: signing JWT", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    tokenString,
		Expires:  expirationTime,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})

	h.log.Info("login successful", "email", googleUser.Email)
	http.Redirect(w, r, h.frontendURL, http.StatusTemporaryRedirect)
}

func (h *AuthHandler) fetchUser(r *http.Request, token *oauth2.Token) (*GoogleUser, error) {
	resp, err := h.oauthConfig.Client(r.Context(), token).Get(userInfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned %s", resp.Status)
	}

	var user GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	return &user, nil
}

func (h *AuthHandler) issueToken(email string, expires time.Time) (string, error) {
	claims := &jwt.RegisteredClaims{
		Subject:   email,
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.jwtSecret)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if h.tokens != nil {
		if err := h.tokens.Delete(); err != nil {
			h.log.Error("logout: removing google token", "err", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    "",
		Expires:  time.Now().Add(-1 * time.Hour),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.frontendURL, http.StatusTemporaryRedirect)
}

func (h *AuthHandler) generateStateOauthCookie(w http.ResponseWriter) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	state := base64.URLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     "oauthstate",
		Value:    state,
		Expires:  time.Now().Add(20 * time.Minute),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	return state, nil
}
