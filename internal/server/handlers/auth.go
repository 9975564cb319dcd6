// internal/server/handlers/auth.go

package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"casaview/internal/config"
)

// sessionCookie carries the signed admin session token
const sessionCookie = "casaview_session"

// AuthHandler gates the admin surface. Credentials are the two configured
// admin strings; a successful login is turned into a signed, server-verified
// session cookie rather than client-local state.
type AuthHandler struct {
	username     string
	password     string
	secret       []byte
	ttl          time.Duration
	isProduction bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(cfg config.SessionConfig, environment string) *AuthHandler {
	return &AuthHandler{
		username:     cfg.AdminUsername,
		password:     cfg.AdminPassword,
		secret:       []byte(cfg.Secret),
		ttl:          cfg.TTL,
		isProduction: environment == "production",
	}
}

// Login verifies the submitted credentials and issues the session cookie
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	type loginRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	// Unset credentials disable the admin surface entirely
	if h.username == "" || h.password == "" {
		respondWithError(w, http.StatusForbidden, "Admin login is not configured", nil)
		return
	}

	if req.Username != h.username || req.Password != h.password {
		respondWithError(w, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	token, err := h.issueToken()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to create session", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.ttl),
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})

	respondWithJSON(w, http.StatusOK, map[string]bool{"is_admin": true})
}

// Logout expires the session cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})

	respondWithJSON(w, http.StatusOK, map[string]bool{"is_admin": false})
}

// Session reports whether the request carries a valid admin session. This is
// how a fresh page load re-initializes its login state.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]bool{"is_admin": h.validSession(r)})
}

// AdminOnly rejects requests without a valid admin session
func (h *AuthHandler) AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.validSession(r) {
			respondWithError(w, http.StatusUnauthorized, "Admin session required", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// issueToken signs a session token for the configured TTL
func (h *AuthHandler) issueToken() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(h.ttl)),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
}

// validSession verifies the session cookie's signature and expiry
func (h *AuthHandler) validSession(r *http.Request) bool {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return false
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(cookie.Value, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return h.secret, nil
	})
	if err != nil || !token.Valid {
		if err != nil {
			log.Printf("auth: rejected session token: %v", err)
		}
		return false
	}

	return claims.Subject == "admin"
}
