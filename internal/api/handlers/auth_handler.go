package handlers

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/civicgrid/civicgrid-be/internal/auth"
	"github.com/civicgrid/civicgrid-be/internal/services"
	"github.com/civicgrid/civicgrid-be/internal/session"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles registration, login, logout, and the current-user lookup.
type AuthHandler struct {
	users    services.UserServiceProvider
	events   services.EventServiceProvider
	sessions *session.Manager
	gate     *auth.Gate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users services.UserServiceProvider, events services.EventServiceProvider, sessions *session.Manager, gate *auth.Gate) *AuthHandler {
	return &AuthHandler{users: users, events: events, sessions: sessions, gate: gate}
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles new user registration.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.users.Register(payload.Username, payload.Email, payload.Password, payload.ConfirmPassword)
	if err != nil {
		log.Warn().Err(err).Str("username", payload.Username).Msg("Registration rejected")
		writeError(w, err)
		return
	}

	if err := h.events.CreateEvent("user.register", "info", "New account registered", &user.Username); err != nil {
		log.Error().Err(err).Msg("Failed to record registration event")
	}

	writeJSON(w, http.StatusCreated, user)
}

// Login authenticates a user and establishes a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.users.Authenticate(payload.Username, payload.Password)
	if err != nil {
		log.Warn().Err(err).Str("username", payload.Username).Msg("Failed authentication attempt")
		writeError(w, err)
		return
	}

	token := h.sessions.Create(user.Username)

	// Set Secure flag based on environment.
	isProd := os.Getenv("APP_ENV") == "production"

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   isProd,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})

	if err := h.events.CreateEvent("user.login", "info", "User logged in", &user.Username); err != nil {
		log.Error().Err(err).Msg("Failed to record login event")
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":  user,
		"admin": h.gate.IsAdmin(user.Username),
	})
}

// Logout clears the session and expires the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.gate.Logout(r)

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Path:     "/",
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// Me returns the account behind the current session.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	s, ok := auth.SessionFrom(r.Context())
	if !ok {
		http.Error(w, "No active session", http.StatusUnauthorized)
		return
	}

	user, err := h.users.GetUserByUsername(s.Username)
	if err != nil {
		log.Error().Err(err).Str("username", s.Username).Msg("Session user not found in store")
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":  user,
		"admin": h.gate.IsAdmin(user.Username),
	})
}
