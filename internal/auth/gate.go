package auth

import (
	"context"
	"net/http"

	"github.com/civicgrid/civicgrid-be/internal/models"
	"github.com/civicgrid/civicgrid-be/internal/session"
	"github.com/rs/zerolog/log"
)

// CookieName is the cookie carrying the opaque session token.
const CookieName = "session"

// UserDirectory is the slice of the user service the gate needs for
// role checks.
type UserDirectory interface {
	GetUserByUsername(username string) (models.User, error)
}

// sessionKey is the context key for the resolved session.
type contextKey string

const sessionKey = contextKey("session")

// Gate decides, per request, whether a session is live and whether its
// identity holds the admin role.
type Gate struct {
	sessions *session.Manager
	users    UserDirectory
}

// NewGate creates a Gate over the given session manager and user directory.
func NewGate(sessions *session.Manager, users UserDirectory) *Gate {
	return &Gate{sessions: sessions, users: users}
}

// IsLoggedIn reports whether the request carries a live authenticated session.
func (g *Gate) IsLoggedIn(r *http.Request) bool {
	_, ok := g.sessionFrom(r)
	return ok
}

// IsAdmin reports whether username holds the admin role. Any storage
// error denies access and is logged as a non-fatal diagnostic.
func (g *Gate) IsAdmin(username string) bool {
	if username == "" {
		return false
	}
	user, err := g.users.GetUserByUsername(username)
	if err != nil {
		log.Warn().Err(err).Str("username", username).Msg("Admin check failed, denying access")
		return false
	}
	return user.Role == models.RoleAdmin
}

// Logout destroys the session named by the request's cookie, if any.
func (g *Gate) Logout(r *http.Request) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return
	}
	g.sessions.Destroy(cookie.Value)
}

func (g *Gate) sessionFrom(r *http.Request) (session.Session, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return session.Session{}, false
	}
	s, ok := g.sessions.Get(cookie.Value)
	if !ok || !s.Authenticated {
		return session.Session{}, false
	}
	return s, true
}

// RequireSession rejects requests without a live session and passes the
// session down via context for handlers.
func (g *Gate) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := g.sessionFrom(r)
		if !ok {
			http.Error(w, "Please log in to access the platform", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey, s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin builds on RequireSession and additionally demands the
// admin role. Fails closed: no session, no role, or a failed lookup all
// end the request here.
func (g *Gate) RequireAdmin(next http.Handler) http.Handler {
	return g.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, _ := SessionFrom(r.Context())
		if !g.IsAdmin(s.Username) {
			http.Error(w, "Admin access only", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// SessionFrom extracts the session placed in ctx by RequireSession.
func SessionFrom(ctx context.Context) (session.Session, bool) {
	s, ok := ctx.Value(sessionKey).(session.Session)
	return s, ok
}
