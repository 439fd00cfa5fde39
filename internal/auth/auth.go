package auth

import (
	"net/http"
	"time"

	"github.com/gorilla/sessions"
)

const (
	SessionName = "airwave-monitor-session"
	UserKey     = "authenticated"
	UsernameKey = "username"
	LoginAtKey  = "login_at"
)

type SessionStore struct {
	store  *sessions.CookieStore
	secure bool
}

// NewSessionStore creates a cookie store keyed by secret. secure marks the
// cookie HTTPS-only.
func NewSessionStore(secret string, secure bool) *SessionStore {
	return &SessionStore{
		store:  sessions.NewCookieStore([]byte(secret)),
		secure: secure,
	}
}

func (s *SessionStore) GetSession(r *http.Request) (*sessions.Session, error) {
	session, err := s.store.Get(r, SessionName)
	if err != nil {
		// If session is corrupted, create a new one
		session, _ = s.store.New(r, SessionName)
	}

	// Set session options
	session.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}

	return session, nil
}

func (s *SessionStore) SaveSession(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	return session.Save(r, w)
}

func (s *SessionStore) IsAuthenticated(r *http.Request) bool {
	session, err := s.GetSession(r)
	if err != nil {
		return false
	}

	auth, ok := session.Values[UserKey].(bool)
	return ok && auth
}

// CurrentUser returns the admin name stored at login, or "" when the request
// is not authenticated.
func (s *SessionStore) CurrentUser(r *http.Request) string {
	if !s.IsAuthenticated(r) {
		return ""
	}
	session, _ := s.GetSession(r)
	name, _ := session.Values[UsernameKey].(string)
	return name
}

func (s *SessionStore) Login(r *http.Request, w http.ResponseWriter, username string) error {
	session, err := s.GetSession(r)
	if err != nil {
		return err
	}

	session.Values[UserKey] = true
	session.Values[UsernameKey] = username
	session.Values[LoginAtKey] = time.Now().Unix()
	return s.SaveSession(r, w, session)
}

func (s *SessionStore) Logout(r *http.Request, w http.ResponseWriter) error {
	session, err := s.GetSession(r)
	if err != nil {
		return err
	}

	// Clear session values
	session.Values = make(map[interface{}]interface{})
	session.Options.MaxAge = -1

	return s.SaveSession(r, w, session)
}
