package utils

import (
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	sessionName      = "studytutor_session"
	sessionUserIDKey = "user_id"
)

// SessionStore keeps the signed-in user id in a signed cookie, as an alternative to bearer tokens.
type SessionStore struct {
	store *sessions.CookieStore
}

// NewSessionStore returns nil when secret is empty; cookie sessions are then disabled.
func NewSessionStore(secret string, maxAgeSeconds int, secure bool) *SessionStore {
	if secret == "" {
		return nil
	}
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAgeSeconds,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionStore{store: store}
}

// Save binds userID to the response cookie.
func (s *SessionStore) Save(w http.ResponseWriter, r *http.Request, userID uint) error {
	if s == nil {
		return nil
	}
	sess, _ := s.store.Get(r, sessionName)
	sess.Values[sessionUserIDKey] = userID
	return sess.Save(r, w)
}

// UserID reads the user id from the request cookie.
func (s *SessionStore) UserID(r *http.Request) (uint, bool) {
	if s == nil {
		return 0, false
	}
	sess, err := s.store.Get(r, sessionName)
	if err != nil || sess.IsNew {
		return 0, false
	}
	id, ok := sess.Values[sessionUserIDKey].(uint)
	return id, ok && id != 0
}

// Clear expires the session cookie.
func (s *SessionStore) Clear(w http.ResponseWriter, r *http.Request) error {
	if s == nil {
		return nil
	}
	sess, _ := s.store.Get(r, sessionName)
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}
