package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

const testSecret = "test-secret-key-32-characters!!"

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == SessionName {
			return cookie
		}
	}
	return nil
}

func requestWithCookie(cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest("GET", "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func TestNewSessionStore(t *testing.T) {
	store := NewSessionStore(testSecret, false)
	if store == nil {
		t.Fatal("Session store should not be nil")
	}
}

func TestSessionOperations(t *testing.T) {
	store := NewSessionStore(testSecret, false)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	t.Run("Get new session", func(t *testing.T) {
		session, err := store.GetSession(req)
		if err != nil {
			t.Fatalf("Failed to get new session: %v", err)
		}
		if !session.IsNew {
			t.Error("New session should be marked as new")
		}
	})

	t.Run("User not authenticated initially", func(t *testing.T) {
		if store.IsAuthenticated(req) {
			t.Error("User should not be authenticated initially")
		}
		if user := store.CurrentUser(req); user != "" {
			t.Errorf("Expected no current user, got %q", user)
		}
	})

	t.Run("Login user", func(t *testing.T) {
		if err := store.Login(req, w, "admin"); err != nil {
			t.Fatalf("Failed to login user: %v", err)
		}

		cookie := sessionCookie(w)
		if cookie == nil {
			t.Fatal("Session cookie should be set")
		}
		if cookie.Value == "" {
			t.Error("Session cookie should have a value")
		}
		if !cookie.HttpOnly {
			t.Error("Session cookie should be HttpOnly")
		}
		if cookie.Secure {
			t.Error("Session cookie should not be Secure when disabled")
		}
	})

	t.Run("User authenticated after login", func(t *testing.T) {
		reqWithCookie := requestWithCookie(sessionCookie(w))
		if !store.IsAuthenticated(reqWithCookie) {
			t.Error("User should be authenticated after login")
		}
		if user := store.CurrentUser(reqWithCookie); user != "admin" {
			t.Errorf("Expected current user admin, got %q", user)
		}
	})

	t.Run("Logout user", func(t *testing.T) {
		wLogout := httptest.NewRecorder()
		if err := store.Logout(requestWithCookie(sessionCookie(w)), wLogout); err != nil {
			t.Fatalf("Failed to logout user: %v", err)
		}

		if store.IsAuthenticated(requestWithCookie(sessionCookie(wLogout))) {
			t.Error("User should not be authenticated after logout")
		}
	})
}

func TestSecureCookie(t *testing.T) {
	store := NewSessionStore(testSecret, true)
	w := httptest.NewRecorder()
	if err := store.Login(httptest.NewRequest("GET", "/", nil), w, "admin"); err != nil {
		t.Fatalf("Failed to login user: %v", err)
	}
	cookie := sessionCookie(w)
	if cookie == nil || !cookie.Secure {
		t.Error("Session cookie should be Secure")
	}
}

func TestSessionSecurity(t *testing.T) {
	store := NewSessionStore(testSecret, false)

	w := httptest.NewRecorder()
	if err := store.Login(httptest.NewRequest("GET", "/", nil), w, "admin"); err != nil {
		t.Fatalf("Failed to login user: %v", err)
	}

	cookie := sessionCookie(w)
	if cookie == nil || cookie.Value == "" {
		t.Fatal("Session cookie should have a value")
	}

	// The cookie should be encrypted/signed, not plaintext
	if cookie.Value == "authenticated" || cookie.Value == "admin" {
		t.Error("Session cookie should not contain plaintext sensitive data")
	}
	if len(cookie.Value) < 20 {
		t.Error("Session cookie should be encrypted/signed and reasonably long")
	}

	// A store with another secret must reject the cookie
	other := NewSessionStore("another-secret-key-32-characters", false)
	if other.IsAuthenticated(requestWithCookie(cookie)) {
		t.Error("Cookie signed with another secret should not authenticate")
	}
}

func TestMultipleSessions(t *testing.T) {
	store := NewSessionStore(testSecret, false)

	req1 := httptest.NewRequest("GET", "/", nil)
	req2 := httptest.NewRequest("GET", "/", nil)

	w1 := httptest.NewRecorder()
	if err := store.Login(req1, w1, "admin"); err != nil {
		t.Fatalf("Failed to login session1: %v", err)
	}

	if !store.IsAuthenticated(requestWithCookie(sessionCookie(w1))) {
		t.Error("Session1 should be authenticated after login")
	}
	if store.IsAuthenticated(req2) {
		t.Error("Session2 should remain unauthenticated")
	}
}

func TestAuthenticationEdgeCases(t *testing.T) {
	store := NewSessionStore(testSecret, false)

	t.Run("IsAuthenticated with invalid session data", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Cookie", SessionName+"=invalid-data")

		if store.IsAuthenticated(req) {
			t.Error("Should not be authenticated with invalid session data")
		}
	})

	t.Run("Login and verify session values", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		w := httptest.NewRecorder()

		if err := store.Login(req, w, "ops"); err != nil {
			t.Fatalf("Login failed: %v", err)
		}

		session, err := store.GetSession(req)
		if err != nil {
			t.Fatalf("Failed to get session after login: %v", err)
		}
		if session.Values[UserKey] != true {
			t.Error("Session authenticated value should be true")
		}
		if session.Values[UsernameKey] != "ops" {
			t.Errorf("Session username should be ops, got %v", session.Values[UsernameKey])
		}
		if _, ok := session.Values[LoginAtKey].(int64); !ok {
			t.Error("Session should record the login time")
		}
	})
}
