package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/studytutor/utils"
)

func newAuthRouter(auth *Auth) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", auth.Required(), func(ctx *gin.Context) {
		id, _ := ctx.Get(ContextUserIDKey)
		ctx.JSON(http.StatusOK, gin.H{"user_id": id})
	})
	return r
}

func doGet(r http.Handler, header string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired_Bearer(t *testing.T) {
	issuer := utils.NewTokenIssuer("secret", time.Hour)
	blacklist := utils.NewTokenBlacklist(nil)
	r := newAuthRouter(NewAuth(issuer, blacklist, nil))

	token, exp, _ := issuer.Generate(5, "a@example.com")
	if w := doGet(r, "Bearer "+token); w.Code != http.StatusOK {
		t.Fatalf("valid token: want=200 got=%d", w.Code)
	}
	for _, h := range []string{"", "Token abc", "Bearer ", "Bearer garbage"} {
		if w := doGet(r, h); w.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: want=401 got=%d", h, w.Code)
		}
	}

	blacklist.Revoke(context.Background(), token, exp)
	if w := doGet(r, "Bearer "+token); w.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token: want=401 got=%d", w.Code)
	}
}

func TestAuthRequired_CookieSession(t *testing.T) {
	issuer := utils.NewTokenIssuer("secret", time.Hour)
	sessions := utils.NewSessionStore("cookie-secret", 3600, false)
	r := newAuthRouter(NewAuth(issuer, utils.NewTokenBlacklist(nil), sessions))

	rec := httptest.NewRecorder()
	if err := sessions.Save(rec, httptest.NewRequest(http.MethodPost, "/login", nil), 9); err != nil {
		t.Fatalf("save session: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("no session cookie set")
	}
	w := doGet(r, "", cookies...)
	if w.Code != http.StatusOK {
		t.Fatalf("cookie session: want=200 got=%d", w.Code)
	}
	if body := w.Body.String(); body != `{"user_id":9}` {
		t.Fatalf("body: %s", body)
	}
}

func TestRateLimiter_BlocksBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(4) // burst of 2
	r := gin.New()
	r.Use(rl.Handler())
	r.GET("/x", func(ctx *gin.Context) { ctx.Status(http.StatusNoContent) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes: %v", codes)
	}

	rl.now = func() time.Time { return time.Now().Add(10 * time.Minute) }
	if n := rl.Prune(); n != 1 {
		t.Fatalf("prune: want=1 got=%d", n)
	}
}
