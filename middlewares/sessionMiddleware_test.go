package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/recon_backend/utils"
	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
)

// NOTE: These tests run without Redis; with no session store available the
// middleware falls through to JWT validation, which is the path internal
// jobs use.

func sessionRouter(usernames *[]string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SessionMiddleware())
	r.GET("/whoami", func(c *gin.Context) {
		if username, ok := utils.GetUsernameFromContext(c.Request.Context()); ok {
			*usernames = append(*usernames, username)
		}
		c.Status(http.StatusNoContent)
	})
	return r
}

func signTestJwt(t *testing.T, subject string) string {
	t.Helper()
	claims := &utils.JwtCustomClaim{
		StandardClaims: jwt.StandardClaims{
			Subject:   subject,
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("Recon-Secret"))
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func TestSessionMiddleware_NoTokenPassesThroughAnonymous(t *testing.T) {
	var usernames []string
	r := sessionRouter(&usernames)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	if w.Code != http.StatusNoContent {
		t.Fatalf("status: got %d", w.Code)
	}
	if len(usernames) != 0 {
		t.Errorf("anonymous request must not carry a username, got %v", usernames)
	}
}

func TestSessionMiddleware_JwtFallbackSetsUsername(t *testing.T) {
	var usernames []string
	r := sessionRouter(&usernames)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("token", signTestJwt(t, "ops-runner"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status: got %d", w.Code)
	}
	if len(usernames) != 1 || usernames[0] != "ops-runner" {
		t.Errorf("username from JWT subject: got %v", usernames)
	}
}

func TestSessionMiddleware_InvalidTokenRejected(t *testing.T) {
	var usernames []string
	r := sessionRouter(&usernames)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("token", "not-a-session-or-jwt")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", w.Code)
	}
	if len(usernames) != 0 {
		t.Error("handler must not run for a rejected token")
	}
}
