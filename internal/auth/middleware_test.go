package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newTestRouter(roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", RequireAuth("secret", "campusportal", roles...), func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no claims"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"roll": claims.RollNumber})
	})
	return r
}

func doRequest(t *testing.T, r *gin.Engine, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuthMissingToken(t *testing.T) {
	w := doRequest(t, newTestRouter("admin"), "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRequireAuthInvalidToken(t *testing.T) {
	w := doRequest(t, newTestRouter("admin"), "not-a-token")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRequireAuthWrongRole(t *testing.T) {
	token, _, err := Issue("u1", "a@b.c", "student", "21CS01", "campusportal", "secret", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	w := doRequest(t, newTestRouter("admin"), token)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestRequireAuthAllowed(t *testing.T) {
	token, _, err := Issue("u1", "a@b.c", "student", "21CS01", "campusportal", "secret", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	w := doRequest(t, newTestRouter("student"), token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
}

func TestRequireAuthAnyRole(t *testing.T) {
	token, _, err := Issue("u1", "a@b.c", "student", "21CS01", "campusportal", "secret", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	w := doRequest(t, newTestRouter(), token)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
