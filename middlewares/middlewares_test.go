package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meriawaaz-be/logger"
	authUtils "meriawaaz-be/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTokens(t *testing.T) (*authUtils.TokenManager, string) {
	t.Helper()
	m := authUtils.NewTokenManager("secret", time.Hour)
	token, err := m.GenerateToken(authUtils.Identity{UID: "u1", Name: "Asha"})
	require.NoError(t, err)
	return m, token
}

func whoami(c *gin.Context) {
	id, ok := IdentityFrom(c)
	if !ok {
		c.String(http.StatusOK, "anonymous")
		return
	}
	c.String(http.StatusOK, id.UID)
}

func TestRequireAuth(t *testing.T) {
	m, token := newTokens(t)
	r := gin.New()
	r.GET("/me", RequireAuth(m, "auth_token"), whoami)

	cases := []struct {
		name   string
		setup  func(*http.Request)
		status int
		body   string
	}{
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK, "u1"},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "auth_token", Value: token}) }, http.StatusOK, "u1"},
		{"missing", func(*http.Request) {}, http.StatusUnauthorized, ""},
		{"invalid", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tc.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, w.Body.String())
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	m, token := newTokens(t)
	r := gin.New()
	r.GET("/me", OptionalAuth(m, "auth_token"), whoami)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "anonymous", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "u1", w.Body.String())
}

func TestIssueRateLimiter(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })

	m, token := newTokens(t)
	r := gin.New()
	r.POST("/issues", RequireAuth(m, ""), IssueRateLimiter(client, "issue_limit", 2, logger.Nop()), func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/issues", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusAccepted, post())
	assert.Equal(t, http.StatusAccepted, post())
	assert.Equal(t, http.StatusTooManyRequests, post())
	assert.Equal(t, 24*time.Hour, s.TTL("issue_limit:u1"))

	s.FastForward(25 * time.Hour)
	assert.Equal(t, http.StatusAccepted, post())
}

func TestIssueRateLimiterNeedsUser(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })

	r := gin.New()
	r.POST("/issues", IssueRateLimiter(client, "issue_limit", 2, logger.Nop()), func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/issues", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestTimeout(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(logger.Nop()), RequestTimeout(time.Second))
	r.GET("/", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		assert.True(t, ok)
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
