package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Imellstorm/wptest/internal/auth"
	"github.com/Imellstorm/wptest/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(router *gin.Engine, method, path string, header http.Header) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	router.ServeHTTP(w, req)
	return w.Code
}

func ok(c *gin.Context) {
	c.Status(http.StatusOK)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(map[string]int{"/limited": 1})
	router := gin.New()
	router.Use(rl.Handler())
	router.GET("/limited", ok)
	router.GET("/free", ok)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/limited", nil))
	assert.Equal(t, http.StatusTooManyRequests, serve(router, http.MethodGet, "/limited", nil))

	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/free", nil))
	}
}

func TestRateLimiter_KeysByClientIP(t *testing.T) {
	rl := NewRateLimiter(map[string]int{"/limited": 1})
	calls := 0
	router := gin.New()
	router.Use(func(c *gin.Context) {
		// a different participant on every request from the same address
		calls++
		c.Set(ParticipantIDKey, fmt.Sprintf("participant-%d", calls))
		c.Next()
	})
	router.Use(rl.Handler())
	router.GET("/limited", ok)

	from := func(addr string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/limited", nil)
		req.RemoteAddr = addr
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, from("192.0.2.1:1000"))
	assert.Equal(t, http.StatusTooManyRequests, from("192.0.2.1:1001"))
	assert.Equal(t, http.StatusOK, from("192.0.2.2:1000"))
}

func TestRateLimiter_LongestPrefixWins(t *testing.T) {
	rl := NewRateLimiter(map[string]int{"/api": 1000, "/api/trades": 10})

	assert.Equal(t, 1, rl.limitFor("/api/trades").burst)
	assert.Equal(t, 100, rl.limitFor("/api/bids").burst)
}

func TestAuthorize_PermitAll(t *testing.T) {
	router := gin.New()
	router.GET("/participants/:name", Authorize(auth.ModePermitAll, nil, nil), ok)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/participants/alice", nil))
}

func TestAuthorize_JWT(t *testing.T) {
	dir := testutil.NewDirectory("alice", "bob")
	svc := auth.NewService("secret", dir)
	token, err := svc.GenerateToken(context.Background(), auth.TokenRequest{Name: "alice", Secret: dir.Secret("alice")})
	require.NoError(t, err)

	router := gin.New()
	router.GET("/participants/:name", Authorize(auth.ModeJWT, svc, dir), func(c *gin.Context) {
		assert.Equal(t, dir.MustResolve("alice").ID, c.GetString(ParticipantIDKey))
		c.Status(http.StatusOK)
	})

	bearer := http.Header{"Authorization": {"Bearer " + token.Token}}
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/participants/alice", bearer))
	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodGet, "/participants/bob", bearer))
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/participants/alice", nil))
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/participants/alice",
		http.Header{"Authorization": {"Bearer nonsense"}}))
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/participants/mallory", bearer))
}

func TestAuthorize_TokenSurvivesRename(t *testing.T) {
	dir := testutil.NewDirectory("alice", "bob")
	svc := auth.NewService("secret", dir)
	token, err := svc.GenerateToken(context.Background(), auth.TokenRequest{Name: "alice", Secret: dir.Secret("alice")})
	require.NoError(t, err)

	router := gin.New()
	router.GET("/participants/:name", Authorize(auth.ModeJWT, svc, dir), ok)
	bearer := http.Header{"Authorization": {"Bearer " + token.Token}}

	_, err = dir.Rename(context.Background(), "alice", "alicia")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/participants/alicia", bearer))

	// the old name now belongs to someone else
	_, err = dir.Rename(context.Background(), "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodGet, "/participants/alice", bearer))
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	router := gin.New()
	router.Use(RequestLogger())
	router.GET("/x", ok)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/x", nil))
}
