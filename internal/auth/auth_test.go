package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Imellstorm/wptest/internal/testutil"
	"github.com/Imellstorm/wptest/internal/types"
)

func TestGenerateAndValidate(t *testing.T) {
	dir := testutil.NewDirectory("alice")
	svc := NewService("secret", dir)

	token, err := svc.GenerateToken(context.Background(), TokenRequest{Name: "alice", Secret: dir.Secret("alice")})
	require.NoError(t, err)
	assert.NotEmpty(t, token.Token)

	claims, err := svc.ValidateToken(token.Token)
	require.NoError(t, err)
	assert.Equal(t, dir.MustResolve("alice").ID, claims.ParticipantID)
	assert.Equal(t, dir.MustResolve("alice").ID, claims.Subject)
	assert.Equal(t, "alice", claims.Name)
}

func TestGenerate_RejectsBadCredentials(t *testing.T) {
	dir := testutil.NewDirectory("alice", "bob")
	svc := NewService("secret", dir)

	tests := map[string]TokenRequest{
		"unknown participant": {Name: "mallory", Secret: dir.Secret("alice")},
		"no secret":           {Name: "bob"},
		"someone else's":      {Name: "bob", Secret: dir.Secret("alice")},
		"made up":             {Name: "bob", Secret: "letmein"},
	}
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			token, err := svc.GenerateToken(context.Background(), req)
			assert.ErrorIs(t, err, types.ErrInvalidCredentials)
			assert.Nil(t, token)
		})
	}
}

func TestValidate_Rejects(t *testing.T) {
	dir := testutil.NewDirectory("alice")
	svc := NewService("secret", dir)
	token, err := svc.GenerateToken(context.Background(), TokenRequest{Name: "alice", Secret: dir.Secret("alice")})
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewService("other", dir).ValidateToken(token.Token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		later := NewService("secret", dir)
		later.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
		_, err := later.ValidateToken(token.Token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token")
		assert.Error(t, err)
	})

	t.Run("no participant", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = svc.ValidateToken(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestGenerateTokenHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := testutil.NewDirectory("alice", "bob")
	router := gin.New()
	router.POST("/auth/token", NewGinHandlers(NewService("secret", dir)).GenerateTokenHandler())

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"own secret", `{"name":"alice","secret":"` + dir.Secret("alice") + `"}`, http.StatusCreated},
		{"someone else's secret", `{"name":"bob","secret":"` + dir.Secret("alice") + `"}`, http.StatusUnauthorized},
		{"unknown participant", `{"name":"mallory","secret":"x"}`, http.StatusUnauthorized},
		{"name only", `{"name":"bob"}`, http.StatusBadRequest},
		{"empty", `{}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(tt.body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		assert.Equal(t, tt.wantStatus, w.Code, tt.name)
	}
}
