package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"warmwall/internal/models"
	"warmwall/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(tokens *services.TokenService, touched *[]uint) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(LoadUser(tokens))
	r.GET("/open", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"viewer": ViewerID(c)})
	})
	r.GET("/private", AuthRequired(func(id uint) { *touched = append(*touched, id) }), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/admin", AuthRequired(nil), AdminRequired(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func do(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	tokens := services.NewTokenService("secret", time.Hour)
	var touched []uint
	r := setupRouter(tokens, &touched)

	w := do(r, "/private", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())

	w = do(r, "/private", "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid token"}`, w.Body.String())

	token, _, err := tokens.Issue(&models.User{ID: 3, Username: "alice", Role: models.RoleUser})
	require.NoError(t, err)
	w = do(r, "/private", token)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []uint{3}, touched)
}

func TestExpiredTokenRejected(t *testing.T) {
	tokens := services.NewTokenService("secret", time.Hour)
	var touched []uint
	r := setupRouter(tokens, &touched)

	expired, err := tokens.Sign(services.Claims{
		ID:               3,
		Username:         "alice",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Second))},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, do(r, "/private", expired).Code)
	// 可选登录的接口按匿名处理
	w := do(r, "/open", expired)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"viewer":0}`, w.Body.String())
	assert.Empty(t, touched)
}

func TestAdminRequired(t *testing.T) {
	tokens := services.NewTokenService("secret", time.Hour)
	var touched []uint
	r := setupRouter(tokens, &touched)

	user, _, _ := tokens.Issue(&models.User{ID: 1, Username: "u", Role: models.RoleUser})
	admin, _, _ := tokens.Issue(&models.User{ID: 2, Username: "a", Role: models.RoleAdmin})

	assert.Equal(t, http.StatusForbidden, do(r, "/admin", user).Code)
	assert.Equal(t, http.StatusNoContent, do(r, "/admin", admin).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/admin", "").Code)
}
