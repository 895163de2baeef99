package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"corplandlords/wireboard/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware("https://corplandlords.example"))
	echo := func(c *gin.Context) { c.String(http.StatusOK, UserID(c)) }
	r.GET("/optional", OptionalAuthMiddleware(testSecret), echo)
	r.GET("/required", AuthMiddleware(testSecret), echo)
	r.GET("/admin", AuthMiddleware(testSecret), AdminMiddleware(), echo)
	return r
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := authRouter()
	token, err := auth.GenerateJWT("uid-7", false, testSecret, time.Hour)
	require.NoError(t, err)

	w := get(r, "/required", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = get(r, "/required", "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = get(r, "/required", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "uid-7", w.Body.String())
	assert.Equal(t, "https://corplandlords.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = get(r, "/admin", token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestOptionalAuthMiddleware(t *testing.T) {
	r := authRouter()
	token, err := auth.GenerateJWT("uid-7", false, testSecret, time.Hour)
	require.NoError(t, err)

	w := get(r, "/optional", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", w.Body.String())

	w = get(r, "/optional", "garbage")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", w.Body.String())

	w = get(r, "/optional", token)
	assert.Equal(t, "uid-7", w.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	r := authRouter()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/optional", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
