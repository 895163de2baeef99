package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"corplandlords/wireboard/internal/auth"
	"corplandlords/wireboard/internal/config"
	"corplandlords/wireboard/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeWires embeds the interface so only the methods under test need bodies.
type fakeWires struct {
	services.IWireService
	published []primitive.ObjectID
	err       error
}

func (f *fakeWires) PublishWire(ctx context.Context, id primitive.ObjectID) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, id)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		JwtSecret:               "secret",
		RateLimitSoftBucketSize: 100, RateLimitSoftRefillRate: 100,
		RateLimitHardBucketSize: 100, RateLimitHardRefillRate: 100,
	}
}

func serviceCall(r http.Handler, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestSetupRouter_PublicAndProtectedRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := SetupRouter(ctx, testConfig(), &fakeWires{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/wires/"+primitive.NewObjectID().Hex()+"/like", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServiceRouter_PublishWire(t *testing.T) {
	gin.SetMode(gin.TestMode)
	wires := &fakeWires{}
	r := SetupServiceRouter(testConfig(), nil, wires, make(chan struct{}, 1))
	id := primitive.NewObjectID()

	w := serviceCall(r, `{"method":"publishWire","arguments":["`+id.Hex()+`"]}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []primitive.ObjectID{id}, wires.published)

	w = serviceCall(r, `{"method":"publishWire","arguments":["nope"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	wires.err = services.ErrInvalidTransition
	w = serviceCall(r, `{"method":"publishWire","arguments":["`+id.Hex()+`"]}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestServiceRouter_ShutdownAndUnknown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	shutdown := make(chan struct{}, 1)
	r := SetupServiceRouter(testConfig(), nil, &fakeWires{}, shutdown)

	w := serviceCall(r, `{"method":"shutdown"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	select {
	case <-shutdown:
	default:
		t.Fatal("shutdown was not signaled")
	}

	// a second request must not block on the full channel
	shutdown <- struct{}{}
	w = serviceCall(r, `{"method":"shutdown"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusNotFound, serviceCall(r, `{"method":"nope"}`).Code)
	assert.Equal(t, http.StatusNotFound, serviceCall(r, `{"method":"getTestEmail","arguments":["a@example.com"]}`).Code)
}

func TestSetupRouter_AdminPublish(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wires := &fakeWires{}
	r := SetupRouter(ctx, testConfig(), wires, nil)
	id := primitive.NewObjectID()
	path := "/v1/admin/wires/" + id.Hex() + "/publish"

	call := func(isAdmin bool) int {
		token, err := auth.GenerateJWT("u-1", isAdmin, "secret", time.Hour)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusForbidden, call(false))
	assert.Empty(t, wires.published)
	assert.Equal(t, http.StatusNoContent, call(true))
	assert.Equal(t, []primitive.ObjectID{id}, wires.published)
}

func TestServiceRouter_IssueToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	cfg.TokenTTL = time.Hour

	r := SetupServiceRouter(cfg, nil, &fakeWires{}, make(chan struct{}, 1))
	assert.Equal(t, http.StatusNotFound, serviceCall(r, `{"method":"issueToken","arguments":["u-7"]}`).Code)

	cfg.MockServices = true
	assert.Equal(t, http.StatusBadRequest, serviceCall(r, `{"method":"issueToken","arguments":[]}`).Code)

	w := serviceCall(r, `{"method":"issueToken","arguments":["u-7"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Result string `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	claims, err := auth.ValidateJWT(resp.Result, "secret")
	require.NoError(t, err)
	assert.Equal(t, "u-7", claims.UserID())
	assert.False(t, claims.IsAdmin)
}
