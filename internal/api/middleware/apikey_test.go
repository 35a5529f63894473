package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/fortiban/fortiban/internal/auth"
	"github.com/fortiban/fortiban/internal/logger"
)

const (
	authRoute   = "/forti_api/v1/auth"
	banRoute    = "/forti_api/v1/autoban"
	deniedJSON  = `{"result":"failed","message":"api-key is not valid here"}`
	faultJSON   = `{"result":"failed","message":"Something went wrong, exiting..."}`
	defaultPeer = "203.0.113.9:40000"
)

func testRegistry() *auth.Registry {
	return auth.NewRegistry([]auth.Principal{
		{Username: "graylog", APIKey: "k-graylog", AllowedRoutes: []string{authRoute, banRoute}, Whitelist: []string{"192.0.2.10"}},
		{Username: "readonly", APIKey: "k-readonly", AllowedRoutes: []string{authRoute}},
	})
}

func setupGateRouter(reg *auth.Registry) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	handler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": Principal(c)})
	}
	r.GET(authRoute, APIKeyAuth(reg), handler)
	r.POST(banRoute, APIKeyAuth(reg), handler)
	return r
}

func doGate(r http.Handler, method, path, key, peer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = peer
	if key != "" {
		req.Header.Set(APIKeyHeader, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAPIKeyAuth_AdmitsByKey(t *testing.T) {
	r := setupGateRouter(testRegistry())

	w := doGate(r, http.MethodGet, authRoute, "k-graylog", defaultPeer)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"graylog"}`, w.Body.String())

	w = doGate(r, http.MethodGet, authRoute, "k-readonly", defaultPeer)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"readonly"}`, w.Body.String())
}

func TestAPIKeyAuth_AdmitsByWhitelist(t *testing.T) {
	r := setupGateRouter(testRegistry())

	w := doGate(r, http.MethodPost, banRoute, "", "192.0.2.10:51515")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"graylog"}`, w.Body.String())
}

func TestAPIKeyAuth_Denies(t *testing.T) {
	r := setupGateRouter(testRegistry())

	tests := []struct {
		name   string
		method string
		path   string
		key    string
		peer   string
	}{
		{name: "missing key", method: http.MethodGet, path: authRoute, peer: defaultPeer},
		{name: "unknown key", method: http.MethodGet, path: authRoute, key: "nope", peer: defaultPeer},
		{name: "valid key wrong route", method: http.MethodPost, path: banRoute, key: "k-readonly", peer: defaultPeer},
		{name: "unlisted peer without key", method: http.MethodGet, path: authRoute, peer: "198.51.100.1:1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGate(r, tt.method, tt.path, tt.key, tt.peer)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, deniedJSON, w.Body.String())
		})
	}
}

func TestAPIKeyAuth_IgnoresForwardedFor(t *testing.T) {
	r := setupGateRouter(testRegistry())

	req := httptest.NewRequest(http.MethodGet, authRoute, nil)
	req.RemoteAddr = defaultPeer
	req.Header.Set("X-Forwarded-For", "192.0.2.10")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPIKeyAuth_MalformedEntry(t *testing.T) {
	buf := &bytes.Buffer{}
	logger.Init(false, buf)

	reg := auth.NewRegistry([]auth.Principal{{APIKey: "k", AllowedRoutes: []string{authRoute}}})
	r := setupGateRouter(reg)

	w := doGate(r, http.MethodGet, authRoute, "k", defaultPeer)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, faultJSON, w.Body.String())
	assert.Contains(t, buf.String(), "api auth evaluation failed")
}

func TestAPIKeyAuth_NilRegistryIsFault(t *testing.T) {
	r := setupGateRouter(nil)

	w := doGate(r, http.MethodGet, authRoute, "k", defaultPeer)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, faultJSON, w.Body.String())
}

func TestAPIKeyAuth_AuditLog(t *testing.T) {
	buf := &bytes.Buffer{}
	logger.Init(false, buf)
	r := setupGateRouter(testRegistry())

	doGate(r, http.MethodGet, authRoute, "k-graylog", defaultPeer)
	out := buf.String()
	assert.Contains(t, out, "api auth passed")
	assert.Contains(t, out, `"user":"graylog"`)
	assert.Contains(t, out, `"path":"/forti_api/v1/auth"`)
	assert.Contains(t, out, `"remote_ip":"203.0.113.9"`)
	assert.NotContains(t, out, "k-graylog")

	buf.Reset()
	doGate(r, http.MethodGet, authRoute, "bad", defaultPeer)
	out = buf.String()
	assert.Contains(t, out, "api auth failed")
	assert.Contains(t, out, `"user":"unknown"`)
}
