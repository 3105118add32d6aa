package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/abduss/artifactdrive/internal/auth"
	"github.com/abduss/artifactdrive/internal/config"
	"github.com/abduss/artifactdrive/internal/logger"
	"github.com/abduss/artifactdrive/internal/metrics"
	"github.com/abduss/artifactdrive/internal/release"
	"github.com/abduss/artifactdrive/internal/ticket"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

const (
	routerTestKey      = "router-test-key-123456"
	routerTestEmail    = "support@example.com"
	routerTestPassword = "router-staff-password"
)

func testDeps(t *testing.T) Dependencies {
	t.Helper()
	hash, err := auth.HashKey(routerTestKey, bcrypt.MinCost)
	require.NoError(t, err)
	verifier, err := auth.NewKeyVerifier(hash)
	require.NoError(t, err)

	pwHash, err := bcrypt.GenerateFromPassword([]byte(routerTestPassword), bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(config.AuthConfig{
		AdminEmail:        routerTestEmail,
		AdminPasswordHash: string(pwHash),
		TokenSecret:       "router-test-secret-0123456789abcdef",
		TokenTTL:          time.Hour,
		TokenIssuer:       "artifactdrive",
	})
	require.NoError(t, err)

	return Dependencies{
		Config:         config.Config{Metrics: config.MetricsConfig{PrometheusPath: "/metrics"}},
		DB:             pingFunc(func(context.Context) error { return nil }),
		ObjectStore:    pingFunc(func(context.Context) error { return nil }),
		KeyVerifier:    verifier,
		TokenService:   tokens,
		ReleaseService: release.NewService(nil, nil, nil, nil, time.Minute, nil),
		TicketService:  ticket.NewService(nil, nil, nil, nil, nil),
	}
}

func TestHealthRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	deps := testDeps(t)
	router := NewRouter(deps)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(logger.CorrelationIDHeader))

	deps.ObjectStore = pingFunc(func(context.Context) error { return errors.New(`bucket "artifactdrive" does not exist`) })
	router = NewRouter(deps)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"component":"minio"`)
}

func TestRouteGroupsRequireTheirCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(testDeps(t))

	rec := httptest.NewRecorder()
	login := `{"email":"` + routerTestEmail + `","password":"` + routerTestPassword + `"}`
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/admin/login", strings.NewReader(login)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var token auth.AccessToken
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &token))

	withKey := func(r *http.Request) { r.Header.Set(auth.APIKeyHeader, routerTestKey) }
	withToken := func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token.Token) }
	anonymous := func(*http.Request) {}

	// 400 means the request passed the guard and reached the id parser.
	cases := []struct {
		name   string
		method string
		path   string
		auth   func(*http.Request)
		want   int
	}{
		{"staff route anonymous", http.MethodGet, "/v1/support-tickets/abc", anonymous, http.StatusUnauthorized},
		{"staff route api key", http.MethodGet, "/v1/support-tickets/abc", withKey, http.StatusUnauthorized},
		{"staff route token", http.MethodGet, "/v1/support-tickets/abc", withToken, http.StatusBadRequest},
		{"staff delete token", http.MethodDelete, "/v1/support-tickets/abc", withToken, http.StatusBadRequest},
		{"staff attachment api key", http.MethodGet, "/v1/support-attachments/abc/download", withKey, http.StatusUnauthorized},
		{"staff attachment token", http.MethodGet, "/v1/support-attachments/abc/download", withToken, http.StatusBadRequest},
		{"publisher route anonymous", http.MethodGet, "/v1/releases/abc", anonymous, http.StatusUnauthorized},
		{"publisher route token", http.MethodGet, "/v1/releases/abc", withToken, http.StatusUnauthorized},
		{"publisher route api key", http.MethodGet, "/v1/releases/abc", withKey, http.StatusBadRequest},
		{"public download", http.MethodGet, "/v1/releases/abc/download", anonymous, http.StatusBadRequest},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		tc.auth(req)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, tc.want, rec.Code, tc.name)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics.InitMetrics()
	router := NewRouter(testDeps(t))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "artifactdrive_http_requests_total"))
}
