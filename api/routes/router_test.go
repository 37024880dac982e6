package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ises-energia/scrc-backend/internal/tracking"
	pkgauth "github.com/ises-energia/scrc-backend/pkg/auth"
	"github.com/ises-energia/scrc-backend/pkg/config"
	"github.com/ises-energia/scrc-backend/pkg/logger"
)

func testDeps() Deps {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.JWT = config.JWTConfig{Secret: "test-secret", Issuer: "scrc-test", ExpirationMinutes: 60}
	return Deps{
		Config:  cfg,
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Tracker: tracking.NewTracker(config.TrackingConfig{}, nil),
	}
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := NewRouter(testDeps())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-SCRC-Env"))
}

func TestMetricsEndpointIsPublic(t *testing.T) {
	router := NewRouter(testDeps())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := NewRouter(testDeps())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tracking/technicians", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDispatchRoutesRequireDispatcherRole(t *testing.T) {
	deps := testDeps()
	router := NewRouter(deps)

	token, err := pkgauth.IssueAccessToken(deps.Config.JWT, uuid.New(), pkgauth.RoleTechnician)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dispatch/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTrackingReadWithValidToken(t *testing.T) {
	deps := testDeps()
	router := NewRouter(deps)

	token, err := pkgauth.IssueAccessToken(deps.Config.JWT, uuid.New(), pkgauth.RoleDispatcher)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tracking/technicians", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
