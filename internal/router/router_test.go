package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-scheduler/internal/handler"
	"github.com/jwalitptl/clinic-scheduler/internal/handler/health"
	"github.com/jwalitptl/clinic-scheduler/internal/handler/prometheus"
	"github.com/jwalitptl/clinic-scheduler/internal/middleware"
	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/repository/postgres"
	"github.com/jwalitptl/clinic-scheduler/internal/service/catalog"
	"github.com/jwalitptl/clinic-scheduler/pkg/auth"
)

type whoami struct{}

func (whoami) RegisterRoutes(r gin.IRouter) {
	r.GET("/whoami", func(c *gin.Context) {
		p, err := handler.Principal(c)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
			"role":    p.Role,
			"loaders": catalog.For(c.Request.Context()) != nil,
		}))
	})
}

func setup(t *testing.T) (*Router, auth.JWTService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "postgres")
	jwtSvc := auth.NewJWTService("test-secret", "clinic-scheduler", "")
	r := NewRouter(
		middleware.NewAuthMiddleware(jwtSvc),
		postgres.NewCatalogRepository(postgres.NewBaseRepository(sqlxDB, nil)),
		health.NewHandler(sqlxDB, nil),
		prometheus.New(),
		RouterConfig{CORSConfig: middleware.DefaultCORSConfig()},
		whoami{},
	)
	r.Setup()
	return r, jwtSvc, mock
}

func get(r *Router, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, req)
	return w
}

func TestHealthIsPublic(t *testing.T) {
	r, _, mock := setup(t)
	mock.ExpectPing()

	assert.Equal(t, http.StatusOK, get(r, "/api/v1/health/live", "").Code)
	assert.Equal(t, http.StatusOK, get(r, "/api/v1/health/ready", "").Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadinessFailsWithoutDatabase(t *testing.T) {
	r, _, mock := setup(t)
	mock.ExpectPing().WillReturnError(assert.AnError)

	assert.Equal(t, http.StatusServiceUnavailable, get(r, "/api/v1/health/ready", "").Code)
}

func TestAPIRequiresToken(t *testing.T) {
	r, jwtSvc, _ := setup(t)

	w := get(r, "/api/v1/whoami", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderXRequestID))

	token, err := jwtSvc.GenerateAccessToken(model.Principal{
		UserID:         uuid.New(),
		OrganizationID: uuid.New(),
		Role:           model.RoleAdmin,
	}, time.Minute)
	require.NoError(t, err)

	w = get(r, "/api/v1/whoami", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success","data":{"role":"admin","loaders":true}}`, w.Body.String())
	assert.Equal(t, "1.0", w.Header().Get("X-API-Version"))
}

func TestMetricsExposeRequests(t *testing.T) {
	r, _, _ := setup(t)
	get(r, "/api/v1/health/live", "")

	w := get(r, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="GET",path="/api/v1/health/live",status="200"} 1`)
}
