package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/handler/health"
	promhandler "github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/handler/prometheus"
	visithandler "github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/handler/visit"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/middleware"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/repository/memory"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/service/availability"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/service/catalog"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/service/event"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/service/identity"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/service/visit"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/clock"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/lock"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/logger"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/metrics"
)

func newTestRouter(t *testing.T, burst int) *Router {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics("salud", "", reg)
	store := memory.NewStore()
	clk := clock.System()
	events := event.NewEventService(store.Outbox(), clk)
	ident := identity.NewService(store.Persons(), store.Professionals(), events, clk, logger.Nop())
	slots := availability.NewService(store.Availability(), ident, lock.NewLocal(), events, clk, time.UTC, m, logger.Nop())
	visits := visit.NewService(store.Visits(), ident, slots, catalog.NewService(store.Catalog(), time.Minute), events, clk, time.UTC, m, logger.Nop())

	prom := promhandler.New(reg)
	return NewRouter(RouterConfig{
		Mode:           gin.TestMode,
		RateLimit:      0.001,
		RateBurst:      burst,
		RequestTimeout: time.Second,
		CORSConfig:     middleware.DefaultCORSConfig(),
	}, prom, health.NewHandler(nil, prom.Handler()), visithandler.NewHandler(visits))
}

func get(r *Router, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestRoutesAndMetrics(t *testing.T) {
	r := newTestRouter(t, 10)

	w := get(r, "/api/v1/visits/"+uuid.NewString())
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderXRequestID))

	w = get(r, "/api/v1/health/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",path="/api/v1/visits/:id",status="404"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestHealthIsNotRateLimited(t *testing.T) {
	r := newTestRouter(t, 1)

	assert.Equal(t, http.StatusNotFound, get(r, "/api/v1/visits/"+uuid.NewString()).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/api/v1/visits/"+uuid.NewString()).Code)
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(r, "/api/v1/health/live").Code)
	}
}
