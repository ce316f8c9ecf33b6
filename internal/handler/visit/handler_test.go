package visit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/model"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/repository/memory"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/service/availability"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/service/catalog"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/service/event"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/service/identity"
	visitsvc "github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/service/visit"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/clock"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/lock"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/logger"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/metrics"
)

type env struct {
	router    *gin.Engine
	clock     *clock.Fixed
	person    uuid.UUID
	prof      uuid.UUID
	attribute uuid.UUID
}

func setup(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memory.NewStore()
	clk := clock.NewFixed(time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC))
	m := metrics.NewForTest()
	events := event.NewEventService(store.Outbox(), clk)
	ident := identity.NewService(store.Persons(), store.Professionals(), events, clk, logger.Nop())
	slots := availability.NewService(store.Availability(), ident, lock.NewLocal(), events, clk, time.UTC, m, logger.Nop())
	svc := visitsvc.NewService(store.Visits(), ident, slots, catalog.NewService(store.Catalog(), time.Minute),
		events, clk, time.UTC, m, logger.Nop())

	e := &env{clock: clk, person: uuid.New(), prof: uuid.New(), attribute: uuid.New()}
	store.AddPerson(model.Person{Base: model.Base{ID: e.person}})
	store.AddProfessional(model.Professional{Base: model.Base{ID: e.prof}, Status: model.ProfessionalStatusActive})
	store.AddAttribute(model.Attribute{ID: e.attribute, Name: "temperature"})

	e.router = gin.New()
	NewHandler(svc).RegisterRoutes(e.router.Group("/api/v1"))
	return e
}

func (e *env) call(method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	e.router.ServeHTTP(w, req)
	return w
}

type visitResponse struct {
	Data model.Visit `json:"data"`
}

func decodeVisit(t *testing.T, w *httptest.ResponseRecorder) model.Visit {
	t.Helper()
	var resp visitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Data
}

func (e *env) create(t *testing.T) model.Visit {
	t.Helper()
	body := fmt.Sprintf(`{"person_id":%q,"professional_id":%q,"service_id":%q,"visit_type_id":%q}`,
		e.person, e.prof, uuid.NewString(), uuid.NewString())
	w := e.call(http.MethodPost, "/api/v1/visits", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeVisit(t, w)
}

func TestVisitLifecycleOverHTTP(t *testing.T) {
	e := setup(t)
	v := e.create(t)
	assert.Equal(t, model.VisitStatusWaiting, v.Status)
	assert.Nil(t, v.StartTime)
	base := "/api/v1/visits/" + v.ID.String()

	e.clock.Advance(10 * time.Minute)
	w := e.call(http.MethodPost, base+"/begin", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.VisitStatusInProgress, decodeVisit(t, w).Status)

	w = e.call(http.MethodPost, base+"/complete", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "start time must be before its end time")

	e.clock.Advance(15 * time.Minute)
	w = e.call(http.MethodPost, base+"/complete", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.VisitStatusCompleted, decodeVisit(t, w).Status)

	w = e.call(http.MethodPost, base+"/complete", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "terminal state")

	w = e.call(http.MethodPatch, base, `{"diagnosis":"late"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = e.call(http.MethodGet, base+"/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		Data []model.VisitTransition `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	assert.Len(t, history.Data, 3)
}

func TestVisitAttributesOverHTTP(t *testing.T) {
	e := setup(t)
	v := e.create(t)
	base := "/api/v1/visits/" + v.ID.String()

	w := e.call(http.MethodPut, base+"/attributes/"+e.attribute.String(), `{"value":"37.2"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.call(http.MethodPut, base+"/attributes/"+uuid.NewString(), `{"value":"1"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.call(http.MethodPut, base+"/attributes/"+e.attribute.String(), `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"value"`)

	w = e.call(http.MethodGet, base+"/attributes", "")
	assert.Contains(t, w.Body.String(), "37.2")
}

func TestVisitErrorsOverHTTP(t *testing.T) {
	e := setup(t)

	w := e.call(http.MethodPost, "/api/v1/visits", `{"person_id":"`+e.person.String()+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "visit_type_id")

	w = e.call(http.MethodGet, "/api/v1/visits/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.call(http.MethodGet, "/api/v1/visits/nope", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.call(http.MethodGet, "/api/v1/visits?from=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListVisitsOverHTTP(t *testing.T) {
	e := setup(t)
	first := e.create(t)
	e.create(t)

	w := e.call(http.MethodPost, "/api/v1/visits/"+first.ID.String()+"/cancel", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = e.call(http.MethodGet, "/api/v1/visits?status=cancelled&from=2024-04-01&to=2024-04-01", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data []model.Visit `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, first.ID, list.Data[0].ID)
}
