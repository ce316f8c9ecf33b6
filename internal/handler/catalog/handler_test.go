package catalog

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/model"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/repository/memory"
	catalogsvc "github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/service/catalog"
)

func TestCatalogEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := memory.NewStore()
	store.AddClaustro(model.Claustro{ID: uuid.New(), Name: "Externo"})
	store.AddAttribute(model.Attribute{ID: uuid.New(), Name: "weight"})

	r := gin.New()
	NewHandler(catalogsvc.NewService(store.Catalog(), time.Minute)).RegisterRoutes(r.Group("/api/v1"))

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}
	post := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/catalog/dependency-areas", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}

	w := get("/api/v1/catalog/claustros")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Externo")

	w = get("/api/v1/catalog/visit-attributes")
	assert.Contains(t, w.Body.String(), "weight")

	pair := `{"dependency_id":"` + uuid.NewString() + `","area_id":"` + uuid.NewString() + `"}`
	assert.Equal(t, http.StatusCreated, post(pair).Code)
	assert.Equal(t, http.StatusConflict, post(pair).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{}`).Code)

	w = get("/api/v1/catalog/dependency-areas")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "area_id")
}
