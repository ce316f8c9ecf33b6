package catalog

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/handler"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/model"
)

type Service interface {
	ListClaustros(ctx context.Context) ([]*model.Claustro, error)
	ListDependencyAreas(ctx context.Context) ([]*model.DependencyArea, error)
	AddDependencyArea(ctx context.Context, pair *model.DependencyArea) error
	ListAttributes(ctx context.Context) ([]*model.Attribute, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	catalog := r.Group("/catalog")
	{
		catalog.GET("/claustros", h.ListClaustros)
		catalog.GET("/dependency-areas", h.ListDependencyAreas)
		catalog.POST("/dependency-areas", h.AddDependencyArea)
		catalog.GET("/visit-attributes", h.ListAttributes)
	}
}

func (h *Handler) ListClaustros(c *gin.Context) {
	claustros, err := h.service.ListClaustros(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(claustros))
}

func (h *Handler) ListDependencyAreas(c *gin.Context) {
	pairs, err := h.service.ListDependencyAreas(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(pairs))
}

func (h *Handler) AddDependencyArea(c *gin.Context) {
	var pair model.DependencyArea
	if !handler.BindJSON(c, &pair) {
		return
	}
	if err := h.service.AddDependencyArea(c.Request.Context(), &pair); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(pair))
}

func (h *Handler) ListAttributes(c *gin.Context) {
	attrs, err := h.service.ListAttributes(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(attrs))
}
