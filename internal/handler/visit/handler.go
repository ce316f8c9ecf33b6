package visit

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/handler"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/model"
	apperrors "github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/errors"
)

type Service interface {
	Create(ctx context.Context, req *model.CreateVisitRequest) (*model.Visit, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Visit, error)
	List(ctx context.Context, filters *model.VisitFilters) ([]*model.Visit, error)
	History(ctx context.Context, id uuid.UUID) ([]*model.VisitTransition, error)
	Begin(ctx context.Context, id uuid.UUID) (*model.Visit, error)
	Complete(ctx context.Context, id uuid.UUID) (*model.Visit, error)
	Cancel(ctx context.Context, id uuid.UUID) (*model.Visit, error)
	UpdateClinical(ctx context.Context, id uuid.UUID, req *model.UpdateClinicalRequest) (*model.Visit, error)
	RecordAttribute(ctx context.Context, visitID, attributeID uuid.UUID, req *model.RecordAttributeRequest) (*model.VisitAttribute, error)
	Attributes(ctx context.Context, visitID uuid.UUID) ([]*model.VisitAttribute, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	visits := r.Group("/visits")
	{
		visits.POST("", h.Create)
		visits.GET("", h.List)
		visits.GET("/:id", h.Get)
		visits.PATCH("/:id", h.UpdateClinical)
		visits.GET("/:id/history", h.History)
		visits.POST("/:id/begin", h.transition(Service.Begin))
		visits.POST("/:id/complete", h.transition(Service.Complete))
		visits.POST("/:id/cancel", h.transition(Service.Cancel))
		visits.GET("/:id/attributes", h.Attributes)
		visits.PUT("/:id/attributes/:attribute_id", h.RecordAttribute)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateVisitRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	v, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(v))
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := handler.UUIDParam(c, "id")
	if !ok {
		return
	}
	v, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(v))
}

type listQuery struct {
	PersonID       string `form:"person_id"`
	ProfessionalID string `form:"professional_id"`
	Status         string `form:"status"`
	From           string `form:"from"`
	To             string `form:"to"`
	Page           int    `form:"page"`
	PageSize       int    `form:"page_size"`
}

// List accepts person_id, professional_id, status, from and to (YYYY-MM-DD)
// plus page and page_size.
func (h *Handler) List(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, handler.NewErrorResponse("invalid query: "+err.Error()))
		return
	}

	filters := &model.VisitFilters{
		Status:     model.VisitStatus(q.Status),
		Pagination: model.Pagination{Page: q.Page, PageSize: q.PageSize},
	}
	verr := &apperrors.ValidationError{}
	parseID := func(field, raw string, dst *uuid.UUID) {
		if raw == "" {
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			verr.Add(field, "must be a valid UUID")
			return
		}
		*dst = id
	}
	parseDate := func(field, raw string, dst *time.Time) {
		if raw == "" {
			return
		}
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			verr.Add(field, "must be a YYYY-MM-DD date")
			return
		}
		*dst = d
	}
	parseID("person_id", q.PersonID, &filters.PersonID)
	parseID("professional_id", q.ProfessionalID, &filters.ProfessionalID)
	parseDate("from", q.From, &filters.From)
	parseDate("to", q.To, &filters.To)
	if err := verr.OrNil(); err != nil {
		handler.RespondError(c, err)
		return
	}

	visits, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(visits))
}

func (h *Handler) History(c *gin.Context) {
	id, ok := handler.UUIDParam(c, "id")
	if !ok {
		return
	}
	history, err := h.service.History(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(history))
}

func (h *Handler) transition(apply func(Service, context.Context, uuid.UUID) (*model.Visit, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := handler.UUIDParam(c, "id")
		if !ok {
			return
		}
		v, err := apply(h.service, c.Request.Context(), id)
		if err != nil {
			handler.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, handler.NewSuccessResponse(v))
	}
}

func (h *Handler) UpdateClinical(c *gin.Context) {
	id, ok := handler.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req model.UpdateClinicalRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	v, err := h.service.UpdateClinical(c.Request.Context(), id, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(v))
}

func (h *Handler) RecordAttribute(c *gin.Context) {
	visitID, ok := handler.UUIDParam(c, "id")
	if !ok {
		return
	}
	attributeID, ok := handler.UUIDParam(c, "attribute_id")
	if !ok {
		return
	}
	var req model.RecordAttributeRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	attr, err := h.service.RecordAttribute(c.Request.Context(), visitID, attributeID, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(attr))
}

func (h *Handler) Attributes(c *gin.Context) {
	visitID, ok := handler.UUIDParam(c, "id")
	if !ok {
		return
	}
	attrs, err := h.service.Attributes(c.Request.Context(), visitID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(attrs))
}
