package affiliation

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/handler"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/model"
)

type Service interface {
	ValidateBatch(ctx context.Context, entries []model.AffiliationEntry) error
	SubmitBatch(ctx context.Context, personID uuid.UUID, entries []model.AffiliationEntry) ([]*model.Affiliation, error)
	List(ctx context.Context, personID uuid.UUID) ([]*model.Affiliation, error)
	SetStatus(ctx context.Context, personID uuid.UUID, req *model.AffiliationStatusRequest) error
	Remove(ctx context.Context, key model.AffiliationKey) error
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/affiliations/validate", h.ValidateBatch)

	persons := r.Group("/persons/:id/affiliations")
	{
		persons.POST("", h.SubmitBatch)
		persons.GET("", h.List)
		persons.PATCH("/status", h.SetStatus)
		persons.DELETE("", h.Remove)
	}
}

func (h *Handler) ValidateBatch(c *gin.Context) {
	var req model.SubmitAffiliationsRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	if err := h.service.ValidateBatch(c.Request.Context(), req.Entries); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"accepted": true}))
}

func (h *Handler) SubmitBatch(c *gin.Context) {
	personID, ok := handler.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req model.SubmitAffiliationsRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	affiliations, err := h.service.SubmitBatch(c.Request.Context(), personID, req.Entries)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(affiliations))
}

func (h *Handler) List(c *gin.Context) {
	personID, ok := handler.UUIDParam(c, "id")
	if !ok {
		return
	}
	affiliations, err := h.service.List(c.Request.Context(), personID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(affiliations))
}

func (h *Handler) SetStatus(c *gin.Context) {
	personID, ok := handler.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req model.AffiliationStatusRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	if err := h.service.SetStatus(c.Request.Context(), personID, &req); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"status": req.Status}))
}

type removeRequest struct {
	ClaustroID   uuid.UUID `json:"claustro_id"`
	DependencyID uuid.UUID `json:"dependency_id"`
	AreaID       uuid.UUID `json:"area_id"`
}

func (h *Handler) Remove(c *gin.Context) {
	personID, ok := handler.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req removeRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	key := model.AffiliationKey{
		PersonID:     personID,
		ClaustroID:   req.ClaustroID,
		DependencyID: req.DependencyID,
		AreaID:       req.AreaID,
	}
	if err := h.service.Remove(c.Request.Context(), key); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
