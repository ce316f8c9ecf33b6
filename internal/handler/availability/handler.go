package availability

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/handler"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/model"
	apperrors "github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/errors"
)

type Service interface {
	AddSlot(ctx context.Context, professionalID uuid.UUID, req *model.CreateSlotRequest) (*model.AvailabilitySlot, error)
	ListSlots(ctx context.Context, professionalID uuid.UUID) ([]*model.AvailabilitySlot, error)
	RemoveSlot(ctx context.Context, slotID uuid.UUID) error
	IsWithinAvailability(ctx context.Context, professionalID uuid.UUID, weekday model.Weekday, t model.TimeOfDay) (bool, error)
}

// ProfessionalRemover removes a professional together with its calendar.
type ProfessionalRemover interface {
	RemoveProfessional(ctx context.Context, id uuid.UUID) error
}

type Handler struct {
	service       Service
	professionals ProfessionalRemover
}

func NewHandler(service Service, professionals ProfessionalRemover) *Handler {
	return &Handler{
		service:       service,
		professionals: professionals,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	professionals := r.Group("/professionals/:id")
	{
		professionals.DELETE("", h.RemoveProfessional)
		professionals.POST("/slots", h.AddSlot)
		professionals.GET("/slots", h.ListSlots)
		professionals.GET("/availability", h.CheckAvailability)
	}
	r.DELETE("/slots/:id", h.RemoveSlot)
}

func (h *Handler) AddSlot(c *gin.Context) {
	professionalID, ok := handler.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req model.CreateSlotRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	slot, err := h.service.AddSlot(c.Request.Context(), professionalID, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(slot))
}

func (h *Handler) ListSlots(c *gin.Context) {
	professionalID, ok := handler.UUIDParam(c, "id")
	if !ok {
		return
	}
	slots, err := h.service.ListSlots(c.Request.Context(), professionalID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(slots))
}

func (h *Handler) RemoveSlot(c *gin.Context) {
	slotID, ok := handler.UUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.RemoveSlot(c.Request.Context(), slotID); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CheckAvailability answers GET ?weekday=1&time=09:30.
func (h *Handler) CheckAvailability(c *gin.Context) {
	professionalID, ok := handler.UUIDParam(c, "id")
	if !ok {
		return
	}

	verr := &apperrors.ValidationError{}
	weekday, err := strconv.Atoi(c.Query("weekday"))
	if err != nil || !model.Weekday(weekday).Valid() {
		verr.Add("weekday", "must be an integer between 1 and 7")
	}
	at, err := model.ParseTimeOfDay(c.Query("time"))
	if err != nil || !at.Valid() {
		verr.Add("time", "must be a HH:MM time")
	}
	if err := verr.OrNil(); err != nil {
		handler.RespondError(c, err)
		return
	}

	available, err := h.service.IsWithinAvailability(c.Request.Context(), professionalID, model.Weekday(weekday), at)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"weekday":   weekday,
		"time":      at,
		"available": available,
	}))
}

func (h *Handler) RemoveProfessional(c *gin.Context) {
	professionalID, ok := handler.UUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.professionals.RemoveProfessional(c.Request.Context(), professionalID); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
