package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/errors"
)

type Response struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Data    interface{}            `json:"data,omitempty"`
	Errors  []apperrors.FieldError `json:"errors,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// RespondError writes err with the status of its kind. Validation failures
// carry their field list; internal errors hide their cause.
func RespondError(c *gin.Context, err error) {
	var verr *apperrors.ValidationError
	if errors.As(err, &verr) {
		resp := NewErrorResponse("validation failed")
		resp.Errors = verr.Fields
		c.AbortWithStatusJSON(http.StatusBadRequest, resp)
		return
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Internal(err)
	}
	_ = c.Error(err)

	status := appErr.StatusCode()
	message := appErr.Error()
	if status == http.StatusInternalServerError {
		message = appErr.Message
	}
	c.AbortWithStatusJSON(status, NewErrorResponse(message))
}

// BindJSON decodes the request body into obj, answering 400 on malformed
// input.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, NewErrorResponse("invalid request body: "+err.Error()))
		return false
	}
	return true
}

// UUIDParam parses the named path parameter.
func UUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		resp := NewErrorResponse("invalid " + name)
		resp.Errors = []apperrors.FieldError{{Field: name, Message: "must be a valid UUID"}}
		c.AbortWithStatusJSON(http.StatusBadRequest, resp)
		return uuid.Nil, false
	}
	return id, true
}
