package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"nusapos/internal/store"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

func successResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func errorResponse(message string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
	}
}

func successWithMetaResponse(message string, data interface{}, meta interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    meta,
	}
}

// respondError translates storage and service errors into HTTP statuses. Raw
// database errors are never echoed to the client.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse("Resource not found"))
	case errors.Is(err, store.ErrStateConflict),
		errors.Is(err, store.ErrInsufficientStock),
		errors.Is(err, store.ErrDuplicateTransactionNumber),
		errors.Is(err, store.ErrHoldExpired):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	case errors.Is(err, store.ErrRefundExceedsTotal):
		c.JSON(http.StatusUnprocessableEntity, errorResponse(err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, errorResponse("Database error"))
	}
}
