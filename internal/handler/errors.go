package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/restaurant-checkout/internal/domain"
	"example.com/restaurant-checkout/pkg/logger"
)

// ErrorResponse — стандартный формат ошибки API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HandleDomainError преобразует доменную ошибку в HTTP ответ.
// Используется всеми handlers для единообразной обработки ошибок.
func HandleDomainError(c *gin.Context, err error, method string) {
	// Guard: nil ошибка — баг в вызывающем коде.
	if err == nil {
		logger.Error().Str("method", method).Msg("HandleDomainError вызван с nil ошибкой — баг в коде")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Внутренняя ошибка сервера",
		})
		return
	}

	log := logger.FromContext(c.Request.Context())

	var httpStatus int
	var errorCode string

	switch {
	case errors.Is(err, domain.ErrEmptyCustomerName),
		errors.Is(err, domain.ErrEmptyCustomerNumber),
		errors.Is(err, domain.ErrEmptyOrder),
		errors.Is(err, domain.ErrNegativePrice),
		errors.Is(err, domain.ErrInvalidTotalPrice):
		httpStatus = http.StatusBadRequest
		errorCode = "invalid_argument"

	case errors.Is(err, domain.ErrOrderTooLarge):
		httpStatus = http.StatusBadRequest
		errorCode = "order_too_large"

	case errors.Is(err, domain.ErrPaymentNotCompleted):
		httpStatus = http.StatusBadRequest
		errorCode = "payment_not_completed"

	case errors.Is(err, domain.ErrProcessingInProgress):
		httpStatus = http.StatusAccepted
		errorCode = "processing_in_progress"

	case errors.Is(err, domain.ErrFulfillmentNotFound):
		httpStatus = http.StatusNotFound
		errorCode = "not_found"

	default:
		httpStatus = http.StatusInternalServerError
		errorCode = "internal_error"
		log.Error().
			Err(err).
			Str("method", method).
			Msg("Внутренняя ошибка")
	}

	c.JSON(httpStatus, ErrorResponse{
		Error:   errorCode,
		Message: err.Error(),
	})
}
