package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/restaurant-checkout/internal/domain"
	"example.com/restaurant-checkout/internal/fulfillment"
	"example.com/restaurant-checkout/internal/provider"
	"example.com/restaurant-checkout/pkg/logger"
)

// VerifyHandler — обработчик верификации оплаты.
// Страховочный путь на случай потерянного webhook-а: фронтенд вызывает
// верификацию со страницы успешной оплаты, и необработанная сессия
// добирается тем же Completion Processor-ом.
type VerifyHandler struct {
	provider  provider.Client
	fulfiller Fulfiller
}

// NewVerifyHandler создаёт новый обработчик верификации.
func NewVerifyHandler(p provider.Client, f Fulfiller) *VerifyHandler {
	return &VerifyHandler{provider: p, fulfiller: f}
}

// VerifyPaymentRequest — запрос верификации оплаты.
type VerifyPaymentRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// VerifyPaymentResponse — результат верификации.
type VerifyPaymentResponse struct {
	Success     bool     `json:"success"`
	Paid        bool     `json:"paid"`
	Processed   string   `json:"processed"`
	Message     string   `json:"message"`
	FailedSinks []string `json:"failed_sinks,omitempty"`
}

// VerifyPayment обрабатывает POST /verify-payment.
func (h *VerifyHandler) VerifyPayment(c *gin.Context) {
	log := logger.FromContext(c.Request.Context())

	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Отсутствует session_id",
		})
		return
	}

	sess, err := h.provider.GetSession(c.Request.Context(), req.SessionID)
	if err != nil {
		log.Error().Err(err).Str("checkout_id", req.SessionID).Msg("Ошибка верификации оплаты")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "verification_failed",
			Message: err.Error(),
		})
		return
	}

	if !sess.Paid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "payment_not_completed",
			Message: domain.ErrPaymentNotCompleted.Error() + ": " + sess.PaymentStatus,
		})
		return
	}

	// Уже обработана — подтверждаем без запуска процессора.
	if sess.Processed() == domain.ProcessedTrue {
		c.JSON(http.StatusOK, VerifyPaymentResponse{
			Success:   true,
			Paid:      true,
			Processed: string(domain.ProcessedTrue),
			Message:   "Платёж подтверждён",
		})
		return
	}

	outcome, err := h.fulfiller.Process(c.Request.Context(), req.SessionID)
	if err != nil {
		log.Error().Err(err).Str("checkout_id", req.SessionID).Msg("Ошибка обработки при верификации")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "verification_failed",
			Message: err.Error(),
		})
		return
	}

	switch outcome.Result {
	case fulfillment.ResultCompleted, fulfillment.ResultSkipped:
		c.JSON(http.StatusOK, VerifyPaymentResponse{
			Success:     true,
			Paid:        true,
			Processed:   string(domain.ProcessedTrue),
			Message:     "Платёж подтверждён, заказ обработан",
			FailedSinks: outcome.FailedSinks(),
		})

	case fulfillment.ResultInProgress:
		c.JSON(http.StatusAccepted, VerifyPaymentResponse{
			Success:   false,
			Paid:      true,
			Processed: string(domain.ProcessedInProgress),
			Message:   domain.ErrProcessingInProgress.Error() + ", повторите запрос позже",
		})

	default: // ResultFailed: сбой уже отражён в metadata.processed
		c.JSON(http.StatusOK, VerifyPaymentResponse{
			Success:     false,
			Paid:        true,
			Processed:   string(domain.ProcessedError),
			Message:     outcome.Err.Error(),
			FailedSinks: outcome.FailedSinks(),
		})
	}
}
