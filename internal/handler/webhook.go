package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/restaurant-checkout/internal/fulfillment"
	"example.com/restaurant-checkout/internal/provider"
	"example.com/restaurant-checkout/pkg/logger"
	"example.com/restaurant-checkout/pkg/metrics"
)

// WebhookHandler — приёмник webhook-ов платёжного провайдера.
type WebhookHandler struct {
	provider  provider.Client
	fulfiller Fulfiller
}

// NewWebhookHandler создаёт новый обработчик webhook-ов.
func NewWebhookHandler(p provider.Client, f Fulfiller) *WebhookHandler {
	return &WebhookHandler{provider: p, fulfiller: f}
}

// WebhookResponse — ответ провайдеру на webhook.
type WebhookResponse struct {
	Received  bool `json:"received"`
	Processed bool `json:"processed,omitempty"`
	Skipped   bool `json:"skipped,omitempty"`
	Error     bool `json:"error,omitempty"`
}

// HandleWebhook обрабатывает POST /stripe-webhook.
//
// Подпись проверяется по сырому телу запроса до любого разбора.
// После успешной проверки провайдер всегда получает 200: внутренний
// сбой обработки отражён в metadata.processed, и его повтор идёт через
// состояние "error", а не через retry провайдера.
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	log := logger.FromContext(c.Request.Context())

	payload, err := c.GetRawData()
	if err != nil {
		log.Warn().Err(err).Msg("Ошибка чтения тела webhook-а")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_payload",
			Message: "Не удалось прочитать тело запроса",
		})
		return
	}

	event, err := h.provider.ParseWebhookEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		// Детали не возвращаем: подпись не сошлась — содержимому нет доверия.
		log.Warn().Err(err).Msg("Webhook с неверной подписью")
		metrics.WebhookEventsTotal.WithLabelValues("unknown", "signature_error").Inc()
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_signature",
			Message: "Webhook Error",
		})
		return
	}

	if event.Type != provider.EventCheckoutCompleted {
		metrics.WebhookEventsTotal.WithLabelValues(event.Type, "ignored").Inc()
		c.JSON(http.StatusOK, WebhookResponse{Received: true})
		return
	}

	outcome, err := h.fulfiller.Process(c.Request.Context(), event.SessionID)
	if err != nil {
		log.Error().Err(err).Str("checkout_id", event.SessionID).Msg("Ошибка обработки webhook-а")
		metrics.WebhookEventsTotal.WithLabelValues(event.Type, "error").Inc()
		c.JSON(http.StatusOK, WebhookResponse{Received: true, Error: true})
		return
	}

	switch outcome.Result {
	case fulfillment.ResultCompleted:
		metrics.WebhookEventsTotal.WithLabelValues(event.Type, "processed").Inc()
		c.JSON(http.StatusOK, WebhookResponse{Received: true, Processed: true})

	case fulfillment.ResultSkipped:
		metrics.WebhookEventsTotal.WithLabelValues(event.Type, "skipped").Inc()
		c.JSON(http.StatusOK, WebhookResponse{Received: true, Skipped: true})

	case fulfillment.ResultInProgress:
		metrics.WebhookEventsTotal.WithLabelValues(event.Type, "in_progress").Inc()
		c.JSON(http.StatusOK, WebhookResponse{Received: true})

	default: // ResultFailed
		metrics.WebhookEventsTotal.WithLabelValues(event.Type, "error").Inc()
		c.JSON(http.StatusOK, WebhookResponse{Received: true, Error: true})
	}
}
