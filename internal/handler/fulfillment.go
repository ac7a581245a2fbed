package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/restaurant-checkout/internal/domain"
)

// FulfillmentHandler — чтение архива обработок.
type FulfillmentHandler struct {
	archive FulfillmentArchive
}

// NewFulfillmentHandler создаёт обработчик архива.
func NewFulfillmentHandler(archive FulfillmentArchive) *FulfillmentHandler {
	return &FulfillmentHandler{archive: archive}
}

// FulfillmentResponse — запись архива в ответе API.
type FulfillmentResponse struct {
	CheckoutID     string   `json:"checkout_id"`
	OrderSessionID string   `json:"order_session_id"`
	CustomerName   string   `json:"customer_name"`
	CustomerNumber string   `json:"customer_number"`
	TotalAmount    int64    `json:"total_amount"`
	Status         string   `json:"status"`
	FailedSinks    []string `json:"failed_sinks,omitempty"`
	ErrorMessage   string   `json:"error_message,omitempty"`
	CreatedAt      int64    `json:"created_at"`
	UpdatedAt      int64    `json:"updated_at"`
}

// GetFulfillment обрабатывает GET /fulfillments/:session_id.
func (h *FulfillmentHandler) GetFulfillment(c *gin.Context) {
	checkoutID := c.Param("session_id")

	f, err := h.archive.GetByCheckoutID(c.Request.Context(), checkoutID)
	if err != nil {
		HandleDomainError(c, err, "GetFulfillment")
		return
	}

	c.JSON(http.StatusOK, toFulfillmentResponse(f))
}

// toFulfillmentResponse конвертирует доменную сущность в DTO ответа.
func toFulfillmentResponse(f *domain.Fulfillment) FulfillmentResponse {
	return FulfillmentResponse{
		CheckoutID:     f.CheckoutID,
		OrderSessionID: f.OrderSessionID,
		CustomerName:   f.CustomerName,
		CustomerNumber: f.CustomerNumber,
		TotalAmount:    f.TotalAmount,
		Status:         string(f.Status),
		FailedSinks:    f.FailedSinks,
		ErrorMessage:   f.ErrorMessage,
		CreatedAt:      f.CreatedAt.Unix(),
		UpdatedAt:      f.UpdatedAt.Unix(),
	}
}
