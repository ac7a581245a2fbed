package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/restaurant-checkout/internal/checkout"
	"example.com/restaurant-checkout/internal/domain"
	"example.com/restaurant-checkout/pkg/logger"
)

// CheckoutHandler — обработчик создания Checkout сессий.
type CheckoutHandler struct {
	service checkout.Service
}

// NewCheckoutHandler создаёт новый обработчик чекаута.
func NewCheckoutHandler(service checkout.Service) *CheckoutHandler {
	return &CheckoutHandler{service: service}
}

// === Request/Response DTOs ===

// CreateCheckoutRequest — запрос на создание Checkout сессии.
// Формат полей зафиксирован контрактом фронтенда.
type CreateCheckoutRequest struct {
	CustomerName   string             `json:"customer_name" binding:"required,min=1"`
	CustomerNumber string             `json:"customer_number" binding:"required,min=1"`
	OrderItems     []OrderItemRequest `json:"order_items" binding:"required,min=1,dive"`
	TotalPrice     float64            `json:"total_price" binding:"required,gt=0"`
	SessionID      string             `json:"session_id"`
}

// OrderItemRequest — позиция заказа в запросе.
type OrderItemRequest struct {
	ID    string  `json:"id"`
	Name  string  `json:"name" binding:"required,min=1"`
	Price float64 `json:"price" binding:"min=0"`
}

// CreateCheckoutResponse — ответ с адресом hosted checkout страницы.
type CreateCheckoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
}

// === Handlers ===

// CreateCheckout обрабатывает POST /create-checkout-session.
func (h *CheckoutHandler) CreateCheckout(c *gin.Context) {
	var req CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log := logger.FromContext(c.Request.Context())
		log.Warn().Err(err).Msg("Невалидный запрос создания чекаута")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Некорректное тело запроса: " + err.Error(),
		})
		return
	}

	items := make([]domain.OrderItem, len(req.OrderItems))
	for i, item := range req.OrderItems {
		items[i] = domain.OrderItem{ID: item.ID, Name: item.Name, Price: item.Price}
	}

	sess, err := h.service.CreateCheckout(c.Request.Context(), checkout.CreateCheckoutInput{
		CustomerName:   req.CustomerName,
		CustomerNumber: req.CustomerNumber,
		OrderSessionID: req.SessionID,
		Items:          items,
		TotalPrice:     req.TotalPrice,
	})
	if err != nil {
		HandleDomainError(c, err, "CreateCheckout")
		return
	}

	c.JSON(http.StatusOK, CreateCheckoutResponse{CheckoutURL: sess.URL})
}
