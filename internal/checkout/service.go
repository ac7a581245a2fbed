// Package checkout содержит сервис создания Checkout сессий.
// Сервис валидирует заказ, упаковывает его в метаданные сессии и создаёт
// hosted checkout у платёжного провайдера.
package checkout

import (
	"context"
	"fmt"
	"math"
	"strings"

	"example.com/restaurant-checkout/internal/domain"
	"example.com/restaurant-checkout/internal/provider"
	"example.com/restaurant-checkout/pkg/logger"
)

// Config — параметры создаваемых Checkout сессий.
type Config struct {
	Currency    string // Валюта чекаута (ISO 4217, нижний регистр)
	ProductName string // Название позиции на hosted странице
	FrontendURL string // База для success/cancel редиректов
}

// CreateCheckoutInput — параметры создания чекаута.
type CreateCheckoutInput struct {
	CustomerName   string
	CustomerNumber string
	OrderSessionID string // Корреляционный ID заказа из фронтенда
	Items          []domain.OrderItem
	TotalPrice     float64 // Сумма в основных единицах валюты
}

// CheckoutSession — результат создания чекаута.
type CheckoutSession struct {
	CheckoutID string // ID сессии у провайдера
	URL        string // Ссылка на hosted checkout страницу
}

// Service определяет интерфейс создания Checkout сессий.
type Service interface {
	// CreateCheckout валидирует заказ и создаёт Checkout сессию.
	// При заказе, не помещающемся в метаданные, провайдер не вызывается.
	CreateCheckout(ctx context.Context, in CreateCheckoutInput) (*CheckoutSession, error)
}

// checkoutService — реализация Service поверх платёжного провайдера.
type checkoutService struct {
	provider provider.Client
	cfg      Config
}

// NewService создаёт сервис чекаута.
func NewService(p provider.Client, cfg Config) Service {
	return &checkoutService{provider: p, cfg: cfg}
}

// CreateCheckout валидирует заказ и создаёт Checkout сессию у провайдера.
func (s *checkoutService) CreateCheckout(ctx context.Context, in CreateCheckoutInput) (*CheckoutSession, error) {
	log := logger.FromContext(ctx)

	if strings.TrimSpace(in.CustomerName) == "" {
		return nil, domain.ErrEmptyCustomerName
	}
	if strings.TrimSpace(in.CustomerNumber) == "" {
		return nil, domain.ErrEmptyCustomerNumber
	}
	if err := domain.ValidateOrder(in.Items); err != nil {
		return nil, err
	}
	if in.TotalPrice <= 0 {
		return nil, domain.ErrInvalidTotalPrice
	}

	// Заказ упаковывается в метаданные до обращения к провайдеру:
	// слишком большой заказ отклоняется без создания сессии.
	orderJSON, err := domain.EncodeOrderMetadata(in.Items)
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{
		domain.MetaCustomerName:   in.CustomerName,
		domain.MetaCustomerNumber: in.CustomerNumber,
		domain.MetaSessionID:      in.OrderSessionID,
		domain.MetaOrder:          orderJSON,
		domain.MetaProcessed:      string(domain.ProcessedFalse),
	}

	frontend := strings.TrimRight(s.cfg.FrontendURL, "/")

	sess, err := s.provider.CreateSession(ctx, provider.CreateSessionInput{
		AmountMinor: int64(math.Round(in.TotalPrice * 100)),
		Currency:    s.cfg.Currency,
		ProductName: s.cfg.ProductName,
		SuccessURL:  frontend + "/payment-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   frontend + "/payment-cancel",
		Metadata:    metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания чекаута: %w", err)
	}

	log.Info().
		Str("checkout_id", sess.ID).
		Str("order_session_id", in.OrderSessionID).
		Float64("total_price", in.TotalPrice).
		Msg("Создана Checkout сессия")

	return &CheckoutSession{CheckoutID: sess.ID, URL: sess.URL}, nil
}
