package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/webhook"

	"example.com/restaurant-checkout/pkg/logger"
)

// StripeClient — реализация Client поверх Stripe SDK.
type StripeClient struct {
	webhookSecret string
}

// NewStripeClient создаёт клиент Stripe.
// secretKey устанавливается глобально для SDK (стандартный способ stripe-go).
func NewStripeClient(secretKey, webhookSecret string) *StripeClient {
	stripe.Key = secretKey
	return &StripeClient{webhookSecret: webhookSecret}
}

// CreateSession создаёт Checkout сессию (mode=payment, оплата картой,
// одна позиция на полную сумму заказа).
func (c *StripeClient) CreateSession(ctx context.Context, in CreateSessionInput) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(in.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(in.ProductName),
					},
					UnitAmount: stripe.Int64(in.AmountMinor),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
	}
	params.Context = ctx
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}

	sess, err := session.New(params)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Ошибка создания Checkout сессии")
		return nil, fmt.Errorf("ошибка создания Checkout сессии: %w", err)
	}

	return toSession(sess), nil
}

// GetSession загружает сессию у Stripe.
func (c *StripeClient) GetSession(ctx context.Context, id string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := session.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения Checkout сессии %s: %w", id, err)
	}

	return toSession(sess), nil
}

// UpdateSessionMetadata записывает метаданные сессии.
// Stripe мержит переданные ключи с существующими значениями.
func (c *StripeClient) UpdateSessionMetadata(ctx context.Context, id string, metadata map[string]string) error {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	if _, err := session.Update(id, params); err != nil {
		return fmt.Errorf("ошибка обновления метаданных сессии %s: %w", id, err)
	}

	return nil
}

// ParseWebhookEvent проверяет подпись Stripe-Signature и разбирает событие.
// Для checkout-событий извлекает ID сессии из payload.
func (c *StripeClient) ParseWebhookEvent(payload []byte, signature string) (*Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, c.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки подписи webhook: %w", err)
	}

	out := &Event{Type: string(event.Type)}

	if out.Type == EventCheckoutCompleted {
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("ошибка разбора checkout.session.completed: %w", err)
		}
		out.SessionID = sess.ID
	}

	return out, nil
}

// toSession конвертирует объект Stripe SDK в доменную проекцию.
func toSession(sess *stripe.CheckoutSession) *Session {
	metadata := sess.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}

	return &Session{
		ID:            sess.ID,
		URL:           sess.URL,
		AmountTotal:   sess.AmountTotal,
		Currency:      string(sess.Currency),
		PaymentStatus: string(sess.PaymentStatus),
		Metadata:      metadata,
	}
}
