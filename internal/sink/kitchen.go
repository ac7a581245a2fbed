package sink

import (
	"context"
	"fmt"
	"strings"

	"example.com/restaurant-checkout/internal/domain"
)

// KitchenSink уведомляет кухню о новом оплаченном заказе.
// Помимо структурированных полей передаёт order_text — готовый текст
// тикета для вывода на кухонный экран / в мессенджер.
type KitchenSink struct {
	caller        *caller
	currencyLabel string
}

// NewKitchenSink создаёт sink уведомления кухни.
// currency — валюта чекаута (ISO 4217, нижний регистр), в тикете
// отображается в верхнем регистре.
func NewKitchenSink(url, currency string, cfg Config) *KitchenSink {
	return &KitchenSink{
		caller:        newCaller(NameKitchen, url, cfg),
		currencyLabel: strings.ToUpper(currency),
	}
}

// Notify отправляет заказ в kitchen endpoint.
func (s *KitchenSink) Notify(ctx context.Context, order domain.CompletedOrder) error {
	return s.caller.post(ctx, orderPayload{
		CustomerName:   order.CustomerName,
		CustomerNumber: order.CustomerNumber,
		TotalPrice:     order.TotalPrice,
		OrderItems:     order.Items,
		OrderText:      s.formatTicket(order),
		SessionID:      order.OrderSessionID,
	})
}

// formatTicket собирает текст кухонного тикета.
func (s *KitchenSink) formatTicket(order domain.CompletedOrder) string {
	var items strings.Builder
	for i, item := range order.Items {
		if i > 0 {
			items.WriteString("\n")
		}
		fmt.Fprintf(&items, "- %s — %v %s", item.Name, item.Price, s.currencyLabel)
	}

	return strings.TrimSpace(fmt.Sprintf(`
New Order Received 🍽️

👤 Customer: %s
📞 Phone: %s
🧾 Session ID: %s

🛒 Items:
%s

💰 Total: %v %s

Sent from Zuccess Restaurant AI Assistant 🤖
`, order.CustomerName, order.CustomerNumber, order.OrderSessionID, items.String(), order.TotalPrice, s.currencyLabel))
}
