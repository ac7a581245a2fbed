package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"example.com/restaurant-checkout/internal/domain"
)

// ErrEmptyInvoiceSummary — после схлопывания позиций не осталось ни одного
// имени для шаблона счёта. Счёт без списка позиций не отправляется.
var ErrEmptyInvoiceSummary = errors.New("пустой список позиций для счёта")

// invoicePayload — тело запроса для WhatsApp workflow (Twilio Content API).
// Нумерованные ContentVariables подставляются в утверждённый шаблон.
type invoicePayload struct {
	To               string            `json:"To"`
	From             string            `json:"From"`
	ContentVariables map[string]string `json:"ContentVariables"`
}

// InvoiceSink отправляет клиенту счёт в WhatsApp через внешний workflow.
type InvoiceSink struct {
	caller *caller
	from   string // Отправитель ("whatsapp:<e164>")
	docURL string // Ссылка на PDF счёта для шаблона
}

// NewInvoiceSink создаёт sink отправки счёта.
func NewInvoiceSink(url, from, docURL string, cfg Config) *InvoiceSink {
	return &InvoiceSink{
		caller: newCaller(NameInvoice, url, cfg),
		from:   from,
		docURL: docURL,
	}
}

// Send отправляет счёт клиенту.
// Номер получателя дополняется префиксом "whatsapp:" при его отсутствии.
func (s *InvoiceSink) Send(ctx context.Context, order domain.CompletedOrder) error {
	to := strings.TrimSpace(order.CustomerNumber)
	if !strings.HasPrefix(to, "whatsapp:") {
		to = "whatsapp:" + to
	}

	summary := domain.ItemsSummary(order.Items)
	if summary == "" {
		return ErrEmptyInvoiceSummary
	}

	return s.caller.post(ctx, invoicePayload{
		To:   to,
		From: s.from,
		ContentVariables: map[string]string{
			"1": strings.TrimSpace(order.CustomerName),
			"2": summary,
			"3": fmt.Sprintf("%v", order.TotalPrice),
			"4": strings.TrimSpace(s.docURL),
		},
	})
}
