package logger

import (
	"context"

	"github.com/rs/zerolog"
)

// Ключи для хранения значений в контексте.
// Используем приватные типы для избежания коллизий с другими пакетами.
type ctxKey string

const (
	// traceIDKey - ключ для хранения trace_id в контексте.
	// Trace ID используется для отслеживания запроса через все слои сервиса.
	traceIDKey ctxKey = "trace_id"

	// checkoutIDKey - ключ для хранения checkout_id в контексте.
	// Checkout ID связывает все операции по одной Stripe Checkout сессии:
	// создание, webhook, верификацию и fan-out по sink'ам.
	checkoutIDKey ctxKey = "checkout_id"

	// loggerKey - ключ для хранения логгера в контексте.
	// Позволяет передавать настроенный логгер через context.
	loggerKey ctxKey = "logger"
)

// WithTraceID добавляет trace_id в контекст.
// Trace ID должен быть уникальным идентификатором запроса,
// обычно генерируется на входе в систему (HTTP middleware).
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceIDFromContext извлекает trace_id из контекста.
// Возвращает пустую строку, если trace_id не установлен.
func TraceIDFromContext(ctx context.Context) string {
	if traceID, ok := ctx.Value(traceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// WithCheckoutID добавляет checkout_id в контекст.
// Используется для связывания webhook-а и верификации с конкретной сессией.
//
// Пример:
//
//	ctx = logger.WithCheckoutID(ctx, "cs_test_a1b2c3")
func WithCheckoutID(ctx context.Context, checkoutID string) context.Context {
	return context.WithValue(ctx, checkoutIDKey, checkoutID)
}

// CheckoutIDFromContext извлекает checkout_id из контекста.
// Возвращает пустую строку, если checkout_id не установлен.
func CheckoutIDFromContext(ctx context.Context) string {
	if checkoutID, ok := ctx.Value(checkoutIDKey).(string); ok {
		return checkoutID
	}
	return ""
}

// WithLogger добавляет логгер в контекст.
// Полезно для передачи настроенного логгера через слои приложения.
func WithLogger(ctx context.Context, l zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext извлекает логгер из контекста и автоматически добавляет
// trace_id и checkout_id, если они присутствуют в контексте.
//
// Если логгер не был явно добавлен в контекст, возвращает глобальный логгер.
// Это основной способ получения логгера в обработчиках и сервисах.
//
// Пример:
//
//	func (p *Processor) Process(ctx context.Context, checkoutID string) error {
//	    log := logger.FromContext(ctx)
//	    log.Info().Str("checkout_id", checkoutID).Msg("Начало обработки заказа")
//	    // ...
//	}
func FromContext(ctx context.Context) zerolog.Logger {
	// Пытаемся получить логгер из контекста.
	var l zerolog.Logger
	if ctxLogger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		l = ctxLogger
	} else {
		// Используем глобальный логгер, если в контексте его нет.
		l = log
	}

	// Добавляем trace_id, если он есть в контексте.
	if traceID := TraceIDFromContext(ctx); traceID != "" {
		l = l.With().Str("trace_id", traceID).Logger()
	}

	// Добавляем checkout_id, если он есть в контексте.
	if checkoutID := CheckoutIDFromContext(ctx); checkoutID != "" {
		l = l.With().Str("checkout_id", checkoutID).Logger()
	}

	return l
}

// Ctx возвращает указатель на zerolog.Logger из контекста.
// Это альтернативный способ использования, совместимый с zerolog.Ctx().
func Ctx(ctx context.Context) *zerolog.Logger {
	l := FromContext(ctx)
	return &l
}
