package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"example.com/restaurant-checkout/pkg/logger"
)

// HTTP заголовки для трассировки.
const (
	HeaderTraceID   = "X-Trace-ID"
	HeaderRequestID = "X-Request-ID" // Алиас для Trace ID
)

// Tracing — middleware для сквозного trace_id и access-логов.
// Генерирует новый ID если его нет в запросе; ID попадает в context и
// во все записи логов обработки запроса.
func Tracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Извлекаем или генерируем trace_id
		traceID := c.GetHeader(HeaderTraceID)
		if traceID == "" {
			traceID = c.GetHeader(HeaderRequestID)
		}
		if traceID == "" {
			traceID = uuid.New().String()
		}

		ctx := logger.WithTraceID(c.Request.Context(), traceID)
		c.Request = c.Request.WithContext(ctx)

		// Возвращаем trace_id клиенту
		c.Header(HeaderTraceID, traceID)
		c.Set("trace_id", traceID)

		log := logger.FromContext(ctx)
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("client_ip", c.ClientIP()).
			Msg("Входящий запрос")

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		logEvent := log.Info()
		if statusCode >= 400 {
			logEvent = log.Warn()
		}
		if statusCode >= 500 {
			logEvent = log.Error()
		}

		logEvent.
			Int("status", statusCode).
			Dur("duration", duration).
			Msg("Запрос завершён")
	}
}
