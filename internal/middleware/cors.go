// Package middleware содержит HTTP middleware сервиса чекаута.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSConfig — настройки CORS.
type CORSConfig struct {
	// AllowedOrigins — разрешённые источники. "*" разрешает все (только для dev).
	AllowedOrigins []string
	// AllowedMethods — разрешённые HTTP методы.
	AllowedMethods []string
	// AllowedHeaders — разрешённые заголовки запроса.
	AllowedHeaders []string
	// MaxAge — время кеширования preflight ответа (секунды).
	MaxAge string
}

// DefaultCORSConfig возвращает конфигурацию для фронтенда ресторана.
// Stripe-Signature в списке не нужен: webhook приходит от Stripe
// сервер-сервер и CORS не проходит.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Origin", "Content-Type", "X-Request-ID"},
		MaxAge:         "3600",
	}
}

// CORS создаёт middleware для обработки CORS preflight и основных запросов.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	origins := strings.Join(cfg.AllowedOrigins, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		// Проверяем, разрешён ли origin
		allowed := false
		for _, o := range cfg.AllowedOrigins {
			if o == "*" || o == origin {
				allowed = true
				break
			}
		}

		if !allowed {
			c.Next()
			return
		}

		h := c.Writer.Header()
		if origins == "*" {
			h.Set("Access-Control-Allow-Origin", "*")
		} else {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Vary", "Origin")
		}
		h.Set("Access-Control-Allow-Methods", methods)
		h.Set("Access-Control-Allow-Headers", headers)
		h.Set("Access-Control-Max-Age", cfg.MaxAge)

		// Preflight запрос — отвечаем сразу без обработки
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
