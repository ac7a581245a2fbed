// Package metrics предоставляет Prometheus метрики сервиса.
// Содержит HTTP метрики (requests, latency), доменные метрики обработки
// заказов (webhook события, fulfillment, sink вызовы) и HTTP server для
// /metrics endpoint.
//
// Типы метрик в Prometheus:
//   - Counter: только растёт (запросы, ошибки) — "сколько всего произошло"
//   - Histogram: распределение значений (latency) — "как быстро работает"
//
// Использование:
//
//	srv := metrics.NewServer(":9090", "restaurant-checkout")
//	go srv.Start()
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/restaurant-checkout/pkg/logger"
)

// =============================================================================
// Метрики — определяем что будем собирать
// =============================================================================

var (
	// RequestsTotal — счётчик всех HTTP запросов.
	// PromQL пример: rate(requests_total{service="restaurant-checkout"}[5m]) — RPS за 5 минут
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requests_total",
			Help: "Общее количество запросов по сервису, методу и статусу",
		},
		[]string{"service", "method", "status"},
	)

	// RequestDuration — гистограмма latency запросов.
	// PromQL пример: histogram_quantile(0.95, rate(request_duration_seconds_bucket[5m])) — p95 latency
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "request_duration_seconds",
			Help: "Время выполнения запроса в секундах",
			// Buckets оптимизированы для типичных API: от 5ms до 10s
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"service", "method"},
	)

	// WebhookEventsTotal — счётчик webhook событий Stripe.
	// status: "processed", "skipped", "in_progress", "ignored", "signature_error", "error"
	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stripe_webhook_events_total",
			Help: "Количество webhook событий Stripe по типу и результату",
		},
		[]string{"event_type", "status"},
	)

	// FulfillmentsTotal — счётчик запусков Completion Processor.
	// result: "completed", "skipped", "in_progress", "failed"
	FulfillmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillments_total",
			Help: "Количество запусков обработки заказа по результату",
		},
		[]string{"result"},
	)

	// SinkCallsTotal — счётчик вызовов внешних sink-ов.
	// sink: "save_order", "kitchen", "invoice"; status: "success", "error"
	SinkCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sink_calls_total",
			Help: "Количество вызовов внешних sink-ов по имени и статусу",
		},
		[]string{"sink", "status"},
	)

	// SinkCallDuration — гистограмма latency вызовов sink-ов.
	SinkCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sink_call_duration_seconds",
			Help:    "Время вызова внешнего sink-а в секундах",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"sink"},
	)
)

// =============================================================================
// HTTP Server для /metrics endpoint
// =============================================================================

// ReadinessChecker — функция проверки готовности сервиса.
// Возвращает nil если сервис готов принимать трафик, иначе — ошибку.
type ReadinessChecker func(ctx context.Context) error

// Server — HTTP сервер для экспорта метрик Prometheus.
type Server struct {
	httpServer     *http.Server
	service        string
	readinessCheck ReadinessChecker
}

// Option — функциональная опция для настройки Server.
type Option func(*Server)

// WithReadinessCheck добавляет проверку готовности для /readyz endpoint.
// Если checker возвращает ошибку — /readyz вернёт 503 Service Unavailable.
func WithReadinessCheck(checker ReadinessChecker) Option {
	return func(s *Server) {
		s.readinessCheck = checker
	}
}

// NewServer создаёт новый metrics server.
// addr — адрес для прослушивания (например ":9090")
// service — имя сервиса для логирования
// opts — опциональные настройки (например WithReadinessCheck)
func NewServer(addr, service string, opts ...Option) *Server {
	s := &Server{
		service: service,
	}

	// Применяем опции
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()

	// /metrics — endpoint для Prometheus (он сам приходит сюда и забирает метрики)
	mux.Handle("/metrics", promhttp.Handler())

	// /healthz — liveness probe для Kubernetes
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"alive"}`))
	})

	// /readyz — readiness probe для Kubernetes
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		// Если ReadinessChecker не установлен — считаем сервис готовым
		if s.readinessCheck == nil {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ready"}`))
			return
		}

		// Проверяем готовность с таймаутом 5 секунд
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := s.readinessCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			// Не выводим детали ошибки наружу (безопасность)
			_, _ = w.Write([]byte(`{"status":"not_ready"}`))
			logger.Warn().Err(err).Str("service", s.service).Msg("Readiness check failed")
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// Start запускает HTTP сервер для метрик.
// Блокирующий вызов — запускать в горутине.
func (s *Server) Start() error {
	log := logger.With().Str("service", s.service).Logger()
	log.Info().Str("addr", s.httpServer.Addr).Msg("Запуск Metrics Server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully останавливает сервер.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// =============================================================================
// Вспомогательные функции для записи метрик
// =============================================================================

// RecordRequest записывает метрики запроса (вызывать в конце обработки).
// duration — время выполнения запроса
// method — имя метода (например "/create-checkout-session")
// status — результат: "success" или "error"
func RecordRequest(service, method, status string, duration time.Duration) {
	RequestsTotal.WithLabelValues(service, method, status).Inc()
	RequestDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordSinkCall записывает метрики одного вызова sink-а.
func RecordSinkCall(sink, status string, duration time.Duration) {
	SinkCallsTotal.WithLabelValues(sink, status).Inc()
	SinkCallDuration.WithLabelValues(sink).Observe(duration.Seconds())
}

// =============================================================================
// Gin Middleware для HTTP метрик
// =============================================================================

// GinMetricsMiddleware возвращает Gin middleware для сбора HTTP метрик.
// Записывает requests_total, request_duration_seconds для каждого запроса.
func GinMetricsMiddleware(service string) func(c *gin.Context) {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next() // Обрабатываем запрос

		// Определяем статус
		status := "success"
		if c.Writer.Status() >= 400 {
			status = "error"
		}

		// Записываем метрики
		RecordRequest(service, c.FullPath(), status, time.Since(start))
	}
}
