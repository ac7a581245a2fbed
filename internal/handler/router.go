package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"example.com/restaurant-checkout/internal/checkout"
	"example.com/restaurant-checkout/internal/middleware"
	"example.com/restaurant-checkout/internal/provider"
	"example.com/restaurant-checkout/pkg/metrics"
)

// serviceName — имя сервиса в метриках и трейсах.
const serviceName = "restaurant-checkout"

// ReadinessChecker — функция проверки готовности сервиса.
type ReadinessChecker func(ctx context.Context) error

// Router — конфигурация роутера.
type Router struct {
	engine         *gin.Engine
	checkoutSvc    checkout.Service
	provider       provider.Client
	fulfiller      Fulfiller
	archive        FulfillmentArchive // nil при выключенном архиве
	readinessCheck ReadinessChecker   // опциональная проверка готовности
	port           int
}

// RouterConfig — параметры для создания роутера.
type RouterConfig struct {
	CheckoutService checkout.Service
	Provider        provider.Client
	Fulfiller       Fulfiller
	Archive         FulfillmentArchive // nil отключает маршрут /fulfillments
	ReadinessCheck  ReadinessChecker   // опциональная проверка готовности для /readyz
	Port            int                // Порт сервиса для корневого health ответа
	Debug           bool               // Режим отладки Gin
}

// NewRouter создаёт и настраивает HTTP роутер.
func NewRouter(cfg RouterConfig) *Router {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Стандартные middleware Gin
	engine.Use(gin.Recovery())

	// CORS — обработка cross-origin запросов фронтенда
	engine.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	// Security headers — защита от clickjacking и MIME-sniffing
	engine.Use(middleware.SecurityHeaders())

	// OpenTelemetry tracing — создаёт spans для Jaeger
	engine.Use(otelgin.Middleware(serviceName))

	// Prometheus метрики — requests_total, request_duration_seconds
	engine.Use(metrics.GinMetricsMiddleware(serviceName))

	// Сквозной trace_id + access-логи
	engine.Use(middleware.Tracing())

	r := &Router{
		engine:         engine,
		checkoutSvc:    cfg.CheckoutService,
		provider:       cfg.Provider,
		fulfiller:      cfg.Fulfiller,
		archive:        cfg.Archive,
		readinessCheck: cfg.ReadinessCheck,
		port:           cfg.Port,
	}

	r.setupRoutes()
	return r
}

// setupRoutes настраивает все маршруты API.
func (r *Router) setupRoutes() {
	// Health endpoints
	r.engine.GET("/", r.rootHealth)           // legacy, формат старого бэкенда
	r.engine.GET("/healthz", r.livenessCheck) // liveness probe
	r.engine.GET("/readyz", r.readinessCheckHandler)

	// === Checkout ===
	checkoutHandler := NewCheckoutHandler(r.checkoutSvc)
	r.engine.POST("/create-checkout-session", checkoutHandler.CreateCheckout)

	// === Верификация оплаты (страховочный путь) ===
	verifyHandler := NewVerifyHandler(r.provider, r.fulfiller)
	r.engine.POST("/verify-payment", verifyHandler.VerifyPayment)

	// === Webhook провайдера (основной процессор) ===
	webhookHandler := NewWebhookHandler(r.provider, r.fulfiller)
	r.engine.POST("/stripe-webhook", webhookHandler.HandleWebhook)

	// === Архив обработок (только при включённом MySQL) ===
	if r.archive != nil {
		fulfillmentHandler := NewFulfillmentHandler(r.archive)
		r.engine.GET("/fulfillments/:session_id", fulfillmentHandler.GetFulfillment)
	}
}

// Engine возвращает Gin engine для запуска сервера.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// rootHealth — проверка работоспособности в формате старого бэкенда.
func (r *Router) rootHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":   true,
		"name": serviceName,
		"port": r.port,
	})
}

// livenessCheck — liveness probe.
func (r *Router) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// readinessCheckHandler — readiness probe.
func (r *Router) readinessCheckHandler(c *gin.Context) {
	// Если ReadinessChecker не установлен — считаем сервис готовым
	if r.readinessCheck == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := r.readinessCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
