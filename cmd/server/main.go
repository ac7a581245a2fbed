// Package main — точка входа сервиса чекаута ресторана.
// Сервис создаёт Stripe Checkout сессии, принимает webhook-и провайдера
// и выполняет fan-out оплаченного заказа: сохранение, кухня, счёт.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/restaurant-checkout/internal/archive"
	"example.com/restaurant-checkout/internal/checkout"
	"example.com/restaurant-checkout/internal/events"
	"example.com/restaurant-checkout/internal/fulfillment"
	"example.com/restaurant-checkout/internal/handler"
	"example.com/restaurant-checkout/internal/provider"
	"example.com/restaurant-checkout/internal/sink"
	"example.com/restaurant-checkout/pkg/config"
	"example.com/restaurant-checkout/pkg/db"
	"example.com/restaurant-checkout/pkg/healthcheck"
	"example.com/restaurant-checkout/pkg/logger"
	"example.com/restaurant-checkout/pkg/metrics"
	"example.com/restaurant-checkout/pkg/tracing"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Ошибка загрузки конфигурации")
	}

	// Инициализируем логгер
	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Pretty: cfg.App.LogPretty,
	})

	logger.Info().
		Str("service", cfg.App.Name).
		Str("env", cfg.App.Env).
		Msg("Запуск сервиса чекаута")

	// === Observability: Metrics + Tracing ===

	var metricsServer *metrics.Server
	var readinessChecks []func(context.Context) error
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Addr(), cfg.App.Name)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.Error().Err(err).Msg("Ошибка Metrics Server")
			}
		}()
	}

	shutdownTracing, err := tracing.InitTracer(tracing.Config{
		ServiceName:    cfg.App.Name,
		JaegerEndpoint: cfg.Jaeger.OTLPEndpoint(),
		Enabled:        cfg.Jaeger.Enabled,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Не удалось инициализировать tracing")
	}

	// === Платёжный провайдер ===

	stripeClient := provider.NewStripeClient(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)

	// === Sink-и fan-out-а ===

	sinkCfg := sink.Config{
		Timeout:    cfg.Sinks.Timeout,
		Retries:    cfg.Sinks.Retries,
		RetryDelay: cfg.Sinks.RetryDelay,
	}
	saveOrderSink := sink.NewSaveOrderSink(cfg.Sinks.SaveOrderURL, sinkCfg)
	kitchenSink := sink.NewKitchenSink(cfg.Sinks.KitchenURL, cfg.Stripe.Currency, sinkCfg)
	invoiceSink := sink.NewInvoiceSink(cfg.Sinks.InvoiceURL, cfg.Sinks.WhatsAppFrom, cfg.Sinks.InvoiceDocURL, sinkCfg)

	// === Completion Processor ===

	processor := fulfillment.NewProcessor(stripeClient, saveOrderSink, kitchenSink, invoiceSink)

	// Redis lease — опциональное сужение окна гонки claim-а
	if cfg.Redis.Enabled {
		redisClient := db.ConnectRedis(cfg.Redis)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("Ошибка закрытия Redis")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			cancel()
			logger.Fatal().Err(err).Msg("Не удалось подключиться к Redis")
		}
		cancel()
		logger.Info().Str("addr", cfg.Redis.Addr()).Msg("Подключено к Redis")

		processor.WithClaimStore(fulfillment.NewRedisClaimStore(redisClient, cfg.Redis.ClaimTTL))
		readinessChecks = append(readinessChecks, func(ctx context.Context) error {
			return healthcheck.CheckRedis(ctx, redisClient)
		})
	}

	// MySQL архив обработок — опционален
	var archiveRepo archive.Repository
	if cfg.MySQL.Enabled {
		gormDB, err := db.ConnectMySQL(cfg.MySQL, cfg.IsDevelopment())
		if err != nil {
			logger.Fatal().Err(err).Msg("Не удалось подключиться к MySQL")
		}
		logger.Info().Str("database", cfg.MySQL.Database).Msg("Подключено к MySQL")

		if err := gormDB.AutoMigrate(&archive.FulfillmentModel{}); err != nil {
			logger.Fatal().Err(err).Msg("Ошибка миграции схемы архива")
		}

		archiveRepo = archive.NewRepository(gormDB)
		processor.WithArchive(archiveRepo)
		readinessChecks = append(readinessChecks, func(ctx context.Context) error {
			return healthcheck.CheckMySQL(ctx, gormDB)
		})
	}

	// Kafka события обработки — опциональны
	if cfg.Kafka.Enabled {
		publisher, err := events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			logger.Fatal().Err(err).Msg("Ошибка создания Kafka Publisher")
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error().Err(err).Msg("Ошибка закрытия Kafka Publisher")
			}
		}()

		processor.WithEvents(publisher)
	}

	// === Сервис чекаута ===

	checkoutService := checkout.NewService(stripeClient, checkout.Config{
		Currency:    cfg.Stripe.Currency,
		ProductName: cfg.Stripe.ProductName,
		FrontendURL: cfg.HTTP.FrontendURL,
	})

	// === Настройка роутера ===

	var archiveReader handler.FulfillmentArchive
	if archiveRepo != nil {
		archiveReader = archiveRepo
	}

	router := handler.NewRouter(handler.RouterConfig{
		CheckoutService: checkoutService,
		Provider:        stripeClient,
		Fulfiller:       processor,
		Archive:         archiveReader,
		ReadinessCheck:  healthcheck.Composite(readinessChecks...),
		Port:            cfg.HTTP.Port,
		Debug:           cfg.IsDevelopment(),
	})

	// === HTTP сервер ===

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router.Engine(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info().
			Str("addr", cfg.HTTP.Addr()).
			Msg("HTTP сервер запущен")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Ошибка HTTP сервера")
		}
	}()

	// === Graceful Shutdown ===

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Получен сигнал завершения, останавливаем сервер...")

	// Даём 30 секунд на завершение текущих запросов
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Ошибка при остановке сервера")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("Ошибка остановки Metrics Server")
		}
	}

	if shutdownTracing != nil {
		if err := shutdownTracing(ctx); err != nil {
			logger.Error().Err(err).Msg("Ошибка остановки Tracing")
		}
	}

	logger.Info().Msg("Сервис чекаута остановлен")
}
