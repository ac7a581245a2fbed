// Package config предоставляет загрузку конфигурации из переменных окружения.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config содержит полную конфигурацию приложения.
type Config struct {
	App     AppConfig
	HTTP    HTTPConfig
	Stripe  StripeConfig
	Sinks   SinksConfig
	MySQL   MySQLConfig
	Redis   RedisConfig
	Kafka   KafkaConfig
	Jaeger  JaegerConfig
	Metrics MetricsConfig
}

// AppConfig содержит общие настройки приложения.
type AppConfig struct {
	Name      string `env:"APP_NAME" envDefault:"restaurant-checkout"`
	Env       string `env:"APP_ENV" envDefault:"development"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

// HTTPConfig содержит настройки HTTP сервера.
type HTTPConfig struct {
	Port         int           `env:"HTTP_PORT" envDefault:"4242"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`

	// FrontendURL — адрес фронтенда для success/cancel редиректов Stripe.
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
}

// Addr возвращает адрес для HTTP сервера.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// StripeConfig содержит настройки платёжного провайдера Stripe.
type StripeConfig struct {
	// SecretKey — API ключ (sk_...). Обязателен.
	SecretKey string `env:"STRIPE_SECRET_KEY,required"`

	// WebhookSecret — секрет подписи webhook-ов (whsec_...). Обязателен.
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET,required"`

	// Currency — валюта чекаута (ISO 4217, нижний регистр).
	Currency string `env:"STRIPE_CURRENCY" envDefault:"sar"`

	// ProductName — название позиции на hosted checkout странице.
	ProductName string `env:"STRIPE_PRODUCT_NAME" envDefault:"Restaurant Order"`
}

// SinksConfig содержит адреса внешних HTTP sink-ов и политику их вызова.
// Каждый sink — fire-and-forget POST JSON, успех = любой 2xx.
type SinksConfig struct {
	SaveOrderURL string `env:"SINK_SAVE_ORDER_URL,required"`
	KitchenURL   string `env:"SINK_KITCHEN_URL,required"`
	InvoiceURL   string `env:"SINK_INVOICE_URL,required"`

	// InvoiceDocURL — ссылка на PDF счёта, подставляется в WhatsApp шаблон.
	InvoiceDocURL string `env:"SINK_INVOICE_DOC_URL" envDefault:""`

	// WhatsAppFrom — отправитель WhatsApp сообщений (формат "whatsapp:<e164>").
	WhatsAppFrom string `env:"SINK_WHATSAPP_FROM,required"`

	// Timeout — таймаут одного HTTP вызова sink-а.
	Timeout time.Duration `env:"SINK_TIMEOUT" envDefault:"10s"`

	// Retries — количество дополнительных попыток при сбое вызова.
	Retries int `env:"SINK_RETRIES" envDefault:"1"`

	// RetryDelay — пауза между попытками.
	RetryDelay time.Duration `env:"SINK_RETRY_DELAY" envDefault:"500ms"`
}

// MySQLConfig содержит настройки подключения к MySQL.
// MySQL используется для локального архива fulfillment-записей и опционален.
type MySQLConfig struct {
	Enabled         bool          `env:"MYSQL_ENABLED" envDefault:"false"`
	Host            string        `env:"MYSQL_HOST" envDefault:"localhost"`
	Port            int           `env:"MYSQL_PORT" envDefault:"3306"`
	User            string        `env:"MYSQL_USER" envDefault:"root"`
	Password        string        `env:"MYSQL_PASSWORD" envDefault:"root"`
	Database        string        `env:"MYSQL_DATABASE" envDefault:"restaurant_checkout"`
	MaxOpenConns    int           `env:"MYSQL_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"MYSQL_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"MYSQL_CONN_MAX_LIFETIME" envDefault:"5m"`
}

// DSN возвращает строку подключения к MySQL.
func (c MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// RedisConfig содержит настройки подключения к Redis.
// Redis используется для lease-блокировки обработки сессии и опционален.
type RedisConfig struct {
	Enabled  bool   `env:"REDIS_ENABLED" envDefault:"false"`
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// ClaimTTL — время жизни lease на обработку одной сессии.
	ClaimTTL time.Duration `env:"REDIS_CLAIM_TTL" envDefault:"2m"`
}

// Addr возвращает адрес Redis сервера.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// KafkaConfig содержит настройки публикации fulfillment-событий в Kafka.
type KafkaConfig struct {
	Enabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	Brokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	Topic   string   `env:"KAFKA_FULFILLMENT_TOPIC" envDefault:"order.fulfillment"`
}

// JaegerConfig содержит настройки трассировки Jaeger.
type JaegerConfig struct {
	Enabled  bool   `env:"JAEGER_ENABLED" envDefault:"false"`
	Host     string `env:"JAEGER_HOST" envDefault:"localhost"`
	OTLPPort int    `env:"JAEGER_OTLP_PORT" envDefault:"4317"` // OTLP gRPC порт
}

// OTLPEndpoint возвращает OTLP gRPC endpoint для Jaeger.
func (c JaegerConfig) OTLPEndpoint() string {
	return fmt.Sprintf("%s:%d", c.Host, c.OTLPPort)
}

// MetricsConfig содержит настройки Prometheus метрик.
type MetricsConfig struct {
	Enabled bool `env:"METRICS_ENABLED" envDefault:"true"` // Включить metrics endpoint
	Port    int  `env:"METRICS_PORT" envDefault:"9090"`    // Порт для /metrics
}

// Addr возвращает адрес для Metrics HTTP сервера.
func (c MetricsConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load загружает конфигурацию из переменных окружения.
// Опционально загружает .env файл, если он существует.
func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файл не найден)
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга конфигурации: %w", err)
	}

	return cfg, nil
}

// LoadFromFile загружает конфигурацию из указанного .env файла.
func LoadFromFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, fmt.Errorf("ошибка загрузки .env файла %s: %w", path, err)
	}

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга конфигурации: %w", err)
	}

	return cfg, nil
}

// IsDevelopment возвращает true, если приложение запущено в development режиме.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction возвращает true, если приложение запущено в production режиме.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
