// Package sink содержит HTTP адаптеры внешних side-effect endpoint-ов:
// сохранение заказа, уведомление кухни и отправка счёта в WhatsApp.
// Контракт каждого sink-а: POST JSON, успех = любой 2xx.
//
// Каждый вызов идёт с явным таймаутом, ограниченным числом повторов и
// через Circuit Breaker — внешние webhook endpoint-ы регулярно "моргают".
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"example.com/restaurant-checkout/pkg/circuitbreaker"
	"example.com/restaurant-checkout/pkg/logger"
	"example.com/restaurant-checkout/pkg/metrics"
)

// Имена sink-ов. Используются в логах, метриках и результатах fan-out-а.
const (
	NameSaveOrder = "save_order"
	NameKitchen   = "kitchen"
	NameInvoice   = "invoice"
)

// Config — общие настройки HTTP вызовов sink-ов.
type Config struct {
	Timeout    time.Duration // Таймаут одного HTTP вызова
	Retries    int           // Количество дополнительных попыток при сбое
	RetryDelay time.Duration // Пауза между попытками
}

// caller — общий HTTP клиент sink-ов: JSON POST с повторами и breaker-ом.
type caller struct {
	name    string
	url     string
	client  *http.Client
	breaker *circuitbreaker.Breaker
	retries int
	delay   time.Duration
}

// newCaller создаёт caller для одного sink endpoint-а.
func newCaller(name, url string, cfg Config) *caller {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &caller{
		name:    name,
		url:     url,
		client:  &http.Client{Timeout: timeout},
		breaker: circuitbreaker.New("sink-" + name),
		retries: cfg.Retries,
		delay:   cfg.RetryDelay,
	}
}

// post отправляет payload в sink. Повторяет вызов при сбое до retries раз;
// открытый breaker прекращает попытки сразу.
func (c *caller) post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("sink %s: ошибка сериализации payload: %w", c.name, err)
	}

	log := logger.FromContext(ctx)

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			log.Warn().
				Str("sink", c.name).
				Int("attempt", attempt+1).
				Msg("Повторная попытка вызова sink-а")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.delay):
			}
		}

		start := time.Now()
		err := c.breaker.Do(func() error {
			return c.doPost(ctx, body)
		})

		if err == nil {
			metrics.RecordSinkCall(c.name, "success", time.Since(start))
			return nil
		}

		metrics.RecordSinkCall(c.name, "error", time.Since(start))
		lastErr = err

		// Breaker открыт — endpoint лежит, повторы бессмысленны.
		if err == circuitbreaker.ErrOpen {
			break
		}
	}

	return fmt.Errorf("sink %s: %w", c.name, lastErr)
}

// doPost выполняет один HTTP POST. Не-2xx статус считается ошибкой.
func (c *caller) doPost(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Читаем кусок ответа для диагностики, не раздувая лог.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("статус %d: %s", resp.StatusCode, string(snippet))
	}

	return nil
}
