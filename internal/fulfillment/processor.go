// Package fulfillment содержит Completion Processor — машину состояний
// обработки оплаченной Checkout сессии.
//
// Состояния metadata.processed:
//   - "false"      — сессия создана, fan-out не выполнялся
//   - "processing" — обработка идёт прямо сейчас (lease)
//   - "true"       — терминальное: fan-out выполнен ровно один раз
//   - "error"      — обработка упала; следующий запуск повторяет её
//
// Claim "false" -> "processing" выполняется без CAS: Stripe не даёт
// атомарного сравнения метаданных, поэтому между чтением и записью
// остаётся окно гонки. Окно сужается (но не закрывается) опциональным
// Redis lease-ом; повторный fan-out при проигранной гонке ограничен
// идемпотентностью принимающих endpoint-ов.
package fulfillment

import (
	"context"
	"fmt"

	"example.com/restaurant-checkout/internal/archive"
	"example.com/restaurant-checkout/internal/domain"
	"example.com/restaurant-checkout/internal/provider"
	"example.com/restaurant-checkout/internal/sink"
	"example.com/restaurant-checkout/pkg/logger"
	"example.com/restaurant-checkout/pkg/metrics"
)

// OrderStore сохраняет оплаченный заказ во внешнем хранилище.
// Единственный обязательный sink.
type OrderStore interface {
	Save(ctx context.Context, order domain.CompletedOrder) error
}

// KitchenNotifier уведомляет кухню о новом заказе. Best-effort.
type KitchenNotifier interface {
	Notify(ctx context.Context, order domain.CompletedOrder) error
}

// InvoiceSender отправляет клиенту счёт. Best-effort.
type InvoiceSender interface {
	Send(ctx context.Context, order domain.CompletedOrder) error
}

// EventPublisher публикует итог обработки для downstream consumer-ов.
type EventPublisher interface {
	Publish(ctx context.Context, f *domain.Fulfillment) error
}

// Result — итог одного запуска Completion Processor.
type Result string

const (
	// ResultCompleted — fan-out выполнен, сессия помечена processed="true".
	ResultCompleted Result = "completed"

	// ResultSkipped — сессия уже обработана ранее, работа не выполнялась.
	ResultSkipped Result = "skipped"

	// ResultInProgress — сессию обрабатывает параллельный вызов.
	ResultInProgress Result = "in_progress"

	// ResultFailed — обработка упала, сессия помечена processed="error".
	ResultFailed Result = "failed"
)

// SinkResult — результат вызова одного sink-а.
type SinkResult struct {
	Name string // Имя sink-а (save_order, kitchen, invoice)
	Err  error  // nil при успехе
}

// Outcome — структурированный итог запуска процессора.
type Outcome struct {
	Result     Result                 // Итог запуска
	CheckoutID string                 // ID обработанной сессии
	Order      *domain.CompletedOrder // Восстановленный заказ (при выполненном fan-out)
	Sinks      []SinkResult           // Результаты вызванных sink-ов в порядке вызова
	Err        error                  // Причина при Result=ResultFailed
}

// FailedSinks возвращает имена sink-ов, завершившихся ошибкой.
func (o *Outcome) FailedSinks() []string {
	var failed []string
	for _, s := range o.Sinks {
		if s.Err != nil {
			failed = append(failed, s.Name)
		}
	}
	return failed
}

// Processor выполняет fan-out оплаченного заказа ровно один раз.
type Processor struct {
	provider provider.Client
	store    OrderStore
	kitchen  KitchenNotifier
	invoice  InvoiceSender

	claims  ClaimStore         // Опциональный Redis lease (по умолчанию noop)
	archive archive.Repository // Опциональный локальный архив (nil = выключен)
	events  EventPublisher     // Опциональная публикация в Kafka (nil = выключена)
}

// NewProcessor создаёт Completion Processor с обязательными зависимостями.
func NewProcessor(p provider.Client, store OrderStore, kitchen KitchenNotifier, invoice InvoiceSender) *Processor {
	return &Processor{
		provider: p,
		store:    store,
		kitchen:  kitchen,
		invoice:  invoice,
		claims:   NoopClaimStore{},
	}
}

// WithClaimStore подключает lease-хранилище для сужения окна гонки claim-а.
func (p *Processor) WithClaimStore(cs ClaimStore) *Processor {
	p.claims = cs
	return p
}

// WithArchive подключает локальный архив результатов обработки.
func (p *Processor) WithArchive(repo archive.Repository) *Processor {
	p.archive = repo
	return p
}

// WithEvents подключает публикацию событий обработки.
func (p *Processor) WithEvents(pub EventPublisher) *Processor {
	p.events = pub
	return p
}

// Process обрабатывает Checkout сессию по её ID у провайдера.
//
// Сессия всегда перечитывается у провайдера — его состояние является
// источником истины. Ошибка возвращается только если процессор не смог
// даже начать работу (сессия недоступна, claim не записался); все
// бизнес-сбои отражаются в Outcome и в metadata.processed.
func (p *Processor) Process(ctx context.Context, checkoutID string) (*Outcome, error) {
	ctx = logger.WithCheckoutID(ctx, checkoutID)
	log := logger.FromContext(ctx)

	sess, err := p.provider.GetSession(ctx, checkoutID)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки сессии: %w", err)
	}

	switch state := sess.Processed(); {
	case state == domain.ProcessedTrue:
		log.Info().Msg("Сессия уже обработана, пропускаем")
		metrics.FulfillmentsTotal.WithLabelValues(string(ResultSkipped)).Inc()
		return &Outcome{Result: ResultSkipped, CheckoutID: checkoutID}, nil

	case state == domain.ProcessedInProgress:
		log.Info().Msg("Сессию обрабатывает параллельный вызов")
		metrics.FulfillmentsTotal.WithLabelValues(string(ResultInProgress)).Inc()
		return &Outcome{Result: ResultInProgress, CheckoutID: checkoutID}, nil

	case !state.Claimable():
		// Неизвестное значение флага — не трогаем сессию.
		return nil, fmt.Errorf("неизвестное состояние processed=%q", state)
	}

	claimed, err := p.claims.TryClaim(ctx, checkoutID)
	if err != nil {
		// Lease — только сужение окна гонки, не корректность:
		// при недоступном Redis продолжаем на одном metadata-флаге.
		log.Warn().Err(err).Msg("Lease-хранилище недоступно, продолжаем без lease")
	} else if !claimed {
		log.Info().Msg("Lease занят параллельным вызовом")
		metrics.FulfillmentsTotal.WithLabelValues(string(ResultInProgress)).Inc()
		return &Outcome{Result: ResultInProgress, CheckoutID: checkoutID}, nil
	} else {
		defer func() {
			if err := p.claims.Release(context.WithoutCancel(ctx), checkoutID); err != nil {
				log.Warn().Err(err).Msg("Ошибка освобождения lease")
			}
		}()
	}

	// Помечаем сессию как обрабатываемую как можно раньше.
	if err := p.updateProcessed(ctx, sess, domain.ProcessedInProgress, ""); err != nil {
		return nil, fmt.Errorf("ошибка записи lease-флага: %w", err)
	}

	outcome := p.fanOut(ctx, sess)

	metrics.FulfillmentsTotal.WithLabelValues(string(outcome.Result)).Inc()
	p.record(ctx, sess, outcome)

	return outcome, nil
}

// fanOut восстанавливает заказ из метаданных и выполняет side effects
// в фиксированном порядке: сохранение -> кухня -> счёт.
func (p *Processor) fanOut(ctx context.Context, sess *provider.Session) *Outcome {
	log := logger.FromContext(ctx)
	outcome := &Outcome{CheckoutID: sess.ID}

	order, err := p.restoreOrder(sess)
	if err != nil {
		log.Error().Err(err).Msg("Не удалось восстановить заказ из метаданных")
		return p.fail(ctx, sess, outcome, err)
	}
	outcome.Order = order

	// Сохранение заказа обязательно: без него fan-out прерывается.
	if err := p.store.Save(ctx, *order); err != nil {
		log.Error().Err(err).Msg("Ошибка сохранения заказа во внешнем хранилище")
		outcome.Sinks = append(outcome.Sinks, SinkResult{Name: sink.NameSaveOrder, Err: err})
		return p.fail(ctx, sess, outcome, fmt.Errorf("%w: %v", domain.ErrSaveOrderFailed, err))
	}
	outcome.Sinks = append(outcome.Sinks, SinkResult{Name: sink.NameSaveOrder})

	// Кухня и счёт best-effort: их сбои фиксируются, но не отменяют заказ.
	kitchenErr := p.kitchen.Notify(ctx, *order)
	if kitchenErr != nil {
		log.Warn().Err(kitchenErr).Msg("Ошибка уведомления кухни")
	}
	outcome.Sinks = append(outcome.Sinks, SinkResult{Name: sink.NameKitchen, Err: kitchenErr})

	invoiceErr := p.invoice.Send(ctx, *order)
	if invoiceErr != nil {
		log.Warn().Err(invoiceErr).Msg("Ошибка отправки счёта клиенту")
	}
	outcome.Sinks = append(outcome.Sinks, SinkResult{Name: sink.NameInvoice, Err: invoiceErr})

	if err := p.updateProcessed(ctx, sess, domain.ProcessedTrue, ""); err != nil {
		log.Error().Err(err).Msg("Ошибка записи терминального флага processed")
		return p.fail(ctx, sess, outcome, err)
	}

	log.Info().
		Strs("failed_sinks", outcome.FailedSinks()).
		Msg("Заказ обработан")

	outcome.Result = ResultCompleted
	return outcome
}

// restoreOrder восстанавливает заказ из метаданных сессии.
// Сумма берётся из amount_total провайдера, а не из метаданных.
func (p *Processor) restoreOrder(sess *provider.Session) (*domain.CompletedOrder, error) {
	name := sess.Metadata[domain.MetaCustomerName]
	number := sess.Metadata[domain.MetaCustomerNumber]
	if name == "" {
		return nil, domain.ErrEmptyCustomerName
	}
	if number == "" {
		return nil, domain.ErrEmptyCustomerNumber
	}

	items, err := domain.DecodeOrderMetadata(sess.Metadata[domain.MetaOrder])
	if err != nil {
		return nil, err
	}

	orderSessionID := sess.Metadata[domain.MetaSessionID]
	if orderSessionID == "" {
		orderSessionID = "no-session"
	}

	return &domain.CompletedOrder{
		CheckoutID:     sess.ID,
		OrderSessionID: orderSessionID,
		CustomerName:   name,
		CustomerNumber: number,
		TotalPrice:     float64(sess.AmountTotal) / 100,
		Items:          items,
	}, nil
}

// fail помечает сессию processed="error" и возвращает failed-исход.
// Ошибка записи флага логируется: исход обработки от неё не меняется.
func (p *Processor) fail(ctx context.Context, sess *provider.Session, outcome *Outcome, cause error) *Outcome {
	if err := p.updateProcessed(ctx, sess, domain.ProcessedError, cause.Error()); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Ошибка записи флага processed=error")
	}

	outcome.Result = ResultFailed
	outcome.Err = cause
	return outcome
}

// updateProcessed записывает состояние обработки в метаданные сессии.
// Всегда пересылает полную карту метаданных с изменёнными ключами:
// провайдер мержит ключи, и процессор никогда их не теряет.
func (p *Processor) updateProcessed(ctx context.Context, sess *provider.Session, state domain.ProcessedState, errMsg string) error {
	metadata := make(map[string]string, len(sess.Metadata)+2)
	for k, v := range sess.Metadata {
		metadata[k] = v
	}
	metadata[domain.MetaProcessed] = string(state)
	if errMsg != "" {
		metadata[domain.MetaErrorMessage] = domain.TruncateErrorMessage(errMsg)
	}

	if err := p.provider.UpdateSessionMetadata(ctx, sess.ID, metadata); err != nil {
		return err
	}

	sess.Metadata = metadata
	return nil
}

// record сохраняет итог обработки в архив и публикует событие.
// Оба шага best-effort: сбой инфраструктуры не влияет на исход.
func (p *Processor) record(ctx context.Context, sess *provider.Session, outcome *Outcome) {
	if p.archive == nil && p.events == nil {
		return
	}
	log := logger.FromContext(ctx)

	f := &domain.Fulfillment{
		CheckoutID:  sess.ID,
		TotalAmount: sess.AmountTotal,
		Status:      domain.FulfillmentCompleted,
		FailedSinks: outcome.FailedSinks(),
	}
	if outcome.Order != nil {
		f.OrderSessionID = outcome.Order.OrderSessionID
		f.CustomerName = outcome.Order.CustomerName
		f.CustomerNumber = outcome.Order.CustomerNumber
	}
	if outcome.Result == ResultFailed {
		f.Status = domain.FulfillmentFailed
		f.ErrorMessage = domain.TruncateErrorMessage(outcome.Err.Error())
	}

	if p.archive != nil {
		if err := p.archive.Record(ctx, f); err != nil {
			log.Warn().Err(err).Msg("Ошибка записи в архив обработок")
		}
	}
	if p.events != nil {
		if err := p.events.Publish(ctx, f); err != nil {
			log.Warn().Err(err).Msg("Ошибка публикации события обработки")
		}
	}
}
