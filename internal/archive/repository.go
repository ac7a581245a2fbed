// Package archive содержит локальный архив результатов обработки сессий.
// Источником истины по платежу остаётся провайдер; архив — аудиторский
// след fan-out-а на нашей стороне (MySQL, по одной записи на checkout_id).
package archive

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"example.com/restaurant-checkout/internal/domain"
)

// Repository определяет интерфейс архива обработок.
type Repository interface {
	// Record сохраняет результат обработки сессии (upsert по checkout_id).
	// Повторная обработка той же сессии перезаписывает итог.
	Record(ctx context.Context, f *domain.Fulfillment) error

	// GetByCheckoutID возвращает запись архива по ID Checkout сессии.
	GetByCheckoutID(ctx context.Context, checkoutID string) (*domain.Fulfillment, error)
}

// FulfillmentModel — GORM модель для таблицы fulfillments.
// Отделена от доменной сущности для гибкости.
type FulfillmentModel struct {
	ID             string    `gorm:"column:id;type:varchar(36);primaryKey"`
	CheckoutID     string    `gorm:"column:checkout_id;type:varchar(255);not null;uniqueIndex"`
	OrderSessionID string    `gorm:"column:order_session_id;type:varchar(255)"`
	CustomerName   string    `gorm:"column:customer_name;type:varchar(255)"`
	CustomerNumber string    `gorm:"column:customer_number;type:varchar(32)"`
	TotalAmount    int64     `gorm:"column:total_amount;not null"`
	Status         string    `gorm:"column:status;type:varchar(20);not null;index"`
	FailedSinks    *string   `gorm:"column:failed_sinks;type:varchar(255)"`
	ErrorMessage   *string   `gorm:"column:error_message;type:text"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName возвращает имя таблицы в БД.
func (FulfillmentModel) TableName() string {
	return "fulfillments"
}

// toDomain конвертирует GORM модель в доменную сущность.
func (m *FulfillmentModel) toDomain() *domain.Fulfillment {
	f := &domain.Fulfillment{
		ID:             m.ID,
		CheckoutID:     m.CheckoutID,
		OrderSessionID: m.OrderSessionID,
		CustomerName:   m.CustomerName,
		CustomerNumber: m.CustomerNumber,
		TotalAmount:    m.TotalAmount,
		Status:         domain.FulfillmentStatus(m.Status),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}

	// failed_sinks хранится строкой через запятую
	if m.FailedSinks != nil && *m.FailedSinks != "" {
		f.FailedSinks = strings.Split(*m.FailedSinks, ",")
	}

	if m.ErrorMessage != nil {
		f.ErrorMessage = *m.ErrorMessage
	}

	return f
}

// modelFromDomain конвертирует доменную сущность в GORM модель.
func modelFromDomain(f *domain.Fulfillment) *FulfillmentModel {
	model := &FulfillmentModel{
		ID:             f.ID,
		CheckoutID:     f.CheckoutID,
		OrderSessionID: f.OrderSessionID,
		CustomerName:   f.CustomerName,
		CustomerNumber: f.CustomerNumber,
		TotalAmount:    f.TotalAmount,
		Status:         string(f.Status),
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}

	// Обработка опциональных полей: пустое значение -> nil
	if len(f.FailedSinks) > 0 {
		joined := strings.Join(f.FailedSinks, ",")
		model.FailedSinks = &joined
	}
	if f.ErrorMessage != "" {
		model.ErrorMessage = &f.ErrorMessage
	}

	return model
}

// fulfillmentRepository — GORM реализация Repository.
type fulfillmentRepository struct {
	db *gorm.DB
}

// NewRepository создаёт новый репозиторий архива.
func NewRepository(db *gorm.DB) Repository {
	return &fulfillmentRepository{db: db}
}

// Record сохраняет результат обработки: сначала пробуем обновить запись
// по checkout_id, при её отсутствии создаём новую. Гонка двух
// обработчиков одной сессии разрешается через уникальный индекс.
func (r *fulfillmentRepository) Record(ctx context.Context, f *domain.Fulfillment) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	model := modelFromDomain(f)

	updates := map[string]interface{}{
		"order_session_id": model.OrderSessionID,
		"customer_name":    model.CustomerName,
		"customer_number":  model.CustomerNumber,
		"total_amount":     model.TotalAmount,
		"status":           model.Status,
		"failed_sinks":     model.FailedSinks,
		"error_message":    model.ErrorMessage,
		"updated_at":       time.Now(),
	}

	result := r.db.WithContext(ctx).
		Model(&FulfillmentModel{}).
		Where("checkout_id = ?", f.CheckoutID).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		// Параллельный обработчик успел вставить запись — обновляем её
		if isDuplicateKeyError(err) {
			return r.db.WithContext(ctx).
				Model(&FulfillmentModel{}).
				Where("checkout_id = ?", f.CheckoutID).
				Updates(updates).Error
		}
		return err
	}

	f.CreatedAt = model.CreatedAt
	f.UpdatedAt = model.UpdatedAt

	return nil
}

// GetByCheckoutID возвращает запись архива по ID Checkout сессии.
func (r *fulfillmentRepository) GetByCheckoutID(ctx context.Context, checkoutID string) (*domain.Fulfillment, error) {
	var model FulfillmentModel

	if err := r.db.WithContext(ctx).
		Where("checkout_id = ?", checkoutID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrFulfillmentNotFound
		}
		return nil, err
	}

	return model.toDomain(), nil
}

// isDuplicateKeyError проверяет, является ли ошибка дубликатом ключа.
// MySQL возвращает ошибку с кодом 1062 при попытке вставить дубликат.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(errMsg, "Duplicate entry") ||
		strings.Contains(errMsg, "1062")
}
