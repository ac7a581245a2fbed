package domain

import (
	"encoding/json"
	"strings"
)

// Ключи метаданных Stripe Checkout сессии.
// Метаданные сессии — единственное durable состояние, которым владеет сервис:
// они же служат журналом идемпотентности.
const (
	MetaCustomerName   = "customer_name"
	MetaCustomerNumber = "customer_number"
	MetaSessionID      = "session_id"
	MetaOrder          = "order"
	MetaProcessed      = "processed"
	MetaErrorMessage   = "error_message"
)

// ProcessedState — состояние обработки сессии в metadata.processed.
// Completion Processor переводит его из false в true ровно один раз,
// выполняя side effects между этими состояниями.
type ProcessedState string

const (
	// ProcessedFalse — сессия создана, fan-out ещё не выполнялся.
	ProcessedFalse ProcessedState = "false"

	// ProcessedInProgress — lease: другой вызов уже выполняет fan-out.
	ProcessedInProgress ProcessedState = "processing"

	// ProcessedTrue — терминальное состояние: fan-out выполнен.
	ProcessedTrue ProcessedState = "true"

	// ProcessedError — терминальное, но повторяемое состояние:
	// обработка завершилась ошибкой, последующий вызов верификации
	// обрабатывает его как ProcessedFalse.
	ProcessedError ProcessedState = "error"
)

// Claimable возвращает true, если сессию в этом состоянии можно взять
// в обработку. ProcessedError повторяем — приравнивается к ProcessedFalse.
func (s ProcessedState) Claimable() bool {
	return s == ProcessedFalse || s == ProcessedError || s == ""
}

// MaxOrderMetadataBytes — размер JSON заказа в метаданных, байт.
// Выбран с запасом под жёсткий лимит Stripe на значение metadata-поля.
const MaxOrderMetadataBytes = 450

// MaxErrorMessageBytes — предел длины error_message в метаданных.
const MaxErrorMessageBytes = 450

// minimalOrderItem — минимальная проекция позиции без цены.
// Используется, когда полная проекция не помещается в лимит метаданных.
type minimalOrderItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EncodeOrderMetadata сериализует проекцию заказа {id,name,price} для
// метаданных сессии. Если результат превышает MaxOrderMetadataBytes,
// повторяет сериализацию в минимальной проекции {id,name}; если и она
// не помещается — возвращает ErrOrderTooLarge.
func EncodeOrderMetadata(items []OrderItem) (string, error) {
	full, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	if len(full) <= MaxOrderMetadataBytes {
		return string(full), nil
	}

	// Полная проекция не поместилась — пробуем без цен.
	minimal := make([]minimalOrderItem, len(items))
	for i, item := range items {
		minimal[i] = minimalOrderItem{ID: item.ID, Name: item.Name}
	}

	compact, err := json.Marshal(minimal)
	if err != nil {
		return "", err
	}
	if len(compact) > MaxOrderMetadataBytes {
		return "", ErrOrderTooLarge
	}

	return string(compact), nil
}

// rawOrderItem принимает id любого JSON типа (число или строка) —
// фронтенд исторически присылал и то, и другое.
type rawOrderItem struct {
	ID    json.RawMessage `json:"id"`
	Name  string          `json:"name"`
	Price float64         `json:"price"`
}

// DecodeOrderMetadata разбирает JSON заказа из метаданных сессии и
// нормализует каждую позицию. Отсутствующие, повреждённые или пустые
// метаданные — это ErrMissingOrderData: заказ никогда не
// восстанавливается по догадке.
func DecodeOrderMetadata(raw string) ([]OrderItem, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrMissingOrderData
	}

	var parsed []rawOrderItem
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, ErrMissingOrderData
	}
	if len(parsed) == 0 {
		return nil, ErrMissingOrderData
	}

	items := make([]OrderItem, len(parsed))
	for i, p := range parsed {
		items[i] = OrderItem{
			ID:    strings.Trim(string(p.ID), `"`),
			Name:  p.Name,
			Price: p.Price,
		}.Normalize()
	}

	return items, nil
}

// TruncateErrorMessage обрезает сообщение об ошибке до лимита метаданных.
func TruncateErrorMessage(msg string) string {
	if len(msg) <= MaxErrorMessageBytes {
		return msg
	}
	return msg[:MaxErrorMessageBytes]
}
