package domain

import (
	"fmt"
	"strings"
)

// OrderItem — позиция заказа.
// ID хранится строкой: идентификаторы приходят из меню фронтенда
// и могут быть как числами, так и строками.
type OrderItem struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Значения по умолчанию при нормализации позиций из метаданных.
// Минимальная проекция метаданных не содержит цену — она восстанавливается нулём,
// итоговая сумма всё равно берётся из amount_total сессии.
const (
	UnknownItemID   = "unknown"
	UnknownItemName = "Unknown Item"
)

// ValidateOrder проверяет корректность позиций заказа.
// Заказ должен быть непустым, цены — неотрицательными.
func ValidateOrder(items []OrderItem) error {
	if len(items) == 0 {
		return ErrEmptyOrder
	}

	for i := range items {
		if items[i].Price < 0 {
			return ErrNegativePrice
		}
	}

	return nil
}

// Normalize возвращает позицию с заполненными значениями по умолчанию.
func (i OrderItem) Normalize() OrderItem {
	out := i
	if strings.TrimSpace(out.ID) == "" {
		out.ID = UnknownItemID
	}
	if strings.TrimSpace(out.Name) == "" {
		out.Name = UnknownItemName
	}
	if out.Price < 0 {
		out.Price = 0
	}
	return out
}

// ItemsSummary сворачивает повторяющиеся позиции в строку вида
// "Pizza x2, Cola". Порядок — по первому вхождению позиции.
// Позиции с пустым именем пропускаются; для пустого результата
// возвращается пустая строка.
func ItemsSummary(items []OrderItem) string {
	counts := make(map[string]int, len(items))
	order := make([]string, 0, len(items))

	for _, item := range items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			continue
		}
		if _, seen := counts[name]; !seen {
			order = append(order, name)
		}
		counts[name]++
	}

	parts := make([]string, 0, len(order))
	for _, name := range order {
		if counts[name] > 1 {
			parts = append(parts, fmt.Sprintf("%s x%d", name, counts[name]))
		} else {
			parts = append(parts, name)
		}
	}

	return strings.Join(parts, ", ")
}
