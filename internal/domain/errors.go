// Package domain содержит бизнес-сущности и доменные ошибки сервиса.
package domain

import "errors"

// Доменные ошибки сервиса.
// Используются для передачи бизнес-ошибок между слоями приложения.
var (
	// ErrEmptyCustomerName возвращается при пустом имени клиента.
	ErrEmptyCustomerName = errors.New("имя клиента не может быть пустым")

	// ErrEmptyCustomerNumber возвращается при пустом номере телефона клиента.
	ErrEmptyCustomerNumber = errors.New("номер телефона клиента не может быть пустым")

	// ErrEmptyOrder возвращается при попытке создать чекаут без позиций.
	ErrEmptyOrder = errors.New("заказ должен содержать хотя бы одну позицию")

	// ErrNegativePrice возвращается, когда цена позиции меньше нуля.
	ErrNegativePrice = errors.New("цена позиции не может быть отрицательной")

	// ErrInvalidTotalPrice возвращается, когда сумма заказа меньше или равна нулю.
	ErrInvalidTotalPrice = errors.New("сумма заказа должна быть больше нуля")

	// ErrOrderTooLarge возвращается, когда заказ не помещается в метаданные Stripe
	// даже в минимальной проекции. Позиции никогда не обрезаются молча —
	// усечённый заказ исказил бы запись о выполнении.
	ErrOrderTooLarge = errors.New("заказ слишком большой для метаданных Stripe")

	// ErrMissingOrderData возвращается, когда метаданные заказа отсутствуют
	// или повреждены. Заказ в этом случае не восстанавливается по догадке.
	ErrMissingOrderData = errors.New("метаданные заказа отсутствуют или повреждены")

	// ErrPaymentNotCompleted возвращается при попытке верифицировать
	// неоплаченную сессию.
	ErrPaymentNotCompleted = errors.New("платёж не завершён")

	// ErrProcessingInProgress возвращается, когда сессию уже обрабатывает
	// другой вызов (webhook или верификация). Это не сбой — вызывающий
	// должен повторить запрос позже.
	ErrProcessingInProgress = errors.New("заказ уже обрабатывается")

	// ErrSaveOrderFailed возвращается, когда не удалось сохранить заказ
	// во внешнем хранилище. Сохранение обязательно — без него fan-out
	// прерывается.
	ErrSaveOrderFailed = errors.New("не удалось сохранить заказ")

	// ErrFulfillmentNotFound возвращается, когда запись о выполнении
	// не найдена в архиве.
	ErrFulfillmentNotFound = errors.New("запись о выполнении заказа не найдена")
)
