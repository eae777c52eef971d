package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для ошибок авторизации (неверный или просроченный тикет).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния (например, запрос следующего матча,
	// пока текущий ещё не завершён).
	ErrConflict = errors.New("resource state conflict")

	// ErrUnavailable используется, когда внешний источник данных недоступен.
	ErrUnavailable = errors.New("resource unavailable")
)
