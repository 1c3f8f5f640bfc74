package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для ошибок авторизации (неверный токен, нет прав).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда цепочка владения attempt→candidate→agent
	// не совпадает с вызывающим. Обработчики возвращают 403, а не 404,
	// чтобы не раскрывать существование чужой попытки.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных
	// (пустой ответ, некорректный батч нарушений и т.д.).
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния: превышен лимит попыток,
	// несовпадение assessmentId/attemptId, недопустимый переход статуса сессии.
	ErrConflict = errors.New("resource state conflict")

	// ErrUpstream используется, когда внешний AI-коллаборатор (транскрипция,
	// грамматика, рубрика) недоступен или вернул некорректный ответ.
	ErrUpstream = errors.New("upstream service failure")
)
