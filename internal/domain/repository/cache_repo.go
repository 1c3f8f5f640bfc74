package repository

import (
	"time"
)

// CacheRepository определяет методы для работы с кешем (Redis)
type CacheRepository interface {
	// Set сохраняет значение с временем жизни
	Set(key string, value interface{}, expiration time.Duration) error

	// Get получает значение. Возвращает apperrors.ErrNotFound, если ключа нет.
	Get(key string) (string, error)

	// Delete удаляет значение
	Delete(key string) error

	// Exists проверяет существование ключа
	Exists(key string) (bool, error)

	// Increment увеличивает значение на 1
	Increment(key string) (int64, error)

	// ExpireAt устанавливает время истечения ключа
	ExpireAt(key string, expiration time.Time) error

	// SetJSON сохраняет структуру как JSON
	SetJSON(key string, value interface{}, expiration time.Duration) error

	// GetJSON читает структуру из JSON. Возвращает apperrors.ErrNotFound, если ключа нет.
	GetJSON(key string, dest interface{}) error

	// SetNX устанавливает значение, только если ключ не существует.
	// Возвращает true, если ключ был установлен.
	SetNX(key string, value interface{}, expiration time.Duration) (bool, error)
}
