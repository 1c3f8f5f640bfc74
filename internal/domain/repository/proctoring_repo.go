package repository

import (
	"time"

	"github.com/yourusername/assessment-api/internal/domain/entity"
)

// ProctoringRepository определяет методы для работы с сессиями прокторинга
// и журналом нарушений
type ProctoringRepository interface {
	CreateSession(session *entity.ProctoringSession) error
	GetSessionByAttemptID(attemptID uint) (*entity.ProctoringSession, error)

	// GetRecentLogs возвращает записи журнала сессии с occurred_at не раньше since.
	// Используется движком дедупликации (окно 2 секунды).
	GetRecentLogs(sessionID uint, since time.Time) ([]entity.ProctoringLog, error)

	// AppendViolations атомарно (одна транзакция) вставляет пакет записей журнала
	// и инкрементирует счетчики сессии (total + по уровням серьезности).
	// Счетчик никогда не инкрементируется без своей записи журнала и наоборот.
	// Возвращает сессию с обновленными счетчиками.
	AppendViolations(sessionID uint, logs []entity.ProctoringLog) (*entity.ProctoringSession, error)

	// MarkAutoSubmitted помечает сессию как автоотправленную
	MarkAutoSubmitted(sessionID uint) error

	GetLogsBySessionID(sessionID uint, limit, offset int) ([]entity.ProctoringLog, int64, error)
}
