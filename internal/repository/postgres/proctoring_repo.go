package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/assessment-api/internal/domain/entity"
	apperrors "github.com/yourusername/assessment-api/internal/pkg/errors"
)

// ProctoringRepo реализует repository.ProctoringRepository
type ProctoringRepo struct {
	db *gorm.DB
}

// NewProctoringRepo создает новый репозиторий прокторинга
func NewProctoringRepo(db *gorm.DB) *ProctoringRepo {
	return &ProctoringRepo{db: db}
}

// CreateSession создает новую сессию прокторинга
func (r *ProctoringRepo) CreateSession(session *entity.ProctoringSession) error {
	return r.db.Create(session).Error
}

// GetSessionByAttemptID возвращает сессию по ID попытки
func (r *ProctoringRepo) GetSessionByAttemptID(attemptID uint) (*entity.ProctoringSession, error) {
	var session entity.ProctoringSession
	err := r.db.Where("attempt_id = ?", attemptID).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// GetRecentLogs возвращает записи журнала сессии с occurred_at >= since
func (r *ProctoringRepo) GetRecentLogs(sessionID uint, since time.Time) ([]entity.ProctoringLog, error) {
	var logs []entity.ProctoringLog
	err := r.db.
		Where("session_id = ? AND occurred_at >= ?", sessionID, since).
		Order("occurred_at").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// AppendViolations атомарно вставляет записи журнала и инкрементирует счетчики
// сессии в одной транзакции. Счетчик никогда не расходится с журналом.
func (r *ProctoringRepo) AppendViolations(sessionID uint, logs []entity.ProctoringLog) (*entity.ProctoringSession, error) {
	var updated entity.ProctoringSession

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if len(logs) > 0 {
			if err := tx.Create(&logs).Error; err != nil {
				return err
			}
		}

		var low, medium, high int
		for _, l := range logs {
			switch l.Severity {
			case entity.SeverityLow:
				low++
			case entity.SeverityMedium:
				medium++
			case entity.SeverityHigh:
				high++
			}
		}

		updates := map[string]interface{}{
			"total_violations":  gorm.Expr("total_violations + ?", len(logs)),
			"low_violations":    gorm.Expr("low_violations + ?", low),
			"medium_violations": gorm.Expr("medium_violations + ?", medium),
			"high_violations":   gorm.Expr("high_violations + ?", high),
		}
		if err := tx.Model(&entity.ProctoringSession{}).
			Where("id = ?", sessionID).
			Updates(updates).Error; err != nil {
			return err
		}

		// Перечитываем сессию в той же транзакции, чтобы вернуть
		// согласованные счетчики для проверки порога автоотправки.
		return tx.First(&updated, sessionID).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// MarkAutoSubmitted помечает сессию как автоотправленную
func (r *ProctoringRepo) MarkAutoSubmitted(sessionID uint) error {
	return r.db.Model(&entity.ProctoringSession{}).
		Where("id = ?", sessionID).
		Update("is_auto_submitted", true).Error
}

// GetLogsBySessionID возвращает страницу журнала нарушений сессии
func (r *ProctoringRepo) GetLogsBySessionID(sessionID uint, limit, offset int) ([]entity.ProctoringLog, int64, error) {
	var logs []entity.ProctoringLog
	var total int64

	if err := r.db.Model(&entity.ProctoringLog{}).
		Where("session_id = ?", sessionID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.
		Where("session_id = ?", sessionID).
		Order("occurred_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
