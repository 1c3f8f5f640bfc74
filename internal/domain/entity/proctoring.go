package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Уровни серьезности нарушений
const (
	SeverityLow    = "LOW"
	SeverityMedium = "MEDIUM"
	SeverityHigh   = "HIGH"
)

// Пороги автоотправки: при достижении любого из них попытка
// принудительно завершается (TERMINATED).
const (
	AutoSubmitMediumThreshold = 10
	AutoSubmitHighThreshold   = 5
)

// IsValidSeverity проверяет допустимость уровня серьезности
func IsValidSeverity(s string) bool {
	return s == SeverityLow || s == SeverityMedium || s == SeverityHigh
}

// ProctoringSession — сессия прокторинга, ровно одна активная на попытку.
// Создается лениво при первом нарушении. Счетчики мутируются только
// движком нарушений и только в одной транзакции со вставкой логов.
type ProctoringSession struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	SessionToken     string    `gorm:"size:36;not null;uniqueIndex" json:"session_token"`
	AttemptID        uint      `gorm:"not null;uniqueIndex" json:"attempt_id"`
	CandidateID      uint      `gorm:"not null;index" json:"candidate_id"`
	TotalViolations  int       `gorm:"not null;default:0" json:"total_violations"`
	LowViolations    int       `gorm:"not null;default:0" json:"low_violations"`
	MediumViolations int       `gorm:"not null;default:0" json:"medium_violations"`
	HighViolations   int       `gorm:"not null;default:0" json:"high_violations"`
	IsAutoSubmitted  bool      `gorm:"not null;default:false" json:"is_auto_submitted"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (ProctoringSession) TableName() string {
	return "proctoring_sessions"
}

// ShouldAutoSubmit проверяет, пересечен ли порог автоотправки
func (s *ProctoringSession) ShouldAutoSubmit() bool {
	return s.MediumViolations >= AutoSubmitMediumThreshold ||
		s.HighViolations >= AutoSubmitHighThreshold
}

// ProctoringLog — append-only запись о нарушении. Никогда не мутируется
// и не удаляется.
type ProctoringLog struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	SessionID     uint           `gorm:"not null;index" json:"session_id"`
	ViolationType string         `gorm:"size:100;not null;index" json:"violation_type"`
	Severity      string         `gorm:"size:10;not null" json:"severity"`
	OccurredAt    time.Time      `gorm:"not null;index" json:"occurred_at"`
	Metadata      datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (ProctoringLog) TableName() string {
	return "proctoring_logs"
}
