package entity

import (
	"time"
)

// SessionStatus — статус сессии попытки. Закрытое множество состояний.
type SessionStatus string

// Статусы сессии попытки
const (
	SessionNotStarted SessionStatus = "NOT_STARTED"
	SessionInProgress SessionStatus = "IN_PROGRESS"
	SessionPaused     SessionStatus = "PAUSED"
	SessionCompleted  SessionStatus = "COMPLETED"
	SessionExpired    SessionStatus = "EXPIRED"
	SessionTerminated SessionStatus = "TERMINATED"
)

// sessionTransitions — закрытая таблица допустимых переходов.
// Единственный источник правды для жизненного цикла попытки: все компоненты
// только запрашивают переход через AttemptService, никто не пишет статус напрямую.
var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionNotStarted: {SessionInProgress},
	SessionInProgress: {SessionPaused, SessionCompleted, SessionExpired, SessionTerminated},
	SessionPaused:     {SessionInProgress, SessionCompleted, SessionExpired, SessionTerminated},
	SessionCompleted:  {},
	SessionExpired:    {},
	SessionTerminated: {},
}

// CanTransitionTo проверяет допустимость перехода из текущего статуса
func (s SessionStatus) CanTransitionTo(target SessionStatus) bool {
	for _, allowed := range sessionTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal возвращает true, если из статуса нет исходящих переходов
func (s SessionStatus) IsTerminal() bool {
	return len(sessionTransitions[s]) == 0
}

// CandidateAssessment представляет одну попытку кандидата пройти ассессмент.
// AttemptNumber монотонно растет (1-based) в паре candidate+assessment;
// одновременно IN_PROGRESS может быть не более одной попытки на пару.
type CandidateAssessment struct {
	ID                uint          `gorm:"primaryKey" json:"id"`
	CandidateID       uint          `gorm:"not null;index:idx_candidate_assessment" json:"candidate_id"`
	AssessmentID      uint          `gorm:"not null;index:idx_candidate_assessment" json:"assessment_id"`
	AttemptNumber     int           `gorm:"not null" json:"attempt_number"`
	SessionStatus     SessionStatus `gorm:"size:20;not null;default:'NOT_STARTED';index" json:"session_status"`
	FullScreenEntered bool          `gorm:"not null;default:false" json:"full_screen_entered"`
	StartedAt         time.Time     `gorm:"not null" json:"started_at"`
	CompletedAt       *time.Time    `json:"completed_at,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`

	Candidate  Candidate  `gorm:"foreignKey:CandidateID" json:"candidate,omitempty"`
	Assessment Assessment `gorm:"foreignKey:AssessmentID" json:"assessment,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (CandidateAssessment) TableName() string {
	return "candidate_assessments"
}

// IsInProgress проверяет, идет ли попытка
func (ca *CandidateAssessment) IsInProgress() bool {
	return ca.SessionStatus == SessionInProgress
}

// IsFinished проверяет, завершена ли попытка (любой терминальный статус)
func (ca *CandidateAssessment) IsFinished() bool {
	return ca.SessionStatus.IsTerminal()
}
