package repository

import (
	"github.com/yourusername/assessment-api/internal/domain/entity"
)

// CandidateRepository определяет методы для работы с кандидатами
type CandidateRepository interface {
	Create(candidate *entity.Candidate) error
	GetByID(id uint) (*entity.Candidate, error)
	GetByAgentID(agentID uint) (*entity.Candidate, error)
}

// AttemptRepository определяет методы для работы с попытками
type AttemptRepository interface {
	Create(attempt *entity.CandidateAssessment) error
	GetByID(id uint) (*entity.CandidateAssessment, error)
	GetWithCandidate(id uint) (*entity.CandidateAssessment, error)

	// CountByCandidateAndAssessment возвращает число попыток пары
	// candidate+assessment (для контроля лимита и номера попытки)
	CountByCandidateAndAssessment(candidateID, assessmentID uint) (int64, error)

	// GetInProgress возвращает текущую незавершенную попытку пары, если есть
	GetInProgress(candidateID, assessmentID uint) (*entity.CandidateAssessment, error)

	// ListByAssessment возвращает все попытки ассессмента с кандидатами
	ListByAssessment(assessmentID uint) ([]entity.CandidateAssessment, error)

	// UpdateStatus переписывает статус сессии. Вызывается только из
	// AttemptService.Transition — единственной точки смены статуса.
	UpdateStatus(attempt *entity.CandidateAssessment) error

	Update(attempt *entity.CandidateAssessment) error
}

// AnswerRepository определяет методы для работы с ответами
type AnswerRepository interface {
	Create(answer *entity.Answer) error
	Update(answer *entity.Answer) error
	GetByID(id uint) (*entity.Answer, error)

	// GetByAttemptAndQuestion ищет существующий ответ для upsert-семантики
	GetByAttemptAndQuestion(attemptID, questionID uint) (*entity.Answer, error)

	GetByAttemptID(attemptID uint) ([]entity.Answer, error)

	// GetUnevaluated возвращает до limit неоцененных ответов попытки
	// (overall_score IS NULL, не пропущенных), старые первыми
	GetUnevaluated(attemptID uint, limit int) ([]entity.Answer, error)
}
