package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/assessment-api/internal/domain/entity"
	apperrors "github.com/yourusername/assessment-api/internal/pkg/errors"
)

// CandidateRepo реализует repository.CandidateRepository
type CandidateRepo struct {
	db *gorm.DB
}

// NewCandidateRepo создает новый репозиторий кандидатов
func NewCandidateRepo(db *gorm.DB) *CandidateRepo {
	return &CandidateRepo{db: db}
}

// Create создает нового кандидата
func (r *CandidateRepo) Create(candidate *entity.Candidate) error {
	return r.db.Create(candidate).Error
}

// GetByID возвращает кандидата по ID
func (r *CandidateRepo) GetByID(id uint) (*entity.Candidate, error) {
	var candidate entity.Candidate
	err := r.db.First(&candidate, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &candidate, nil
}

// GetByAgentID возвращает кандидата по ID внешнего агента
func (r *CandidateRepo) GetByAgentID(agentID uint) (*entity.Candidate, error) {
	var candidate entity.Candidate
	err := r.db.Where("agent_id = ?", agentID).First(&candidate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &candidate, nil
}

// AttemptRepo реализует repository.AttemptRepository
type AttemptRepo struct {
	db *gorm.DB
}

// NewAttemptRepo создает новый репозиторий попыток
func NewAttemptRepo(db *gorm.DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

// Create создает новую попытку
func (r *AttemptRepo) Create(attempt *entity.CandidateAssessment) error {
	return r.db.Create(attempt).Error
}

// GetByID возвращает попытку по ID
func (r *AttemptRepo) GetByID(id uint) (*entity.CandidateAssessment, error) {
	var attempt entity.CandidateAssessment
	err := r.db.First(&attempt, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// GetWithCandidate возвращает попытку вместе с кандидатом
// (для проверки цепочки владения attempt→candidate→agent)
func (r *AttemptRepo) GetWithCandidate(id uint) (*entity.CandidateAssessment, error) {
	var attempt entity.CandidateAssessment
	err := r.db.Preload("Candidate").First(&attempt, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// CountByCandidateAndAssessment возвращает число попыток пары candidate+assessment
func (r *AttemptRepo) CountByCandidateAndAssessment(candidateID, assessmentID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entity.CandidateAssessment{}).
		Where("candidate_id = ? AND assessment_id = ?", candidateID, assessmentID).
		Count(&count).Error
	return count, err
}

// GetInProgress возвращает незавершенную попытку пары, если такая есть
func (r *AttemptRepo) GetInProgress(candidateID, assessmentID uint) (*entity.CandidateAssessment, error) {
	var attempt entity.CandidateAssessment
	err := r.db.
		Where("candidate_id = ? AND assessment_id = ? AND session_status IN ?",
			candidateID, assessmentID,
			[]entity.SessionStatus{entity.SessionInProgress, entity.SessionPaused}).
		First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// ListByAssessment возвращает все попытки ассессмента с кандидатами
// (для отчетов и экспорта результатов)
func (r *AttemptRepo) ListByAssessment(assessmentID uint) ([]entity.CandidateAssessment, error) {
	var attempts []entity.CandidateAssessment
	err := r.db.Preload("Candidate").
		Where("assessment_id = ?", assessmentID).
		Order("candidate_id, attempt_number").
		Find(&attempts).Error
	return attempts, err
}

// UpdateStatus переписывает статус сессии и сопутствующие поля попытки
func (r *AttemptRepo) UpdateStatus(attempt *entity.CandidateAssessment) error {
	return r.db.Model(attempt).
		Select("session_status", "completed_at", "full_screen_entered").
		Updates(map[string]interface{}{
			"session_status":      attempt.SessionStatus,
			"completed_at":        attempt.CompletedAt,
			"full_screen_entered": attempt.FullScreenEntered,
		}).Error
}

// Update обновляет попытку целиком
func (r *AttemptRepo) Update(attempt *entity.CandidateAssessment) error {
	return r.db.Save(attempt).Error
}
