package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/assessment-api/internal/domain/entity"
	apperrors "github.com/yourusername/assessment-api/internal/pkg/errors"
)

// AnswerRepo реализует repository.AnswerRepository
type AnswerRepo struct {
	db *gorm.DB
}

// NewAnswerRepo создает новый репозиторий ответов
func NewAnswerRepo(db *gorm.DB) *AnswerRepo {
	return &AnswerRepo{db: db}
}

// Create создает новый ответ
func (r *AnswerRepo) Create(answer *entity.Answer) error {
	return r.db.Create(answer).Error
}

// Update обновляет ответ
func (r *AnswerRepo) Update(answer *entity.Answer) error {
	return r.db.Save(answer).Error
}

// GetByID возвращает ответ по ID
func (r *AnswerRepo) GetByID(id uint) (*entity.Answer, error) {
	var answer entity.Answer
	err := r.db.First(&answer, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &answer, nil
}

// GetByAttemptAndQuestion ищет существующий ответ по паре (attempt, question).
// Используется upsert-семантикой AnswerService.
func (r *AnswerRepo) GetByAttemptAndQuestion(attemptID, questionID uint) (*entity.Answer, error) {
	var answer entity.Answer
	err := r.db.
		Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
		First(&answer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &answer, nil
}

// GetByAttemptID возвращает все ответы попытки
func (r *AnswerRepo) GetByAttemptID(attemptID uint) ([]entity.Answer, error) {
	var answers []entity.Answer
	err := r.db.
		Preload("Question").
		Where("attempt_id = ?", attemptID).
		Order("id").
		Find(&answers).Error
	if err != nil {
		return nil, err
	}
	return answers, nil
}

// GetUnevaluated возвращает до limit неоцененных ответов попытки, старые первыми.
// Выборка по overall_score IS NULL делает пайплайн идемпотентным:
// оцененный ответ сюда больше не попадает.
func (r *AnswerRepo) GetUnevaluated(attemptID uint, limit int) ([]entity.Answer, error) {
	var answers []entity.Answer
	err := r.db.
		Preload("Question").
		Where("attempt_id = ? AND overall_score IS NULL AND is_skipped = ?", attemptID, false).
		Order("id").
		Limit(limit).
		Find(&answers).Error
	if err != nil {
		return nil, err
	}
	return answers, nil
}
