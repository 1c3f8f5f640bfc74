package service

import (
	"fmt"
	"log"

	"github.com/yourusername/assessment-api/internal/domain/entity"
	"github.com/yourusername/assessment-api/internal/domain/repository"
	apperrors "github.com/yourusername/assessment-api/internal/pkg/errors"
)

// QuestionService отвечает за банк вопросов
type QuestionService struct {
	questionRepo repository.QuestionRepository
}

// NewQuestionService создает новый сервис банка вопросов
func NewQuestionService(questionRepo repository.QuestionRepository) *QuestionService {
	return &QuestionService{questionRepo: questionRepo}
}

// CreateBatch валидирует и сохраняет пакет вопросов в банк
func (s *QuestionService) CreateBatch(questions []entity.Question) error {
	if len(questions) == 0 {
		return fmt.Errorf("%w: questions are required", apperrors.ErrValidation)
	}

	for i := range questions {
		q := &questions[i]
		if !entity.IsValidQuestionType(q.Type) {
			return fmt.Errorf("%w: invalid question type %q (question #%d)", apperrors.ErrValidation, q.Type, i+1)
		}
		if !entity.IsValidCEFRLevel(q.CEFRLevel) {
			return fmt.Errorf("%w: invalid CEFR level %q (question #%d)", apperrors.ErrValidation, q.CEFRLevel, i+1)
		}
		if q.Text == "" {
			return fmt.Errorf("%w: question text is required (question #%d)", apperrors.ErrValidation, i+1)
		}
		q.IsActive = true
	}

	if err := s.questionRepo.CreateBatch(questions); err != nil {
		return fmt.Errorf("не удалось сохранить вопросы: %w", err)
	}

	log.Printf("[QuestionService] В банк добавлено %d вопросов", len(questions))
	return nil
}

// GetByID возвращает вопрос по ID
func (s *QuestionService) GetByID(id uint) (*entity.Question, error) {
	return s.questionRepo.GetByID(id)
}

// Deactivate исключает вопрос из отбора генератором.
// Уже привязанные к секциям вопросы остаются на месте.
func (s *QuestionService) Deactivate(id uint) error {
	return s.questionRepo.Deactivate(id)
}

// PoolStats возвращает количество активных вопросов по типу и уровню CEFR
func (s *QuestionService) PoolStats() (map[string]int64, error) {
	return s.questionRepo.PoolStats()
}
