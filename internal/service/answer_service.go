package service

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yourusername/assessment-api/internal/domain/entity"
	"github.com/yourusername/assessment-api/internal/domain/repository"
	apperrors "github.com/yourusername/assessment-api/internal/pkg/errors"
)

// AnswerPayload — содержимое сохраняемого ответа. Должно нести текст,
// аудио или явный пропуск — полностью пустой ответ отклоняется.
type AnswerPayload struct {
	AnswerText string
	AudioPath  string
	IsSkipped  bool
}

// AnswerService реализует идемпотентное хранение ответов:
// ровно один Answer на пару (attempt, question), перезапись
// инкрементирует revision_count.
type AnswerService struct {
	answerRepo  repository.AnswerRepository
	attemptRepo repository.AttemptRepository
}

// NewAnswerService создает новый сервис ответов
func NewAnswerService(answerRepo repository.AnswerRepository, attemptRepo repository.AttemptRepository) *AnswerService {
	return &AnswerService{
		answerRepo:  answerRepo,
		attemptRepo: attemptRepo,
	}
}

// SaveOrUpdate сохраняет или перезаписывает ответ по паре (attempt, question).
// Все четыре идентификатора обязательны. Поиск-потом-запись дополняется
// уникальным индексом (attempt_id, question_id) в БД, так что истинно
// конкурентные записи одной пары не создадут дубликат строки.
func (s *AnswerService) SaveOrUpdate(attemptID, questionID, sectionID, candidateID uint, payload AnswerPayload) (*entity.Answer, error) {
	if attemptID == 0 || questionID == 0 || sectionID == 0 || candidateID == 0 {
		return nil, fmt.Errorf("%w: attemptId, questionId, sectionId and candidateId are required", apperrors.ErrValidation)
	}
	if payload.AnswerText == "" && payload.AudioPath == "" && !payload.IsSkipped {
		return nil, fmt.Errorf("%w: answer must carry text, audio or an explicit skip", apperrors.ErrValidation)
	}

	attempt, err := s.attemptRepo.GetByID(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.CandidateID != candidateID {
		return nil, apperrors.ErrForbidden
	}
	if attempt.IsFinished() {
		return nil, fmt.Errorf("%w: attempt is already finished", apperrors.ErrConflict)
	}

	wordCount := countWords(payload.AnswerText)

	existing, err := s.answerRepo.GetByAttemptAndQuestion(attemptID, questionID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	if existing != nil {
		existing.AnswerText = payload.AnswerText
		existing.AudioPath = payload.AudioPath
		existing.IsSkipped = payload.IsSkipped
		existing.WordCount = wordCount
		existing.RevisionCount++
		if err := s.answerRepo.Update(existing); err != nil {
			return nil, fmt.Errorf("не удалось обновить ответ: %w", err)
		}
		log.Printf("[AnswerService] Ответ попытки #%d на вопрос #%d перезаписан (ревизия %d)",
			attemptID, questionID, existing.RevisionCount)
		return existing, nil
	}

	answer := &entity.Answer{
		AttemptID:   attemptID,
		QuestionID:  questionID,
		SectionID:   sectionID,
		CandidateID: candidateID,
		AnswerText:  payload.AnswerText,
		AudioPath:   payload.AudioPath,
		IsSkipped:   payload.IsSkipped,
		WordCount:   wordCount,
	}
	if err := s.answerRepo.Create(answer); err != nil {
		return nil, fmt.Errorf("не удалось сохранить ответ: %w", err)
	}
	return answer, nil
}

// AttemptStatistics — сводка ответов попытки
type AttemptStatistics struct {
	Total          int   `json:"total"`
	Answered       int   `json:"answered"`
	Skipped        int   `json:"skipped"`
	Writing        int   `json:"writing"`
	Speaking       int   `json:"speaking"`
	ElapsedSeconds int64 `json:"elapsed_seconds"`
}

// GetStatistics возвращает счетчики ответов попытки и затраченное время:
// completedAt−startedAt для завершенной попытки, иначе now−startedAt.
func (s *AnswerService) GetStatistics(attemptID uint) (*AttemptStatistics, error) {
	attempt, err := s.attemptRepo.GetByID(attemptID)
	if err != nil {
		return nil, err
	}

	answers, err := s.answerRepo.GetByAttemptID(attemptID)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить ответы: %w", err)
	}

	stats := &AttemptStatistics{Total: len(answers)}
	for i := range answers {
		a := &answers[i]
		if a.IsSkipped {
			stats.Skipped++
		} else {
			stats.Answered++
		}
		// Классификация по типу привязанного вопроса, а не по содержимому
		// ответа: пропущенный ответ тоже принадлежит своей секции
		switch a.Question.Type {
		case entity.QuestionTypeSpeaking:
			stats.Speaking++
		case entity.QuestionTypeWriting:
			stats.Writing++
		}
	}

	end := time.Now()
	if attempt.CompletedAt != nil {
		end = *attempt.CompletedAt
	}
	stats.ElapsedSeconds = int64(end.Sub(attempt.StartedAt).Seconds())

	return stats, nil
}

// GetByAttemptID возвращает все ответы попытки
func (s *AnswerService) GetByAttemptID(attemptID uint) ([]entity.Answer, error) {
	return s.answerRepo.GetByAttemptID(attemptID)
}

// countWords считает слова как последовательности непробельных символов
func countWords(text string) int {
	return len(strings.Fields(text))
}
