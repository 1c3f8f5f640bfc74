package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/assessment-api/internal/domain/entity"
	"github.com/yourusername/assessment-api/internal/domain/repository"
	apperrors "github.com/yourusername/assessment-api/internal/pkg/errors"
	"github.com/yourusername/assessment-api/internal/service/evaluation"
)

// ResultRow — одна строка сводки результатов ассессмента:
// попытка кандидата с агрегированными оценками и счетчиком нарушений.
type ResultRow struct {
	AttemptID      uint       `json:"attempt_id"`
	CandidateID    uint       `json:"candidate_id"`
	CandidateName  string     `json:"candidate_name"`
	CandidateEmail string     `json:"candidate_email"`
	AttemptNumber  int        `json:"attempt_number"`
	Status         string     `json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`

	TotalAnswers     int      `json:"total_answers"`
	EvaluatedAnswers int      `json:"evaluated_answers"`
	SkippedAnswers   int      `json:"skipped_answers"`
	AverageOverall   *float64 `json:"average_overall,omitempty"`
	CEFRLevel        string   `json:"cefr_level,omitempty"`

	TotalViolations int  `json:"total_violations"`
	AutoSubmitted   bool `json:"auto_submitted"`
}

// ResultService собирает сводки результатов по ассессменту
type ResultService struct {
	attemptRepo    repository.AttemptRepository
	answerRepo     repository.AnswerRepository
	assessmentRepo repository.AssessmentRepository
	proctoringRepo repository.ProctoringRepository
}

// NewResultService создает новый сервис результатов
func NewResultService(
	attemptRepo repository.AttemptRepository,
	answerRepo repository.AnswerRepository,
	assessmentRepo repository.AssessmentRepository,
	proctoringRepo repository.ProctoringRepository,
) *ResultService {
	return &ResultService{
		attemptRepo:    attemptRepo,
		answerRepo:     answerRepo,
		assessmentRepo: assessmentRepo,
		proctoringRepo: proctoringRepo,
	}
}

// GetAssessmentResults возвращает строку сводки на каждую попытку ассессмента.
// Итоговый CEFR попытки выводится из среднего overall по оцененным ответам.
func (s *ResultService) GetAssessmentResults(assessmentID uint) ([]ResultRow, error) {
	if _, err := s.assessmentRepo.GetByID(assessmentID); err != nil {
		return nil, err
	}

	attempts, err := s.attemptRepo.ListByAssessment(assessmentID)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить попытки ассессмента #%d: %w", assessmentID, err)
	}

	rows := make([]ResultRow, 0, len(attempts))
	for i := range attempts {
		row, err := s.buildRow(&attempts[i])
		if err != nil {
			return nil, err
		}
		rows = append(rows, *row)
	}
	return rows, nil
}

func (s *ResultService) buildRow(attempt *entity.CandidateAssessment) (*ResultRow, error) {
	row := &ResultRow{
		AttemptID:      attempt.ID,
		CandidateID:    attempt.CandidateID,
		CandidateName:  attempt.Candidate.FullName,
		CandidateEmail: attempt.Candidate.Email,
		AttemptNumber:  attempt.AttemptNumber,
		Status:         string(attempt.SessionStatus),
		StartedAt:      attempt.StartedAt,
		CompletedAt:    attempt.CompletedAt,
	}

	answers, err := s.answerRepo.GetByAttemptID(attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить ответы попытки #%d: %w", attempt.ID, err)
	}

	var sum float64
	for i := range answers {
		a := &answers[i]
		row.TotalAnswers++
		if a.IsSkipped {
			row.SkippedAnswers++
		}
		if a.IsEvaluated() {
			row.EvaluatedAnswers++
			sum += *a.OverallScore
		}
	}
	if row.EvaluatedAnswers > 0 {
		avg := sum / float64(row.EvaluatedAnswers)
		row.AverageOverall = &avg
		row.CEFRLevel = evaluation.MapCEFR(avg)
	}

	session, err := s.proctoringRepo.GetSessionByAttemptID(attempt.ID)
	if err != nil {
		// Отсутствие сессии прокторинга — норма: нарушений не было
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	} else {
		row.TotalViolations = session.TotalViolations
		row.AutoSubmitted = session.IsAutoSubmitted
	}

	return row, nil
}
