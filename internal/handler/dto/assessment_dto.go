package dto

import (
	"time"

	"github.com/yourusername/assessment-api/internal/domain/entity"
	"github.com/yourusername/assessment-api/internal/service"
)

// QuestionResponse представляет вопрос в формате для ответа клиенту.
// Эталонный ответ (correct_answer) кандидату никогда не отдается.
type QuestionResponse struct {
	ID        uint      `json:"id"`
	Type      string    `json:"type"`
	CEFRLevel string    `json:"cefr_level"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// SectionResponse представляет секцию с вопросами
type SectionResponse struct {
	ID              uint               `json:"id"`
	Name            string             `json:"name"`
	OrderIndex      int                `json:"order_index"`
	DurationMinutes int                `json:"duration_minutes"`
	TotalQuestions  int                `json:"total_questions"`
	Questions       []QuestionResponse `json:"questions,omitempty"`
}

// AssessmentResponse представляет ассессмент в формате для ответа клиенту
type AssessmentResponse struct {
	ID            uint              `json:"id"`
	Title         string            `json:"title"`
	Type          string            `json:"type"`
	Status        string            `json:"status"`
	TotalDuration int               `json:"total_duration"`
	MaxAttempts   int               `json:"max_attempts"`
	Sections      []SectionResponse `json:"sections,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// AttemptResponse представляет попытку в формате для ответа клиенту
type AttemptResponse struct {
	ID                uint       `json:"id"`
	CandidateID       uint       `json:"candidate_id"`
	AssessmentID      uint       `json:"assessment_id"`
	AttemptNumber     int        `json:"attempt_number"`
	SessionStatus     string     `json:"session_status"`
	FullScreenEntered bool       `json:"full_screen_entered"`
	StartedAt         time.Time  `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// NewQuestionResponse создает DTO для вопроса
func NewQuestionResponse(q *entity.Question) QuestionResponse {
	return QuestionResponse{
		ID:        q.ID,
		Type:      q.Type,
		CEFRLevel: q.CEFRLevel,
		Text:      q.Text,
		CreatedAt: q.CreatedAt,
	}
}

// NewSectionResponse создает DTO для секции без вопросов
func NewSectionResponse(s *entity.Section) SectionResponse {
	return SectionResponse{
		ID:              s.ID,
		Name:            s.Name,
		OrderIndex:      s.OrderIndex,
		DurationMinutes: s.DurationMinutes,
		TotalQuestions:  s.TotalQuestions,
	}
}

// NewAssessmentResponse создает DTO для ассессмента.
// Секции включаются, если они загружены.
func NewAssessmentResponse(a *entity.Assessment) *AssessmentResponse {
	if a == nil {
		return nil
	}

	var sections []SectionResponse
	if len(a.Sections) > 0 {
		sections = make([]SectionResponse, len(a.Sections))
		for i := range a.Sections {
			sections[i] = NewSectionResponse(&a.Sections[i])
		}
	}

	return &AssessmentResponse{
		ID:            a.ID,
		Title:         a.Title,
		Type:          a.Type,
		Status:        a.Status,
		TotalDuration: a.TotalDuration,
		MaxAttempts:   a.MaxAttempts,
		Sections:      sections,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// NewListAssessmentResponse создает слайс DTO для списка ассессментов
func NewListAssessmentResponse(assessments []entity.Assessment) []*AssessmentResponse {
	list := make([]*AssessmentResponse, len(assessments))
	for i := range assessments {
		list[i] = NewAssessmentResponse(&assessments[i])
	}
	return list
}

// NewAttemptResponse создает DTO для попытки
func NewAttemptResponse(a *entity.CandidateAssessment) *AttemptResponse {
	if a == nil {
		return nil
	}
	return &AttemptResponse{
		ID:                a.ID,
		CandidateID:       a.CandidateID,
		AssessmentID:      a.AssessmentID,
		AttemptNumber:     a.AttemptNumber,
		SessionStatus:     string(a.SessionStatus),
		FullScreenEntered: a.FullScreenEntered,
		StartedAt:         a.StartedAt,
		CompletedAt:       a.CompletedAt,
	}
}

// AssessmentViewResponse — вложенное представление ассессмента попытки:
// секции в порядке order_index, вопросы в порядке привязки.
type AssessmentViewResponse struct {
	Assessment AssessmentResponse `json:"assessment"`
	Sections   []SectionResponse  `json:"sections"`
}

// NewAssessmentViewResponse создает DTO вложенного представления
func NewAssessmentViewResponse(view *service.AssessmentView) *AssessmentViewResponse {
	if view == nil {
		return nil
	}

	sections := make([]SectionResponse, len(view.Sections))
	for i := range view.Sections {
		sv := &view.Sections[i]
		section := NewSectionResponse(&sv.Section)
		section.Questions = make([]QuestionResponse, len(sv.Questions))
		for j := range sv.Questions {
			section.Questions[j] = NewQuestionResponse(&sv.Questions[j])
		}
		sections[i] = section
	}

	return &AssessmentViewResponse{
		Assessment: *NewAssessmentResponse(&view.Assessment),
		Sections:   sections,
	}
}
