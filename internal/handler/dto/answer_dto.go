package dto

import (
	"time"

	"github.com/yourusername/assessment-api/internal/domain/entity"
)

// AnswerResponse представляет сохраненный ответ в формате для клиента
type AnswerResponse struct {
	ID            uint   `json:"id"`
	AttemptID     uint   `json:"attempt_id"`
	QuestionID    uint   `json:"question_id"`
	SectionID     uint   `json:"section_id"`
	AnswerText    string `json:"answer_text,omitempty"`
	AudioPath     string `json:"audio_path,omitempty"`
	IsSkipped     bool   `json:"is_skipped"`
	WordCount     int    `json:"word_count"`
	RevisionCount int    `json:"revision_count"`

	// Оценки присутствуют только после прохождения пайплайна оценивания
	CorrectnessScore  *float64 `json:"correctness_score,omitempty"`
	GrammarScore      *float64 `json:"grammar_score,omitempty"`
	FluencyScore      *float64 `json:"fluency_score,omitempty"`
	CompletenessScore *float64 `json:"completeness_score,omitempty"`
	ThinkingScore     *float64 `json:"thinking_score,omitempty"`
	OverallScore      *float64 `json:"overall_score,omitempty"`
	CEFRLevel         *string  `json:"cefr_level,omitempty"`

	Feedback     string     `json:"feedback,omitempty"`
	Strengths    string     `json:"strengths,omitempty"`
	Improvements string     `json:"improvements,omitempty"`
	EvaluatedAt  *time.Time `json:"evaluated_at,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewAnswerResponse создает DTO для ответа
func NewAnswerResponse(a *entity.Answer) *AnswerResponse {
	if a == nil {
		return nil
	}
	return &AnswerResponse{
		ID:                a.ID,
		AttemptID:         a.AttemptID,
		QuestionID:        a.QuestionID,
		SectionID:         a.SectionID,
		AnswerText:        a.AnswerText,
		AudioPath:         a.AudioPath,
		IsSkipped:         a.IsSkipped,
		WordCount:         a.WordCount,
		RevisionCount:     a.RevisionCount,
		CorrectnessScore:  a.CorrectnessScore,
		GrammarScore:      a.GrammarScore,
		FluencyScore:      a.FluencyScore,
		CompletenessScore: a.CompletenessScore,
		ThinkingScore:     a.ThinkingScore,
		OverallScore:      a.OverallScore,
		CEFRLevel:         a.CEFRLevel,
		Feedback:          a.Feedback,
		Strengths:         a.Strengths,
		Improvements:      a.Improvements,
		EvaluatedAt:       a.EvaluatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

// NewListAnswerResponse создает слайс DTO для списка ответов
func NewListAnswerResponse(answers []entity.Answer) []*AnswerResponse {
	list := make([]*AnswerResponse, len(answers))
	for i := range answers {
		list[i] = NewAnswerResponse(&answers[i])
	}
	return list
}
