package entity

import (
	"time"
)

// Answer представляет ответ кандидата на один вопрос в рамках попытки.
// Уникален по паре (attempt_id, question_id): сохраняется через upsert,
// RevisionCount инкрементируется при каждой перезаписи.
// Поля оценок заполняются пайплайном оценивания; OverallScore == nil
// означает "ещё не оценен".
type Answer struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	AttemptID   uint   `gorm:"not null;uniqueIndex:idx_attempt_question" json:"attempt_id"`
	QuestionID  uint   `gorm:"not null;uniqueIndex:idx_attempt_question" json:"question_id"`
	SectionID   uint   `gorm:"not null;index" json:"section_id"`
	CandidateID uint   `gorm:"not null;index" json:"candidate_id"`
	AnswerText  string `gorm:"type:text" json:"answer_text"`
	AudioPath   string `gorm:"size:500" json:"audio_path"`
	IsSkipped   bool   `gorm:"not null;default:false" json:"is_skipped"`

	WordCount     int `gorm:"not null;default:0" json:"word_count"`
	RevisionCount int `gorm:"not null;default:0" json:"revision_count"`

	// Оценки пайплайна. Указатели: nil = подоценка не выставлена.
	CorrectnessScore  *float64 `json:"correctness_score,omitempty"`
	GrammarScore      *float64 `json:"grammar_score,omitempty"`
	FluencyScore      *float64 `json:"fluency_score,omitempty"`
	CompletenessScore *float64 `json:"completeness_score,omitempty"`
	ThinkingScore     *float64 `json:"thinking_score,omitempty"`
	OverallScore      *float64 `json:"overall_score,omitempty"`
	CEFRLevel         *string  `gorm:"column:cefr_level;size:2" json:"cefr_level,omitempty"`

	Feedback     string     `gorm:"type:text" json:"feedback"`
	Strengths    string     `gorm:"type:text" json:"strengths"`
	Improvements string     `gorm:"type:text" json:"improvements"`
	EvaluatedAt  *time.Time `json:"evaluated_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Question Question `gorm:"foreignKey:QuestionID" json:"question,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (Answer) TableName() string {
	return "answers"
}

// IsEvaluated проверяет, выставлена ли итоговая оценка
func (a *Answer) IsEvaluated() bool {
	return a.OverallScore != nil
}

// HasContent проверяет, несет ли ответ хоть какое-то содержимое
// (текст, аудио или явный пропуск)
func (a *Answer) HasContent() bool {
	return a.AnswerText != "" || a.AudioPath != "" || a.IsSkipped
}
