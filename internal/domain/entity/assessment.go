package entity

import (
	"time"
)

// Статусы ассессмента
const (
	AssessmentStatusDraft  = "DRAFT"
	AssessmentStatusActive = "ACTIVE"
)

// Assessment представляет экземпляр экзамена, собираемый из банка вопросов.
// Создается в статусе DRAFT; переходит в ACTIVE только после того, как
// генератор контента успешно заполнит все секции. При ошибке генерации
// остается (или возвращается) в DRAFT — никогда не остается наполовину
// заполненным и ACTIVE одновременно.
type Assessment struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Title         string    `gorm:"size:200;not null" json:"title"`
	Type          string    `gorm:"size:50;not null" json:"type"`
	Status        string    `gorm:"size:20;not null;default:'DRAFT';index" json:"status"`
	TotalDuration int       `gorm:"not null;default:0" json:"total_duration"`
	MaxAttempts   int       `gorm:"not null;default:1" json:"max_attempts"`
	Sections      []Section `gorm:"foreignKey:AssessmentID" json:"sections,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Assessment) TableName() string {
	return "assessments"
}

// IsActive проверяет, доступен ли ассессмент для прохождения
func (a *Assessment) IsActive() bool {
	return a.Status == AssessmentStatusActive
}

// IsDraft проверяет, находится ли ассессмент в черновике
func (a *Assessment) IsDraft() bool {
	return a.Status == AssessmentStatusDraft
}

// Section представляет именованную упорядоченную группу вопросов одного типа
// внутри ассессмента. Принадлежит ровно одному ассессменту; создается один раз
// и далее не мутируется.
type Section struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	AssessmentID    uint      `gorm:"not null;index" json:"assessment_id"`
	Name            string    `gorm:"size:100;not null" json:"name"`
	OrderIndex      int       `gorm:"not null" json:"order_index"`
	DurationMinutes int       `gorm:"not null" json:"duration_minutes"`
	TotalQuestions  int       `gorm:"not null" json:"total_questions"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Section) TableName() string {
	return "sections"
}

// SectionQuestion — связка секция↔вопрос (many-to-many).
// Создается одним атомарным батчем на правило шаблона.
type SectionQuestion struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SectionID  uint      `gorm:"not null;index:idx_section_question,unique" json:"section_id"`
	QuestionID uint      `gorm:"not null;index:idx_section_question,unique" json:"question_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (SectionQuestion) TableName() string {
	return "section_questions"
}
