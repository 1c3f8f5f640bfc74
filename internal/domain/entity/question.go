package entity

import (
	"time"
)

// Типы вопросов
const (
	QuestionTypeWriting  = "WRITING"
	QuestionTypeSpeaking = "SPEAKING"
)

// Уровни CEFR от низшего к высшему
const (
	CEFRLevelA1 = "A1"
	CEFRLevelA2 = "A2"
	CEFRLevelB1 = "B1"
	CEFRLevelB2 = "B2"
	CEFRLevelC1 = "C1"
	CEFRLevelC2 = "C2"
)

// CEFRLevels содержит все уровни в порядке возрастания
var CEFRLevels = []string{CEFRLevelA1, CEFRLevelA2, CEFRLevelB1, CEFRLevelB2, CEFRLevelC1, CEFRLevelC2}

// Question представляет вопрос из банка вопросов.
// Неизменяем после создания, кроме счётчика TimesUsed, который
// инкрементируется ровно один раз при включении вопроса в секцию.
type Question struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Type          string    `gorm:"size:20;not null;index" json:"type"`
	CEFRLevel     string    `gorm:"column:cefr_level;size:2;not null;index" json:"cefr_level"`
	Text          string    `gorm:"type:text;not null" json:"text"`
	CorrectAnswer *string   `gorm:"type:text" json:"correct_answer,omitempty"`
	TimesUsed     int       `gorm:"not null;default:0" json:"times_used"`
	IsActive      bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// IsWriting проверяет, является ли вопрос письменным
func (q *Question) IsWriting() bool {
	return q.Type == QuestionTypeWriting
}

// IsSpeaking проверяет, является ли вопрос устным
func (q *Question) IsSpeaking() bool {
	return q.Type == QuestionTypeSpeaking
}

// IsValidQuestionType проверяет допустимость типа вопроса
func IsValidQuestionType(t string) bool {
	return t == QuestionTypeWriting || t == QuestionTypeSpeaking
}

// IsValidCEFRLevel проверяет допустимость уровня CEFR
func IsValidCEFRLevel(level string) bool {
	for _, l := range CEFRLevels {
		if l == level {
			return true
		}
	}
	return false
}
