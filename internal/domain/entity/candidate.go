package entity

import (
	"time"
)

// Candidate — кандидат, производный 1:1 от внешней записи Agent.
// Создается лениво при первом взаимодействии агента с ассессментом
// (промоция Agent→Candidate). Идентификационные поля копируются
// в момент создания и далее не меняются.
type Candidate struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AgentID   uint      `gorm:"not null;uniqueIndex" json:"agent_id"`
	FullName  string    `gorm:"size:200;not null" json:"full_name"`
	Email     string    `gorm:"size:255;not null" json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Candidate) TableName() string {
	return "candidates"
}
