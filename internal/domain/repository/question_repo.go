package repository

import (
	"github.com/yourusername/assessment-api/internal/domain/entity"
)

// QuestionRepository определяет методы для работы с банком вопросов
type QuestionRepository interface {
	Create(question *entity.Question) error
	CreateBatch(questions []entity.Question) error
	GetByID(id uint) (*entity.Question, error)
	Update(question *entity.Question) error
	Deactivate(id uint) error

	// GetActiveByTypeAndLevels возвращает ВСЕ активные вопросы заданного типа
	// с уровнем CEFR из переданного набора. Несмещенный случайный выбор
	// выполняет генератор контента, а не база.
	GetActiveByTypeAndLevels(questionType string, cefrLevels []string) ([]entity.Question, error)

	// BindToSection атомарно (одна транзакция) вставляет связки секция↔вопрос
	// и инкрементирует times_used каждого выбранного вопроса.
	// Пара вставка+инкремент выполняется по принципу все-или-ничего.
	BindToSection(sectionID uint, questionIDs []uint) error

	// GetBySectionID возвращает вопросы, привязанные к секции, в порядке привязки
	GetBySectionID(sectionID uint) ([]entity.Question, error)

	// PoolStats возвращает количество активных вопросов по типу и уровню
	PoolStats() (map[string]int64, error)
}

// AssessmentRepository определяет методы для работы с ассессментами
type AssessmentRepository interface {
	Create(assessment *entity.Assessment) error
	GetByID(id uint) (*entity.Assessment, error)
	GetWithSections(id uint) (*entity.Assessment, error)
	Update(assessment *entity.Assessment) error
	UpdateStatus(id uint, status string) error
	List(limit, offset int) ([]entity.Assessment, int64, error)
}

// SectionRepository определяет методы для работы с секциями
type SectionRepository interface {
	Create(section *entity.Section) error
	GetByID(id uint) (*entity.Section, error)
	GetByAssessmentID(assessmentID uint) ([]entity.Section, error)
}