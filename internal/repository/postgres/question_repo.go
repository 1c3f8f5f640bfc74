package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/assessment-api/internal/domain/entity"
	apperrors "github.com/yourusername/assessment-api/internal/pkg/errors"
)

// QuestionRepo реализует repository.QuestionRepository
type QuestionRepo struct {
	db *gorm.DB
}

// NewQuestionRepo создает новый репозиторий вопросов
func NewQuestionRepo(db *gorm.DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

// Create создает новый вопрос
func (r *QuestionRepo) Create(question *entity.Question) error {
	return r.db.Create(question).Error
}

// CreateBatch создает пакет вопросов
func (r *QuestionRepo) CreateBatch(questions []entity.Question) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&questions).Error
	})
}

// GetByID возвращает вопрос по ID
func (r *QuestionRepo) GetByID(id uint) (*entity.Question, error) {
	var question entity.Question
	err := r.db.First(&question, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &question, nil
}

// Update обновляет информацию о вопросе
func (r *QuestionRepo) Update(question *entity.Question) error {
	return r.db.Save(question).Error
}

// Deactivate выводит вопрос из активного пула, не удаляя его
func (r *QuestionRepo) Deactivate(id uint) error {
	result := r.db.Model(&entity.Question{}).
		Where("id = ?", id).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// GetActiveByTypeAndLevels возвращает все активные вопросы заданного типа
// с уровнем CEFR из переданного набора
func (r *QuestionRepo) GetActiveByTypeAndLevels(questionType string, cefrLevels []string) ([]entity.Question, error) {
	var questions []entity.Question
	err := r.db.
		Where("type = ? AND cefr_level IN ? AND is_active = ?", questionType, cefrLevels, true).
		Order("id").
		Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// BindToSection атомарно вставляет связки секция↔вопрос и инкрементирует
// times_used выбранных вопросов. Все-или-ничего в рамках одного правила.
func (r *QuestionRepo) BindToSection(sectionID uint, questionIDs []uint) error {
	if len(questionIDs) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		bindings := make([]entity.SectionQuestion, 0, len(questionIDs))
		for _, qid := range questionIDs {
			bindings = append(bindings, entity.SectionQuestion{
				SectionID:  sectionID,
				QuestionID: qid,
			})
		}
		if err := tx.Create(&bindings).Error; err != nil {
			return err
		}
		// Инкремент счетчика использования в той же транзакции, что и связка.
		return tx.Model(&entity.Question{}).
			Where("id IN ?", questionIDs).
			Update("times_used", gorm.Expr("times_used + 1")).Error
	})
}

// GetBySectionID возвращает вопросы секции в порядке привязки
func (r *QuestionRepo) GetBySectionID(sectionID uint) ([]entity.Question, error) {
	var questions []entity.Question
	err := r.db.
		Joins("JOIN section_questions sq ON sq.question_id = questions.id").
		Where("sq.section_id = ?", sectionID).
		Order("sq.id").
		Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// PoolStats возвращает количество активных вопросов по ключу "тип:уровень"
func (r *QuestionRepo) PoolStats() (map[string]int64, error) {
	type row struct {
		Type      string
		CEFRLevel string `gorm:"column:cefr_level"`
		Cnt       int64
	}
	var rows []row
	err := r.db.Model(&entity.Question{}).
		Select("type, cefr_level, COUNT(*) as cnt").
		Where("is_active = ?", true).
		Group("type, cefr_level").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	stats := make(map[string]int64, len(rows))
	for _, r := range rows {
		stats[r.Type+":"+r.CEFRLevel] = r.Cnt
	}
	return stats, nil
}
