package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/assessment-api/internal/domain/entity"
	apperrors "github.com/yourusername/assessment-api/internal/pkg/errors"
)

// AssessmentRepo реализует repository.AssessmentRepository
type AssessmentRepo struct {
	db *gorm.DB
}

// NewAssessmentRepo создает новый репозиторий ассессментов
func NewAssessmentRepo(db *gorm.DB) *AssessmentRepo {
	return &AssessmentRepo{db: db}
}

// Create создает новый ассессмент (в статусе DRAFT)
func (r *AssessmentRepo) Create(assessment *entity.Assessment) error {
	return r.db.Create(assessment).Error
}

// GetByID возвращает ассессмент по ID
func (r *AssessmentRepo) GetByID(id uint) (*entity.Assessment, error) {
	var assessment entity.Assessment
	err := r.db.First(&assessment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &assessment, nil
}

// GetWithSections возвращает ассессмент вместе с секциями в порядке order_index
func (r *AssessmentRepo) GetWithSections(id uint) (*entity.Assessment, error) {
	var assessment entity.Assessment
	err := r.db.
		Preload("Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("sections.order_index")
		}).
		First(&assessment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &assessment, nil
}

// Update обновляет ассессмент
func (r *AssessmentRepo) Update(assessment *entity.Assessment) error {
	return r.db.Save(assessment).Error
}

// UpdateStatus переключает статус ассессмента (DRAFT↔ACTIVE)
func (r *AssessmentRepo) UpdateStatus(id uint, status string) error {
	result := r.db.Model(&entity.Assessment{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// List возвращает страницу ассессментов и общее количество
func (r *AssessmentRepo) List(limit, offset int) ([]entity.Assessment, int64, error) {
	var assessments []entity.Assessment
	var total int64

	if err := r.db.Model(&entity.Assessment{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.db.Order("id DESC").Limit(limit).Offset(offset).Find(&assessments).Error
	if err != nil {
		return nil, 0, err
	}
	return assessments, total, nil
}

// SectionRepo реализует repository.SectionRepository
type SectionRepo struct {
	db *gorm.DB
}

// NewSectionRepo создает новый репозиторий секций
func NewSectionRepo(db *gorm.DB) *SectionRepo {
	return &SectionRepo{db: db}
}

// Create создает новую секцию
func (r *SectionRepo) Create(section *entity.Section) error {
	return r.db.Create(section).Error
}

// GetByID возвращает секцию по ID
func (r *SectionRepo) GetByID(id uint) (*entity.Section, error) {
	var section entity.Section
	err := r.db.First(&section, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &section, nil
}

// GetByAssessmentID возвращает секции ассессмента в порядке order_index
func (r *SectionRepo) GetByAssessmentID(assessmentID uint) ([]entity.Section, error) {
	var sections []entity.Section
	err := r.db.
		Where("assessment_id = ?", assessmentID).
		Order("order_index").
		Find(&sections).Error
	if err != nil {
		return nil, err
	}
	return sections, nil
}
