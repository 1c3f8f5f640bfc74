package service

import (
	"fmt"
	"log"

	"github.com/yourusername/assessment-api/internal/domain/entity"
	"github.com/yourusername/assessment-api/internal/domain/repository"
	"github.com/yourusername/assessment-api/internal/service/contentgen"
)

// AssessmentService отвечает за жизненный цикл ассессментов.
// Переход DRAFT→ACTIVE выполняет только генератор контента
// после успешного заполнения всех секций.
type AssessmentService struct {
	assessmentRepo repository.AssessmentRepository
	sectionRepo    repository.SectionRepository
	questionRepo   repository.QuestionRepository
}

// NewAssessmentService создает новый сервис ассессментов
func NewAssessmentService(
	assessmentRepo repository.AssessmentRepository,
	sectionRepo repository.SectionRepository,
	questionRepo repository.QuestionRepository,
) *AssessmentService {
	return &AssessmentService{
		assessmentRepo: assessmentRepo,
		sectionRepo:    sectionRepo,
		questionRepo:   questionRepo,
	}
}

// CreateDraft создает ассессмент в статусе DRAFT. Шаблон валидируется
// синхронно, чтобы не оставлять в БД черновик с заведомо невалидным
// планом генерации. TotalDuration — сумма длительностей секций шаблона.
func (s *AssessmentService) CreateDraft(title, assessmentType string, maxAttempts int, template contentgen.Template) (*entity.Assessment, error) {
	if err := contentgen.ValidateTemplate(template); err != nil {
		return nil, err
	}

	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	totalDuration := 0
	for _, section := range template.Sections {
		totalDuration += section.DurationMinutes
	}

	assessment := &entity.Assessment{
		Title:         title,
		Type:          assessmentType,
		Status:        entity.AssessmentStatusDraft,
		TotalDuration: totalDuration,
		MaxAttempts:   maxAttempts,
	}
	if err := s.assessmentRepo.Create(assessment); err != nil {
		return nil, fmt.Errorf("не удалось создать ассессмент: %w", err)
	}

	log.Printf("[AssessmentService] Создан черновик ассессмента #%d (%q, %d секций, %d мин)",
		assessment.ID, title, len(template.Sections), totalDuration)

	return assessment, nil
}

// GetByID возвращает ассессмент без секций
func (s *AssessmentService) GetByID(id uint) (*entity.Assessment, error) {
	return s.assessmentRepo.GetByID(id)
}

// GetWithSections возвращает ассессмент с секциями в порядке order_index
func (s *AssessmentService) GetWithSections(id uint) (*entity.Assessment, error) {
	return s.assessmentRepo.GetWithSections(id)
}

// List возвращает страницу ассессментов и общее количество
func (s *AssessmentService) List(page, pageSize int) ([]entity.Assessment, int64, error) {
	offset := (page - 1) * pageSize
	return s.assessmentRepo.List(pageSize, offset)
}
