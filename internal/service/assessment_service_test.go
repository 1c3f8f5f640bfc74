package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/assessment-api/internal/domain/entity"
	apperrors "github.com/yourusername/assessment-api/internal/pkg/errors"
	"github.com/yourusername/assessment-api/internal/service/contentgen"
)

// ============================================================================
// Хелперы
// ============================================================================

func createTestAssessmentServiceWithMocks() (*AssessmentService, *MockAssessmentRepository) {
	mockAssessmentRepo := new(MockAssessmentRepository)

	service := &AssessmentService{
		assessmentRepo: mockAssessmentRepo,
		sectionRepo:    new(MockSectionRepository),
		questionRepo:   new(MockQuestionRepository),
	}
	return service, mockAssessmentRepo
}

func validTemplate() contentgen.Template {
	return contentgen.Template{
		Sections: []contentgen.SectionTemplate{
			{
				Name:            "Writing",
				QuestionType:    entity.QuestionTypeWriting,
				DurationMinutes: 30,
				Rules: []contentgen.QuestionRule{
					{CEFRLevels: []string{entity.CEFRLevelB1, entity.CEFRLevelB2}, Count: 5},
				},
			},
			{
				Name:            "Speaking",
				QuestionType:    entity.QuestionTypeSpeaking,
				DurationMinutes: 15,
				Rules: []contentgen.QuestionRule{
					{CEFRLevels: []string{entity.CEFRLevelB2}, Count: 3},
				},
			},
		},
	}
}

// ============================================================================
// Тесты CreateDraft
// ============================================================================

func TestAssessmentService_CreateDraft_Success(t *testing.T) {
	// Arrange
	service, mockAssessmentRepo := createTestAssessmentServiceWithMocks()

	mockAssessmentRepo.On("Create", mock.AnythingOfType("*entity.Assessment")).Return(nil)

	// Act
	assessment, err := service.CreateDraft("English Level Check", "language_assessment", 3, validTemplate())

	// Assert
	require.NoError(t, err, "Создание черновика должно быть успешным")
	assert.Equal(t, entity.AssessmentStatusDraft, assessment.Status,
		"Ассессмент создается в DRAFT, активирует его только генератор")
	assert.Equal(t, 45, assessment.TotalDuration, "Длительность - сумма длительностей секций")
	assert.Equal(t, 3, assessment.MaxAttempts)
	mockAssessmentRepo.AssertExpectations(t)
}

func TestAssessmentService_CreateDraft_DefaultsMaxAttempts(t *testing.T) {
	// Arrange
	service, mockAssessmentRepo := createTestAssessmentServiceWithMocks()

	mockAssessmentRepo.On("Create", mock.AnythingOfType("*entity.Assessment")).Return(nil)

	// Act
	assessment, err := service.CreateDraft("English Level Check", "language_assessment", 0, validTemplate())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, assessment.MaxAttempts, "Неположительный лимит попыток приводится к 1")
}

func TestAssessmentService_CreateDraft_InvalidTemplate(t *testing.T) {
	// Arrange: шаблон без секций отклоняется до записи в БД
	service, mockAssessmentRepo := createTestAssessmentServiceWithMocks()

	// Act
	assessment, err := service.CreateDraft("English Level Check", "language_assessment", 1, contentgen.Template{})

	// Assert
	require.Error(t, err, "Невалидный шаблон должен быть отклонен синхронно")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Nil(t, assessment)
	mockAssessmentRepo.AssertNotCalled(t, "Create")
}

// ============================================================================
// Тесты List
// ============================================================================

func TestAssessmentService_List_Pagination(t *testing.T) {
	// Arrange: вторая страница по 10 элементов
	service, mockAssessmentRepo := createTestAssessmentServiceWithMocks()

	mockAssessmentRepo.On("List", 10, 10).
		Return([]entity.Assessment{{ID: 11}, {ID: 12}}, int64(12), nil)

	// Act
	assessments, total, err := service.List(2, 10)

	// Assert
	require.NoError(t, err)
	assert.Len(t, assessments, 2)
	assert.Equal(t, int64(12), total)
	mockAssessmentRepo.AssertExpectations(t)
}

// ============================================================================
// Тесты CandidateService
// ============================================================================

func TestCandidateService_GetOrCreateByAgent_PromotesOnFirstContact(t *testing.T) {
	// Arrange: кандидата для агента еще нет
	mockCandidateRepo := new(MockCandidateRepository)
	service := &CandidateService{candidateRepo: mockCandidateRepo}

	mockCandidateRepo.On("GetByAgentID", uint(42)).Return(nil, apperrors.ErrNotFound)
	mockCandidateRepo.On("Create", mock.AnythingOfType("*entity.Candidate")).Return(nil)

	// Act
	candidate, err := service.GetOrCreateByAgent(AgentInfo{
		AgentID:  42,
		FullName: "Jane Roe",
		Email:    "jane@example.com",
	})

	// Assert
	require.NoError(t, err, "Промоция агента в кандидата должна быть успешной")
	assert.Equal(t, uint(42), candidate.AgentID)
	assert.Equal(t, "Jane Roe", candidate.FullName)
	assert.Equal(t, "jane@example.com", candidate.Email)
	mockCandidateRepo.AssertExpectations(t)
}

func TestCandidateService_GetOrCreateByAgent_ReturnsExisting(t *testing.T) {
	// Arrange: кандидат уже существует - идентификационные поля не перезаписываются
	mockCandidateRepo := new(MockCandidateRepository)
	service := &CandidateService{candidateRepo: mockCandidateRepo}

	existing := &entity.Candidate{ID: 7, AgentID: 42, FullName: "Jane Roe", Email: "old@example.com"}
	mockCandidateRepo.On("GetByAgentID", uint(42)).Return(existing, nil)

	// Act
	candidate, err := service.GetOrCreateByAgent(AgentInfo{
		AgentID: 42,
		Email:   "new@example.com",
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, uint(7), candidate.ID)
	assert.Equal(t, "old@example.com", candidate.Email,
		"Поля копируются один раз при создании и далее не меняются")
	mockCandidateRepo.AssertNotCalled(t, "Create")
}
