package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/assessment-api/internal/domain/entity"
	apperrors "github.com/yourusername/assessment-api/internal/pkg/errors"
)

// ============================================================================
// Хелперы
// ============================================================================

func createTestAttemptServiceWithMocks() (*AttemptService, *MockAttemptRepository, *MockAssessmentRepository) {
	mockAttemptRepo := new(MockAttemptRepository)
	mockAssessmentRepo := new(MockAssessmentRepository)

	service := &AttemptService{
		attemptRepo:    mockAttemptRepo,
		assessmentRepo: mockAssessmentRepo,
		sectionRepo:    new(MockSectionRepository),
		questionRepo:   new(MockQuestionRepository),
		candidateRepo:  new(MockCandidateRepository),
	}
	return service, mockAttemptRepo, mockAssessmentRepo
}

func activeAssessment(id uint, maxAttempts int) *entity.Assessment {
	return &entity.Assessment{
		ID:          id,
		Title:       "English Level Check",
		Type:        "language_assessment",
		Status:      entity.AssessmentStatusActive,
		MaxAttempts: maxAttempts,
	}
}

// ============================================================================
// Тесты CreateAttempt
// ============================================================================

func TestAttemptService_CreateAttempt_Success(t *testing.T) {
	// Arrange
	service, mockAttemptRepo, mockAssessmentRepo := createTestAttemptServiceWithMocks()

	mockAssessmentRepo.On("GetByID", uint(10)).Return(activeAssessment(10, 3), nil)
	mockAttemptRepo.On("GetInProgress", uint(1), uint(10)).Return(nil, apperrors.ErrNotFound)
	mockAttemptRepo.On("CountByCandidateAndAssessment", uint(1), uint(10)).Return(int64(0), nil)
	mockAttemptRepo.On("Create", mock.AnythingOfType("*entity.CandidateAssessment")).Return(nil)

	// Act
	result, err := service.CreateAttempt(1, 10)

	// Assert
	require.NoError(t, err, "Создание первой попытки должно быть успешным")
	assert.Equal(t, 1, result.AttemptNumber, "Первая попытка должна иметь номер 1")
	assert.Equal(t, 2, result.AttemptsRemaining, "Должно остаться 2 попытки из 3")
	assert.Equal(t, entity.SessionInProgress, result.Attempt.SessionStatus,
		"Попытка должна сразу создаваться в статусе IN_PROGRESS")
	assert.False(t, result.Attempt.StartedAt.IsZero(), "StartedAt должен быть выставлен")
	mockAttemptRepo.AssertExpectations(t)
	mockAssessmentRepo.AssertExpectations(t)
}

func TestAttemptService_CreateAttempt_NumberIsMonotonic(t *testing.T) {
	// Arrange: у пары уже есть две попытки
	service, mockAttemptRepo, mockAssessmentRepo := createTestAttemptServiceWithMocks()

	mockAssessmentRepo.On("GetByID", uint(10)).Return(activeAssessment(10, 3), nil)
	mockAttemptRepo.On("GetInProgress", uint(1), uint(10)).Return(nil, apperrors.ErrNotFound)
	mockAttemptRepo.On("CountByCandidateAndAssessment", uint(1), uint(10)).Return(int64(2), nil)
	mockAttemptRepo.On("Create", mock.AnythingOfType("*entity.CandidateAssessment")).Return(nil)

	// Act
	result, err := service.CreateAttempt(1, 10)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 3, result.AttemptNumber, "Номер попытки должен быть count+1")
	assert.Equal(t, 0, result.AttemptsRemaining, "Попыток больше не должно остаться")
}

func TestAttemptService_CreateAttempt_MaxAttemptsExceeded(t *testing.T) {
	// Arrange: лимит попыток исчерпан
	service, mockAttemptRepo, mockAssessmentRepo := createTestAttemptServiceWithMocks()

	mockAssessmentRepo.On("GetByID", uint(10)).Return(activeAssessment(10, 3), nil)
	mockAttemptRepo.On("GetInProgress", uint(1), uint(10)).Return(nil, apperrors.ErrNotFound)
	mockAttemptRepo.On("CountByCandidateAndAssessment", uint(1), uint(10)).Return(int64(3), nil)

	// Act
	result, err := service.CreateAttempt(1, 10)

	// Assert
	require.Error(t, err, "Попытка сверх лимита должна быть отклонена")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Nil(t, result)
	mockAttemptRepo.AssertNotCalled(t, "Create")
}

func TestAttemptService_CreateAttempt_ActiveAttemptExists(t *testing.T) {
	// Arrange: у пары уже есть попытка IN_PROGRESS
	service, mockAttemptRepo, mockAssessmentRepo := createTestAttemptServiceWithMocks()

	mockAssessmentRepo.On("GetByID", uint(10)).Return(activeAssessment(10, 3), nil)
	mockAttemptRepo.On("GetInProgress", uint(1), uint(10)).Return(&entity.CandidateAssessment{
		ID:            1,
		CandidateID:   1,
		AssessmentID:  10,
		AttemptNumber: 1,
		SessionStatus: entity.SessionInProgress,
		StartedAt:     time.Now().Add(-2 * time.Minute),
	}, nil)

	// Act
	result, err := service.CreateAttempt(1, 10)

	// Assert: вторая активная попытка для пары недопустима
	require.Error(t, err, "Новая попытка при активной должна быть отклонена")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Nil(t, result)
	mockAttemptRepo.AssertNotCalled(t, "CountByCandidateAndAssessment")
	mockAttemptRepo.AssertNotCalled(t, "Create")
}

func TestAttemptService_CreateAttempt_DraftAssessment(t *testing.T) {
	// Arrange: ассессмент еще не активирован генератором
	service, mockAttemptRepo, mockAssessmentRepo := createTestAttemptServiceWithMocks()

	draft := activeAssessment(10, 3)
	draft.Status = entity.AssessmentStatusDraft
	mockAssessmentRepo.On("GetByID", uint(10)).Return(draft, nil)

	// Act
	result, err := service.CreateAttempt(1, 10)

	// Assert
	require.Error(t, err, "Попытка по DRAFT-ассессменту должна быть отклонена")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Nil(t, result)
	mockAttemptRepo.AssertNotCalled(t, "CountByCandidateAndAssessment")
	mockAttemptRepo.AssertNotCalled(t, "Create")
}

// ============================================================================
// Тесты Transition
// ============================================================================

func TestAttemptService_Transition_Valid(t *testing.T) {
	// Arrange
	service, mockAttemptRepo, _ := createTestAttemptServiceWithMocks()

	attempt := &entity.CandidateAssessment{
		ID:            5,
		SessionStatus: entity.SessionInProgress,
		StartedAt:     time.Now(),
	}
	mockAttemptRepo.On("GetByID", uint(5)).Return(attempt, nil)
	mockAttemptRepo.On("UpdateStatus", mock.AnythingOfType("*entity.CandidateAssessment")).Return(nil)

	// Act
	updated, err := service.Pause(5)

	// Assert
	require.NoError(t, err, "Переход IN_PROGRESS -> PAUSED допустим")
	assert.Equal(t, entity.SessionPaused, updated.SessionStatus)
	assert.Nil(t, updated.CompletedAt, "PAUSED не терминален, CompletedAt не выставляется")
	mockAttemptRepo.AssertExpectations(t)
}

func TestAttemptService_Transition_TerminalSetsCompletedAt(t *testing.T) {
	// Arrange
	service, mockAttemptRepo, _ := createTestAttemptServiceWithMocks()

	attempt := &entity.CandidateAssessment{
		ID:            5,
		SessionStatus: entity.SessionInProgress,
		StartedAt:     time.Now(),
	}
	mockAttemptRepo.On("GetByID", uint(5)).Return(attempt, nil)
	mockAttemptRepo.On("UpdateStatus", mock.AnythingOfType("*entity.CandidateAssessment")).Return(nil)

	// Act
	updated, err := service.Complete(5)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, entity.SessionCompleted, updated.SessionStatus)
	require.NotNil(t, updated.CompletedAt, "Терминальный переход должен зафиксировать CompletedAt")
}

func TestAttemptService_Transition_InvalidFromTerminal(t *testing.T) {
	// Arrange: завершенная попытка не может быть возобновлена
	service, mockAttemptRepo, _ := createTestAttemptServiceWithMocks()

	attempt := &entity.CandidateAssessment{
		ID:            5,
		SessionStatus: entity.SessionCompleted,
		StartedAt:     time.Now(),
	}
	mockAttemptRepo.On("GetByID", uint(5)).Return(attempt, nil)

	// Act
	updated, err := service.Start(5)

	// Assert
	require.Error(t, err, "Переход из COMPLETED должен быть отклонен")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Nil(t, updated)
	mockAttemptRepo.AssertNotCalled(t, "UpdateStatus")
}

func TestAttemptService_Terminate_FromPaused(t *testing.T) {
	// Arrange: автоотправка должна работать и для приостановленной попытки
	service, mockAttemptRepo, _ := createTestAttemptServiceWithMocks()

	attempt := &entity.CandidateAssessment{
		ID:            5,
		SessionStatus: entity.SessionPaused,
		StartedAt:     time.Now(),
	}
	mockAttemptRepo.On("GetByID", uint(5)).Return(attempt, nil)
	mockAttemptRepo.On("UpdateStatus", mock.AnythingOfType("*entity.CandidateAssessment")).Return(nil)

	// Act
	updated, err := service.Terminate(5, "violation threshold exceeded")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, entity.SessionTerminated, updated.SessionStatus)
	require.NotNil(t, updated.CompletedAt)
}

// ============================================================================
// Тесты ValidateOwnership
// ============================================================================

func TestAttemptService_ValidateOwnership(t *testing.T) {
	// Arrange
	service, mockAttemptRepo, _ := createTestAttemptServiceWithMocks()

	attempt := &entity.CandidateAssessment{
		ID:          5,
		CandidateID: 1,
		Candidate:   entity.Candidate{ID: 1, AgentID: 42},
	}
	mockAttemptRepo.On("GetWithCandidate", uint(5)).Return(attempt, nil)

	// Act & Assert: владелец
	owned, err := service.ValidateOwnership(5, 42)
	require.NoError(t, err)
	assert.True(t, owned, "Агент-владелец должен проходить проверку")

	// Act & Assert: чужой агент
	owned, err = service.ValidateOwnership(5, 99)
	require.NoError(t, err)
	assert.False(t, owned, "Чужой агент не должен проходить проверку")
}

// ============================================================================
// Тесты ResumeOrAbandon
// ============================================================================

func TestAttemptService_ResumeOrAbandon_SilentResumeWithinWindow(t *testing.T) {
	// Arrange: PAUSED, полноэкранный режим не включался, окно не истекло
	service, mockAttemptRepo, _ := createTestAttemptServiceWithMocks()

	attempt := &entity.CandidateAssessment{
		ID:            5,
		SessionStatus: entity.SessionPaused,
		StartedAt:     time.Now().Add(-5 * time.Minute),
	}
	mockAttemptRepo.On("GetByID", uint(5)).Return(attempt, nil)
	mockAttemptRepo.On("UpdateStatus", mock.AnythingOfType("*entity.CandidateAssessment")).Return(nil)

	// Act
	resumed, err := service.ResumeOrAbandon(5)

	// Assert
	require.NoError(t, err, "Тихое возобновление в пределах окна должно быть успешным")
	assert.Equal(t, entity.SessionInProgress, resumed.SessionStatus)
}

func TestAttemptService_ResumeOrAbandon_InProgressWithinWindow(t *testing.T) {
	// Arrange: уже IN_PROGRESS - возобновление без перехода
	service, mockAttemptRepo, _ := createTestAttemptServiceWithMocks()

	attempt := &entity.CandidateAssessment{
		ID:            5,
		SessionStatus: entity.SessionInProgress,
		StartedAt:     time.Now().Add(-time.Minute),
	}
	mockAttemptRepo.On("GetByID", uint(5)).Return(attempt, nil)

	// Act
	resumed, err := service.ResumeOrAbandon(5)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, entity.SessionInProgress, resumed.SessionStatus)
	mockAttemptRepo.AssertNotCalled(t, "UpdateStatus")
}

func TestAttemptService_ResumeOrAbandon_WindowExpired(t *testing.T) {
	// Arrange: окно возобновления истекло - попытка брошена
	service, mockAttemptRepo, _ := createTestAttemptServiceWithMocks()

	attempt := &entity.CandidateAssessment{
		ID:            5,
		SessionStatus: entity.SessionInProgress,
		StartedAt:     time.Now().Add(-AbandonmentWindow - time.Minute),
	}
	mockAttemptRepo.On("GetByID", uint(5)).Return(attempt, nil)
	mockAttemptRepo.On("UpdateStatus", mock.AnythingOfType("*entity.CandidateAssessment")).Return(nil)

	// Act
	resumed, err := service.ResumeOrAbandon(5)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, entity.SessionExpired, resumed.SessionStatus,
		"По истечении окна попытка должна завершаться как EXPIRED")
}

func TestAttemptService_ResumeOrAbandon_AfterFullScreen(t *testing.T) {
	// Arrange: полноэкранный режим уже включался - тихое возобновление недоступно
	service, mockAttemptRepo, _ := createTestAttemptServiceWithMocks()

	attempt := &entity.CandidateAssessment{
		ID:                5,
		SessionStatus:     entity.SessionInProgress,
		FullScreenEntered: true,
		StartedAt:         time.Now().Add(-time.Minute),
	}
	mockAttemptRepo.On("GetByID", uint(5)).Return(attempt, nil)
	mockAttemptRepo.On("UpdateStatus", mock.AnythingOfType("*entity.CandidateAssessment")).Return(nil)

	// Act
	resumed, err := service.ResumeOrAbandon(5)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, entity.SessionExpired, resumed.SessionStatus,
		"После входа в полноэкранный режим попытка не возобновляется тихо")
}

func TestAttemptService_ResumeOrAbandon_NotResumable(t *testing.T) {
	// Arrange
	service, mockAttemptRepo, _ := createTestAttemptServiceWithMocks()

	attempt := &entity.CandidateAssessment{
		ID:            5,
		SessionStatus: entity.SessionTerminated,
		StartedAt:     time.Now(),
	}
	mockAttemptRepo.On("GetByID", uint(5)).Return(attempt, nil)

	// Act
	resumed, err := service.ResumeOrAbandon(5)

	// Assert
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Nil(t, resumed)
}

// ============================================================================
// Тесты HasActiveAttempt
// ============================================================================

func TestAttemptService_HasActiveAttempt(t *testing.T) {
	// Arrange
	service, mockAttemptRepo, _ := createTestAttemptServiceWithMocks()

	mockAttemptRepo.On("GetInProgress", uint(1), uint(10)).
		Return(&entity.CandidateAssessment{ID: 5}, nil).Once()
	mockAttemptRepo.On("GetInProgress", uint(2), uint(10)).
		Return(nil, apperrors.ErrNotFound).Once()

	// Act & Assert
	active, err := service.HasActiveAttempt(1, 10)
	require.NoError(t, err)
	assert.True(t, active)

	active, err = service.HasActiveAttempt(2, 10)
	require.NoError(t, err, "Отсутствие активной попытки не является ошибкой")
	assert.False(t, active)
}
