package contentgen

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/assessment-api/internal/domain/entity"
	apperrors "github.com/yourusername/assessment-api/internal/pkg/errors"
)

// ============================================================================
// Моки зависимостей генератора
// ============================================================================

// MockAssessmentRepository - мок репозитория ассессментов
type MockAssessmentRepository struct {
	mock.Mock
}

func (m *MockAssessmentRepository) Create(assessment *entity.Assessment) error {
	args := m.Called(assessment)
	return args.Error(0)
}

func (m *MockAssessmentRepository) GetByID(id uint) (*entity.Assessment, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Assessment), args.Error(1)
}

func (m *MockAssessmentRepository) GetWithSections(id uint) (*entity.Assessment, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Assessment), args.Error(1)
}

func (m *MockAssessmentRepository) Update(assessment *entity.Assessment) error {
	args := m.Called(assessment)
	return args.Error(0)
}

func (m *MockAssessmentRepository) UpdateStatus(id uint, status string) error {
	args := m.Called(id, status)
	return args.Error(0)
}

func (m *MockAssessmentRepository) List(limit, offset int) ([]entity.Assessment, int64, error) {
	args := m.Called(limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.Assessment), args.Get(1).(int64), args.Error(2)
}

// MockSectionRepository - мок репозитория секций
type MockSectionRepository struct {
	mock.Mock
}

func (m *MockSectionRepository) Create(section *entity.Section) error {
	args := m.Called(section)
	return args.Error(0)
}

func (m *MockSectionRepository) GetByID(id uint) (*entity.Section, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Section), args.Error(1)
}

func (m *MockSectionRepository) GetByAssessmentID(assessmentID uint) ([]entity.Section, error) {
	args := m.Called(assessmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Section), args.Error(1)
}

// MockQuestionRepository - мок репозитория банка вопросов
type MockQuestionRepository struct {
	mock.Mock
}

func (m *MockQuestionRepository) Create(question *entity.Question) error {
	args := m.Called(question)
	return args.Error(0)
}

func (m *MockQuestionRepository) CreateBatch(questions []entity.Question) error {
	args := m.Called(questions)
	return args.Error(0)
}

func (m *MockQuestionRepository) GetByID(id uint) (*entity.Question, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Question), args.Error(1)
}

func (m *MockQuestionRepository) Update(question *entity.Question) error {
	args := m.Called(question)
	return args.Error(0)
}

func (m *MockQuestionRepository) Deactivate(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockQuestionRepository) GetActiveByTypeAndLevels(questionType string, cefrLevels []string) ([]entity.Question, error) {
	args := m.Called(questionType, cefrLevels)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

func (m *MockQuestionRepository) BindToSection(sectionID uint, questionIDs []uint) error {
	args := m.Called(sectionID, questionIDs)
	return args.Error(0)
}

func (m *MockQuestionRepository) GetBySectionID(sectionID uint) ([]entity.Question, error) {
	args := m.Called(sectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

func (m *MockQuestionRepository) PoolStats() (map[string]int64, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

// MockCacheRepository - мок кеша отчетов генерации
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) Set(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepository) Get(key string) (string, error) {
	args := m.Called(key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheRepository) Delete(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockCacheRepository) Exists(key string) (bool, error) {
	args := m.Called(key)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheRepository) Increment(key string) (int64, error) {
	args := m.Called(key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCacheRepository) ExpireAt(key string, expiration time.Time) error {
	args := m.Called(key, expiration)
	return args.Error(0)
}

func (m *MockCacheRepository) SetJSON(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepository) GetJSON(key string, dest interface{}) error {
	args := m.Called(key, dest)
	return args.Error(0)
}

func (m *MockCacheRepository) SetNX(key string, value interface{}, expiration time.Duration) (bool, error) {
	args := m.Called(key, value, expiration)
	return args.Bool(0), args.Error(1)
}

// ============================================================================
// Хелперы
// ============================================================================

func createTestGeneratorWithMocks() (*Generator, *MockAssessmentRepository, *MockSectionRepository, *MockQuestionRepository, *MockCacheRepository) {
	mockAssessmentRepo := new(MockAssessmentRepository)
	mockSectionRepo := new(MockSectionRepository)
	mockQuestionRepo := new(MockQuestionRepository)
	mockCacheRepo := new(MockCacheRepository)

	// Отчеты генерации в этих тестах не проверяются
	mockCacheRepo.On("SetJSON", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	config := DefaultConfig()
	config.Seed = 1 // детерминированная перетасовка

	generator := NewGenerator(config, &Dependencies{
		AssessmentRepo: mockAssessmentRepo,
		SectionRepo:    mockSectionRepo,
		QuestionRepo:   mockQuestionRepo,
		CacheRepo:      mockCacheRepo,
	})
	return generator, mockAssessmentRepo, mockSectionRepo, mockQuestionRepo, mockCacheRepo
}

func questionPool(count int, questionType, level string) []entity.Question {
	pool := make([]entity.Question, count)
	for i := 0; i < count; i++ {
		pool[i] = entity.Question{
			ID:        uint(i + 1),
			Type:      questionType,
			CEFRLevel: level,
			Text:      "Describe your last holiday",
			IsActive:  true,
		}
	}
	return pool
}

func writingTemplate(count int) Template {
	return Template{
		Sections: []SectionTemplate{
			{
				Name:            "Writing",
				QuestionType:    entity.QuestionTypeWriting,
				DurationMinutes: 30,
				Rules: []QuestionRule{
					{CEFRLevels: []string{entity.CEFRLevelB1}, Count: count},
				},
			},
		},
	}
}

// ============================================================================
// Тесты Generate
// ============================================================================

func TestGenerator_Generate_Success(t *testing.T) {
	// Arrange: пул больше запрошенного - выбирается ровно count вопросов
	generator, mockAssessmentRepo, mockSectionRepo, mockQuestionRepo, _ := createTestGeneratorWithMocks()

	assessment := &entity.Assessment{ID: 10, Status: entity.AssessmentStatusDraft}
	mockAssessmentRepo.On("GetByID", uint(10)).Return(assessment, nil)
	mockSectionRepo.On("Create", mock.AnythingOfType("*entity.Section")).
		Run(func(args mock.Arguments) {
			args.Get(0).(*entity.Section).ID = 77
		}).Return(nil)
	mockQuestionRepo.On("GetActiveByTypeAndLevels", entity.QuestionTypeWriting, []string{entity.CEFRLevelB1}).
		Return(questionPool(10, entity.QuestionTypeWriting, entity.CEFRLevelB1), nil)
	mockQuestionRepo.On("BindToSection", uint(77), mock.MatchedBy(func(ids []uint) bool {
		if len(ids) != 3 {
			return false
		}
		seen := make(map[uint]bool)
		for _, id := range ids {
			if id == 0 || id > 10 || seen[id] {
				return false
			}
			seen[id] = true
		}
		return true
	})).Return(nil)
	mockAssessmentRepo.On("UpdateStatus", uint(10), entity.AssessmentStatusActive).Return(nil)

	// Act
	err := generator.Generate(context.Background(), 10, writingTemplate(3))

	// Assert
	require.NoError(t, err, "Генерация при достаточном пуле должна быть успешной")
	mockAssessmentRepo.AssertCalled(t, "UpdateStatus", uint(10), entity.AssessmentStatusActive)
	mockSectionRepo.AssertExpectations(t)
	mockQuestionRepo.AssertExpectations(t)
}

func TestGenerator_Generate_SectionMetadata(t *testing.T) {
	// Arrange: TotalQuestions секции - сумма count по правилам,
	// независимо от фактического наличия в пуле
	generator, mockAssessmentRepo, mockSectionRepo, mockQuestionRepo, _ := createTestGeneratorWithMocks()

	mockAssessmentRepo.On("GetByID", uint(10)).
		Return(&entity.Assessment{ID: 10, Status: entity.AssessmentStatusDraft}, nil)
	mockSectionRepo.On("Create", mock.MatchedBy(func(s *entity.Section) bool {
		return s.AssessmentID == 10 && s.Name == "Writing" &&
			s.OrderIndex == 0 && s.DurationMinutes == 30 && s.TotalQuestions == 5
	})).Run(func(args mock.Arguments) {
		args.Get(0).(*entity.Section).ID = 77
	}).Return(nil)
	mockQuestionRepo.On("GetActiveByTypeAndLevels", mock.Anything, mock.Anything).
		Return(questionPool(2, entity.QuestionTypeWriting, entity.CEFRLevelB1), nil)
	mockQuestionRepo.On("BindToSection", uint(77), mock.Anything).Return(nil)
	mockAssessmentRepo.On("UpdateStatus", uint(10), entity.AssessmentStatusActive).Return(nil)

	// Act
	err := generator.Generate(context.Background(), 10, writingTemplate(5))

	// Assert
	require.NoError(t, err)
	mockSectionRepo.AssertExpectations(t)
}

func TestGenerator_Generate_PoolShortfallIsWarningNotError(t *testing.T) {
	// Arrange: в пуле 2 вопроса при запрошенных 5
	generator, mockAssessmentRepo, mockSectionRepo, mockQuestionRepo, mockCacheRepo := createTestGeneratorWithMocks()

	mockAssessmentRepo.On("GetByID", uint(10)).
		Return(&entity.Assessment{ID: 10, Status: entity.AssessmentStatusDraft}, nil)
	mockSectionRepo.On("Create", mock.AnythingOfType("*entity.Section")).
		Run(func(args mock.Arguments) {
			args.Get(0).(*entity.Section).ID = 77
		}).Return(nil)
	mockQuestionRepo.On("GetActiveByTypeAndLevels", mock.Anything, mock.Anything).
		Return(questionPool(2, entity.QuestionTypeWriting, entity.CEFRLevelB1), nil)
	mockQuestionRepo.On("BindToSection", uint(77), mock.MatchedBy(func(ids []uint) bool {
		return len(ids) == 2
	})).Return(nil)
	mockAssessmentRepo.On("UpdateStatus", uint(10), entity.AssessmentStatusActive).Return(nil)

	// Отчет о завершении должен нести предупреждение о нехватке
	mockCacheRepo.ExpectedCalls = nil
	mockCacheRepo.On("SetJSON", mock.Anything, mock.MatchedBy(func(v interface{}) bool {
		report, ok := v.(*Report)
		if !ok {
			return true
		}
		return report.Status != ReportStatusCompleted || len(report.Warnings) == 1
	}), mock.Anything).Return(nil)

	// Act
	err := generator.Generate(context.Background(), 10, writingTemplate(5))

	// Assert
	require.NoError(t, err, "Нехватка пула - предупреждение, а не ошибка")
	mockAssessmentRepo.AssertCalled(t, "UpdateStatus", uint(10), entity.AssessmentStatusActive)
}

func TestGenerator_Generate_OverlappingRulesDoNotRepeatQuestions(t *testing.T) {
	// Arrange: два правила одной секции над одним пулом B1 -
	// вопрос, выбранный первым правилом, исключается из пула второго
	generator, mockAssessmentRepo, mockSectionRepo, mockQuestionRepo, _ := createTestGeneratorWithMocks()

	mockAssessmentRepo.On("GetByID", uint(10)).
		Return(&entity.Assessment{ID: 10, Status: entity.AssessmentStatusDraft}, nil)
	mockSectionRepo.On("Create", mock.AnythingOfType("*entity.Section")).
		Run(func(args mock.Arguments) {
			args.Get(0).(*entity.Section).ID = 77
		}).Return(nil)
	pool := questionPool(4, entity.QuestionTypeWriting, entity.CEFRLevelB1)
	mockQuestionRepo.On("GetActiveByTypeAndLevels", entity.QuestionTypeWriting, []string{entity.CEFRLevelB1}).
		Return(pool, nil)

	var bound []uint
	mockQuestionRepo.On("BindToSection", uint(77), mock.AnythingOfType("[]uint")).
		Run(func(args mock.Arguments) {
			bound = append(bound, args.Get(1).([]uint)...)
		}).Return(nil)
	mockAssessmentRepo.On("UpdateStatus", uint(10), entity.AssessmentStatusActive).Return(nil)

	template := Template{
		Sections: []SectionTemplate{
			{
				Name:            "Writing",
				QuestionType:    entity.QuestionTypeWriting,
				DurationMinutes: 30,
				Rules: []QuestionRule{
					{CEFRLevels: []string{entity.CEFRLevelB1}, Count: 2},
					{CEFRLevels: []string{entity.CEFRLevelB1}, Count: 2},
				},
			},
		},
	}

	// Act
	err := generator.Generate(context.Background(), 10, template)

	// Assert: весь пул из 4 вопросов привязан ровно по одному разу
	require.NoError(t, err)
	require.Len(t, bound, 4, "Оба правила вместе должны привязать 4 вопроса")
	seen := make(map[uint]bool)
	for _, id := range bound {
		assert.False(t, seen[id], "Вопрос #%d не должен привязываться к секции дважды", id)
		seen[id] = true
	}
}

func TestGenerator_Generate_OverlappingRulesExhaustedPoolIsWarning(t *testing.T) {
	// Arrange: пул из одного вопроса, два правила по одному вопросу -
	// второе правило получает пустой остаток и дает предупреждение
	generator, mockAssessmentRepo, mockSectionRepo, mockQuestionRepo, mockCacheRepo := createTestGeneratorWithMocks()

	mockAssessmentRepo.On("GetByID", uint(10)).
		Return(&entity.Assessment{ID: 10, Status: entity.AssessmentStatusDraft}, nil)
	mockSectionRepo.On("Create", mock.AnythingOfType("*entity.Section")).
		Run(func(args mock.Arguments) {
			args.Get(0).(*entity.Section).ID = 77
		}).Return(nil)
	mockQuestionRepo.On("GetActiveByTypeAndLevels", mock.Anything, mock.Anything).
		Return(questionPool(1, entity.QuestionTypeWriting, entity.CEFRLevelA1), nil)

	var bindCalls [][]uint
	mockQuestionRepo.On("BindToSection", uint(77), mock.AnythingOfType("[]uint")).
		Run(func(args mock.Arguments) {
			bindCalls = append(bindCalls, args.Get(1).([]uint))
		}).Return(nil)
	mockAssessmentRepo.On("UpdateStatus", uint(10), entity.AssessmentStatusActive).Return(nil)

	mockCacheRepo.ExpectedCalls = nil
	mockCacheRepo.On("SetJSON", mock.Anything, mock.MatchedBy(func(v interface{}) bool {
		report, ok := v.(*Report)
		if !ok {
			return true
		}
		return report.Status != ReportStatusCompleted || len(report.Warnings) == 1
	}), mock.Anything).Return(nil)

	template := Template{
		Sections: []SectionTemplate{
			{
				Name:            "Writing",
				QuestionType:    entity.QuestionTypeWriting,
				DurationMinutes: 30,
				Rules: []QuestionRule{
					{CEFRLevels: []string{entity.CEFRLevelA1}, Count: 1},
					{CEFRLevels: []string{entity.CEFRLevelA1}, Count: 1},
				},
			},
		},
	}

	// Act
	err := generator.Generate(context.Background(), 10, template)

	// Assert: единственный вопрос привязан один раз, второе правило - вхолостую
	require.NoError(t, err, "Исчерпание пула пересекающимся правилом - не ошибка")
	require.Len(t, bindCalls, 2)
	assert.Equal(t, []uint{1}, bindCalls[0])
	assert.Empty(t, bindCalls[1], "Повторная привязка того же вопроса недопустима")
}

func TestGenerator_Generate_DBErrorLeavesDraft(t *testing.T) {
	// Arrange: ошибка БД при создании секции прерывает генерацию
	generator, mockAssessmentRepo, mockSectionRepo, mockQuestionRepo, _ := createTestGeneratorWithMocks()

	mockAssessmentRepo.On("GetByID", uint(10)).
		Return(&entity.Assessment{ID: 10, Status: entity.AssessmentStatusDraft}, nil)
	mockSectionRepo.On("Create", mock.AnythingOfType("*entity.Section")).
		Return(assert.AnError)

	// Act
	err := generator.Generate(context.Background(), 10, writingTemplate(3))

	// Assert
	require.Error(t, err, "Ошибка БД должна прерывать генерацию")
	mockAssessmentRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
	mockQuestionRepo.AssertNotCalled(t, "BindToSection", mock.Anything, mock.Anything)
}

func TestGenerator_Cancel_AbortsBackgroundGeneration(t *testing.T) {
	// Arrange: GetByID блокируется, пока тест не запросит отмену
	generator, mockAssessmentRepo, mockSectionRepo, _, mockCacheRepo := createTestGeneratorWithMocks()

	started := make(chan struct{})
	release := make(chan struct{})
	mockAssessmentRepo.On("GetByID", uint(10)).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(&entity.Assessment{ID: 10, Status: entity.AssessmentStatusDraft}, nil)

	failed := make(chan struct{})
	mockCacheRepo.ExpectedCalls = nil
	mockCacheRepo.On("SetJSON", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			if report, ok := args.Get(1).(*Report); ok && report.Status == ReportStatusFailed {
				close(failed)
			}
		}).Return(nil)

	// Act: отменяем генерацию, пока она ждет БД
	generator.GenerateAsync(context.Background(), 10, writingTemplate(3))
	<-started
	generator.Cancel(10)
	close(release)

	// Assert: генерация завершилась отчетом FAILED, секции не создавались
	select {
	case <-failed:
	case <-time.After(2 * time.Second):
		t.Fatal("генерация не завершилась после отмены")
	}
	mockSectionRepo.AssertNotCalled(t, "Create", mock.Anything)
	mockAssessmentRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
}

func TestGenerator_Generate_InvalidTemplateFailsFast(t *testing.T) {
	// Arrange
	generator, mockAssessmentRepo, mockSectionRepo, _, _ := createTestGeneratorWithMocks()

	// Act
	err := generator.Generate(context.Background(), 10, Template{})

	// Assert
	require.Error(t, err, "Невалидный шаблон должен отклоняться до обращения к БД")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	mockAssessmentRepo.AssertNotCalled(t, "GetByID", mock.Anything)
	mockSectionRepo.AssertNotCalled(t, "Create", mock.Anything)
}

// ============================================================================
// Тесты selectRandom
// ============================================================================

func TestGenerator_SelectRandom_ExactCountWithoutDuplicates(t *testing.T) {
	// Arrange
	generator, _, _, _, _ := createTestGeneratorWithMocks()
	pool := questionPool(50, entity.QuestionTypeWriting, entity.CEFRLevelB1)

	// Act
	selected := generator.selectRandom(pool, 10)

	// Assert
	require.Len(t, selected, 10, "Должно быть выбрано ровно count вопросов")
	seen := make(map[uint]bool)
	for _, q := range selected {
		assert.False(t, seen[q.ID], "Вопрос не должен выбираться дважды")
		seen[q.ID] = true
	}
}

func TestGenerator_SelectRandom_CountLargerThanPool(t *testing.T) {
	// Arrange
	generator, _, _, _, _ := createTestGeneratorWithMocks()
	pool := questionPool(3, entity.QuestionTypeWriting, entity.CEFRLevelB1)

	// Act
	selected := generator.selectRandom(pool, 10)

	// Assert
	assert.Len(t, selected, 3, "При нехватке пула возвращается весь пул")
}

func TestGenerator_SelectRandom_DoesNotMutatePool(t *testing.T) {
	// Arrange
	generator, _, _, _, _ := createTestGeneratorWithMocks()
	pool := questionPool(20, entity.QuestionTypeWriting, entity.CEFRLevelB1)

	// Act
	generator.selectRandom(pool, 5)

	// Assert: исходный порядок пула не тронут
	for i, q := range pool {
		assert.Equal(t, uint(i+1), q.ID, "Перетасовка должна работать на копии пула")
	}
}

// ============================================================================
// Тесты ValidateTemplate
// ============================================================================

func TestValidateTemplate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Template)
		expected bool
	}{
		{"валидный шаблон", func(*Template) {}, true},
		{"без секций", func(tpl *Template) { tpl.Sections = nil }, false},
		{"без имени секции", func(tpl *Template) { tpl.Sections[0].Name = "" }, false},
		{"неизвестный тип вопроса", func(tpl *Template) { tpl.Sections[0].QuestionType = "LISTENING" }, false},
		{"без правил", func(tpl *Template) { tpl.Sections[0].Rules = nil }, false},
		{"нулевой count", func(tpl *Template) { tpl.Sections[0].Rules[0].Count = 0 }, false},
		{"без уровней CEFR", func(tpl *Template) { tpl.Sections[0].Rules[0].CEFRLevels = nil }, false},
		{"неизвестный уровень CEFR", func(tpl *Template) { tpl.Sections[0].Rules[0].CEFRLevels = []string{"D1"} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := writingTemplate(3)
			tt.mutate(&tpl)

			err := ValidateTemplate(tpl)
			if tt.expected {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.ErrorIs(t, err, apperrors.ErrValidation)
			}
		})
	}
}

func TestSectionTemplate_TotalQuestions(t *testing.T) {
	tpl := SectionTemplate{
		Rules: []QuestionRule{
			{CEFRLevels: []string{entity.CEFRLevelA1}, Count: 3},
			{CEFRLevels: []string{entity.CEFRLevelB2, entity.CEFRLevelC1}, Count: 4},
		},
	}
	assert.Equal(t, 7, tpl.TotalQuestions())
}
