package service

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/yourusername/assessment-api/internal/domain/entity"
)

// ============================================================================
// Моки репозиториев, общие для тестов сервисного слоя
// ============================================================================

// MockAttemptRepository - мок репозитория попыток
type MockAttemptRepository struct {
	mock.Mock
}

func (m *MockAttemptRepository) Create(attempt *entity.CandidateAssessment) error {
	args := m.Called(attempt)
	return args.Error(0)
}

func (m *MockAttemptRepository) GetByID(id uint) (*entity.CandidateAssessment, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.CandidateAssessment), args.Error(1)
}

func (m *MockAttemptRepository) GetWithCandidate(id uint) (*entity.CandidateAssessment, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.CandidateAssessment), args.Error(1)
}

func (m *MockAttemptRepository) CountByCandidateAndAssessment(candidateID, assessmentID uint) (int64, error) {
	args := m.Called(candidateID, assessmentID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAttemptRepository) GetInProgress(candidateID, assessmentID uint) (*entity.CandidateAssessment, error) {
	args := m.Called(candidateID, assessmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.CandidateAssessment), args.Error(1)
}

func (m *MockAttemptRepository) ListByAssessment(assessmentID uint) ([]entity.CandidateAssessment, error) {
	args := m.Called(assessmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.CandidateAssessment), args.Error(1)
}

func (m *MockAttemptRepository) UpdateStatus(attempt *entity.CandidateAssessment) error {
	args := m.Called(attempt)
	return args.Error(0)
}

func (m *MockAttemptRepository) Update(attempt *entity.CandidateAssessment) error {
	args := m.Called(attempt)
	return args.Error(0)
}

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

// MockCandidateRepository - мок репозитория кандидатов
type MockCandidateRepository struct {
	mock.Mock
}

func (m *MockCandidateRepository) Create(candidate *entity.Candidate) error {
	args := m.Called(candidate)
	return args.Error(0)
}

func (m *MockCandidateRepository) GetByID(id uint) (*entity.Candidate, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Candidate), args.Error(1)
}

func (m *MockCandidateRepository) GetByAgentID(agentID uint) (*entity.Candidate, error) {
	args := m.Called(agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Candidate), args.Error(1)
}

// MockAnswerRepository - мок репозитория ответов
type MockAnswerRepository struct {
	mock.Mock
}

func (m *MockAnswerRepository) Create(answer *entity.Answer) error {
	args := m.Called(answer)
	return args.Error(0)
}

func (m *MockAnswerRepository) Update(answer *entity.Answer) error {
	args := m.Called(answer)
	return args.Error(0)
}

func (m *MockAnswerRepository) GetByID(id uint) (*entity.Answer, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Answer), args.Error(1)
}

func (m *MockAnswerRepository) GetByAttemptAndQuestion(attemptID, questionID uint) (*entity.Answer, error) {
	args := m.Called(attemptID, questionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Answer), args.Error(1)
}

func (m *MockAnswerRepository) GetByAttemptID(attemptID uint) ([]entity.Answer, error) {
	args := m.Called(attemptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Answer), args.Error(1)
}

func (m *MockAnswerRepository) GetUnevaluated(attemptID uint, limit int) ([]entity.Answer, error) {
	args := m.Called(attemptID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Answer), args.Error(1)
}

// MockProctoringRepository - мок репозитория прокторинга
type MockProctoringRepository struct {
	mock.Mock
}

func (m *MockProctoringRepository) CreateSession(session *entity.ProctoringSession) error {
	args := m.Called(session)
	return args.Error(0)
}

func (m *MockProctoringRepository) GetSessionByAttemptID(attemptID uint) (*entity.ProctoringSession, error) {
	args := m.Called(attemptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ProctoringSession), args.Error(1)
}

func (m *MockProctoringRepository) GetRecentLogs(sessionID uint, since time.Time) ([]entity.ProctoringLog, error) {
	args := m.Called(sessionID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.ProctoringLog), args.Error(1)
}

func (m *MockProctoringRepository) AppendViolations(sessionID uint, logs []entity.ProctoringLog) (*entity.ProctoringSession, error) {
	args := m.Called(sessionID, logs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ProctoringSession), args.Error(1)
}

func (m *MockProctoringRepository) MarkAutoSubmitted(sessionID uint) error {
	args := m.Called(sessionID)
	return args.Error(0)
}

func (m *MockProctoringRepository) GetLogsBySessionID(sessionID uint, limit, offset int) ([]entity.ProctoringLog, int64, error) {
	args := m.Called(sessionID, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.ProctoringLog), args.Get(1).(int64), args.Error(2)
}
