package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yourusername/assessment-api/internal/domain/entity"
	"github.com/yourusername/assessment-api/internal/domain/repository"
	apperrors "github.com/yourusername/assessment-api/internal/pkg/errors"
)

// AbandonmentWindow — окно тихого возобновления попытки до входа
// в полноэкранный режим. После входа в полноэкранный режим или по
// истечении окна попытка считается брошенной (терминально).
const AbandonmentWindow = 15 * time.Minute

// AttemptService владеет жизненным циклом попыток: создание, нумерация,
// контроль лимита попыток, проверка владения и единственная точка
// смены статуса сессии (Transition). Никакой другой компонент
// не пишет session_status.
type AttemptService struct {
	attemptRepo    repository.AttemptRepository
	assessmentRepo repository.AssessmentRepository
	sectionRepo    repository.SectionRepository
	questionRepo   repository.QuestionRepository
	candidateRepo  repository.CandidateRepository
}

// NewAttemptService создает новый сервис попыток
func NewAttemptService(
	attemptRepo repository.AttemptRepository,
	assessmentRepo repository.AssessmentRepository,
	sectionRepo repository.SectionRepository,
	questionRepo repository.QuestionRepository,
	candidateRepo repository.CandidateRepository,
) *AttemptService {
	return &AttemptService{
		attemptRepo:    attemptRepo,
		assessmentRepo: assessmentRepo,
		sectionRepo:    sectionRepo,
		questionRepo:   questionRepo,
		candidateRepo:  candidateRepo,
	}
}

// CreateAttemptResult — результат создания попытки
type CreateAttemptResult struct {
	Attempt           *entity.CandidateAssessment
	AttemptNumber     int
	AttemptsRemaining int
}

// CreateAttempt создает новую попытку пары candidate+assessment.
// У пары может быть не больше одной активной (IN_PROGRESS) попытки;
// при наличии активной — ErrConflict, клиент обязан возобновить ее.
// Номер попытки монотонный (count+1); при count >= maxAttempts — ErrConflict.
// Статус выставляется IN_PROGRESS сразу при создании, startedAt = now.
func (s *AttemptService) CreateAttempt(candidateID, assessmentID uint) (*CreateAttemptResult, error) {
	assessment, err := s.assessmentRepo.GetByID(assessmentID)
	if err != nil {
		return nil, err
	}
	if !assessment.IsActive() {
		return nil, fmt.Errorf("%w: assessment %d is not active", apperrors.ErrConflict, assessmentID)
	}

	active, err := s.HasActiveAttempt(candidateID, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("не удалось проверить активную попытку: %w", err)
	}
	if active {
		return nil, fmt.Errorf("%w: candidate %d already has an attempt in progress for assessment %d",
			apperrors.ErrConflict, candidateID, assessmentID)
	}

	count, err := s.attemptRepo.CountByCandidateAndAssessment(candidateID, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("не удалось посчитать попытки: %w", err)
	}
	if int(count) >= assessment.MaxAttempts {
		return nil, fmt.Errorf("%w: max attempts exceeded (%d of %d)",
			apperrors.ErrConflict, count, assessment.MaxAttempts)
	}

	attempt := &entity.CandidateAssessment{
		CandidateID:   candidateID,
		AssessmentID:  assessmentID,
		AttemptNumber: int(count) + 1,
		SessionStatus: entity.SessionInProgress,
		StartedAt:     time.Now(),
	}
	if err := s.attemptRepo.Create(attempt); err != nil {
		return nil, fmt.Errorf("не удалось создать попытку: %w", err)
	}

	log.Printf("[AttemptService] Кандидат #%d начал попытку #%d (%d/%d) по ассессменту #%d",
		candidateID, attempt.ID, attempt.AttemptNumber, assessment.MaxAttempts, assessmentID)

	return &CreateAttemptResult{
		Attempt:           attempt,
		AttemptNumber:     attempt.AttemptNumber,
		AttemptsRemaining: assessment.MaxAttempts - attempt.AttemptNumber,
	}, nil
}

// ValidateOwnership разрешает цепочку attempt→candidate→agent и сравнивает
// с вызывающим агентом. Обработчики обязаны трактовать false как 403,
// а не 404, чтобы не раскрывать существование чужой попытки.
func (s *AttemptService) ValidateOwnership(attemptID, agentID uint) (bool, error) {
	attempt, err := s.attemptRepo.GetWithCandidate(attemptID)
	if err != nil {
		return false, err
	}
	return attempt.Candidate.AgentID == agentID, nil
}

// SectionView — секция с привязанными вопросами для вложенного представления
type SectionView struct {
	Section   entity.Section    `json:"section"`
	Questions []entity.Question `json:"questions"`
}

// AssessmentView — вложенное представление ассессмента попытки
type AssessmentView struct {
	Assessment entity.Assessment `json:"assessment"`
	Sections   []SectionView     `json:"sections"`
}

// GetAssessmentForAttempt собирает вложенное представление
// Assessment→Sections→Questions для попытки. Если assessmentID попытки
// не совпадает с запрошенным — ErrConflict: защита от подмены
// attemptId/assessmentId клиентом.
func (s *AttemptService) GetAssessmentForAttempt(attemptID, assessmentID uint) (*AssessmentView, error) {
	attempt, err := s.attemptRepo.GetByID(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.AssessmentID != assessmentID {
		return nil, fmt.Errorf("%w: assessment ID mismatch", apperrors.ErrConflict)
	}

	assessment, err := s.assessmentRepo.GetByID(assessmentID)
	if err != nil {
		return nil, err
	}

	sections, err := s.sectionRepo.GetByAssessmentID(assessmentID)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить секции: %w", err)
	}

	view := &AssessmentView{Assessment: *assessment}
	for _, section := range sections {
		questions, err := s.questionRepo.GetBySectionID(section.ID)
		if err != nil {
			return nil, fmt.Errorf("не удалось получить вопросы секции #%d: %w", section.ID, err)
		}
		view.Sections = append(view.Sections, SectionView{
			Section:   section,
			Questions: questions,
		})
	}
	return view, nil
}

// Transition — единственная авторитетная точка смены статуса сессии.
// Недопустимый переход по таблице состояний — ErrConflict.
func (s *AttemptService) Transition(attemptID uint, target entity.SessionStatus) (*entity.CandidateAssessment, error) {
	attempt, err := s.attemptRepo.GetByID(attemptID)
	if err != nil {
		return nil, err
	}

	if !attempt.SessionStatus.CanTransitionTo(target) {
		return nil, fmt.Errorf("%w: invalid transition %s -> %s",
			apperrors.ErrConflict, attempt.SessionStatus, target)
	}

	from := attempt.SessionStatus
	attempt.SessionStatus = target
	if target.IsTerminal() {
		now := time.Now()
		attempt.CompletedAt = &now
	}

	if err := s.attemptRepo.UpdateStatus(attempt); err != nil {
		return nil, fmt.Errorf("не удалось обновить статус попытки: %w", err)
	}

	log.Printf("[AttemptService] Попытка #%d: переход %s -> %s", attemptID, from, target)
	return attempt, nil
}

// Start явно запускает попытку (NOT_STARTED -> IN_PROGRESS)
func (s *AttemptService) Start(attemptID uint) (*entity.CandidateAssessment, error) {
	return s.Transition(attemptID, entity.SessionInProgress)
}

// Pause приостанавливает попытку
func (s *AttemptService) Pause(attemptID uint) (*entity.CandidateAssessment, error) {
	return s.Transition(attemptID, entity.SessionPaused)
}

// Complete — явная отправка попытки кандидатом
func (s *AttemptService) Complete(attemptID uint) (*entity.CandidateAssessment, error) {
	return s.Transition(attemptID, entity.SessionCompleted)
}

// Expire завершает попытку по исчерпанию бюджета времени
func (s *AttemptService) Expire(attemptID uint) (*entity.CandidateAssessment, error) {
	return s.Transition(attemptID, entity.SessionExpired)
}

// Terminate принудительно завершает попытку. Вызывается обработчиком
// по сигналу автоотправки движка нарушений: сам движок статус не трогает.
func (s *AttemptService) Terminate(attemptID uint, reason string) (*entity.CandidateAssessment, error) {
	log.Printf("[AttemptService] Принудительное завершение попытки #%d: %s", attemptID, reason)
	return s.Transition(attemptID, entity.SessionTerminated)
}

// EnterFullScreen фиксирует вход в прокторинговый полноэкранный режим.
// После этого тихое возобновление недоступно.
func (s *AttemptService) EnterFullScreen(attemptID uint) error {
	attempt, err := s.attemptRepo.GetByID(attemptID)
	if err != nil {
		return err
	}
	if !attempt.IsInProgress() {
		return fmt.Errorf("%w: attempt is not in progress", apperrors.ErrConflict)
	}
	attempt.FullScreenEntered = true
	return s.attemptRepo.UpdateStatus(attempt)
}

// ResumeOrAbandon реализует единую политику заброшенных попыток:
// если статус IN_PROGRESS/PAUSED, полноэкранный режим еще не был включен
// и с начала прошло не больше AbandonmentWindow — тихое возобновление;
// иначе попытка классифицируется как брошенная и завершается (EXPIRED).
func (s *AttemptService) ResumeOrAbandon(attemptID uint) (*entity.CandidateAssessment, error) {
	attempt, err := s.attemptRepo.GetByID(attemptID)
	if err != nil {
		return nil, err
	}

	if attempt.SessionStatus != entity.SessionInProgress && attempt.SessionStatus != entity.SessionPaused {
		return nil, fmt.Errorf("%w: attempt is not resumable in status %s",
			apperrors.ErrConflict, attempt.SessionStatus)
	}

	elapsed := time.Since(attempt.StartedAt)
	if attempt.FullScreenEntered || elapsed > AbandonmentWindow {
		log.Printf("[AttemptService] Попытка #%d классифицирована как брошенная (fullscreen=%v, прошло %s)",
			attemptID, attempt.FullScreenEntered, elapsed.Round(time.Second))
		return s.Transition(attemptID, entity.SessionExpired)
	}

	if attempt.SessionStatus == entity.SessionPaused {
		return s.Transition(attemptID, entity.SessionInProgress)
	}
	// Уже IN_PROGRESS в пределах окна: возобновляем без перехода
	return attempt, nil
}

// HasActiveAttempt проверяет, есть ли у пары незавершенная попытка
func (s *AttemptService) HasActiveAttempt(candidateID, assessmentID uint) (bool, error) {
	_, err := s.attemptRepo.GetInProgress(candidateID, assessmentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetByID возвращает попытку по ID
func (s *AttemptService) GetByID(attemptID uint) (*entity.CandidateAssessment, error) {
	return s.attemptRepo.GetByID(attemptID)
}
