package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yourusername/assessment-api/internal/domain/entity"
	"github.com/yourusername/assessment-api/internal/domain/repository"
	apperrors "github.com/yourusername/assessment-api/internal/pkg/errors"
)

// Параметры дедупликации и валидации батча нарушений
const (
	// DedupLookback — насколько далеко назад смотрим в журнале сессии
	DedupLookback = 2 * time.Second
	// DedupWindow — близость меток времени, при которой нарушение
	// того же типа считается дубликатом
	DedupWindow = time.Second

	MinBatchSize = 1
	MaxBatchSize = 100
)

// ViolationInput — одно входящее нарушение анти-чит телеметрии
type ViolationInput struct {
	Type       string                 `json:"type"`
	Severity   string                 `json:"severity"`
	OccurredAt time.Time              `json:"occurred_at"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// ViolationLogResult — результат приема нарушений. ShouldAutoSubmit=true
// сигнализирует вызывающему, что попытку пора принудительно завершить:
// сам движок статус попытки никогда не меняет (single-writer у AttemptService).
type ViolationLogResult struct {
	SessionID        uint `json:"session_id"`
	Logged           int  `json:"logged"`
	Duplicates       int  `json:"duplicates"`
	TotalViolations  int  `json:"total_violations"`
	LowViolations    int  `json:"low_violations"`
	MediumViolations int  `json:"medium_violations"`
	HighViolations   int  `json:"high_violations"`
	ShouldAutoSubmit bool `json:"should_auto_submit"`
}

// ProctoringService — движок нарушений: одна сессия на попытку,
// дедупликация почти одновременных повторов, счетчики по серьезности
// и сигнал автоотправки.
type ProctoringService struct {
	proctoringRepo repository.ProctoringRepository
	attemptRepo    repository.AttemptRepository
}

// NewProctoringService создает новый сервис прокторинга
func NewProctoringService(
	proctoringRepo repository.ProctoringRepository,
	attemptRepo repository.AttemptRepository,
) *ProctoringService {
	return &ProctoringService{
		proctoringRepo: proctoringRepo,
		attemptRepo:    attemptRepo,
	}
}

// GetOrCreateSession возвращает сессию прокторинга попытки, лениво создавая
// её при первом нарушении. Ровно одна сессия на попытку.
func (s *ProctoringService) GetOrCreateSession(candidateID, assessmentID, attemptID uint) (*entity.ProctoringSession, error) {
	attempt, err := s.attemptRepo.GetByID(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.CandidateID != candidateID {
		return nil, apperrors.ErrForbidden
	}
	if attempt.AssessmentID != assessmentID {
		return nil, fmt.Errorf("%w: assessment ID mismatch", apperrors.ErrConflict)
	}

	session, err := s.proctoringRepo.GetSessionByAttemptID(attemptID)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	session = &entity.ProctoringSession{
		SessionToken: uuid.NewString(),
		AttemptID:    attemptID,
		CandidateID:  candidateID,
	}
	if err := s.proctoringRepo.CreateSession(session); err != nil {
		return nil, fmt.Errorf("не удалось создать сессию прокторинга: %w", err)
	}
	log.Printf("[ProctoringService] Создана сессия прокторинга #%d для попытки #%d", session.ID, attemptID)
	return session, nil
}

// LogSingle принимает одно нарушение. Семантика идентична батчу из одного элемента.
func (s *ProctoringService) LogSingle(candidateID, assessmentID, attemptID uint, violation ViolationInput) (*ViolationLogResult, error) {
	return s.LogBatch(candidateID, assessmentID, attemptID, []ViolationInput{violation})
}

// LogBatch принимает пакет нарушений (1–100). Структурная валидация выполняется
// целиком до любых записей: один некорректный элемент отклоняет весь батч.
// Дубликаты отбрасываются (считаются, не сохраняются); уникальный остаток
// вставляется одним атомарным батчем вместе с инкрементом счетчиков сессии.
func (s *ProctoringService) LogBatch(candidateID, assessmentID, attemptID uint, violations []ViolationInput) (*ViolationLogResult, error) {
	if len(violations) < MinBatchSize || len(violations) > MaxBatchSize {
		return nil, fmt.Errorf("%w: batch size must be between %d and %d, got %d",
			apperrors.ErrValidation, MinBatchSize, MaxBatchSize, len(violations))
	}
	for i, v := range violations {
		if v.Type == "" {
			return nil, fmt.Errorf("%w: violation[%d] missing type", apperrors.ErrValidation, i)
		}
		if !entity.IsValidSeverity(v.Severity) {
			return nil, fmt.Errorf("%w: violation[%d] has invalid severity %q", apperrors.ErrValidation, i, v.Severity)
		}
		if v.OccurredAt.IsZero() {
			return nil, fmt.Errorf("%w: violation[%d] missing timestamp", apperrors.ErrValidation, i)
		}
	}

	session, err := s.GetOrCreateSession(candidateID, assessmentID, attemptID)
	if err != nil {
		return nil, err
	}

	// Окно дедупликации: недавние строки журнала той же сессии
	recent, err := s.proctoringRepo.GetRecentLogs(session.ID, time.Now().Add(-DedupLookback))
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать журнал для дедупликации: %w", err)
	}

	var unique []entity.ProctoringLog
	duplicates := 0

	for _, v := range violations {
		if isDuplicate(v, recent, unique) {
			duplicates++
			continue
		}
		logRow := entity.ProctoringLog{
			SessionID:     session.ID,
			ViolationType: v.Type,
			Severity:      v.Severity,
			OccurredAt:    v.OccurredAt,
		}
		if len(v.Details) > 0 {
			if raw, err := json.Marshal(v.Details); err == nil {
				logRow.Metadata = datatypes.JSON(raw)
			}
		}
		unique = append(unique, logRow)
	}

	// Вставка журнала и инкремент счетчиков — одна транзакция:
	// счетчик никогда не расходится со своими строками журнала
	updated, err := s.proctoringRepo.AppendViolations(session.ID, unique)
	if err != nil {
		return nil, fmt.Errorf("не удалось сохранить нарушения: %w", err)
	}

	result := &ViolationLogResult{
		SessionID:        session.ID,
		Logged:           len(unique),
		Duplicates:       duplicates,
		TotalViolations:  updated.TotalViolations,
		LowViolations:    updated.LowViolations,
		MediumViolations: updated.MediumViolations,
		HighViolations:   updated.HighViolations,
	}

	if updated.ShouldAutoSubmit() && !updated.IsAutoSubmitted {
		if err := s.proctoringRepo.MarkAutoSubmitted(updated.ID); err != nil {
			return nil, fmt.Errorf("не удалось пометить автоотправку: %w", err)
		}
		result.ShouldAutoSubmit = true
		log.Printf("[ProctoringService] Сессия #%d пересекла порог автоотправки (medium=%d, high=%d)",
			updated.ID, updated.MediumViolations, updated.HighViolations)
	}

	return result, nil
}

// GetSessionLogs возвращает страницу журнала нарушений попытки
func (s *ProctoringService) GetSessionLogs(attemptID uint, limit, offset int) ([]entity.ProctoringLog, int64, error) {
	session, err := s.proctoringRepo.GetSessionByAttemptID(attemptID)
	if err != nil {
		return nil, 0, err
	}
	return s.proctoringRepo.GetLogsBySessionID(session.ID, limit, offset)
}

// isDuplicate проверяет, является ли нарушение почти одновременным повтором:
// тот же тип и метка времени в пределах DedupWindow от уже записанной строки
// журнала либо от ранее принятого элемента этого же батча
func isDuplicate(v ViolationInput, recent []entity.ProctoringLog, accepted []entity.ProctoringLog) bool {
	for _, r := range recent {
		if r.ViolationType == v.Type && within(v.OccurredAt, r.OccurredAt, DedupWindow) {
			return true
		}
	}
	for _, a := range accepted {
		if a.ViolationType == v.Type && within(v.OccurredAt, a.OccurredAt, DedupWindow) {
			return true
		}
	}
	return false
}

func within(a, b time.Time, d time.Duration) bool {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= d
}
