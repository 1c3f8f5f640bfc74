package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yourusername/assessment-api/internal/pkg/errors"
	"github.com/yourusername/assessment-api/internal/service"
)

// ProctoringHandler обрабатывает прием анти-чит телеметрии
type ProctoringHandler struct {
	proctoringService *service.ProctoringService
	attemptService    *service.AttemptService
	candidateService  *service.CandidateService
}

// NewProctoringHandler создает новый обработчик прокторинга
func NewProctoringHandler(
	proctoringService *service.ProctoringService,
	attemptService *service.AttemptService,
	candidateService *service.CandidateService,
) *ProctoringHandler {
	return &ProctoringHandler{
		proctoringService: proctoringService,
		attemptService:    attemptService,
		candidateService:  candidateService,
	}
}

// SessionRequest представляет запрос на получение сессии прокторинга
type SessionRequest struct {
	AssessmentID uint `json:"assessment_id" binding:"required"`
	AttemptID    uint `json:"attempt_id" binding:"required"`
}

// GetOrCreateSession возвращает сессию прокторинга попытки,
// создавая ее при первом обращении
// POST /api/proctoring/sessions
func (h *ProctoringHandler) GetOrCreateSession(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	candidateID, ok := h.resolveCandidate(c)
	if !ok {
		return
	}

	session, err := h.proctoringService.GetOrCreateSession(candidateID, req.AssessmentID, req.AttemptID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// ViolationRequest представляет одно нарушение в запросе
type ViolationRequest struct {
	Type       string                 `json:"type" binding:"required,max=100"`
	Severity   string                 `json:"severity" binding:"required"`
	OccurredAt time.Time              `json:"occurred_at" binding:"required"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// LogViolationRequest представляет запрос на запись одного нарушения
type LogViolationRequest struct {
	AssessmentID uint             `json:"assessment_id" binding:"required"`
	AttemptID    uint             `json:"attempt_id" binding:"required"`
	Violation    ViolationRequest `json:"violation" binding:"required"`
}

// LogViolation записывает одно нарушение
// POST /api/proctoring/violations
func (h *ProctoringHandler) LogViolation(c *gin.Context) {
	var req LogViolationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	candidateID, ok := h.resolveCandidate(c)
	if !ok {
		return
	}

	result, err := h.proctoringService.LogSingle(candidateID, req.AssessmentID, req.AttemptID, toViolationInput(req.Violation))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	h.respondWithAutoSubmit(c, req.AttemptID, result)
}

// LogViolationBatchRequest представляет запрос на запись пакета нарушений
type LogViolationBatchRequest struct {
	AssessmentID uint               `json:"assessment_id" binding:"required"`
	AttemptID    uint               `json:"attempt_id" binding:"required"`
	Violations   []ViolationRequest `json:"violations" binding:"required"`
}

// LogViolationBatch записывает пакет нарушений (1..100 за запрос)
// POST /api/proctoring/violations/batch
func (h *ProctoringHandler) LogViolationBatch(c *gin.Context) {
	var req LogViolationBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	candidateID, ok := h.resolveCandidate(c)
	if !ok {
		return
	}

	violations := make([]service.ViolationInput, 0, len(req.Violations))
	for _, v := range req.Violations {
		violations = append(violations, toViolationInput(v))
	}

	result, err := h.proctoringService.LogBatch(candidateID, req.AssessmentID, req.AttemptID, violations)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	h.respondWithAutoSubmit(c, req.AttemptID, result)
}

// GetSessionLogs возвращает журнал нарушений попытки с пагинацией
// GET /api/admin/attempts/:id/violations
func (h *ProctoringHandler) GetSessionLogs(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(uint)

	limitStr := c.DefaultQuery("limit", "50")
	offsetStr := c.DefaultQuery("offset", "0")

	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}
	offset, err := strconv.Atoi(offsetStr)
	if err != nil || offset < 0 {
		offset = 0
	}

	logs, total, err := h.proctoringService.GetSessionLogs(attemptID, limit, offset)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":   logs,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// respondWithAutoSubmit отвечает результатом приема и при пересечении
// порога принудительно завершает попытку через AttemptService —
// единственного владельца статуса попытки.
func (h *ProctoringHandler) respondWithAutoSubmit(c *gin.Context, attemptID uint, result *service.ViolationLogResult) {
	terminated := false
	if result.ShouldAutoSubmit {
		if _, err := h.attemptService.Terminate(attemptID, "violation threshold exceeded"); err != nil {
			// Попытка могла уже завершиться (конкурентный батч): конфликт не фатален
			if !errors.Is(err, apperrors.ErrConflict) {
				handleServiceError(c, err)
				return
			}
			log.Printf("[ProctoringHandler] Попытка #%d уже завершена при автоотправке: %v", attemptID, err)
		} else {
			terminated = true
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"result":     result,
		"terminated": terminated,
	})
}

func (h *ProctoringHandler) resolveCandidate(c *gin.Context) (uint, bool) {
	info, err := agentFromContext(c)
	if err != nil {
		handleServiceError(c, err)
		return 0, false
	}

	candidate, err := h.candidateService.GetByAgentID(info.AgentID)
	if err != nil {
		handleServiceError(c, err)
		return 0, false
	}
	return candidate.ID, true
}

func toViolationInput(v ViolationRequest) service.ViolationInput {
	return service.ViolationInput{
		Type:       v.Type,
		Severity:   v.Severity,
		OccurredAt: v.OccurredAt,
		Details:    v.Details,
	}
}
