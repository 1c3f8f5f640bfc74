package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/assessment-api/internal/domain/entity"
	"github.com/yourusername/assessment-api/internal/handler/dto"
	apperrors "github.com/yourusername/assessment-api/internal/pkg/errors"
	"github.com/yourusername/assessment-api/internal/service"
)

// AttemptHandler обрабатывает запросы жизненного цикла попыток
type AttemptHandler struct {
	attemptService   *service.AttemptService
	candidateService *service.CandidateService
	answerService    *service.AnswerService
}

// NewAttemptHandler создает новый обработчик попыток
func NewAttemptHandler(
	attemptService *service.AttemptService,
	candidateService *service.CandidateService,
	answerService *service.AnswerService,
) *AttemptHandler {
	return &AttemptHandler{
		attemptService:   attemptService,
		candidateService: candidateService,
		answerService:    answerService,
	}
}

// CreateAttemptRequest представляет запрос на создание попытки
type CreateAttemptRequest struct {
	AssessmentID uint `json:"assessment_id" binding:"required"`
}

// CreateAttempt создает новую попытку для вызывающего агента.
// Агент при первом обращении лениво промотируется в кандидата.
func (h *AttemptHandler) CreateAttempt(c *gin.Context) {
	var req CreateAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	info, err := agentFromContext(c)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	candidate, err := h.candidateService.GetOrCreateByAgent(info)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	result, err := h.attemptService.CreateAttempt(candidate.ID, req.AssessmentID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"attempt":            dto.NewAttemptResponse(result.Attempt),
		"attempt_number":     result.AttemptNumber,
		"attempts_remaining": result.AttemptsRemaining,
	})
}

// GetAttempt возвращает попытку вызывающего агента
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(uint)
	if !h.authorizeAttempt(c, attemptID) {
		return
	}

	attempt, err := h.attemptService.GetByID(attemptID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAttemptResponse(attempt))
}

// GetAttemptAssessment возвращает вложенное представление
// Assessment→Sections→Questions для попытки
// GET /api/attempts/:id/assessment?assessment_id=N
func (h *AttemptHandler) GetAttemptAssessment(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(uint)
	if !h.authorizeAttempt(c, attemptID) {
		return
	}

	assessmentIDStr := c.Query("assessment_id")
	assessmentID, err := strconv.ParseUint(assessmentIDStr, 10, 32)
	if err != nil || assessmentID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "assessment_id query parameter is required"})
		return
	}

	view, err := h.attemptService.GetAssessmentForAttempt(attemptID, uint(assessmentID))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAssessmentViewResponse(view))
}

// PauseAttempt переводит попытку в PAUSED
func (h *AttemptHandler) PauseAttempt(c *gin.Context) {
	h.transition(c, h.attemptService.Pause)
}

// CompleteAttempt завершает попытку (COMPLETED)
func (h *AttemptHandler) CompleteAttempt(c *gin.Context) {
	h.transition(c, h.attemptService.Complete)
}

// ResumeAttempt возобновляет попытку или закрывает брошенную:
// PAUSED→IN_PROGRESS, а забытая попытка (без фулскрина или старше
// окна заброшенности) переводится в EXPIRED.
func (h *AttemptHandler) ResumeAttempt(c *gin.Context) {
	h.transition(c, h.attemptService.ResumeOrAbandon)
}

// EnterFullScreen фиксирует вход попытки в полноэкранный режим
func (h *AttemptHandler) EnterFullScreen(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(uint)
	if !h.authorizeAttempt(c, attemptID) {
		return
	}

	if err := h.attemptService.EnterFullScreen(attemptID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Full screen registered"})
}

// GetAttemptStatistics возвращает сводку ответов и затраченное время
func (h *AttemptHandler) GetAttemptStatistics(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(uint)
	if !h.authorizeAttempt(c, attemptID) {
		return
	}

	stats, err := h.answerService.GetStatistics(attemptID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// transition выполняет смену статуса попытки после проверки владения
func (h *AttemptHandler) transition(c *gin.Context, fn func(uint) (*entity.CandidateAssessment, error)) {
	attemptID := c.MustGet("attemptID").(uint)
	if !h.authorizeAttempt(c, attemptID) {
		return
	}

	attempt, err := fn(attemptID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAttemptResponse(attempt))
}

// authorizeAttempt проверяет, что попытка принадлежит вызывающему агенту.
// Чужая попытка — всегда 403, а не 404: существование ресурса не раскрываем.
func (h *AttemptHandler) authorizeAttempt(c *gin.Context, attemptID uint) bool {
	info, err := agentFromContext(c)
	if err != nil {
		handleServiceError(c, err)
		return false
	}

	owned, err := h.attemptService.ValidateOwnership(attemptID, info.AgentID)
	if err != nil {
		handleServiceError(c, err)
		return false
	}
	if !owned {
		handleServiceError(c, apperrors.ErrForbidden)
		return false
	}
	return true
}
