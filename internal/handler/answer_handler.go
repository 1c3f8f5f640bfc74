package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/assessment-api/internal/handler/dto"
	apperrors "github.com/yourusername/assessment-api/internal/pkg/errors"
	"github.com/yourusername/assessment-api/internal/service"
)

// AnswerHandler обрабатывает запросы сохранения и чтения ответов
type AnswerHandler struct {
	answerService    *service.AnswerService
	attemptService   *service.AttemptService
	candidateService *service.CandidateService
}

// NewAnswerHandler создает новый обработчик ответов
func NewAnswerHandler(
	answerService *service.AnswerService,
	attemptService *service.AttemptService,
	candidateService *service.CandidateService,
) *AnswerHandler {
	return &AnswerHandler{
		answerService:    answerService,
		attemptService:   attemptService,
		candidateService: candidateService,
	}
}

// SaveAnswerRequest представляет запрос на сохранение ответа
type SaveAnswerRequest struct {
	QuestionID uint   `json:"question_id" binding:"required"`
	SectionID  uint   `json:"section_id" binding:"required"`
	AnswerText string `json:"answer_text"`
	AudioPath  string `json:"audio_path"`
	IsSkipped  bool   `json:"is_skipped"`
}

// SaveAnswer сохраняет или перезаписывает ответ на вопрос попытки.
// Повторное сохранение той же пары (attempt, question) — перезапись,
// а не дубликат.
// POST /api/attempts/:id/answers
func (h *AnswerHandler) SaveAnswer(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(uint)

	var req SaveAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	candidate, ok := h.authorize(c, attemptID)
	if !ok {
		return
	}

	answer, err := h.answerService.SaveOrUpdate(attemptID, req.QuestionID, req.SectionID, candidate,
		service.AnswerPayload{
			AnswerText: req.AnswerText,
			AudioPath:  req.AudioPath,
			IsSkipped:  req.IsSkipped,
		})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if answer.RevisionCount > 0 {
		status = http.StatusOK
	}
	c.JSON(status, dto.NewAnswerResponse(answer))
}

// GetAnswers возвращает все ответы попытки
// GET /api/attempts/:id/answers
func (h *AnswerHandler) GetAnswers(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(uint)

	if _, ok := h.authorize(c, attemptID); !ok {
		return
	}

	answers, err := h.answerService.GetByAttemptID(attemptID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"answers": dto.NewListAnswerResponse(answers),
		"total":   len(answers),
	})
}

// authorize проверяет владение попыткой и возвращает ID кандидата
func (h *AnswerHandler) authorize(c *gin.Context, attemptID uint) (uint, bool) {
	info, err := agentFromContext(c)
	if err != nil {
		handleServiceError(c, err)
		return 0, false
	}

	owned, err := h.attemptService.ValidateOwnership(attemptID, info.AgentID)
	if err != nil {
		handleServiceError(c, err)
		return 0, false
	}
	if !owned {
		handleServiceError(c, apperrors.ErrForbidden)
		return 0, false
	}

	candidate, err := h.candidateService.GetByAgentID(info.AgentID)
	if err != nil {
		handleServiceError(c, err)
		return 0, false
	}
	return candidate.ID, true
}
