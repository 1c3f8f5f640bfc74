package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/assessment-api/internal/service/evaluation"
)

// EvaluationHandler обрабатывает запросы запуска пайплайна оценивания
type EvaluationHandler struct {
	pipeline *evaluation.Pipeline
}

// NewEvaluationHandler создает новый обработчик оценивания
func NewEvaluationHandler(pipeline *evaluation.Pipeline) *EvaluationHandler {
	return &EvaluationHandler{pipeline: pipeline}
}

// EvaluateAttempt запускает батч оценивания неоцененных ответов попытки.
// Конкурентный повторный запуск того же attempt отклоняется (409):
// лок на попытку держится в Redis на время батча.
// POST /api/admin/attempts/:id/evaluate
func (h *EvaluationHandler) EvaluateAttempt(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(uint)

	summary, err := h.pipeline.EvaluateBatch(c.Request.Context(), attemptID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
