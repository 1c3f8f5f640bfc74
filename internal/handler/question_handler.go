package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/assessment-api/internal/domain/entity"
	"github.com/yourusername/assessment-api/internal/service"
)

// QuestionHandler обрабатывает административные запросы к банку вопросов
type QuestionHandler struct {
	questionService *service.QuestionService
}

// NewQuestionHandler создает новый обработчик банка вопросов
func NewQuestionHandler(questionService *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionService: questionService}
}

// BulkUploadQuestionsRequest представляет запрос на массовую загрузку вопросов
type BulkUploadQuestionsRequest struct {
	Questions []struct {
		Type          string  `json:"type" binding:"required"`
		CEFRLevel     string  `json:"cefr_level" binding:"required"`
		Text          string  `json:"text" binding:"required,min=3"`
		CorrectAnswer *string `json:"correct_answer,omitempty"`
	} `json:"questions" binding:"required,min=1"`
}

// BulkUploadQuestions загружает пакет вопросов в банк
// POST /api/admin/questions
func (h *QuestionHandler) BulkUploadQuestions(c *gin.Context) {
	var req BulkUploadQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	questions := make([]entity.Question, 0, len(req.Questions))
	for _, q := range req.Questions {
		questions = append(questions, entity.Question{
			Type:          q.Type,
			CEFRLevel:     q.CEFRLevel,
			Text:          q.Text,
			CorrectAnswer: q.CorrectAnswer,
		})
	}

	if err := h.questionService.CreateBatch(questions); err != nil {
		handleServiceError(c, err)
		return
	}

	// Подсчитываем вопросы по уровню для ответа
	byLevel := make(map[string]int)
	for _, q := range questions {
		byLevel[q.CEFRLevel]++
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Questions uploaded successfully",
		"total":    len(questions),
		"by_level": byLevel,
	})
}

// DeactivateQuestion исключает вопрос из отбора генератором
// DELETE /api/admin/questions/:id
func (h *QuestionHandler) DeactivateQuestion(c *gin.Context) {
	questionID := c.MustGet("questionID").(uint)

	if err := h.questionService.Deactivate(questionID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Question deactivated"})
}

// GetPoolStats возвращает статистику банка вопросов
// GET /api/admin/questions/stats
func (h *QuestionHandler) GetPoolStats(c *gin.Context) {
	stats, err := h.questionService.PoolStats()
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"pool": stats})
}
