package handler

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/assessment-api/internal/domain/entity"
	"github.com/yourusername/assessment-api/internal/handler/dto"
	"github.com/yourusername/assessment-api/internal/service"
	"github.com/yourusername/assessment-api/internal/service/contentgen"
)

// AssessmentHandler обрабатывает запросы, связанные с ассессментами
type AssessmentHandler struct {
	assessmentService *service.AssessmentService
	resultService     *service.ResultService
	generator         *contentgen.Generator
}

// NewAssessmentHandler создает новый обработчик ассессментов
func NewAssessmentHandler(
	assessmentService *service.AssessmentService,
	resultService *service.ResultService,
	generator *contentgen.Generator,
) *AssessmentHandler {
	return &AssessmentHandler{
		assessmentService: assessmentService,
		resultService:     resultService,
		generator:         generator,
	}
}

// CreateAssessmentRequest представляет запрос на создание ассессмента
type CreateAssessmentRequest struct {
	Title       string `json:"title" binding:"required,min=3,max=200"`
	Type        string `json:"type" binding:"required,max=50"`
	MaxAttempts int    `json:"max_attempts" binding:"omitempty,min=1,max=10"`
	Sections    []struct {
		Name            string `json:"name" binding:"required,min=1,max=100"`
		QuestionType    string `json:"question_type" binding:"required"`
		DurationMinutes int    `json:"duration_minutes" binding:"required,min=1,max=240"`
		Rules           []struct {
			CEFRLevels []string `json:"cefr_levels" binding:"required,min=1"`
			Count      int      `json:"count" binding:"required,min=1"`
		} `json:"rules" binding:"required,min=1"`
	} `json:"sections" binding:"required,min=1"`
}

// CreateAssessment создает ассессмент в статусе DRAFT и запускает
// фоновую генерацию контента. Клиент опрашивает статус, а не ждет
// завершения генерации в этом запросе.
func (h *AssessmentHandler) CreateAssessment(c *gin.Context) {
	var req CreateAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Преобразуем секции запроса в шаблон генератора
	template := contentgen.Template{
		Sections: make([]contentgen.SectionTemplate, 0, len(req.Sections)),
	}
	for _, s := range req.Sections {
		rules := make([]contentgen.QuestionRule, 0, len(s.Rules))
		for _, r := range s.Rules {
			rules = append(rules, contentgen.QuestionRule{
				CEFRLevels: r.CEFRLevels,
				Count:      r.Count,
			})
		}
		template.Sections = append(template.Sections, contentgen.SectionTemplate{
			Name:            s.Name,
			QuestionType:    s.QuestionType,
			DurationMinutes: s.DurationMinutes,
			Rules:           rules,
		})
	}

	assessment, err := h.assessmentService.CreateDraft(req.Title, req.Type, req.MaxAttempts, template)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	// Request-контекст умирает вместе с ответом, генерация живет дольше
	h.generator.GenerateAsync(context.Background(), assessment.ID, template)

	c.JSON(http.StatusAccepted, gin.H{
		"assessment": dto.NewAssessmentResponse(assessment),
		"message":    "Content generation started",
	})
}

// GetAssessment возвращает ассессмент с секциями
func (h *AssessmentHandler) GetAssessment(c *gin.Context) {
	assessmentID := c.MustGet("assessmentID").(uint)

	assessment, err := h.assessmentService.GetWithSections(assessmentID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAssessmentResponse(assessment))
}

// GetGenerationStatus возвращает статус и отчет генерации контента
// (включая предупреждения о нехватке пула вопросов)
func (h *AssessmentHandler) GetGenerationStatus(c *gin.Context) {
	assessmentID := c.MustGet("assessmentID").(uint)

	report, err := h.generator.GetReport(assessmentID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// CancelGeneration отменяет фоновую генерацию контента ассессмента.
// Ассессмент остается в DRAFT; отчет генерации зафиксирует отмену.
func (h *AssessmentHandler) CancelGeneration(c *gin.Context) {
	assessmentID := c.MustGet("assessmentID").(uint)

	h.generator.Cancel(assessmentID)
	log.Printf("[AssessmentHandler] Запрошена отмена генерации для ассессмента #%d", assessmentID)

	c.JSON(http.StatusOK, gin.H{"message": "Content generation cancelled"})
}

// ListAssessments возвращает список ассессментов с пагинацией
func (h *AssessmentHandler) ListAssessments(c *gin.Context) {
	pageStr := c.DefaultQuery("page", "1")
	pageSizeStr := c.DefaultQuery("page_size", "10")

	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}

	pageSize, err := strconv.Atoi(pageSizeStr)
	if err != nil || pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	assessments, total, err := h.assessmentService.List(page, pageSize)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"assessments": dto.NewListAssessmentResponse(assessments),
		"total":       total,
		"page":        page,
		"size":        pageSize,
	})
}

// GetAssessmentResults возвращает сводку результатов по всем попыткам
func (h *AssessmentHandler) GetAssessmentResults(c *gin.Context) {
	assessmentID := c.MustGet("assessmentID").(uint)

	rows, err := h.resultService.GetAssessmentResults(assessmentID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": rows,
		"total":   len(rows),
	})
}

// ExportAssessmentResults экспортирует результаты в CSV или Excel формате
// GET /api/admin/assessments/:id/results/export?format=csv|xlsx
func (h *AssessmentHandler) ExportAssessmentResults(c *gin.Context) {
	assessmentID := c.MustGet("assessmentID").(uint)
	format := c.DefaultQuery("format", "csv")

	rows, err := h.resultService.GetAssessmentResults(assessmentID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("assessment_%d_results_%s", assessmentID, time.Now().Format("2006-01-02"))

	switch format {
	case "xlsx":
		h.exportXLSX(c, rows, filename)
	default:
		h.exportCSV(c, rows, filename)
	}
}

var exportHeaders = []string{
	"Попытка", "Кандидат", "Email", "Номер попытки", "Статус",
	"Начало", "Завершение", "Ответов", "Оценено", "Пропущено",
	"Средний балл", "CEFR", "Нарушений", "Автоотправка",
}

// exportCSV экспортирует результаты в CSV с правильным экранированием спецсимволов
func (h *AssessmentHandler) exportCSV(c *gin.Context, rows []service.ResultRow, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	// Используем encoding/csv для правильного экранирования запятых/кавычек
	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(exportHeaders)

	for _, r := range rows {
		writer.Write([]string{
			strconv.FormatUint(uint64(r.AttemptID), 10),
			sanitizeForExcel(r.CandidateName),
			sanitizeForExcel(r.CandidateEmail),
			strconv.Itoa(r.AttemptNumber),
			translateStatus(r.Status),
			r.StartedAt.Format(time.RFC3339),
			formatCompletedAt(r.CompletedAt),
			strconv.Itoa(r.TotalAnswers),
			strconv.Itoa(r.EvaluatedAnswers),
			strconv.Itoa(r.SkippedAnswers),
			formatScore(r.AverageOverall),
			r.CEFRLevel,
			strconv.Itoa(r.TotalViolations),
			yesNo(r.AutoSubmitted),
		})
	}
}

// exportXLSX экспортирует результаты в Excel с использованием StreamWriter
func (h *AssessmentHandler) exportXLSX(c *gin.Context, rows []service.ResultRow, filename string) {
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Результаты"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[AssessmentHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	headers := make([]interface{}, len(exportHeaders))
	for i, hdr := range exportHeaders {
		headers[i] = hdr
	}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[AssessmentHandler] Ошибка записи заголовков: %v", err)
	}

	for i, r := range rows {
		rowNum := i + 2 // Начинаем с 2 строки (1 - заголовки)
		cell := fmt.Sprintf("A%d", rowNum)

		score := interface{}("")
		if r.AverageOverall != nil {
			score = *r.AverageOverall
		}

		row := []interface{}{
			r.AttemptID,
			sanitizeForExcel(r.CandidateName),
			sanitizeForExcel(r.CandidateEmail),
			r.AttemptNumber,
			translateStatus(r.Status),
			r.StartedAt.Format(time.RFC3339),
			formatCompletedAt(r.CompletedAt),
			r.TotalAnswers,
			r.EvaluatedAnswers,
			r.SkippedAnswers,
			score,
			r.CEFRLevel,
			r.TotalViolations,
			yesNo(r.AutoSubmitted),
		}
		if err := sw.SetRow(cell, row); err != nil {
			log.Printf("[AssessmentHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[AssessmentHandler] Ошибка при Flush: %v", err)
	}

	if err := f.Write(c.Writer); err != nil {
		log.Printf("[AssessmentHandler] Ошибка записи Excel в response: %v", err)
	}
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}

// translateStatus переводит статус попытки на русский для экспорта
func translateStatus(status string) string {
	switch entity.SessionStatus(status) {
	case entity.SessionNotStarted:
		return "Не начата"
	case entity.SessionInProgress:
		return "Идет"
	case entity.SessionPaused:
		return "Пауза"
	case entity.SessionCompleted:
		return "Завершена"
	case entity.SessionExpired:
		return "Истекла"
	case entity.SessionTerminated:
		return "Прервана"
	default:
		return status
	}
}

func formatCompletedAt(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatScore(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func yesNo(v bool) string {
	if v {
		return "Да"
	}
	return "Нет"
}
