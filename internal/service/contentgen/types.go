package contentgen

import (
	"fmt"
	"time"

	"github.com/yourusername/assessment-api/internal/domain/repository"
)

// Константы по умолчанию
const (
	DefaultReportTTLHours = 24
)

// Config содержит настройки генератора контента
type Config struct {
	// ReportTTL — время жизни отчета генерации в кеше
	ReportTTL time.Duration

	// Seed — зерно для генератора случайных чисел. 0 = time.Now().UnixNano().
	// Детерминированное зерно используется только в тестах.
	Seed int64
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		ReportTTL: DefaultReportTTLHours * time.Hour,
		Seed:      0,
	}
}

// Dependencies содержит зависимости генератора контента
type Dependencies struct {
	AssessmentRepo repository.AssessmentRepository
	SectionRepo    repository.SectionRepository
	QuestionRepo   repository.QuestionRepository
	CacheRepo      repository.CacheRepository
}

// QuestionRule — правило выбора вопросов: сколько вопросов каких уровней
// CEFR включить в секцию
type QuestionRule struct {
	CEFRLevels []string `json:"cefr_levels"`
	Count      int      `json:"count"`
}

// SectionTemplate — декларативное описание одной секции ассессмента
type SectionTemplate struct {
	Name            string         `json:"name"`
	QuestionType    string         `json:"question_type"`
	DurationMinutes int            `json:"duration_minutes"`
	Rules           []QuestionRule `json:"rules"`
}

// Template — упорядоченный список секций для генерации одного ассессмента
type Template struct {
	Sections []SectionTemplate `json:"sections"`
}

// TotalQuestions возвращает суммарное число вопросов секции по правилам.
// Считается по заявленным count, а не по фактически найденным вопросам:
// нехватка пула — предупреждение, а не коррекция плана.
func (t SectionTemplate) TotalQuestions() int {
	total := 0
	for _, r := range t.Rules {
		total += r.Count
	}
	return total
}

// Статусы отчета генерации
const (
	ReportStatusRunning   = "RUNNING"
	ReportStatusCompleted = "COMPLETED"
	ReportStatusFailed    = "FAILED"
)

// Report — результат генерации контента для одного ассессмента.
// Кешируется в Redis, чтобы endpoint статуса мог отдать предупреждения
// без похода в БД.
type Report struct {
	AssessmentID uint      `json:"assessment_id"`
	Status       string    `json:"status"`
	Warnings     []string  `json:"warnings,omitempty"`
	Error        string    `json:"error,omitempty"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// reportCacheKey возвращает ключ отчета генерации в Redis
func reportCacheKey(assessmentID uint) string {
	return fmt.Sprintf("gen:assessment:%d", assessmentID)
}
