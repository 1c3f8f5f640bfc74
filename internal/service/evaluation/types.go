package evaluation

import (
	"context"
	"time"

	"github.com/yourusername/assessment-api/internal/domain/repository"
)

// Константы по умолчанию
const (
	DefaultBatchSize        = 5
	DefaultInterItemDelayMs = 1500
	DefaultLockTTLMinutes   = 5
)

// Config содержит настройки пайплайна оценивания
type Config struct {
	// BatchSize — максимум ответов за один вызов EvaluateBatch.
	// Ограничивает стоимость вызова и позволяет опрашивать прогресс.
	BatchSize int

	// InterItemDelay — фиксированная пауза между ответами внутри батча
	// (вежливость к rate limit внешнего AI)
	InterItemDelay time.Duration

	// LockTTL — время жизни блокировки батча одной попытки
	LockTTL time.Duration
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		InterItemDelay: DefaultInterItemDelayMs * time.Millisecond,
		LockTTL:        DefaultLockTTLMinutes * time.Minute,
	}
}

// Dependencies содержит зависимости пайплайна
type Dependencies struct {
	AnswerRepo  repository.AnswerRepository
	AttemptRepo repository.AttemptRepository
	CacheRepo   repository.CacheRepository

	Transcriber Transcriber
	Grammar     GrammarChecker
	Rubric      RubricScorer
}

// Transcription — результат расшифровки аудио
type Transcription struct {
	Text            string
	DurationSeconds float64
	Language        string
}

// Transcriber переводит аудио в текст. Ошибка поставщика поднимается
// как «transcription failed» и прерывает оценивание только этого ответа.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*Transcription, error)
}

// GrammarIssue — одна грамматическая ошибка с предложением исправления
type GrammarIssue struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
	Severity   string `json:"severity"`
}

// GrammarResult — результат проверки грамматики
type GrammarResult struct {
	Score  float64        `json:"score"`
	Issues []GrammarIssue `json:"issues,omitempty"`
}

// GrammarChecker оценивает грамматику текста по шкале 0..100.
// При недоступности поставщика реализация обязана вернуть локальную
// эвристическую оценку, а не ошибку.
type GrammarChecker interface {
	Check(ctx context.Context, text string) (*GrammarResult, error)
}

// RubricRequest — запрос к AI-рубрике
type RubricRequest struct {
	QuestionText   string
	AnswerText     string
	QuestionType   string
	ExpectedAnswer string
}

// RubricResult — структурированный ответ AI-рубрики. Подоценки 0..100.
// Fluency заполняется для SPEAKING, Completeness — для WRITING.
type RubricResult struct {
	Correctness  float64  `json:"correctness"`
	Thinking     float64  `json:"thinking"`
	Fluency      float64  `json:"fluency"`
	Completeness float64  `json:"completeness"`
	Feedback     string   `json:"feedback"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Reasoning    string   `json:"reasoning"`
}

// RubricScorer оценивает ответ по рубрике. Неразбираемый вывод модели
// деградирует до нейтральных 50 по каждой отсутствующей подоценке,
// а не роняет батч.
type RubricScorer interface {
	Score(ctx context.Context, req RubricRequest) (*RubricResult, error)
}

// ItemResult — итог обработки одного ответа в батче
type ItemResult struct {
	AnswerID uint     `json:"answer_id"`
	Overall  *float64 `json:"overall,omitempty"`
	CEFR     string   `json:"cefr,omitempty"`
	Skipped  bool     `json:"skipped"`
	Error    string   `json:"error,omitempty"`
}

// BatchSummary — сводка по батчу оценивания
type BatchSummary struct {
	BatchID          string         `json:"batch_id"`
	AttemptID        uint           `json:"attempt_id"`
	Evaluated        int            `json:"evaluated"`
	Failed           int            `json:"failed"`
	SkippedNoText    int            `json:"skipped_no_text"`
	AverageOverall   float64        `json:"average_overall"`
	CEFRDistribution map[string]int `json:"cefr_distribution"`
	Items            []ItemResult   `json:"items"`
}
