package evaluation

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/assessment-api/internal/domain/entity"
	apperrors "github.com/yourusername/assessment-api/internal/pkg/errors"
)

// Pipeline — асинхронный многосигнальный пайплайн оценивания ответов:
// расшифровка аудио, проверка грамматики и AI-рубрика (параллельно),
// взвешенная агрегация и маппинг в CEFR. Батч обрабатывается строго
// последовательно с фиксированной паузой; сбой одного ответа фиксируется
// и не прерывает остальные.
type Pipeline struct {
	// Настройки
	config *Config

	// Зависимости
	deps *Dependencies
}

// NewPipeline создает новый пайплайн оценивания
func NewPipeline(config *Config, deps *Dependencies) *Pipeline {
	return &Pipeline{
		config: config,
		deps:   deps,
	}
}

// EvaluateBatch оценивает до BatchSize неоцененных ответов попытки,
// старые первыми. Идемпотентность обеспечивается на шаге выборки:
// ответ с выставленной итоговой оценкой повторно не оценивается.
// Одновременно для одной попытки может идти только один батч (Redis-лок).
func (p *Pipeline) EvaluateBatch(ctx context.Context, attemptID uint) (*BatchSummary, error) {
	if _, err := p.deps.AttemptRepo.GetByID(attemptID); err != nil {
		return nil, err
	}

	batchID := uuid.NewString()
	lockKey := fmt.Sprintf("eval:attempt:%d", attemptID)
	acquired, err := p.deps.CacheRepo.SetNX(lockKey, batchID, p.config.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("не удалось взять блокировку оценивания: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: evaluation batch already running for attempt %d", apperrors.ErrConflict, attemptID)
	}
	defer func() {
		if err := p.deps.CacheRepo.Delete(lockKey); err != nil {
			log.Printf("[EvaluationPipeline] Не удалось снять блокировку %s: %v", lockKey, err)
		}
	}()

	answers, err := p.deps.AnswerRepo.GetUnevaluated(attemptID, p.config.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить неоцененные ответы: %w", err)
	}

	summary := &BatchSummary{
		BatchID:          batchID,
		AttemptID:        attemptID,
		CEFRDistribution: make(map[string]int),
	}

	log.Printf("[EvaluationPipeline] Батч %s: %d неоцененных ответов попытки #%d",
		batchID, len(answers), attemptID)

	var overallSum float64

	for i := range answers {
		if i > 0 {
			// Фиксированная пауза между элементами батча: не душим rate limit
			// внешнего AI-коллаборатора
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(p.config.InterItemDelay):
			}
		}

		answer := &answers[i]
		item := ItemResult{AnswerID: answer.ID}

		result, err := p.evaluateOne(ctx, answer)
		switch {
		case err != nil:
			// Сбой одного ответа фиксируется и не прерывает батч.
			// Оценка остается NULL — следующий вызов EvaluateBatch повторит.
			log.Printf("[EvaluationPipeline] Ошибка оценивания ответа #%d: %v", answer.ID, err)
			item.Error = err.Error()
			summary.Failed++
		case result == nil:
			// Нечего оценивать (нет текста) — не ошибка
			item.Skipped = true
			summary.SkippedNoText++
		default:
			item.Overall = answer.OverallScore
			item.CEFR = *answer.CEFRLevel
			summary.Evaluated++
			overallSum += *answer.OverallScore
			summary.CEFRDistribution[*answer.CEFRLevel]++
		}
		summary.Items = append(summary.Items, item)
	}

	if summary.Evaluated > 0 {
		summary.AverageOverall = round2(overallSum / float64(summary.Evaluated))
	}

	log.Printf("[EvaluationPipeline] Батч %s завершен: оценено %d, ошибок %d, пропущено %d",
		batchID, summary.Evaluated, summary.Failed, summary.SkippedNoText)
	return summary, nil
}

// evaluateOne оценивает один ответ. Возвращает (nil, nil), если после
// расшифровки текст так и не получен — «нечего оценивать».
func (p *Pipeline) evaluateOne(ctx context.Context, answer *entity.Answer) (*Subscores, error) {
	question := answer.Question

	// Шаг 1: расшифровка аудио для SPEAKING без текста.
	// Текст сохраняется до оценивания, чтобы расшифровка одного ответа
	// никогда не повторялась.
	if question.IsSpeaking() && answer.AnswerText == "" && answer.AudioPath != "" {
		tr, err := p.deps.Transcriber.Transcribe(ctx, answer.AudioPath)
		if err != nil {
			return nil, fmt.Errorf("transcription failed: %w", err)
		}
		answer.AnswerText = tr.Text
		answer.WordCount = len(strings.Fields(tr.Text))
		if err := p.deps.AnswerRepo.Update(answer); err != nil {
			return nil, fmt.Errorf("не удалось сохранить расшифровку: %w", err)
		}
	}

	// Шаг 2: без текста оценивать нечего
	if strings.TrimSpace(answer.AnswerText) == "" {
		return nil, nil
	}

	// Шаг 3: грамматика и AI-рубрика параллельно
	grammar, rubric, err := p.scoreConcurrently(ctx, answer, &question)
	if err != nil {
		return nil, err
	}

	// Шаг 4-5: взвешенная агрегация и маппинг в CEFR
	scores := Subscores{
		Correctness:  Clamp(rubric.Correctness),
		Grammar:      Clamp(grammar.Score),
		Fluency:      Clamp(rubric.Fluency),
		Completeness: Clamp(rubric.Completeness),
		Thinking:     Clamp(rubric.Thinking),
	}
	overall := scores.Overall(question.Type)
	cefr := MapCEFR(overall)

	// Шаг 6: персист всех подоценок и метаданных
	now := time.Now()
	answer.CorrectnessScore = &scores.Correctness
	answer.GrammarScore = &scores.Grammar
	answer.ThinkingScore = &scores.Thinking
	if question.IsSpeaking() {
		answer.FluencyScore = &scores.Fluency
	} else {
		answer.CompletenessScore = &scores.Completeness
	}
	answer.OverallScore = &overall
	answer.CEFRLevel = &cefr
	answer.Feedback = rubric.Feedback
	answer.Strengths = strings.Join(rubric.Strengths, "; ")
	answer.Improvements = strings.Join(rubric.Improvements, "; ")
	answer.EvaluatedAt = &now

	if err := p.deps.AnswerRepo.Update(answer); err != nil {
		return nil, fmt.Errorf("не удалось сохранить оценки: %w", err)
	}

	return &scores, nil
}

// scoreConcurrently запускает проверку грамматики и AI-рубрику параллельно
// и дожидается обеих
func (p *Pipeline) scoreConcurrently(ctx context.Context, answer *entity.Answer, question *entity.Question) (*GrammarResult, *RubricResult, error) {
	var (
		grammar    *GrammarResult
		rubric     *RubricResult
		grammarErr error
		rubricErr  error
	)

	done := make(chan struct{})
	go func() {
		grammar, grammarErr = p.deps.Grammar.Check(ctx, answer.AnswerText)
		close(done)
	}()

	expected := ""
	if question.CorrectAnswer != nil {
		expected = *question.CorrectAnswer
	}
	rubric, rubricErr = p.deps.Rubric.Score(ctx, RubricRequest{
		QuestionText:   question.Text,
		AnswerText:     answer.AnswerText,
		QuestionType:   question.Type,
		ExpectedAnswer: expected,
	})

	<-done

	if rubricErr != nil {
		return nil, nil, fmt.Errorf("%w: rubric scoring: %v", apperrors.ErrUpstream, rubricErr)
	}
	if grammarErr != nil {
		return nil, nil, fmt.Errorf("%w: grammar check: %v", apperrors.ErrUpstream, grammarErr)
	}
	return grammar, rubric, nil
}
