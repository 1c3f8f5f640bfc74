package contentgen

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/assessment-api/internal/domain/entity"
	apperrors "github.com/yourusername/assessment-api/internal/pkg/errors"
)

// Generator собирает конкретные секции ассессмента из банка вопросов
// по декларативному шаблону. Работает асинхронно: вызывающий получает
// assessmentId сразу и опрашивает статус, пока генерация идет в фоне.
type Generator struct {
	// Настройки
	config *Config

	// Зависимости
	deps *Dependencies

	// Активные фоновые генерации: map[uint]context.CancelFunc
	cancels sync.Map

	rng   *rand.Rand
	rngMu sync.Mutex
}

// NewGenerator создает новый генератор контента
func NewGenerator(config *Config, deps *Dependencies) *Generator {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		config: config,
		deps:   deps,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// GenerateAsync запускает генерацию контента в фоне.
// Контракт API: вызывающий не блокируется и опрашивает статус ассессмента,
// а не предполагает синхронное завершение.
func (g *Generator) GenerateAsync(ctx context.Context, assessmentID uint, template Template) {
	genCtx, cancel := context.WithCancel(ctx)
	g.cancels.Store(assessmentID, cancel)

	go func() {
		defer g.cancels.Delete(assessmentID)
		defer cancel()

		if err := g.Generate(genCtx, assessmentID, template); err != nil {
			log.Printf("[ContentGenerator] Фоновая генерация для ассессмента #%d завершилась ошибкой: %v", assessmentID, err)
		}
	}()
}

// Cancel отменяет фоновую генерацию ассессмента, если она идет
func (g *Generator) Cancel(assessmentID uint) {
	if cancel, ok := g.cancels.Load(assessmentID); ok {
		cancel.(context.CancelFunc)()
		g.cancels.Delete(assessmentID)
	}
}

// Generate выполняет генерацию контента: для каждой секции шаблона выбирает
// вопросы по правилам, привязывает их и по завершении переводит ассессмент
// DRAFT→ACTIVE. Любая ошибка БД прерывает генерацию и оставляет DRAFT;
// нехватка пула — предупреждение, не ошибка.
func (g *Generator) Generate(ctx context.Context, assessmentID uint, template Template) error {
	log.Printf("[ContentGenerator] Начинаю генерацию контента для ассессмента #%d (%d секций)",
		assessmentID, len(template.Sections))

	if err := ValidateTemplate(template); err != nil {
		g.storeReport(&Report{
			AssessmentID: assessmentID,
			Status:       ReportStatusFailed,
			Error:        err.Error(),
			GeneratedAt:  time.Now(),
		})
		return err
	}

	g.storeReport(&Report{
		AssessmentID: assessmentID,
		Status:       ReportStatusRunning,
		GeneratedAt:  time.Now(),
	})

	assessment, err := g.deps.AssessmentRepo.GetByID(assessmentID)
	if err != nil {
		g.failReport(assessmentID, err)
		return fmt.Errorf("не удалось получить ассессмент: %w", err)
	}

	var warnings []string

	for idx, sectionTpl := range template.Sections {
		select {
		case <-ctx.Done():
			g.failReport(assessmentID, ctx.Err())
			return ctx.Err()
		default:
		}

		sectionWarnings, err := g.generateSection(assessment.ID, idx, sectionTpl)
		if err != nil {
			// Ошибка БД: прерываем генерацию, статус остается DRAFT
			log.Printf("[ContentGenerator] Ошибка генерации секции %q ассессмента #%d: %v",
				sectionTpl.Name, assessmentID, err)
			g.failReport(assessmentID, err)
			return err
		}
		warnings = append(warnings, sectionWarnings...)
	}

	// Все секции успешно созданы: переводим ассессмент в ACTIVE
	if err := g.deps.AssessmentRepo.UpdateStatus(assessmentID, entity.AssessmentStatusActive); err != nil {
		g.failReport(assessmentID, err)
		return fmt.Errorf("не удалось активировать ассессмент: %w", err)
	}

	g.storeReport(&Report{
		AssessmentID: assessmentID,
		Status:       ReportStatusCompleted,
		Warnings:     warnings,
		GeneratedAt:  time.Now(),
	})

	log.Printf("[ContentGenerator] Ассессмент #%d активирован (%d секций, %d предупреждений)",
		assessmentID, len(template.Sections), len(warnings))
	return nil
}

// generateSection создает одну секцию и привязывает вопросы по её правилам.
// Возвращает предупреждения о нехватке пула.
func (g *Generator) generateSection(assessmentID uint, orderIndex int, tpl SectionTemplate) ([]string, error) {
	section := &entity.Section{
		AssessmentID:    assessmentID,
		Name:            tpl.Name,
		OrderIndex:      orderIndex,
		DurationMinutes: tpl.DurationMinutes,
		// Сумма count по правилам, независимо от фактического наличия:
		// нехватка отражается предупреждением, а не молчаливой коррекцией.
		TotalQuestions: tpl.TotalQuestions(),
	}
	if err := g.deps.SectionRepo.Create(section); err != nil {
		return nil, fmt.Errorf("не удалось создать секцию %q: %w", tpl.Name, err)
	}

	var warnings []string

	// Вопросы, уже выбранные предыдущими правилами этой секции:
	// правила с пересекающимися уровнями не должны выбирать один вопрос дважды
	taken := make(map[uint]bool)

	for _, rule := range tpl.Rules {
		pool, err := g.deps.QuestionRepo.GetActiveByTypeAndLevels(tpl.QuestionType, rule.CEFRLevels)
		if err != nil {
			return nil, fmt.Errorf("не удалось получить пул вопросов (%s, %v): %w",
				tpl.QuestionType, rule.CEFRLevels, err)
		}

		available := pool[:0:0]
		for _, q := range pool {
			if !taken[q.ID] {
				available = append(available, q)
			}
		}

		selected := g.selectRandom(available, rule.Count)

		if len(selected) < rule.Count {
			warning := fmt.Sprintf(
				"секция %q: по правилу (%s, уровни %s) запрошено %d вопросов, в пуле только %d",
				tpl.Name, tpl.QuestionType, strings.Join(rule.CEFRLevels, ","), rule.Count, len(selected))
			log.Printf("[ContentGenerator] Предупреждение: %s", warning)
			warnings = append(warnings, warning)
		}

		ids := make([]uint, 0, len(selected))
		for _, q := range selected {
			ids = append(ids, q.ID)
			taken[q.ID] = true
		}

		// Вставка связок и инкремент times_used — одной транзакцией на правило
		if err := g.deps.QuestionRepo.BindToSection(section.ID, ids); err != nil {
			return nil, fmt.Errorf("не удалось привязать вопросы к секции %q: %w", tpl.Name, err)
		}
	}

	return warnings, nil
}

// selectRandom выполняет несмещенный случайный выбор count вопросов из пула:
// перемешивание Фишера–Йетса и взятие первых count. Так распределение
// использования не смещается к «первым N» вопросам выборки.
func (g *Generator) selectRandom(pool []entity.Question, count int) []entity.Question {
	shuffled := make([]entity.Question, len(pool))
	copy(shuffled, pool)

	g.rngMu.Lock()
	g.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	g.rngMu.Unlock()

	if count > len(shuffled) {
		count = len(shuffled)
	}
	return shuffled[:count]
}

// ValidateTemplate проверяет структурную корректность шаблона.
// Вызывается и генератором перед стартом, и создателем ассессмента,
// чтобы отклонить заведомо невалидный шаблон до записи DRAFT.
func ValidateTemplate(template Template) error {
	if len(template.Sections) == 0 {
		return fmt.Errorf("%w: template has no sections", apperrors.ErrValidation)
	}
	for _, s := range template.Sections {
		if s.Name == "" {
			return fmt.Errorf("%w: section name is required", apperrors.ErrValidation)
		}
		if !entity.IsValidQuestionType(s.QuestionType) {
			return fmt.Errorf("%w: invalid question type %q in section %q", apperrors.ErrValidation, s.QuestionType, s.Name)
		}
		if len(s.Rules) == 0 {
			return fmt.Errorf("%w: section %q has no rules", apperrors.ErrValidation, s.Name)
		}
		for _, r := range s.Rules {
			if r.Count <= 0 {
				return fmt.Errorf("%w: rule count must be positive in section %q", apperrors.ErrValidation, s.Name)
			}
			if len(r.CEFRLevels) == 0 {
				return fmt.Errorf("%w: rule has no CEFR levels in section %q", apperrors.ErrValidation, s.Name)
			}
			for _, lvl := range r.CEFRLevels {
				if !entity.IsValidCEFRLevel(lvl) {
					return fmt.Errorf("%w: invalid CEFR level %q in section %q", apperrors.ErrValidation, lvl, s.Name)
				}
			}
		}
	}
	return nil
}

// GetReport возвращает закешированный отчет последней генерации ассессмента
func (g *Generator) GetReport(assessmentID uint) (*Report, error) {
	var report Report
	if err := g.deps.CacheRepo.GetJSON(reportCacheKey(assessmentID), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// storeReport кеширует отчет генерации. Ошибка кеша не фатальна:
// отчет — вспомогательные метаданные, источник правды — статус ассессмента.
func (g *Generator) storeReport(report *Report) {
	if err := g.deps.CacheRepo.SetJSON(reportCacheKey(report.AssessmentID), report, g.config.ReportTTL); err != nil {
		log.Printf("[ContentGenerator] Не удалось закешировать отчет генерации #%d: %v", report.AssessmentID, err)
	}
}

func (g *Generator) failReport(assessmentID uint, cause error) {
	g.storeReport(&Report{
		AssessmentID: assessmentID,
		Status:       ReportStatusFailed,
		Error:        cause.Error(),
		GeneratedAt:  time.Now(),
	})
}
