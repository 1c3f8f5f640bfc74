package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/yourusername/assessment-api/internal/service/evaluation"
)

// GrammarChecker проверяет грамматику через LanguageTool-совместимый HTTP API.
// При недоступности поставщика возвращает локальную эвристическую оценку
// (пунктуация, капитализация, пробелы) вместо ошибки — контракт коллаборатора.
type GrammarChecker struct {
	endpoint string
	language string
	client   *http.Client
}

// NewGrammarChecker создает новый грамматический чекер.
// Пустой endpoint означает «только локальная эвристика».
func NewGrammarChecker(endpoint, language string) *GrammarChecker {
	if language == "" {
		language = "en-US"
	}
	return &GrammarChecker{
		endpoint: endpoint,
		language: language,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// ltMatch — одна ошибка в ответе LanguageTool
type ltMatch struct {
	Message      string `json:"message"`
	Replacements []struct {
		Value string `json:"value"`
	} `json:"replacements"`
	Rule struct {
		IssueType string `json:"issueType"`
		Category  struct {
			Name string `json:"name"`
		} `json:"category"`
	} `json:"rule"`
}

type ltResponse struct {
	Matches []ltMatch `json:"matches"`
}

// Check оценивает грамматику текста по шкале 0..100
func (g *GrammarChecker) Check(ctx context.Context, text string) (*evaluation.GrammarResult, error) {
	if g.endpoint != "" {
		result, err := g.checkRemote(ctx, text)
		if err == nil {
			return result, nil
		}
		log.Printf("[GrammarChecker] Поставщик недоступен, переключаюсь на локальную эвристику: %v", err)
	}
	return g.checkHeuristic(text), nil
}

// checkRemote вызывает LanguageTool-совместимый endpoint
func (g *GrammarChecker) checkRemote(ctx context.Context, text string) (*evaluation.GrammarResult, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("language", g.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("grammar vendor returned status %d", resp.StatusCode)
	}

	var parsed ltResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode grammar response: %w", err)
	}

	issues := make([]evaluation.GrammarIssue, 0, len(parsed.Matches))
	for _, m := range parsed.Matches {
		issue := evaluation.GrammarIssue{
			Type:     m.Rule.Category.Name,
			Message:  m.Message,
			Severity: m.Rule.IssueType,
		}
		if len(m.Replacements) > 0 {
			issue.Suggestion = m.Replacements[0].Value
		}
		issues = append(issues, issue)
	}

	return &evaluation.GrammarResult{
		Score:  scoreFromIssueCount(len(issues), len(strings.Fields(text))),
		Issues: issues,
	}, nil
}

// checkHeuristic — локальная резервная оценка: капитализация начала
// предложений, терминальная пунктуация, двойные пробелы, повторы слов
func (g *GrammarChecker) checkHeuristic(text string) *evaluation.GrammarResult {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return &evaluation.GrammarResult{Score: 0}
	}

	var issues []evaluation.GrammarIssue

	// Первая буква текста должна быть заглавной
	first := []rune(trimmed)[0]
	if unicode.IsLetter(first) && !unicode.IsUpper(first) {
		issues = append(issues, evaluation.GrammarIssue{
			Type:     "capitalization",
			Message:  "sentence should start with a capital letter",
			Severity: "minor",
		})
	}

	// Терминальная пунктуация в конце текста
	last := trimmed[len(trimmed)-1]
	if last != '.' && last != '!' && last != '?' {
		issues = append(issues, evaluation.GrammarIssue{
			Type:     "punctuation",
			Message:  "text should end with terminal punctuation",
			Severity: "minor",
		})
	}

	// Двойные пробелы
	if strings.Contains(trimmed, "  ") {
		issues = append(issues, evaluation.GrammarIssue{
			Type:     "whitespace",
			Message:  "double spaces found",
			Severity: "minor",
		})
	}

	// Повтор слова подряд
	words := strings.Fields(strings.ToLower(trimmed))
	for i := 1; i < len(words); i++ {
		if words[i] == words[i-1] {
			issues = append(issues, evaluation.GrammarIssue{
				Type:       "repetition",
				Message:    fmt.Sprintf("repeated word %q", words[i]),
				Suggestion: words[i],
				Severity:   "minor",
			})
			break
		}
	}

	return &evaluation.GrammarResult{
		Score:  scoreFromIssueCount(len(issues), len(words)),
		Issues: issues,
	}
}

// scoreFromIssueCount переводит плотность ошибок в оценку 0..100
func scoreFromIssueCount(issues, words int) float64 {
	if words == 0 {
		return 0
	}
	penalty := float64(issues) * 100.0 / float64(words)
	score := 100.0 - penalty*5
	if score < 0 {
		score = 0
	}
	return score
}
