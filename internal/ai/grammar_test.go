package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Тесты удаленной проверки грамматики
// ============================================================================

func TestGrammarChecker_Check_Remote(t *testing.T) {
	// Arrange: LanguageTool-совместимый сервер возвращает одну ошибку
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "He go to school every day.", r.Form.Get("text"))
		assert.Equal(t, "en-US", r.Form.Get("language"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"matches": [
				{
					"message": "Possible agreement error",
					"replacements": [{"value": "goes"}],
					"rule": {"issueType": "grammar", "category": {"name": "Grammar"}}
				}
			]
		}`))
	}))
	defer server.Close()

	checker := NewGrammarChecker(server.URL, "en-US")

	// Act
	result, err := checker.Check(context.Background(), "He go to school every day.")

	// Assert
	require.NoError(t, err)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "Grammar", result.Issues[0].Type)
	assert.Equal(t, "goes", result.Issues[0].Suggestion)
	assert.Less(t, result.Score, 100.0, "Ошибка должна снижать оценку")
}

func TestGrammarChecker_Check_FallsBackToHeuristic(t *testing.T) {
	// Arrange: поставщик отвечает 500 - чекер обязан вернуть локальную
	// оценку, а не ошибку
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	checker := NewGrammarChecker(server.URL, "en-US")

	// Act
	result, err := checker.Check(context.Background(), "This is a correct sentence.")

	// Assert
	require.NoError(t, err, "Недоступность поставщика не должна быть ошибкой")
	assert.Equal(t, 100.0, result.Score, "Чистый текст получает полную эвристическую оценку")
}

// ============================================================================
// Тесты локальной эвристики
// ============================================================================

func TestGrammarChecker_Heuristic(t *testing.T) {
	checker := NewGrammarChecker("", "en-US")

	tests := []struct {
		name       string
		text       string
		issueTypes []string
	}{
		{"чистый текст", "This is a well formed sentence.", nil},
		{"без заглавной буквы", "this sentence starts lowercase.", []string{"capitalization"}},
		{"без терминальной пунктуации", "This sentence has no ending", []string{"punctuation"}},
		{"двойной пробел", "This sentence  has a double space.", []string{"whitespace"}},
		{"повтор слова", "This is is a repetition.", []string{"repetition"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := checker.Check(context.Background(), tt.text)
			require.NoError(t, err)
			require.Len(t, result.Issues, len(tt.issueTypes))
			for i, issueType := range tt.issueTypes {
				assert.Equal(t, issueType, result.Issues[i].Type)
			}
		})
	}
}

func TestGrammarChecker_Heuristic_EmptyText(t *testing.T) {
	checker := NewGrammarChecker("", "")

	result, err := checker.Check(context.Background(), "   ")

	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Score, "Пустой текст получает нулевую оценку")
}

// ============================================================================
// Тесты перевода плотности ошибок в оценку
// ============================================================================

func TestScoreFromIssueCount(t *testing.T) {
	assert.Equal(t, 100.0, scoreFromIssueCount(0, 10), "Без ошибок - полная оценка")
	assert.Equal(t, 50.0, scoreFromIssueCount(1, 10), "Одна ошибка на 10 слов - половина")
	assert.Equal(t, 0.0, scoreFromIssueCount(5, 10), "Высокая плотность ошибок прижимается к 0")
	assert.Equal(t, 0.0, scoreFromIssueCount(0, 0), "Пустой текст - 0")
}
