package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/yourusername/assessment-api/internal/domain/entity"
	"github.com/yourusername/assessment-api/internal/service/evaluation"
)

// Client — клиент OpenAI-совместимого API, реализующий коллабораторов
// пайплайна оценивания: AI-рубрику и расшифровку аудио (Whisper).
type Client struct {
	api             *openai.Client
	chatModel       string
	transcribeModel string
}

// NewClient создает новый AI-клиент. baseURL позволяет указать
// совместимый endpoint вместо api.openai.com.
func NewClient(baseURL, apiKey, chatModel, transcribeModel string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if chatModel == "" {
		chatModel = openai.GPT4oMini
	}
	if transcribeModel == "" {
		transcribeModel = openai.Whisper1
	}
	return &Client{
		api:             openai.NewClientWithConfig(config),
		chatModel:       chatModel,
		transcribeModel: transcribeModel,
	}
}

// rubricResponse — ожидаемая форма JSON-ответа модели.
// Указатели различают «поле отсутствует» и «ноль».
type rubricResponse struct {
	Correctness  *float64 `json:"correctness"`
	Thinking     *float64 `json:"thinking"`
	Fluency      *float64 `json:"fluency"`
	Completeness *float64 `json:"completeness"`
	Feedback     string   `json:"feedback"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Reasoning    string   `json:"reasoning"`
}

// Score оценивает ответ по рубрике через chat completion со структурированным
// JSON-выводом. Неразбираемый или неполный вывод модели деградирует
// до нейтральных 50 по каждой отсутствующей подоценке — батч не падает.
func (c *Client) Score(ctx context.Context, req evaluation.RubricRequest) (*evaluation.RubricResult, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildRubricSystemPrompt(req.QuestionType)},
			{Role: openai.ChatMessageRoleUser, Content: buildRubricUserPrompt(req)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("rubric completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("rubric completion: empty choices")
	}

	raw := resp.Choices[0].Message.Content

	var parsed rubricResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		// Некорректный JSON — не ошибка пайплайна: нейтральные дефолты
		log.Printf("[AIClient] Неразбираемый ответ рубрики, применяю дефолты: %v", err)
		parsed = rubricResponse{}
	}

	return &evaluation.RubricResult{
		Correctness:  orNeutral(parsed.Correctness),
		Thinking:     orNeutral(parsed.Thinking),
		Fluency:      orNeutral(parsed.Fluency),
		Completeness: orNeutral(parsed.Completeness),
		Feedback:     parsed.Feedback,
		Strengths:    parsed.Strengths,
		Improvements: parsed.Improvements,
		Reasoning:    parsed.Reasoning,
	}, nil
}

// Transcribe расшифровывает аудиофайл через Whisper
func (c *Client) Transcribe(ctx context.Context, audioPath string) (*evaluation.Transcription, error) {
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.transcribeModel,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("whisper transcription: %w", err)
	}
	return &evaluation.Transcription{
		Text:            resp.Text,
		DurationSeconds: resp.Duration,
		Language:        resp.Language,
	}, nil
}

func orNeutral(v *float64) float64 {
	if v == nil {
		return evaluation.NeutralScore
	}
	return *v
}

func buildRubricSystemPrompt(questionType string) string {
	var sb strings.Builder
	sb.WriteString("You are a strict language-assessment examiner. ")
	sb.WriteString("Score the candidate's answer on a 0-100 scale per criterion and respond with JSON only.\n\n")
	sb.WriteString("Required JSON fields: correctness, thinking, ")
	if questionType == entity.QuestionTypeSpeaking {
		sb.WriteString("fluency")
	} else {
		sb.WriteString("completeness")
	}
	sb.WriteString(", feedback (string), strengths (array of strings), improvements (array of strings), reasoning (string).")
	return sb.String()
}

func buildRubricUserPrompt(req evaluation.RubricRequest) string {
	var sb strings.Builder
	sb.WriteString("QUESTION TYPE: " + req.QuestionType + "\n")
	sb.WriteString("QUESTION: " + req.QuestionText + "\n")
	if req.ExpectedAnswer != "" {
		sb.WriteString("EXPECTED ANSWER: " + req.ExpectedAnswer + "\n")
	}
	sb.WriteString("CANDIDATE ANSWER: " + req.AnswerText + "\n")
	return sb.String()
}
