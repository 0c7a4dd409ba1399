// Package qgen drafts multiple-choice questions with an OpenAI-compatible
// API. Drafts are reviewed by an admin before entering the question bank.
package qgen

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/examdesk/examdesk/internal/model"
)

var fallbackPoints = map[model.Difficulty]int{
	model.DifficultyEasy:   1,
	model.DifficultyMedium: 2,
	model.DifficultyHard:   3,
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a question drafting client. An empty baseURL uses the
// OpenAI default endpoint.
func New(baseURL, apiKey, modelName string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(cfg),
		model: modelName,
	}
}

type draftResponse struct {
	Questions []model.QuestionImport `json:"questions"`
}

// Draft asks the model for count questions in the given category and
// difficulty. Invalid drafts are dropped, so fewer than count may come back.
func (c *Client) Draft(ctx context.Context, category string, difficulty model.Difficulty, count int) ([]model.QuestionImport, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildDraftSystemPrompt(category, difficulty, count)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM draft response", "raw", raw)

	var parsed draftResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}

	var out []model.QuestionImport
	for _, q := range parsed.Questions {
		if err := validateDraft(q); err != nil {
			slog.Warn("dropping invalid draft question", "prompt", q.Prompt, "error", err)
			continue
		}
		q.Category = category
		q.Difficulty = difficulty
		if q.Points <= 0 {
			if p, ok := fallbackPoints[difficulty]; ok {
				q.Points = p
			} else {
				q.Points = 1
			}
		}
		out = append(out, q)
	}
	return out, nil
}

func buildDraftSystemPrompt(category string, difficulty model.Difficulty, count int) string {
	var sb strings.Builder
	sb.WriteString("You are an exam question author. ")
	sb.WriteString(fmt.Sprintf("Write %d multiple-choice questions.\n\n", count))
	sb.WriteString("CATEGORY: " + category + "\n")
	sb.WriteString(fmt.Sprintf("DIFFICULTY: %s\n\n", difficulty))
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Each question has exactly four options labeled A through D.\n")
	sb.WriteString("- Exactly one option is correct.\n")
	sb.WriteString("- Wrong options must be plausible, not obviously absurd.\n")
	sb.WriteString("- Include a one-sentence explanation of the correct answer.\n")
	sb.WriteString("\nRespond ONLY with a JSON object:\n")
	sb.WriteString(`{"questions": [{"question": "<text>", "option_a": "<text>", "option_b": "<text>", "option_c": "<text>", "option_d": "<text>", "correct_option": "<A|B|C|D>", "explanation": "<text>"}]}`)
	sb.WriteString("\n")
	return sb.String()
}

func validateDraft(q model.QuestionImport) error {
	if strings.TrimSpace(q.Prompt) == "" {
		return fmt.Errorf("empty question text")
	}
	for letter, text := range map[string]string{
		"A": q.OptionA, "B": q.OptionB, "C": q.OptionC, "D": q.OptionD,
	} {
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("empty option %s", letter)
		}
	}
	if !q.CorrectOption.Valid() {
		return fmt.Errorf("bad correct option %q", q.CorrectOption)
	}
	return nil
}
