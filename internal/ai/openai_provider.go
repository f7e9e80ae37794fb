package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

const systemPrompt = "You extract structured job postings from chat messages."

func nullable(t string) map[string]any {
	return map[string]any{"type": []string{t, "null"}}
}

// postingSchema is enforced server-side through structured outputs. It has
// the same fields as rawPosting.
var postingSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"valid":               map[string]any{"type": "boolean"},
		"role":                nullable("string"),
		"company_name":        nullable("string"),
		"location":            nullable("string"),
		"experience_required": nullable("string"),
		"job_type": map[string]any{
			"type": []string{"string", "null"},
			"enum": []any{"Remote", "On-site", "Hybrid", nil},
		},
		"application_link": nullable("string"),
		"description":      nullable("string"),
		"posted_date":      nullable("string"),
	},
	"required": []string{
		"valid", "role", "company_name", "location", "experience_required",
		"job_type", "application_link", "description", "posted_date",
	},
}

// OpenAIProvider talks to any server that implements the chat completions
// API: OpenAI itself, Groq, LM Studio, vLLM.
type OpenAIProvider struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
}

func NewOpenAIProvider(baseURL, apiKey, model string, client *http.Client) *OpenAIProvider {
	return &OpenAIProvider{
		baseURL:   baseURL,
		apiKey:    apiKey,
		model:     model,
		maxTokens: 512,
		client:    client,
	}
}

// WithTemperature overrides the default sampling temperature of 0.
func (p *OpenAIProvider) WithTemperature(t float64) *OpenAIProvider {
	p.temperature = t
	return p
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type namedSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema namedSchema `json:"json_schema"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *apiError    `json:"error,omitempty"`
}

// Complete asks for a single posting object and returns the JSON text the
// model produced.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
		ResponseFormat: responseFormat{
			Type:       "json_schema",
			JSONSchema: namedSchema{Name: "job_posting", Strict: true, Schema: postingSchema},
		},
	}
	header := http.Header{}
	if p.apiKey != "" {
		header.Set("Authorization", "Bearer "+p.apiKey)
	}

	var resp chatResponse
	if err := postJSON(ctx, p.client, p.baseURL+"/chat/completions", header, req, &resp); err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("chat completion (%s): %s", resp.Error.Type, resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	choice := resp.Choices[0]
	if choice.FinishReason == "length" {
		return "", errors.New("chat completion cut off at max_tokens")
	}
	return choice.Message.Content, nil
}
