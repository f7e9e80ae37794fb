package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/amishk599/jobagg/internal/model"
)

// OllamaProvider runs prompts against a local Ollama server.
type OllamaProvider struct {
	baseURL     string
	model       string
	temperature float64
	numPredict  int
	client      *http.Client
}

// NewOllamaProvider creates a provider for a pulled model such as "llama3.1".
func NewOllamaProvider(baseURL, model string, client *http.Client) *OllamaProvider {
	return &OllamaProvider{
		baseURL:     baseURL,
		model:       model,
		temperature: 0.1,
		numPredict:  300,
		client:      client,
	}
}

// WithTemperature overrides the default sampling temperature of 0.1.
func (p *OllamaProvider) WithTemperature(t float64) *OllamaProvider {
	p.temperature = t
	return p
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumPredict  int     `json:"num_predict"`
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Format  string          `json:"format,omitempty"`
	Options generateOptions `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Complete runs one non-streaming generation in JSON mode.
func (p *OllamaProvider) Complete(ctx context.Context, prompt string) (string, error) {
	req := generateRequest{
		Model:  p.model,
		Prompt: prompt,
		Format: "json",
		Options: generateOptions{
			Temperature: p.temperature,
			TopP:        0.9,
			NumPredict:  p.numPredict,
		},
	}
	var resp generateResponse
	if err := postJSON(ctx, p.client, p.baseURL+"/api/generate", nil, req, &resp); err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	switch {
	case resp.Error != "":
		return "", fmt.Errorf("ollama generate: %s", resp.Error)
	case resp.Response == "":
		return "", errors.New("ollama generate: empty response")
	}
	return resp.Response, nil
}

type tagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

// ErrModelNotPulled is returned by Ping when the server answers but does not
// have the configured model.
var ErrModelNotPulled = errors.New("model not pulled")

// Ping checks that the server answers and has the configured model.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama not reachable at %s: %w", p.baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &model.HTTPError{StatusCode: resp.StatusCode, Err: fmt.Errorf("ollama tags at %s", p.baseURL)}
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("decoding ollama tags: %w", err)
	}
	for _, m := range tags.Models {
		if sameModel(m.Name, p.model) || sameModel(m.Model, p.model) {
			return nil
		}
	}
	return fmt.Errorf("%w: %q is not available at %s (run: ollama pull %s)", ErrModelNotPulled, p.model, p.baseURL, p.model)
}

// sameModel compares names treating a missing tag as ":latest".
func sameModel(have, want string) bool {
	if have == "" {
		return false
	}
	return withTag(have) == withTag(want)
}

func withTag(name string) string {
	if strings.Contains(name, ":") {
		return name
	}
	return name + ":latest"
}
