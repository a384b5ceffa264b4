package llm

import (
	"context"
	"time"

	"prism/pkg/httpclient"
)

const anthropicVersion = "2023-06-01"

// Anthropic has no public model listing, so a curated list is served.
var anthropicModels = []string{
	"claude-opus-4-20250514",
	"claude-sonnet-4-20250514",
	"claude-3-7-sonnet-20250219",
	"claude-3-5-haiku-20241022",
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage *struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicClient struct {
	httpClient httpclient.HTTPClient
}

func newAnthropicClient(baseURL, apiKey string, timeout time.Duration) *anthropicClient {
	return &anthropicClient{
		httpClient: httpclient.New(baseURL, timeout,
			httpclient.WithHeader("x-api-key", apiKey),
			httpclient.WithHeader("anthropic-version", anthropicVersion),
		),
	}
}

func (c *anthropicClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	temperature := req.Temperature
	body := anthropicRequest{
		Model:       req.Model,
		System:      req.SystemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: req.UserPrompt}},
		MaxTokens:   req.MaxTokens,
		Temperature: &temperature,
	}

	var out anthropicResponse
	resp, err := c.httpClient.Post(ctx, "/v1/messages", body, nil, &out)
	if err != nil {
		return nil, transportError("Anthropic", err)
	}
	if !resp.IsSuccess() {
		return nil, statusError("Anthropic", resp)
	}

	result := &GenerateResponse{Model: out.Model}
	if result.Model == "" {
		result.Model = req.Model
	}
	for _, block := range out.Content {
		if block.Type == "text" {
			result.Content = block.Text
			break
		}
	}
	if out.Usage != nil {
		result.InputTokens = out.Usage.InputTokens
		result.OutputTokens = out.Usage.OutputTokens
	}
	return result, nil
}

func (c *anthropicClient) ListModels(_ context.Context) ([]string, error) {
	models := make([]string, len(anthropicModels))
	copy(models, anthropicModels)
	return models, nil
}

// TestConnection sends a one token request since there is no listing endpoint to hit.
func (c *anthropicClient) TestConnection(ctx context.Context) bool {
	_, err := c.Generate(ctx, GenerateRequest{
		UserPrompt: "ping",
		Model:      anthropicModels[len(anthropicModels)-1],
		MaxTokens:  1,
	})
	return err == nil
}
