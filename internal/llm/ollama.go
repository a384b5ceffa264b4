package llm

import (
	"context"
	"time"

	"prism/pkg/httpclient"
)

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Model   string `json:"model"`
	Message *struct {
		Content string `json:"content"`
	} `json:"message"`
	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ollamaClient talks to a self-hosted Ollama daemon; it usually needs no key.
type ollamaClient struct {
	httpClient httpclient.HTTPClient
}

func newOllamaClient(baseURL, apiKey string, timeout time.Duration) *ollamaClient {
	return &ollamaClient{
		httpClient: httpclient.New(baseURL, timeout, httpclient.WithBearerToken(apiKey)),
	}
}

func (c *ollamaClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	messages := make([]openAIMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: req.UserPrompt})

	var out ollamaChatResponse
	resp, err := c.httpClient.Post(ctx, "/api/chat", ollamaChatRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   false,
		Options: ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	}, nil, &out)
	if err != nil {
		return nil, transportError("Ollama", err)
	}
	if !resp.IsSuccess() {
		return nil, statusError("Ollama", resp)
	}

	result := &GenerateResponse{
		Model:        out.Model,
		InputTokens:  out.PromptEvalCount,
		OutputTokens: out.EvalCount,
	}
	if result.Model == "" {
		result.Model = req.Model
	}
	if out.Message != nil {
		result.Content = out.Message.Content
	}
	return result, nil
}

func (c *ollamaClient) ListModels(ctx context.Context) ([]string, error) {
	var out ollamaTagsResponse
	resp, err := c.httpClient.Get(ctx, "/api/tags", nil, nil, &out)
	if err != nil {
		return nil, transportError("Ollama", err)
	}
	if !resp.IsSuccess() {
		return nil, statusError("Ollama", resp)
	}

	models := make([]string, 0, len(out.Models))
	for _, m := range out.Models {
		models = append(models, m.Name)
	}
	return models, nil
}

func (c *ollamaClient) TestConnection(ctx context.Context) bool {
	_, err := c.ListModels(ctx)
	return err == nil
}
