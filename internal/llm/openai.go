package llm

import (
	"context"
	"sort"
	"time"

	"prism/pkg/httpclient"
)

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type openAIModelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// openAIClient speaks the OpenAI chat completions API. The Azure variant reuses it
// with its own base URL and the api-key header.
type openAIClient struct {
	name       string
	httpClient httpclient.HTTPClient
}

func newOpenAIClient(baseURL, apiKey string, timeout time.Duration) *openAIClient {
	return &openAIClient{
		name:       "OpenAI",
		httpClient: httpclient.New(baseURL, timeout, httpclient.WithBearerToken(apiKey)),
	}
}

func newAzureOpenAIClient(baseURL, apiKey string, timeout time.Duration) *openAIClient {
	return &openAIClient{
		name:       "Azure OpenAI",
		httpClient: httpclient.New(baseURL, timeout, httpclient.WithHeader("api-key", apiKey)),
	}
}

func (c *openAIClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	messages := make([]openAIMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: req.UserPrompt})

	var out openAIChatResponse
	resp, err := c.httpClient.Post(ctx, "/chat/completions", openAIChatRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}, nil, &out)
	if err != nil {
		return nil, transportError(c.name, err)
	}
	if !resp.IsSuccess() {
		return nil, statusError(c.name, resp)
	}

	result := &GenerateResponse{Model: out.Model}
	if result.Model == "" {
		result.Model = req.Model
	}
	if len(out.Choices) > 0 {
		result.Content = out.Choices[0].Message.Content
	}
	if out.Usage != nil {
		result.InputTokens = out.Usage.PromptTokens
		result.OutputTokens = out.Usage.CompletionTokens
	}
	return result, nil
}

func (c *openAIClient) ListModels(ctx context.Context) ([]string, error) {
	var out openAIModelsResponse
	resp, err := c.httpClient.Get(ctx, "/models", nil, nil, &out)
	if err != nil {
		return nil, transportError(c.name, err)
	}
	if !resp.IsSuccess() {
		return nil, statusError(c.name, resp)
	}

	models := make([]string, 0, len(out.Data))
	for _, m := range out.Data {
		models = append(models, m.ID)
	}
	sort.Strings(models)
	return models, nil
}

func (c *openAIClient) TestConnection(ctx context.Context) bool {
	_, err := c.ListModels(ctx)
	return err == nil
}
