package llm

import (
	"context"
	"fmt"
	"strings"

	"prism/pkg/ratelimit"

	"google.golang.org/genai"
)

// geminiClient uses the Google GenAI SDK. Prompts are counted first and charged
// against the shared token budget before the request goes out.
type geminiClient struct {
	client       *genai.Client
	tokenLimiter *ratelimit.TokenLimiter
}

func newGeminiClient(ctx context.Context, baseURL, apiKey string, tokenLimiter *ratelimit.TokenLimiter) (*geminiClient, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &geminiClient{client: client, tokenLimiter: tokenLimiter}, nil
}

func (c *geminiClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(req.UserPrompt, genai.RoleUser),
	}

	if c.tokenLimiter != nil {
		count, err := c.client.Models.CountTokens(ctx, req.Model, contents, nil)
		if err != nil {
			return nil, transportError("Gemini", fmt.Errorf("count tokens: %w", err))
		}
		if err := c.tokenLimiter.Wait(ctx, int(count.TotalTokens)); err != nil {
			return nil, transportError("Gemini", fmt.Errorf("wait for token budget: %w", err))
		}
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return nil, transportError("Gemini", err)
	}

	result := &GenerateResponse{Model: req.Model}
	if resp.ModelVersion != "" {
		result.Model = resp.ModelVersion
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part != nil && part.Text != "" {
				result.Content = part.Text
				break
			}
		}
	}
	if resp.UsageMetadata != nil {
		result.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return result, nil
}

func (c *geminiClient) ListModels(ctx context.Context) ([]string, error) {
	page, err := c.client.Models.List(ctx, &genai.ListModelsConfig{PageSize: 100})
	if err != nil {
		return nil, transportError("Gemini", err)
	}

	models := make([]string, 0, len(page.Items))
	for _, m := range page.Items {
		if m == nil {
			continue
		}
		models = append(models, strings.TrimPrefix(m.Name, "models/"))
	}
	return models, nil
}

func (c *geminiClient) TestConnection(ctx context.Context) bool {
	_, err := c.ListModels(ctx)
	return err == nil
}
