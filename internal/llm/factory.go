package llm

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"prism/config"
	"prism/internal/model"
	"prism/pkg/logger"
	"prism/pkg/ratelimit"
)

// Credentials is what the factory needs to build a client.
type Credentials struct {
	ProviderID uint
	Type       model.ProviderType
	APIKey     string
	BaseURL    string
}

type Factory interface {
	Create(ctx context.Context, creds Credentials) (Provider, error)
	Forget(providerID uint)
}

type factory struct {
	log          *logger.Logger
	timeout      time.Duration
	limiters     *ratelimit.LimiterStore
	tokenLimiter *ratelimit.TokenLimiter
}

func NewFactory(cfg config.Provider, log *logger.Logger) Factory {
	var tokenLimiter *ratelimit.TokenLimiter
	if cfg.GeminiTokensPerMinute > 0 {
		tokenLimiter = ratelimit.NewTokenLimiter(cfg.GeminiTokensPerMinute)
	}
	return &factory{
		log:          log,
		timeout:      cfg.HTTPTimeout,
		limiters:     ratelimit.PerMinute(cfg.RequestsPerMinute),
		tokenLimiter: tokenLimiter,
	}
}

// Create picks the client for creds.Type. An empty BaseURL falls back to the type
// default; Azure has none and must be configured.
func (f *factory) Create(ctx context.Context, creds Credentials) (Provider, error) {
	baseURL := creds.BaseURL
	if baseURL == "" {
		baseURL = creds.Type.DefaultBaseURL()
	}

	var (
		p   Provider
		err error
	)
	switch creds.Type {
	case model.ProviderTypeOpenAI:
		p = newOpenAIClient(baseURL, creds.APIKey, f.timeout)
	case model.ProviderTypeAzureOpenAI:
		if baseURL == "" {
			return nil, fmt.Errorf("azure openai provider requires a base url")
		}
		p = newAzureOpenAIClient(baseURL, creds.APIKey, f.timeout)
	case model.ProviderTypeAnthropic:
		p = newAnthropicClient(baseURL, creds.APIKey, f.timeout)
	case model.ProviderTypeOllama:
		p = newOllamaClient(baseURL, creds.APIKey, f.timeout)
	case model.ProviderTypeGemini:
		p, err = newGeminiClient(ctx, baseURL, creds.APIKey, f.tokenLimiter)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", creds.Type)
	}

	return &throttled{
		Provider: p,
		key:      strconv.FormatUint(uint64(creds.ProviderID), 10),
		limiters: f.limiters,
	}, nil
}

func (f *factory) Forget(providerID uint) {
	f.limiters.Forget(strconv.FormatUint(uint64(providerID), 10))
}

// throttled applies the per-provider request budget to Generate.
type throttled struct {
	Provider
	key      string
	limiters *ratelimit.LimiterStore
}

func (t *throttled) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if err := t.limiters.GetLimiter(t.key).Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for provider rate limit: %w", err)
	}
	return t.Provider.Generate(ctx, req)
}
