package service

import (
	"context"

	"prism/internal/apperror"
	"prism/internal/llm"
	"prism/pkg/logger"
)

// AIService runs one generation against a user's provider.
type AIService interface {
	Generate(ctx context.Context, userID string, providerID uint, req llm.GenerateRequest) (*llm.GenerateResponse, error)
}

type aiService struct {
	log             *logger.Logger
	providerService ProviderService
	factory         llm.Factory
}

func NewAIService(log *logger.Logger, providerService ProviderService, factory llm.Factory) AIService {
	return &aiService{
		log:             log,
		providerService: providerService,
		factory:         factory,
	}
}

func (s *aiService) Generate(ctx context.Context, userID string, providerID uint, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	cred, err := s.providerService.GetProviderWithAPIKey(ctx, userID, providerID)
	if err != nil {
		return nil, err
	}
	if !cred.Provider.IsActive {
		return nil, apperror.ProviderConnectionFailed("provider is inactive")
	}

	client, err := s.factory.Create(ctx, llm.Credentials{
		ProviderID: cred.Provider.ID,
		Type:       cred.Provider.Type,
		APIKey:     cred.APIKey,
		BaseURL:    cred.Provider.ResolvedBaseURL(),
	})
	if err != nil {
		return nil, apperror.ProviderConnectionFailed(err.Error())
	}

	resp, err := client.Generate(ctx, req)
	if err != nil {
		s.log.WarnContext(ctx, "Generation failed",
			logger.ErrorField(err),
			logger.UintField("provider_id", providerID),
			logger.StringField("model", req.Model),
		)
		return nil, apperror.AiExecutionFailed(err)
	}

	s.log.DebugContext(ctx, "Generation completed",
		logger.UintField("provider_id", providerID),
		logger.StringField("model", resp.Model),
		logger.IntField("input_tokens", resp.InputTokens),
		logger.IntField("output_tokens", resp.OutputTokens),
	)
	return resp, nil
}
