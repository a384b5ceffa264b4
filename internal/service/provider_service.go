package service

import (
	"context"
	"fmt"

	"prism/config"
	"prism/internal/apperror"
	"prism/internal/dto"
	"prism/internal/llm"
	"prism/internal/model"
	"prism/internal/repository"
	"prism/internal/vault"
	"prism/pkg/cache"
	"prism/pkg/logger"
	"prism/pkg/utils"

	"gorm.io/datatypes"
)

// ProviderCredential is a provider together with its decrypted key.
// It never leaves the process.
type ProviderCredential struct {
	Provider *model.Provider
	APIKey   string
}

type ProviderService interface {
	Create(ctx context.Context, userID string, req dto.CreateProviderRequest) (*dto.ProviderResponse, error)
	FindAll(ctx context.Context, userID string) ([]dto.ProviderResponse, error)
	FindOne(ctx context.Context, userID string, id uint) (*dto.ProviderResponse, error)
	Update(ctx context.Context, userID string, id uint, req dto.UpdateProviderRequest) (*dto.ProviderResponse, error)
	Remove(ctx context.Context, userID string, id uint) error
	Verify(ctx context.Context, userID string, id uint) (*dto.VerifyProviderResponse, error)
	GetModels(ctx context.Context, userID string, id uint) ([]string, error)
	GetProviderWithAPIKey(ctx context.Context, userID string, id uint) (*ProviderCredential, error)
}

type providerService struct {
	cfg          *config.Config
	log          *logger.Logger
	providerRepo repository.ProviderRepository
	vault        vault.Vault
	factory      llm.Factory
	cache        cache.Cache
}

func NewProviderService(
	cfg *config.Config,
	log *logger.Logger,
	providerRepo repository.ProviderRepository,
	credentialVault vault.Vault,
	factory llm.Factory,
	inmemoryCache cache.Cache,
) ProviderService {
	return &providerService{
		cfg:          cfg,
		log:          log,
		providerRepo: providerRepo,
		vault:        credentialVault,
		factory:      factory,
		cache:        inmemoryCache,
	}
}

func modelsCacheKey(providerID uint) string {
	return fmt.Sprintf("provider:%d:models", providerID)
}

func (s *providerService) Create(ctx context.Context, userID string, req dto.CreateProviderRequest) (*dto.ProviderResponse, error) {
	existing, err := s.providerRepo.FindByName(ctx, userID, req.Name)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to find provider by name", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to find provider by name: %w", err)
	}
	if existing != nil {
		return nil, apperror.DuplicateResource("Provider", "name", req.Name)
	}

	baseURL := utils.Deref(req.BaseURL)
	if baseURL == "" {
		baseURL = req.ProviderType.DefaultBaseURL()
	}
	if req.ProviderType == model.ProviderTypeAzureOpenAI && baseURL == "" {
		return nil, apperror.Validation("baseUrl is required for AZURE_OPENAI providers")
	}

	encrypted, err := s.vault.Encrypt(req.APIKey)
	if err != nil {
		return nil, err
	}

	provider := &model.Provider{
		UserID:          userID,
		Name:            req.Name,
		Type:            req.ProviderType,
		APIKeyEncrypted: encrypted,
		BaseURL:         dto.ToNullString(&baseURL),
		IsActive:        true,
	}
	if err := s.providerRepo.Create(ctx, provider); err != nil {
		s.log.ErrorContext(ctx, "Failed to create provider", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	s.log.InfoContext(ctx, "Provider created",
		logger.UintField("provider_id", provider.ID),
		logger.StringField("provider_type", string(provider.Type)),
	)
	return s.toResponse(provider)
}

func (s *providerService) FindAll(ctx context.Context, userID string) ([]dto.ProviderResponse, error) {
	providers, err := s.providerRepo.FindAllByUser(ctx, userID)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to find providers", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to find providers: %w", err)
	}

	result := make([]dto.ProviderResponse, 0, len(providers))
	for i := range providers {
		resp, err := s.toResponse(&providers[i])
		if err != nil {
			return nil, err
		}
		result = append(result, *resp)
	}
	return result, nil
}

func (s *providerService) FindOne(ctx context.Context, userID string, id uint) (*dto.ProviderResponse, error) {
	provider, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(provider)
}

func (s *providerService) Update(ctx context.Context, userID string, id uint, req dto.UpdateProviderRequest) (*dto.ProviderResponse, error) {
	provider, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != provider.Name {
		existing, err := s.providerRepo.FindByName(ctx, userID, *req.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to find provider by name: %w", err)
		}
		if existing != nil && existing.ID != id {
			return nil, apperror.DuplicateResource("Provider", "name", *req.Name)
		}
		provider.Name = *req.Name
	}

	credentialsChanged := false
	if req.APIKey != nil {
		encrypted, err := s.vault.Encrypt(*req.APIKey)
		if err != nil {
			return nil, err
		}
		provider.APIKeyEncrypted = encrypted
		credentialsChanged = true
	}
	if req.BaseURL != nil {
		provider.BaseURL = dto.ToNullString(req.BaseURL)
		credentialsChanged = true
	}
	if req.IsActive != nil {
		provider.IsActive = *req.IsActive
	}

	if credentialsChanged {
		provider.Models = datatypes.NewJSONSlice([]string{})
		s.cache.Delete(modelsCacheKey(provider.ID))
	}

	if err := s.providerRepo.Update(ctx, provider); err != nil {
		s.log.ErrorContext(ctx, "Failed to update provider", logger.ErrorField(err), logger.UintField("provider_id", id))
		return nil, fmt.Errorf("failed to update provider: %w", err)
	}
	return s.toResponse(provider)
}

func (s *providerService) Remove(ctx context.Context, userID string, id uint) error {
	provider, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.providerRepo.Delete(ctx, provider.ID); err != nil {
		s.log.ErrorContext(ctx, "Failed to delete provider", logger.ErrorField(err), logger.UintField("provider_id", id))
		return fmt.Errorf("failed to delete provider: %w", err)
	}
	s.cache.Delete(modelsCacheKey(provider.ID))
	s.factory.Forget(provider.ID)
	return nil
}

// Verify performs a live model listing and stores the result on success.
func (s *providerService) Verify(ctx context.Context, userID string, id uint) (*dto.VerifyProviderResponse, error) {
	cred, err := s.GetProviderWithAPIKey(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	models, err := s.fetchModels(ctx, cred)
	if err != nil {
		s.log.WarnContext(ctx, "Provider verification failed", logger.ErrorField(err), logger.UintField("provider_id", id))
		return nil, apperror.ProviderConnectionFailed(err.Error())
	}

	if err := s.storeModels(ctx, cred.Provider.ID, models); err != nil {
		return nil, err
	}

	return &dto.VerifyProviderResponse{
		Success: true,
		Message: "Connection successful",
		Models:  models,
	}, nil
}

// GetModels reads the memory cache, then the persisted list, then the vendor.
func (s *providerService) GetModels(ctx context.Context, userID string, id uint) ([]string, error) {
	provider, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if models, ok := cache.GetFromCache[[]string](s.cache, modelsCacheKey(provider.ID)); ok {
		return models, nil
	}

	if len(provider.Models) > 0 {
		models := []string(provider.Models)
		s.cache.Set(modelsCacheKey(provider.ID), models, s.cfg.Provider.ModelsCacheTTL)
		return models, nil
	}

	apiKey, err := s.vault.Decrypt(provider.APIKeyEncrypted)
	if err != nil {
		return nil, err
	}
	models, err := s.fetchModels(ctx, &ProviderCredential{Provider: provider, APIKey: apiKey})
	if err != nil {
		return nil, apperror.ProviderConnectionFailed(err.Error())
	}
	if err := s.storeModels(ctx, provider.ID, models); err != nil {
		return nil, err
	}
	return models, nil
}

func (s *providerService) GetProviderWithAPIKey(ctx context.Context, userID string, id uint) (*ProviderCredential, error) {
	provider, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	apiKey, err := s.vault.Decrypt(provider.APIKeyEncrypted)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to decrypt provider key", logger.ErrorField(err), logger.UintField("provider_id", id))
		return nil, err
	}
	return &ProviderCredential{Provider: provider, APIKey: apiKey}, nil
}

func (s *providerService) fetchModels(ctx context.Context, cred *ProviderCredential) ([]string, error) {
	client, err := s.factory.Create(ctx, llm.Credentials{
		ProviderID: cred.Provider.ID,
		Type:       cred.Provider.Type,
		APIKey:     cred.APIKey,
		BaseURL:    cred.Provider.ResolvedBaseURL(),
	})
	if err != nil {
		return nil, err
	}
	return client.ListModels(ctx)
}

func (s *providerService) storeModels(ctx context.Context, providerID uint, models []string) error {
	if err := s.providerRepo.UpdateModels(ctx, providerID, models); err != nil {
		s.log.ErrorContext(ctx, "Failed to store provider models", logger.ErrorField(err), logger.UintField("provider_id", providerID))
		return fmt.Errorf("failed to store provider models: %w", err)
	}
	s.cache.Set(modelsCacheKey(providerID), models, s.cfg.Provider.ModelsCacheTTL)
	return nil
}

func (s *providerService) findOwned(ctx context.Context, userID string, id uint) (*model.Provider, error) {
	provider, err := s.providerRepo.FindByID(ctx, id, userID)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to find provider", logger.ErrorField(err), logger.UintField("provider_id", id))
		return nil, fmt.Errorf("failed to find provider: %w", err)
	}
	if provider == nil {
		return nil, apperror.NotFound("Provider", id)
	}
	return provider, nil
}

func (s *providerService) toResponse(provider *model.Provider) (*dto.ProviderResponse, error) {
	apiKey, err := s.vault.Decrypt(provider.APIKeyEncrypted)
	if err != nil {
		return nil, err
	}
	resp := dto.NewProviderResponse(provider, s.vault.MaskAPIKey(apiKey))
	return &resp, nil
}
