package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"prism/config"
	"prism/internal/model"
	"prism/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonHandler(t *testing.T, fn func(r *http.Request, body map[string]interface{}) (int, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{}
		if r.Body != nil && r.Method == http.MethodPost {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		}
		status, resp := fn(r, body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(resp))
	}
}

func sampleRequest() GenerateRequest {
	return GenerateRequest{
		SystemPrompt: "You are helpful.",
		UserPrompt:   "Task: write tests",
		Model:        "test-model",
		Temperature:  0.7,
		MaxTokens:    256,
	}
}

func TestOpenAIClient_Generate(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, func(r *http.Request, body map[string]interface{}) (int, string) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "test-model", body["model"])
		assert.EqualValues(t, 256, body["max_tokens"])

		messages := body["messages"].([]interface{})
		require.Len(t, messages, 2)
		assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])
		assert.Equal(t, "Task: write tests", messages[1].(map[string]interface{})["content"])

		return http.StatusOK, `{"model":"test-model-0613","choices":[{"message":{"content":"first"}},{"message":{"content":"second"}}],"usage":{"prompt_tokens":11,"completion_tokens":7}}`
	}))
	defer srv.Close()

	resp, err := newOpenAIClient(srv.URL, "sk-test", time.Second).Generate(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Content)
	assert.Equal(t, 11, resp.InputTokens)
	assert.Equal(t, 7, resp.OutputTokens)
	assert.Equal(t, "test-model-0613", resp.Model)
}

func TestOpenAIClient_MissingUsageAndChoices(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, func(r *http.Request, _ map[string]interface{}) (int, string) {
		return http.StatusOK, `{"choices":[]}`
	}))
	defer srv.Close()

	resp, err := newOpenAIClient(srv.URL, "k", time.Second).Generate(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "", resp.Content)
	assert.Zero(t, resp.InputTokens)
	assert.Zero(t, resp.OutputTokens)
	assert.Equal(t, "test-model", resp.Model)
}

func TestOpenAIClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, func(r *http.Request, _ map[string]interface{}) (int, string) {
		return http.StatusTooManyRequests, `{"error":{"message":"rate limited","type":"requests"}}`
	}))
	defer srv.Close()

	_, err := newOpenAIClient(srv.URL, "k", time.Second).Generate(context.Background(), sampleRequest())
	require.Error(t, err)

	var llmErr *Error
	require.True(t, errors.As(err, &llmErr))
	assert.Equal(t, http.StatusTooManyRequests, llmErr.StatusCode)
	assert.Equal(t, "rate limited", llmErr.Message)
	assert.Equal(t, "OpenAI API error (status 429): rate limited", err.Error())
}

func TestOpenAIClient_ListModelsAndTestConnection(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, func(r *http.Request, _ map[string]interface{}) (int, string) {
		assert.Equal(t, "/models", r.URL.Path)
		return http.StatusOK, `{"data":[{"id":"gpt-4o-mini"},{"id":"gpt-4o"}]}`
	}))
	defer srv.Close()

	client := newOpenAIClient(srv.URL, "k", time.Second)
	models, err := client.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini"}, models)
	assert.True(t, client.TestConnection(context.Background()))
}

func TestAzureOpenAIClient_UsesAPIKeyHeader(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, func(r *http.Request, _ map[string]interface{}) (int, string) {
		assert.Equal(t, "az-key", r.Header.Get("api-key"))
		assert.Empty(t, r.Header.Get("Authorization"))
		return http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`
	}))
	defer srv.Close()

	resp, err := newAzureOpenAIClient(srv.URL, "az-key", time.Second).Generate(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
}

func TestAnthropicClient_Generate(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, func(r *http.Request, body map[string]interface{}) (int, string) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "ant-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		assert.Equal(t, "You are helpful.", body["system"])

		messages := body["messages"].([]interface{})
		require.Len(t, messages, 1)
		assert.Equal(t, "user", messages[0].(map[string]interface{})["role"])

		return http.StatusOK, `{"content":[{"type":"tool_use"},{"type":"text","text":"answer"},{"type":"text","text":"ignored"}],"usage":{"input_tokens":3,"output_tokens":4}}`
	}))
	defer srv.Close()

	resp, err := newAnthropicClient(srv.URL, "ant-key", time.Second).Generate(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "answer", resp.Content)
	assert.Equal(t, 3, resp.InputTokens)
	assert.Equal(t, 4, resp.OutputTokens)
}

func TestAnthropicClient_NoTextBlock(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, func(r *http.Request, _ map[string]interface{}) (int, string) {
		return http.StatusOK, `{"content":[]}`
	}))
	defer srv.Close()

	resp, err := newAnthropicClient(srv.URL, "k", time.Second).Generate(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "", resp.Content)
	assert.Zero(t, resp.InputTokens)
}

func TestAnthropicClient_ModelsAndConnectionCheck(t *testing.T) {
	checks := 0
	srv := httptest.NewServer(jsonHandler(t, func(r *http.Request, body map[string]interface{}) (int, string) {
		checks++
		assert.EqualValues(t, 1, body["max_tokens"])
		return http.StatusUnauthorized, `{"error":{"type":"authentication_error","message":"invalid x-api-key"}}`
	}))
	defer srv.Close()

	client := newAnthropicClient(srv.URL, "bad", time.Second)
	models, err := client.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, anthropicModels, models)

	assert.False(t, client.TestConnection(context.Background()))
	assert.Equal(t, 1, checks)
}

func TestOllamaClient_GenerateAndTags(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, func(r *http.Request, body map[string]interface{}) (int, string) {
		switch r.URL.Path {
		case "/api/chat":
			assert.Equal(t, false, body["stream"])
			options := body["options"].(map[string]interface{})
			assert.EqualValues(t, 256, options["num_predict"])
			return http.StatusOK, `{"model":"llama3","message":{"role":"assistant","content":"local"},"prompt_eval_count":5,"eval_count":9}`
		case "/api/tags":
			return http.StatusOK, `{"models":[{"name":"llama3:latest"},{"name":"mistral:7b"}]}`
		}
		return http.StatusNotFound, `{"error":"not found"}`
	}))
	defer srv.Close()

	client := newOllamaClient(srv.URL, "", time.Second)

	resp, err := client.Generate(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "local", resp.Content)
	assert.Equal(t, 5, resp.InputTokens)
	assert.Equal(t, 9, resp.OutputTokens)

	models, err := client.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3:latest", "mistral:7b"}, models)
	assert.True(t, client.TestConnection(context.Background()))
}

func TestOllamaClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := newOllamaClient(url, "", time.Second)
	_, err := client.Generate(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "Ollama request failed"))
	assert.False(t, client.TestConnection(context.Background()))
}

func TestGeminiClient_Generate(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, func(r *http.Request, body map[string]interface{}) (int, string) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "test-model:generateContent"), r.URL.Path)
		_, hasSystem := body["systemInstruction"]
		assert.True(t, hasSystem)
		return http.StatusOK, `{"candidates":[{"content":{"role":"model","parts":[{"text":"gemini says hi"}]}}],"usageMetadata":{"promptTokenCount":12,"candidatesTokenCount":4}}`
	}))
	defer srv.Close()

	client, err := newGeminiClient(context.Background(), srv.URL, "g-key", nil)
	require.NoError(t, err)

	resp, err := client.Generate(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "gemini says hi", resp.Content)
	assert.Equal(t, 12, resp.InputTokens)
	assert.Equal(t, 4, resp.OutputTokens)
}

func TestFactory_Create(t *testing.T) {
	f := NewFactory(config.Provider{HTTPTimeout: time.Second, RequestsPerMinute: 600}, logger.NewNop())

	tests := []struct {
		name     string
		creds    Credentials
		wantType interface{}
		wantErr  bool
	}{
		{name: "openai", creds: Credentials{ProviderID: 1, Type: model.ProviderTypeOpenAI, APIKey: "k"}, wantType: &openAIClient{}},
		{name: "azure with base url", creds: Credentials{ProviderID: 2, Type: model.ProviderTypeAzureOpenAI, APIKey: "k", BaseURL: "https://x.openai.azure.com/openai/deployments/d"}, wantType: &openAIClient{}},
		{name: "azure without base url", creds: Credentials{ProviderID: 3, Type: model.ProviderTypeAzureOpenAI, APIKey: "k"}, wantErr: true},
		{name: "anthropic", creds: Credentials{ProviderID: 4, Type: model.ProviderTypeAnthropic, APIKey: "k"}, wantType: &anthropicClient{}},
		{name: "ollama", creds: Credentials{ProviderID: 5, Type: model.ProviderTypeOllama}, wantType: &ollamaClient{}},
		{name: "unknown", creds: Credentials{ProviderID: 6, Type: "MYSTERY"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := f.Create(context.Background(), tt.creds)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			wrapped, ok := p.(*throttled)
			require.True(t, ok)
			assert.IsType(t, tt.wantType, wrapped.Provider)
		})
	}
}

func TestThrottled_RespectsContext(t *testing.T) {
	f := NewFactory(config.Provider{HTTPTimeout: time.Second, RequestsPerMinute: 1}, logger.NewNop()).(*factory)
	srv := httptest.NewServer(jsonHandler(t, func(r *http.Request, _ map[string]interface{}) (int, string) {
		return http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`
	}))
	defer srv.Close()

	p, err := f.Create(context.Background(), Credentials{ProviderID: 9, Type: model.ProviderTypeOpenAI, BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), sampleRequest())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = p.Generate(ctx, sampleRequest())
	assert.Error(t, err)

	f.Forget(9)
	assert.Equal(t, 0, f.limiters.Len())
}

func TestVendorMessage(t *testing.T) {
	assert.Equal(t, "nested", vendorMessage([]byte(`{"error":{"message":"nested"}}`)))
	assert.Equal(t, "flat", vendorMessage([]byte(`{"error":"flat"}`)))
	assert.Equal(t, "top", vendorMessage([]byte(`{"message":"top"}`)))
	assert.Equal(t, "plain text", vendorMessage([]byte("plain text")))
	assert.Equal(t, "empty response body", vendorMessage(nil))
}
