// Package llm normalises vendor chat APIs behind one Provider interface.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"prism/pkg/httpclient"
)

type GenerateRequest struct {
	SystemPrompt string
	UserPrompt   string
	Model        string
	Temperature  float64
	MaxTokens    int
}

type GenerateResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
}

// Provider is implemented once per vendor. Missing usage counts are reported as zero,
// only the first completion is read, and an absent text block yields empty content.
type Provider interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	ListModels(ctx context.Context) ([]string, error)
	// TestConnection never fails; any error means false.
	TestConnection(ctx context.Context) bool
}

// Error is the uniform failure returned by every vendor client.
type Error struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode > 0:
		return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
	default:
		return fmt.Sprintf("%s request failed: %s", e.Provider, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func transportError(provider string, err error) error {
	return &Error{Provider: provider, Err: err}
}

// statusError builds an Error from a non 2xx response, pulling the vendor message when present.
func statusError(provider string, resp *httpclient.BaseResponse) error {
	return &Error{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Message:    vendorMessage(resp.Body),
	}
}

// vendorMessage understands {"error":{"message":...}}, {"error":"..."} and {"message":...}.
func vendorMessage(body []byte) string {
	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if len(payload.Error) > 0 {
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(payload.Error, &nested) == nil && nested.Message != "" {
				return nested.Message
			}
			var flat string
			if json.Unmarshal(payload.Error, &flat) == nil && flat != "" {
				return flat
			}
		}
		if payload.Message != "" {
			return payload.Message
		}
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		msg = "empty response body"
	}
	return msg
}
