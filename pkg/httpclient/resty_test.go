package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestyClient_PostSendsHeadersAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "v1", r.Header.Get("X-Version"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hi", body["msg"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"reply":"hello"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, WithBearerToken("secret"), WithHeader("X-Version", "v1"))

	var out struct {
		Reply string `json:"reply"`
	}
	resp, err := client.Post(context.Background(), "/chat", map[string]string{"msg": "hi"}, nil, &out)
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
	assert.Equal(t, "hello", out.Reply)
}

func TestRestyClient_GetNonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "x", r.URL.Query().Get("q"))
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer srv.Close()

	resp, err := New(srv.URL, time.Second).Get(context.Background(), "/models", map[string]string{"q": "x"}, nil, nil)
	require.NoError(t, err)
	assert.False(t, resp.IsSuccess())
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "bad key")
}

func TestRestyClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	resp, err := New(url, time.Second).Get(context.Background(), "/", nil, nil, nil)
	assert.Error(t, err)
	assert.NotNil(t, resp)
}
