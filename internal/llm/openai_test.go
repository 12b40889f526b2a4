package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeOpenAI(t *testing.T, status int, body string) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	c, err := NewOpenAIClient("sk-test", "",
		option.WithBaseURL(srv.URL+"/"),
		option.WithMaxRetries(0),
	)
	require.NoError(t, err)
	return c
}

func TestOpenAIClientSummarize(t *testing.T) {
	c := newFakeOpenAI(t, http.StatusOK, `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"created": 0,
		"model": "gpt-4o-mini",
		"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "  A concise summary.  "}}]
	}`)

	out, err := c.Summarize(context.Background(), "long paper")
	require.NoError(t, err)
	assert.Equal(t, "A concise summary.", out)
	assert.Equal(t, ProviderOpenAI, c.Name())
	assert.Equal(t, "gpt-4o-mini", c.Model())
}

func TestOpenAIClientNoChoices(t *testing.T) {
	c := newFakeOpenAI(t, http.StatusOK, `{"id":"x","object":"chat.completion","created":0,"model":"gpt-4o-mini","choices":[]}`)

	_, err := c.Summarize(context.Background(), "text")
	assert.EqualError(t, err, "openai: no choices returned")
}

func TestOpenAIClientErrorKeepsMessage(t *testing.T) {
	c := newFakeOpenAI(t, http.StatusUnauthorized, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`)

	_, err := c.Summarize(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect API key provided")
}
