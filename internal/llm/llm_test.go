package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	local := &MockClient{ProviderName: ProviderLocal}
	gemini := &MockClient{ProviderName: ProviderGemini}

	reg, err := NewRegistry(ProviderGemini, local, gemini)
	require.NoError(t, err)

	c, err := reg.Get("")
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, c.Name())

	c, err = reg.Get(ProviderLocal)
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, c.Name())

	_, err = reg.Get(ProviderOpenAI)
	assert.ErrorIs(t, err, ErrProviderUnavailable)

	assert.Equal(t, []string{ProviderGemini, ProviderLocal}, reg.Names())
	assert.Equal(t, ProviderGemini, reg.Default())
}

func TestRegistryRequiresDefault(t *testing.T) {
	_, err := NewRegistry(ProviderOpenAI, &MockClient{ProviderName: ProviderLocal})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestLocalClientSummarize(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr string
	}{
		{name: "summary field", status: http.StatusOK, body: `{"summary":"short"}`, want: "short"},
		{name: "text fallback", status: http.StatusOK, body: `{"text":"alt"}`, want: "alt"},
		{name: "neither field", status: http.StatusOK, body: `{}`, want: ""},
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantErr: "status 500: boom"},
		{name: "bad json", status: http.StatusOK, body: "not json", wantErr: "decode local response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotText string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				var req localRequest
				_ = json.NewDecoder(r.Body).Decode(&req)
				gotText = req.Text
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := NewLocalClient(srv.URL, srv.Client())
			require.NoError(t, err)

			out, err := c.Summarize(context.Background(), "paper body")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
			assert.Equal(t, "paper body", gotText)
		})
	}
}

func TestLocalClientRequiresEndpoint(t *testing.T) {
	_, err := NewLocalClient("", nil)
	assert.Error(t, err)
}

func TestLocalClientTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewLocalClient(url, nil)
	require.NoError(t, err)
	_, err = c.Summarize(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "local summarizer request"))
}

func TestConstructorsRequireKey(t *testing.T) {
	_, err := NewOpenAIClient("", "")
	assert.Error(t, err)
	_, err = NewGeminiClient(context.Background(), "", "")
	assert.Error(t, err)
}

func TestBuildPromptWrapsText(t *testing.T) {
	p := buildPrompt("body")
	assert.True(t, strings.HasPrefix(p, summaryInstruction))
	assert.Contains(t, p, "---\nbody\n---")
}

func TestMockClientDefaults(t *testing.T) {
	m := &MockClient{}
	m.On("Summarize", context.Background(), "x").Return("", errors.New("quota")).Once()
	_, err := m.Summarize(context.Background(), "x")
	assert.EqualError(t, err, "quota")
	assert.Equal(t, "mock", m.Name())
	m.AssertExpectations(t)
}
