package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/entrhq/synapse/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tiny", req.Model)
		assert.False(t, req.Stream)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)
		assert.Equal(t, 0.3, req.Options["temperature"])

		json.NewEncoder(w).Encode(chatResponse{Message: chatMessage{Role: "assistant", Content: " hi there \n"}})
	}))
	defer srv.Close()

	p := NewProvider(srv.URL, WithModel("tiny"), WithTemperature(0.3))
	out, err := p.Invoke(context.Background(), "sys", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi there", out)
}

func TestInvoke_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model not loaded", http.StatusInternalServerError)
			},
			want: llm.ErrProviderUnavailable,
		},
		{
			name: "error body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(chatResponse{Error: "model 'x' not found"})
			},
			want: llm.ErrProviderUnavailable,
		},
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			want: llm.ErrRateLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewProvider(srv.URL).Invoke(context.Background(), "", "hello")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewProvider_Endpoint(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "")
	assert.Equal(t, DefaultEndpoint, NewProvider("").Endpoint())

	t.Setenv("OLLAMA_HOST", "10.0.0.5:11434")
	p := NewProvider("")
	assert.Equal(t, "http://10.0.0.5:11434", p.Endpoint())
	assert.Equal(t, DefaultModel, p.Model())
}
