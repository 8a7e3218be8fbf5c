package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"session_control_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCallsChatCompletions(t *testing.T) {
	var got ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k1", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  resumo  "}}]}`))
	}))
	defer srv.Close()

	ai := NewAIService(config.AIConfig{BaseURL: srv.URL + "/", APIKey: "k1", Model: "m1", Temperature: 0.2, Timeout: time.Second})
	text, err := ai.Generate(context.Background(), "olá")
	require.NoError(t, err)

	assert.Equal(t, "resumo", text)
	assert.Equal(t, "m1", got.Model)
	assert.InDelta(t, 0.2, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "olá", got.Messages[1].Content)
}

func TestGenerateErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	ai := NewAIService(config.AIConfig{BaseURL: srv.URL})
	_, err := ai.Generate(context.Background(), "x")
	assert.ErrorIs(t, err, ErrGeneratorDisabled)

	ai.UpdateConfig(config.AIConfig{BaseURL: srv.URL, APIKey: "k"})
	_, err = ai.Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestGenerateNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	ai := NewAIService(config.AIConfig{BaseURL: srv.URL, APIKey: "k"})
	_, err := ai.Generate(context.Background(), "x")
	assert.Error(t, err)
}
