package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/carewell-health/clinic-scheduling/internal/config"
)

func TestIsEmergency(t *testing.T) {
	assert.True(t, IsEmergency("I think I'm having a HEART ATTACK"))
	assert.True(t, IsEmergency("my father is unconscious"))
	assert.True(t, IsEmergency("severe chest pain since this morning"))
	assert.False(t, IsEmergency("can I book an appointment for next week?"))
	assert.False(t, IsEmergency("what are your opening hours"))
}

func TestReplyEmergencyShortCircuits(t *testing.T) {
	// A server that fails the test if it is ever reached.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("emergency message must not be forwarded to the model")
	}))
	defer srv.Close()

	a := NewAssistant(config.Config{ChatAPIBaseURL: srv.URL, ChatAPIKey: "test", ChatModel: "test-model"}, zap.NewNop())

	reply, err := a.Reply(context.Background(), []Message{
		{Role: "user", Content: "I can't breathe"},
	})
	require.NoError(t, err)
	assert.True(t, reply.Emergency)
	assert.Equal(t, EmergencyReply, reply.Content)
}

func TestReplyForwardsHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.NotEmpty(t, req.Messages)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "what services do you offer?", req.Messages[len(req.Messages)-1].Content)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "We offer general practice and pediatrics."}},
			},
		})
	}))
	defer srv.Close()

	a := NewAssistant(config.Config{ChatAPIBaseURL: srv.URL, ChatAPIKey: "test-key", ChatModel: "test-model"}, zap.NewNop())

	reply, err := a.Reply(context.Background(), []Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi, how can I help?"},
		{Role: "user", Content: "what services do you offer?"},
	})
	require.NoError(t, err)
	assert.False(t, reply.Emergency)
	assert.Equal(t, "We offer general practice and pediatrics.", reply.Content)
}

func TestReplyUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "rate limited"},
		})
	}))
	defer srv.Close()

	a := NewAssistant(config.Config{ChatAPIBaseURL: srv.URL, ChatAPIKey: "test", ChatModel: "test-model"}, zap.NewNop())

	_, err := a.Reply(context.Background(), []Message{{Role: "user", Content: "hello"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestReplyEmptyHistory(t *testing.T) {
	a := NewAssistant(config.Config{ChatAPIBaseURL: "http://unused", ChatModel: "m"}, zap.NewNop())
	_, err := a.Reply(context.Background(), nil)
	assert.Error(t, err)
}
