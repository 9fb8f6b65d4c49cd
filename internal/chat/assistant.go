package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/carewell-health/clinic-scheduling/internal/config"
)

const systemPrompt = `You are a helpful assistant for a healthcare center. ` +
	`Answer questions about services, opening hours, and appointment booking. ` +
	`You cannot give medical diagnoses; advise patients to book an appointment ` +
	`or contact their physician for medical concerns.`

// EmergencyReply is returned verbatim when a message trips the emergency
// screen; such messages are never forwarded to the model.
const EmergencyReply = `If this is a medical emergency, please call your local ` +
	`emergency number or go to the nearest emergency room immediately. This chat ` +
	`cannot provide emergency assistance.`

// emergencyKeywords is the triage list. Matching is a lowercase substring
// scan over the whole message.
var emergencyKeywords = []string{
	"emergency",
	"heart attack",
	"stroke",
	"can't breathe",
	"cannot breathe",
	"chest pain",
	"unconscious",
	"severe bleeding",
	"overdose",
	"suicide",
	"suicidal",
}

// IsEmergency reports whether the message mentions an emergency phrase.
func IsEmergency(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range emergencyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

type Message struct {
	Role    string `json:"role"` // user or assistant
	Content string `json:"content"`
}

type Reply struct {
	Content   string `json:"content"`
	Emergency bool   `json:"emergency"`
}

// Assistant forwards chat history to a hosted chat-completions API after the
// emergency screen.
type Assistant struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	log     *zap.Logger
}

func NewAssistant(cfg config.Config, log *zap.Logger) *Assistant {
	return &Assistant{
		baseURL: strings.TrimRight(cfg.ChatAPIBaseURL, "/"),
		apiKey:  cfg.ChatAPIKey,
		model:   cfg.ChatModel,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

type completionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Reply screens the latest message and, when safe, forwards the system prompt
// plus history to the model.
func (a *Assistant) Reply(ctx context.Context, history []Message) (*Reply, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("empty chat history")
	}

	latest := history[len(history)-1]
	if IsEmergency(latest.Content) {
		a.log.Warn("emergency phrase detected in chat message")
		return &Reply{Content: EmergencyReply, Emergency: true}, nil
	}

	messages := make([]Message, 0, len(history)+1)
	messages = append(messages, Message{Role: "system", Content: systemPrompt})
	messages = append(messages, history...)

	body, err := json.Marshal(completionRequest{
		Model:    a.model,
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call chat api: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read chat api response: %w", err)
	}

	var parsed completionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode chat api response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		detail := ""
		if parsed.Error != nil {
			detail = parsed.Error.Message
		}
		return nil, fmt.Errorf("chat api returned %d: %s", resp.StatusCode, detail)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("chat api returned no choices")
	}

	return &Reply{Content: parsed.Choices[0].Message.Content}, nil
}
