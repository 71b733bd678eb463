package agent

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"github.com/sonara-labs/dialtone/src/logger"
)

// GeminiBrainConfig holds configuration for the Gemini brain.
type GeminiBrainConfig struct {
	APIKey       string
	Model        string // default "gemini-2.0-flash"
	SystemPrompt string
	Temperature  float32 // default 0.7
	MaxTokens    int32   // default 150
}

// GeminiBrain drives the conversation through the Gemini API.
type GeminiBrain struct {
	client      *genai.Client
	model       string
	system      string
	temperature float32
	maxTokens   int32
	log         *logger.Logger

	mu      sync.Mutex
	history []*genai.Content
}

// NewGeminiBrain creates a brain backed by the Gemini API.
func NewGeminiBrain(ctx context.Context, config GeminiBrainConfig) (*GeminiBrain, error) {
	if config.Model == "" {
		config.Model = "gemini-2.0-flash"
	}
	if config.Temperature == 0 {
		config.Temperature = 0.7
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 150
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiBrain{
		client:      client,
		model:       config.Model,
		system:      config.SystemPrompt,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
		log:         logger.WithPrefix("GeminiBrain"),
	}, nil
}

// Respond adds the user turn to history and returns the parsed reply.
func (b *GeminiBrain) Respond(ctx context.Context, userText string) (Turn, error) {
	b.mu.Lock()
	b.history = append(b.history, genai.NewContentFromText(userText, genai.RoleUser))
	contents := make([]*genai.Content, len(b.history))
	copy(contents, b.history)
	b.mu.Unlock()

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(b.temperature),
		MaxOutputTokens: b.maxTokens,
	}
	if b.system != "" {
		config.SystemInstruction = genai.NewContentFromText(b.system, genai.RoleUser)
	}

	resp, err := b.client.Models.GenerateContent(ctx, b.model, contents, config)
	if err != nil {
		return Turn{}, fmt.Errorf("gemini generate: %w", err)
	}
	raw := resp.Text()

	b.mu.Lock()
	b.history = append(b.history, genai.NewContentFromText(raw, genai.RoleModel))
	b.mu.Unlock()

	turn := ParseTurn(raw)
	b.log.Debug("Turn action=%s text=%q", turn.Action, turn.Text)
	return turn, nil
}
