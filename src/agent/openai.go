package agent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sonara-labs/dialtone/src/logger"
)

// OpenAIBrainConfig holds configuration for the OpenAI chat brain.
type OpenAIBrainConfig struct {
	APIKey       string
	Model        string // default "gpt-4o-mini"
	SystemPrompt string
	Temperature  float64 // default 0.7
	MaxTokens    int     // default 150
	BaseURL      string  // default "https://api.openai.com/v1"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAIBrain drives the conversation through the chat completions
// API. Streaming deltas are accumulated into one full turn; replies
// stay short enough that token-level TTS handoff buys nothing here.
type OpenAIBrain struct {
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	baseURL     string
	client      *http.Client
	log         *logger.Logger

	mu       sync.Mutex
	messages []chatMessage
}

// NewOpenAIBrain creates a brain with the given system prompt as its
// first message.
func NewOpenAIBrain(config OpenAIBrainConfig) *OpenAIBrain {
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.Temperature == 0 {
		config.Temperature = 0.7
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 150
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}

	b := &OpenAIBrain{
		apiKey:      config.APIKey,
		model:       config.Model,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		client:      &http.Client{Timeout: 30 * time.Second},
		log:         logger.WithPrefix("OpenAIBrain"),
	}
	if config.SystemPrompt != "" {
		b.messages = append(b.messages, chatMessage{Role: "system", Content: config.SystemPrompt})
	}
	return b
}

// Respond adds the user turn to history and returns the parsed reply.
func (b *OpenAIBrain) Respond(ctx context.Context, userText string) (Turn, error) {
	b.mu.Lock()
	b.messages = append(b.messages, chatMessage{Role: "user", Content: userText})
	messages := make([]chatMessage, len(b.messages))
	copy(messages, b.messages)
	b.mu.Unlock()

	raw, err := b.complete(ctx, messages)
	if err != nil {
		return Turn{}, err
	}

	b.mu.Lock()
	b.messages = append(b.messages, chatMessage{Role: "assistant", Content: raw})
	b.mu.Unlock()

	turn := ParseTurn(raw)
	b.log.Debug("Turn action=%s text=%q", turn.Action, turn.Text)
	return turn, nil
}

func (b *OpenAIBrain) complete(ctx context.Context, messages []chatMessage) (string, error) {
	requestBody := map[string]interface{}{
		"model":       b.model,
		"messages":    messages,
		"temperature": b.temperature,
		"max_tokens":  b.maxTokens,
		"stream":      true,
	}
	payload, err := json.Marshal(requestBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("chat api returned %d: %s", resp.StatusCode, string(body))
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var streamResp struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &streamResp); err != nil {
			continue
		}
		if len(streamResp.Choices) > 0 {
			full.WriteString(streamResp.Choices[0].Delta.Content)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}

	return full.String(), nil
}
