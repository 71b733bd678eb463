package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sonara-labs/dialtone/src/logger"
)

// ElevenLabsConfig holds configuration for ElevenLabs TTS.
type ElevenLabsConfig struct {
	APIKey  string
	VoiceID string
	Model   string // default "eleven_flash_v2_5"
	BaseURL string // default "https://api.elevenlabs.io"
}

// ElevenLabs synthesizes speech through the ElevenLabs streaming
// endpoint. The ulaw_8000 output format means provider bytes are
// already wire-format; they only need re-chunking.
type ElevenLabs struct {
	apiKey  string
	voiceID string
	model   string
	baseURL string
	client  *http.Client
	log     *logger.Logger
}

// NewElevenLabs creates an ElevenLabs synthesizer.
func NewElevenLabs(config ElevenLabsConfig) *ElevenLabs {
	if config.Model == "" {
		config.Model = "eleven_flash_v2_5"
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.elevenlabs.io"
	}
	return &ElevenLabs{
		apiKey:  config.APIKey,
		voiceID: config.VoiceID,
		model:   config.Model,
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		client:  &http.Client{},
		log:     logger.WithPrefix("ElevenLabsTTS"),
	}
}

// Synthesize starts a streaming synthesis request.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) (*Stream, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"text":     text,
		"model_id": e.model,
		"voice_settings": map[string]interface{}{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s/stream?output_format=ulaw_8000",
		e.baseURL, e.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("tts api returned %d: %s", resp.StatusCode, string(body))
	}

	stream := newStream()
	go func() {
		defer resp.Body.Close()
		defer stream.close()

		var pk packetizer
		buf := make([]byte, 4096)
		for {
			n, err := resp.Body.Read(buf)
			if n > 0 {
				for _, packet := range pk.add(buf[:n]) {
					if !stream.push(ctx, packet) {
						return
					}
				}
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				e.log.Warn("Stream read failed: %v", err)
				stream.fail(err)
				return
			}
		}
		if rest := pk.flush(); rest != nil {
			stream.push(ctx, rest)
		}
	}()
	return stream, nil
}
