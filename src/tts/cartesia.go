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

// CartesiaConfig holds configuration for Cartesia TTS.
type CartesiaConfig struct {
	APIKey  string
	VoiceID string
	Model   string // default "sonic-3"
	Version string // default "2025-04-16"
	BaseURL string // default "https://api.cartesia.ai"
}

// Cartesia synthesizes speech through the Cartesia bytes endpoint
// with raw pcm_mulaw output at 8 kHz, so the response body is already
// wire format.
type Cartesia struct {
	apiKey  string
	voiceID string
	model   string
	version string
	baseURL string
	client  *http.Client
	log     *logger.Logger
}

// NewCartesia creates a Cartesia synthesizer.
func NewCartesia(config CartesiaConfig) *Cartesia {
	if config.Model == "" {
		config.Model = "sonic-3"
	}
	if config.Version == "" {
		config.Version = "2025-04-16"
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.cartesia.ai"
	}
	return &Cartesia{
		apiKey:  config.APIKey,
		voiceID: config.VoiceID,
		model:   config.Model,
		version: config.Version,
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		client:  &http.Client{},
		log:     logger.WithPrefix("CartesiaTTS"),
	}
}

// Synthesize starts a streaming synthesis request.
func (c *Cartesia) Synthesize(ctx context.Context, text string) (*Stream, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"model_id":   c.model,
		"transcript": text,
		"voice": map[string]interface{}{
			"mode": "id",
			"id":   c.voiceID,
		},
		"output_format": map[string]interface{}{
			"container":   "raw",
			"encoding":    "pcm_mulaw",
			"sample_rate": 8000,
		},
		"language": "en",
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/tts/bytes", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Cartesia-Version", c.version)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
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
				c.log.Warn("Stream read failed: %v", err)
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
