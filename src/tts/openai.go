package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sonara-labs/dialtone/src/audio"
	"github.com/sonara-labs/dialtone/src/logger"
)

// openaiPCMRate is the fixed output rate of the OpenAI speech API in
// pcm mode: 24 kHz, 16-bit little-endian, mono.
const openaiPCMRate = 24000

// OpenAIConfig holds configuration for OpenAI TTS.
type OpenAIConfig struct {
	APIKey  string
	Model   string // default "tts-1"
	Voice   string // default "alloy"
	BaseURL string // default "https://api.openai.com/v1"
}

// OpenAI synthesizes speech through the OpenAI speech API. The API
// has no telephony format, so PCM output is decimated to 8 kHz and
// mu-law encoded before chunking.
type OpenAI struct {
	apiKey  string
	model   string
	voice   string
	baseURL string
	client  *http.Client
	log     *logger.Logger
}

// NewOpenAI creates an OpenAI synthesizer.
func NewOpenAI(config OpenAIConfig) *OpenAI {
	if config.Model == "" {
		config.Model = "tts-1"
	}
	if config.Voice == "" {
		config.Voice = "alloy"
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}
	return &OpenAI{
		apiKey:  config.APIKey,
		model:   config.Model,
		voice:   config.Voice,
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		client:  &http.Client{},
		log:     logger.WithPrefix("OpenAITTS"),
	}
}

// Synthesize fetches the full clip, converts it to wire format, and
// streams it from memory.
func (o *OpenAI) Synthesize(ctx context.Context, text string) (*Stream, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"model":           o.model,
		"input":           text,
		"voice":           o.voice,
		"response_format": "pcm",
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/audio/speech", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading tts response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tts api returned %d: %s", resp.StatusCode, string(body))
	}

	pcm := audio.Resample(audio.BytesToPCM(body), openaiPCMRate, audio.SampleRate)
	packets := audio.ChunkPackets(audio.PCMToMulaw(pcm))
	o.log.Debug("Synthesized %d packets for %d chars", len(packets), len(text))

	return NewBufferedStream(ctx, packets), nil
}
