package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sonara-labs/dialtone/src/logger"
)

// DeepgramConfig holds configuration for the Deepgram prerecorded API.
type DeepgramConfig struct {
	APIKey  string
	Model   string // default "nova-2"
	BaseURL string // default "https://api.deepgram.com"
}

// Deepgram transcribes utterances through the Deepgram batch listen
// endpoint, posting raw mu-law with the encoding declared in the
// query string. Same degradation contract as Whisper.
type Deepgram struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	log     *logger.Logger
}

// NewDeepgram creates a Deepgram transcriber.
func NewDeepgram(config DeepgramConfig) *Deepgram {
	if config.Model == "" {
		config.Model = "nova-2"
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.deepgram.com"
	}
	return &Deepgram{
		apiKey:  config.APIKey,
		model:   config.Model,
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     logger.WithPrefix("Deepgram"),
	}
}

type deepgramResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe posts one utterance and returns the filtered text.
func (d *Deepgram) Transcribe(ctx context.Context, mulaw []byte) (string, error) {
	if len(mulaw) < MinUtteranceBytes {
		d.log.Debug("Skipping %d-byte utterance (below %d)", len(mulaw), MinUtteranceBytes)
		return "", nil
	}

	query := url.Values{}
	query.Set("model", d.model)
	query.Set("encoding", "mulaw")
	query.Set("sample_rate", "8000")
	query.Set("language", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		d.baseURL+"/v1/listen?"+query.Encode(), bytes.NewReader(mulaw))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+d.apiKey)
	req.Header.Set("Content-Type", "audio/mulaw")

	resp, err := d.client.Do(req)
	if err != nil {
		d.log.Warn("Transcription request failed: %v", err)
		return "", nil
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		d.log.Warn("Reading transcription response: %v", err)
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		d.log.Warn("Transcription API returned %d: %s", resp.StatusCode, string(payload))
		return "", nil
	}

	var parsed deepgramResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		d.log.Warn("Unexpected transcription response: %v", err)
		return "", nil
	}
	if len(parsed.Results.Channels) == 0 ||
		len(parsed.Results.Channels[0].Alternatives) == 0 {
		return "", nil
	}

	return FilterTranscript(parsed.Results.Channels[0].Alternatives[0].Transcript), nil
}
