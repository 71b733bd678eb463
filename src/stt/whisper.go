package stt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/sonara-labs/dialtone/src/audio"
	"github.com/sonara-labs/dialtone/src/logger"
)

// WhisperConfig holds configuration for the OpenAI transcription API.
type WhisperConfig struct {
	APIKey   string
	Model    string // default "whisper-1"
	Language string // default "en"
	BaseURL  string // default "https://api.openai.com/v1"
}

// Whisper transcribes utterances through the OpenAI audio API. Raw
// mu-law is wrapped in a WAV container on the way out; the response
// is requested as plain text and run through the hallucination filter.
type Whisper struct {
	apiKey   string
	model    string
	language string
	baseURL  string
	client   *http.Client
	log      *logger.Logger
}

// NewWhisper creates a Whisper transcriber.
func NewWhisper(config WhisperConfig) *Whisper {
	if config.Model == "" {
		config.Model = "whisper-1"
	}
	if config.Language == "" {
		config.Language = "en"
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}
	return &Whisper{
		apiKey:   config.APIKey,
		model:    config.Model,
		language: config.Language,
		baseURL:  strings.TrimRight(config.BaseURL, "/"),
		client:   &http.Client{Timeout: 30 * time.Second},
		log:      logger.WithPrefix("Whisper"),
	}
}

// Transcribe uploads one utterance and returns the filtered text.
// Provider failures degrade to an empty transcript.
func (w *Whisper) Transcribe(ctx context.Context, mulaw []byte) (string, error) {
	if len(mulaw) < MinUtteranceBytes {
		w.log.Debug("Skipping %d-byte utterance (below %d)", len(mulaw), MinUtteranceBytes)
		return "", nil
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}
	if _, err := part.Write(WrapMulawWAV(mulaw, audio.SampleRate)); err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}
	form.WriteField("model", w.model)
	form.WriteField("language", w.language)
	form.WriteField("response_format", "text")
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		w.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+w.apiKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		w.log.Warn("Transcription request failed: %v", err)
		return "", nil
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		w.log.Warn("Reading transcription response: %v", err)
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		w.log.Warn("Transcription API returned %d: %s", resp.StatusCode, string(payload))
		return "", nil
	}

	text := FilterTranscript(string(payload))
	if text == "" {
		w.log.Debug("Transcript filtered out: %q", strings.TrimSpace(string(payload)))
	}
	return text, nil
}
