package stt

import (
	"context"
	"encoding/binary"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestWrapMulawWAVHeader(t *testing.T) {
	payload := make([]byte, 3200)
	wav := WrapMulawWAV(payload, 8000)

	if len(wav) != 44+len(payload) {
		t.Fatalf("expected %d bytes, got %d", 44+len(payload), len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatal("missing RIFF/WAVE markers")
	}
	if got := binary.LittleEndian.Uint16(wav[20:22]); got != 7 {
		t.Errorf("expected mu-law format code 7, got %d", got)
	}
	if got := binary.LittleEndian.Uint16(wav[22:24]); got != 1 {
		t.Errorf("expected mono, got %d channels", got)
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != 8000 {
		t.Errorf("expected 8000 Hz, got %d", got)
	}
	if got := binary.LittleEndian.Uint32(wav[28:32]); got != 8000 {
		t.Errorf("expected byte rate 8000, got %d", got)
	}
	if got := binary.LittleEndian.Uint16(wav[32:34]); got != 1 {
		t.Errorf("expected block align 1, got %d", got)
	}
	if got := binary.LittleEndian.Uint16(wav[34:36]); got != 8 {
		t.Errorf("expected 8 bits per sample, got %d", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(len(payload)) {
		t.Errorf("expected data size %d, got %d", len(payload), got)
	}
}

func TestWhisperTranscribe(t *testing.T) {
	var sawModel, sawFormat string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing multipart form: %v", err)
		}
		sawModel = r.FormValue("model")
		sawFormat = r.FormValue("response_format")

		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file part: %v", err)
		} else {
			head := make([]byte, 4)
			io.ReadFull(file, head)
			if string(head) != "RIFF" {
				t.Errorf("upload is not WAV-wrapped, starts with %q", head)
			}
			file.Close()
		}

		w.Write([]byte("Hello, this is a test.\n"))
	}))
	defer server.Close()

	w := NewWhisper(WhisperConfig{APIKey: "key", BaseURL: server.URL})
	got, err := w.Transcribe(context.Background(), make([]byte, 3200))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Hello, this is a test." {
		t.Errorf("expected trimmed transcript, got %q", got)
	}
	if sawModel != "whisper-1" {
		t.Errorf("expected model whisper-1, got %q", sawModel)
	}
	if sawFormat != "text" {
		t.Errorf("expected response_format text, got %q", sawFormat)
	}
}

func TestWhisperSkipsShortUtterances(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	w := NewWhisper(WhisperConfig{APIKey: "key", BaseURL: server.URL})
	got, err := w.Transcribe(context.Background(), make([]byte, MinUtteranceBytes-1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty transcript, got %q", got)
	}
	if hits.Load() != 0 {
		t.Error("short utterance still hit the API")
	}
}

func TestWhisperDegradesOnAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	w := NewWhisper(WhisperConfig{APIKey: "key", BaseURL: server.URL})
	got, err := w.Transcribe(context.Background(), make([]byte, 3200))
	if err != nil {
		t.Fatalf("API failure must not surface as an error, got %v", err)
	}
	if got != "" {
		t.Errorf("expected empty transcript on API failure, got %q", got)
	}
}

func TestWhisperFiltersHallucinations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Thank you.\n"))
	}))
	defer server.Close()

	w := NewWhisper(WhisperConfig{APIKey: "key", BaseURL: server.URL})
	got, err := w.Transcribe(context.Background(), make([]byte, 3200))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Errorf("expected hallucination to be filtered, got %q", got)
	}
}

func TestDeepgramTranscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("encoding") != "mulaw" || q.Get("sample_rate") != "8000" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		w.Write([]byte(`{"results":{"channels":[{"alternatives":[{"transcript":"sure, go ahead"}]}]}}`))
	}))
	defer server.Close()

	d := NewDeepgram(DeepgramConfig{APIKey: "key", BaseURL: server.URL})
	got, err := d.Transcribe(context.Background(), make([]byte, 3200))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "sure, go ahead" {
		t.Errorf("expected transcript, got %q", got)
	}
}

func TestDeepgramDegradesOnBadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	d := NewDeepgram(DeepgramConfig{APIKey: "key", BaseURL: server.URL})
	got, err := d.Transcribe(context.Background(), make([]byte, 3200))
	if err != nil || got != "" {
		t.Fatalf("expected degraded empty transcript, got %q err %v", got, err)
	}
}
