// Package config loads service configuration from the environment,
// with optional .env support for local development.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/sonara-labs/dialtone/src/stt"
	"github.com/sonara-labs/dialtone/src/tts"
)

// Brain provider names.
const (
	BrainOpenAI = "openai"
	BrainGemini = "gemini"
)

// STT provider names.
const (
	STTWhisper  = "whisper"
	STTDeepgram = "deepgram"
)

// Config is the resolved service configuration. Only the keys required
// by the selected providers are validated.
type Config struct {
	Addr      string // media server listen address
	MediaPath string // websocket path announced to the carrier

	TTSProvider   string
	STTProvider   string
	BrainProvider string

	OpenAIKey       string
	GeminiKey       string
	DeepgramKey     string
	ElevenLabsKey   string
	ElevenLabsVoice string
	CartesiaKey     string
	CartesiaVoice   string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	PrimaryTransferNumber   string
	SecondaryTransferNumber string
	DefaultTransferNumber   string

	SpeechThreshold float64 // 0 means the detector default
	NoiseVolume     float64 // 0 disables the ambient noise bed
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in when present but never required.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:      envOr("LISTEN_ADDR", ":8080"),
		MediaPath: envOr("MEDIA_PATH", "/media"),

		TTSProvider:   envOr("TTS_PROVIDER", tts.ProviderElevenLabs),
		STTProvider:   envOr("STT_PROVIDER", STTWhisper),
		BrainProvider: envOr("BRAIN_PROVIDER", BrainOpenAI),

		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		GeminiKey:       os.Getenv("GEMINI_API_KEY"),
		DeepgramKey:     os.Getenv("DEEPGRAM_API_KEY"),
		ElevenLabsKey:   os.Getenv("ELEVENLABS_API_KEY"),
		ElevenLabsVoice: os.Getenv("ELEVENLABS_VOICE_ID"),
		CartesiaKey:     os.Getenv("CARTESIA_API_KEY"),
		CartesiaVoice:   os.Getenv("CARTESIA_VOICE_ID"),

		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber: os.Getenv("TWILIO_FROM_NUMBER"),

		PrimaryTransferNumber:   os.Getenv("TRANSFER_PRIMARY_NUMBER"),
		SecondaryTransferNumber: os.Getenv("TRANSFER_SECONDARY_NUMBER"),
		DefaultTransferNumber:   os.Getenv("TRANSFER_DEFAULT_NUMBER"),
	}

	var err error
	if cfg.SpeechThreshold, err = envFloat("SPEECH_THRESHOLD"); err != nil {
		return nil, err
	}
	if cfg.NoiseVolume, err = envFloat("NOISE_VOLUME"); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate fails fast on missing keys for the selected providers so a
// misconfigured deploy dies at startup, not mid-call.
func (c *Config) validate() error {
	switch c.TTSProvider {
	case tts.ProviderElevenLabs:
		if c.ElevenLabsKey == "" || c.ElevenLabsVoice == "" {
			return fmt.Errorf("tts provider %q requires ELEVENLABS_API_KEY and ELEVENLABS_VOICE_ID", c.TTSProvider)
		}
	case tts.ProviderOpenAI:
		if c.OpenAIKey == "" {
			return fmt.Errorf("tts provider %q requires OPENAI_API_KEY", c.TTSProvider)
		}
	case tts.ProviderCartesia:
		if c.CartesiaKey == "" || c.CartesiaVoice == "" {
			return fmt.Errorf("tts provider %q requires CARTESIA_API_KEY and CARTESIA_VOICE_ID", c.TTSProvider)
		}
	default:
		return fmt.Errorf("unknown tts provider %q", c.TTSProvider)
	}

	switch c.STTProvider {
	case STTWhisper:
		if c.OpenAIKey == "" {
			return fmt.Errorf("stt provider %q requires OPENAI_API_KEY", c.STTProvider)
		}
	case STTDeepgram:
		if c.DeepgramKey == "" {
			return fmt.Errorf("stt provider %q requires DEEPGRAM_API_KEY", c.STTProvider)
		}
	default:
		return fmt.Errorf("unknown stt provider %q", c.STTProvider)
	}

	switch c.BrainProvider {
	case BrainOpenAI:
		if c.OpenAIKey == "" {
			return fmt.Errorf("brain provider %q requires OPENAI_API_KEY", c.BrainProvider)
		}
	case BrainGemini:
		if c.GeminiKey == "" {
			return fmt.Errorf("brain provider %q requires GEMINI_API_KEY", c.BrainProvider)
		}
	default:
		return fmt.Errorf("unknown brain provider %q", c.BrainProvider)
	}

	// Twilio credentials are optional: without them the agent runs but
	// cannot place calls or transfer.
	if (c.TwilioAccountSID == "") != (c.TwilioAuthToken == "") {
		return fmt.Errorf("TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN must be set together")
	}
	return nil
}

// TransferEnabled reports whether live-call redirects can be executed.
func (c *Config) TransferEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != ""
}

// NewTranscriber builds the configured STT client.
func (c *Config) NewTranscriber() stt.Transcriber {
	switch c.STTProvider {
	case STTDeepgram:
		return stt.NewDeepgram(stt.DeepgramConfig{APIKey: c.DeepgramKey})
	default:
		return stt.NewWhisper(stt.WhisperConfig{APIKey: c.OpenAIKey})
	}
}

// NewSynthesizer builds the configured TTS client.
func (c *Config) NewSynthesizer() tts.Synthesizer {
	switch c.TTSProvider {
	case tts.ProviderOpenAI:
		return tts.NewOpenAI(tts.OpenAIConfig{APIKey: c.OpenAIKey})
	case tts.ProviderCartesia:
		return tts.NewCartesia(tts.CartesiaConfig{APIKey: c.CartesiaKey, VoiceID: c.CartesiaVoice})
	default:
		return tts.NewElevenLabs(tts.ElevenLabsConfig{APIKey: c.ElevenLabsKey, VoiceID: c.ElevenLabsVoice})
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return f, nil
}
