// Package config assembles the worker configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is everything the worker needs to join a room and run sessions.
type Config struct {
	// Room bridge.
	RoomURL   string
	RoomName  string
	RoomToken string

	// Operational HTTP server (/healthz, /metrics).
	HealthAddr string

	// Voice providers.
	DeepgramAPIKey string
	STTModel       string
	// TTSVoices maps language tags to Deepgram voice models,
	// e.g. "en=aura-2-luna-en,es=aura-2-celeste-es". The first entry is
	// the default language.
	TTSVoices      []VoiceMapping
	STTSampleRate  int

	// Generation.
	GroqAPIKey  string
	GroqBaseURL string
	Model       string
	Temperature float64

	// Tools.
	TavilyAPIKey     string
	GmailUser        string
	GmailAppPassword string
	SMTPHost         string
	SMTPPort         int

	// Persistence. Backend is one of "notion", "firestore", "none".
	RecordBackend       string
	NotionAPIKey        string
	NotionDatabaseID    string
	FirestoreCollection string

	// Session bounds.
	EmailInputTimeout time.Duration
	PersistTimeout    time.Duration
	SpeakTimeout      time.Duration
	WriteTimeout      time.Duration
}

// VoiceMapping pairs a language tag with a synthesis voice model.
type VoiceMapping struct {
	Language string
	Voice    string
}

// LoadFromEnv reads configuration from the environment. Provider keys may be
// absent; the affected capabilities degrade at runtime. The room URL is the
// only hard requirement.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		RoomURL:   envOr("VOCALIZE_ROOM_URL", ""),
		RoomName:  envOr("VOCALIZE_ROOM_NAME", ""),
		RoomToken: envOr("VOCALIZE_ROOM_TOKEN", ""),

		HealthAddr: envOr("VOCALIZE_HEALTH_ADDR", ":8081"),

		DeepgramAPIKey: envOr("DEEPGRAM_API_KEY", ""),
		STTModel:       envOr("VOCALIZE_STT_MODEL", "nova-2"),
		STTSampleRate:  envIntOr("VOCALIZE_STT_SAMPLE_RATE", 16000),

		GroqAPIKey:  envOr("GROQ_API_KEY", ""),
		GroqBaseURL: envOr("VOCALIZE_LLM_BASE_URL", ""),
		Model:       envOr("VOCALIZE_LLM_MODEL", ""),
		Temperature: envFloat64Or("VOCALIZE_LLM_TEMPERATURE", 0.7),

		TavilyAPIKey:     envOr("TAVILY_API_KEY", ""),
		GmailUser:        envOr("GMAIL_USER", ""),
		GmailAppPassword: envOr("GMAIL_APP_PASSWORD", ""),
		SMTPHost:         envOr("VOCALIZE_SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:         envIntOr("VOCALIZE_SMTP_PORT", 587),

		RecordBackend:       strings.ToLower(envOr("VOCALIZE_RECORD_BACKEND", "notion")),
		NotionAPIKey:        envOr("NOTION_API_KEY", ""),
		NotionDatabaseID:    envOr("NOTION_DATABASE_ID", ""),
		FirestoreCollection: envOr("VOCALIZE_FIRESTORE_COLLECTION", "conversations"),

		EmailInputTimeout: envDurationOr("VOCALIZE_EMAIL_INPUT_TIMEOUT", 2*time.Minute),
		PersistTimeout:    envDurationOr("VOCALIZE_PERSIST_TIMEOUT", 15*time.Second),
		SpeakTimeout:      envDurationOr("VOCALIZE_SPEAK_TIMEOUT", 30*time.Second),
		WriteTimeout:      envDurationOr("VOCALIZE_WRITE_TIMEOUT", 10*time.Second),
	}

	voices, err := parseVoices(envOr("VOCALIZE_TTS_VOICES", "en=aura-2-luna-en"))
	if err != nil {
		return Config{}, err
	}
	cfg.TTSVoices = voices

	if cfg.RoomURL == "" {
		return Config{}, fmt.Errorf("VOCALIZE_ROOM_URL is required")
	}
	switch cfg.RecordBackend {
	case "notion", "firestore", "none":
	default:
		return Config{}, fmt.Errorf("VOCALIZE_RECORD_BACKEND %q is not one of notion, firestore, none", cfg.RecordBackend)
	}
	return cfg, nil
}

// DefaultVoice returns the synthesis model of the first configured language.
func (c Config) DefaultVoice() VoiceMapping {
	if len(c.TTSVoices) == 0 {
		return VoiceMapping{Language: "en", Voice: "aura-2-luna-en"}
	}
	return c.TTSVoices[0]
}

func parseVoices(raw string) ([]VoiceMapping, error) {
	var out []VoiceMapping
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		lang, voice, ok := strings.Cut(pair, "=")
		lang = strings.TrimSpace(lang)
		voice = strings.TrimSpace(voice)
		if !ok || lang == "" || voice == "" {
			return nil, fmt.Errorf("VOCALIZE_TTS_VOICES entry %q is not lang=voice", pair)
		}
		out = append(out, VoiceMapping{Language: lang, Voice: voice})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("VOCALIZE_TTS_VOICES is empty")
	}
	return out, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envFloat64Or(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return f
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
