package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/vocalize-ai/vocalize-agent/pkg/agent/config"
	"github.com/vocalize-ai/vocalize-agent/pkg/agent/control"
	"github.com/vocalize-ai/vocalize-agent/pkg/agent/mail"
	"github.com/vocalize-ai/vocalize-agent/pkg/agent/metrics"
	"github.com/vocalize-ai/vocalize-agent/pkg/agent/record"
	"github.com/vocalize-ai/vocalize-agent/pkg/agent/rtc"
	"github.com/vocalize-ai/vocalize-agent/pkg/agent/session"
	"github.com/vocalize-ai/vocalize-agent/pkg/agent/tools"
	"github.com/vocalize-ai/vocalize-agent/pkg/agent/tools/adapters/tavily"
	"github.com/vocalize-ai/vocalize-agent/pkg/core/llm"
	"github.com/vocalize-ai/vocalize-agent/pkg/core/voice/stt"
	"github.com/vocalize-ai/vocalize-agent/pkg/core/voice/tts"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("worker failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	m := metrics.New("vocalize")

	health := startHealthServer(cfg.HealthAddr, m, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = health.Shutdown(shutdownCtx)
	}()

	roomName := cfg.RoomName
	if roomName == "" {
		roomName = "vocalize-" + uuid.NewString()
	}

	room, err := rtc.Dial(ctx, rtc.DialOptions{
		URL:          cfg.RoomURL,
		RoomName:     roomName,
		Token:        cfg.RoomToken,
		Logger:       logger,
		WriteTimeout: cfg.WriteTimeout,
	})
	if err != nil {
		return fmt.Errorf("dial room bridge: %w", err)
	}
	defer room.Disconnect()

	sess, err := buildSession(ctx, cfg, room, m, logger)
	if err != nil {
		return err
	}
	return sess.Run(ctx)
}

func buildSession(ctx context.Context, cfg config.Config, room rtc.Room, m *metrics.Metrics, logger *slog.Logger) (*session.Session, error) {
	router, err := buildRouter(cfg)
	if err != nil {
		return nil, err
	}

	model := llm.NewOpenAI(llm.OpenAIConfig{
		APIKey:  cfg.GroqAPIKey,
		BaseURL: cfg.GroqBaseURL,
		Model:   cfg.Model,
	})

	proto := control.New(room, logger, control.Config{
		InputTimeout: cfg.EmailInputTimeout,
		OnDrop:       m.RecordControlDrop,
	})

	sink := buildSink(ctx, cfg, logger)

	deps := session.Dependencies{
		Room:    room,
		LLM:     model,
		TTS:     router,
		Control: proto,
		Sink:    sink,
		Metrics: m,
		Logger:  logger,
		Config: session.Config{
			Temperature:    float32(cfg.Temperature),
			PersistTimeout: cfg.PersistTimeout,
			SpeakTimeout:   cfg.SpeakTimeout,
		},
	}
	if cfg.DeepgramAPIKey != "" {
		deps.STT = session.STTProviderAdapter{
			Provider: stt.NewDeepgram(cfg.DeepgramAPIKey),
			Options: stt.TranscribeOptions{
				Model:          cfg.STTModel,
				SampleRate:     cfg.STTSampleRate,
				DetectLanguage: true,
			},
		}
	} else {
		logger.Warn("DEEPGRAM_API_KEY is not set, transcription disabled")
	}

	// The end_call tool needs the session it runs inside; bind it after New.
	var sess *session.Session
	hangup := func(context.Context) error {
		if sess != nil {
			sess.Hangup("user requested hangup")
		}
		return nil
	}
	deps.Tools = buildTools(cfg, hangup, proto, logger)

	sess, err = session.New(deps)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

func buildRouter(cfg config.Config) (*tts.Router, error) {
	backends := make(map[string]tts.Provider, len(cfg.TTSVoices))
	for _, vm := range cfg.TTSVoices {
		backends[vm.Language] = tts.NewDeepgram(cfg.DeepgramAPIKey, vm.Voice)
	}
	router, err := tts.NewRouter(backends, cfg.DefaultVoice().Language)
	if err != nil {
		return nil, fmt.Errorf("build synthesis router: %w", err)
	}
	return router, nil
}

func buildTools(cfg config.Config, hangup func(context.Context) error, proto *control.Protocol, logger *slog.Logger) *tools.Registry {
	search := tavily.NewClient(cfg.TavilyAPIKey, "", nil)
	sender := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		From:     cfg.GmailUser,
		Password: cfg.GmailAppPassword,
	})

	return tools.NewRegistry(
		tools.NewEndCall(hangup, logger),
		tools.NewWebSearch(search, proto, logger),
		tools.NewReadWebpage(search, logger),
		tools.NewSendEmail(sender, logger),
		tools.NewRequestEmailInput(proto, logger),
		tools.NewCloseEmailPopup(proto, logger),
	)
}

func buildSink(ctx context.Context, cfg config.Config, logger *slog.Logger) record.Sink {
	switch cfg.RecordBackend {
	case "notion":
		if cfg.NotionAPIKey == "" || cfg.NotionDatabaseID == "" {
			logger.Warn("notion backend selected but NOTION_API_KEY or NOTION_DATABASE_ID is missing, conversations will not be saved")
			return record.Noop{}
		}
		return record.NewNotionSink(cfg.NotionAPIKey, cfg.NotionDatabaseID)
	case "firestore":
		sink, err := record.NewFirestoreSink(ctx, cfg.FirestoreCollection)
		if err != nil {
			logger.Warn("firestore sink unavailable, conversations will not be saved", "error", err)
			return record.Noop{}
		}
		return sink
	default:
		return record.Noop{}
	}
}

func startHealthServer(addr string, m *metrics.Metrics, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server error", "error", err)
		}
	}()
	return srv
}

func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	switch os.Getenv("VOCALIZE_LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if os.Getenv("VOCALIZE_LOG_FORMAT") == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
