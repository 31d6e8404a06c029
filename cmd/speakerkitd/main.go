// Command speakerkitd serves speaker attribution over HTTP. It loads
// configuration, wires the transcription, diarization, and LLM backends
// into the attribution engine, and runs until SIGINT or SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/speakerkit/attribution"
	"github.com/kbukum/speakerkit/config"
	"github.com/kbukum/speakerkit/diarcache"
	"github.com/kbukum/speakerkit/diarization"
	"github.com/kbukum/speakerkit/diarization/pyannote"
	"github.com/kbukum/speakerkit/llm"
	"github.com/kbukum/speakerkit/llm/openai"
	"github.com/kbukum/speakerkit/logger"
	"github.com/kbukum/speakerkit/observability"
	"github.com/kbukum/speakerkit/server"
	"github.com/kbukum/speakerkit/transcription"
	"github.com/kbukum/speakerkit/transcription/whisper"
	"github.com/kbukum/speakerkit/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "speakerkitd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var cfg config.AppConfig
	if err := config.Load(&cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyDefaults()
	if cfg.Base.Version == "" {
		cfg.Base.Version = version.Get().Version
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	logger.Init(cfg.Logging)
	log := logger.New(&cfg.Logging, cfg.Base.Name)
	log.Info("Starting speakerkitd", logger.Fields(
		"version", cfg.Base.Version,
		"environment", cfg.Base.Environment,
	))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var obs *observability.Provider
	if cfg.Tracing.Enabled {
		obsCfg := observability.DefaultConfig(cfg.Base.Name)
		obsCfg.ServiceVersion = cfg.Base.Version
		obsCfg.Environment = cfg.Base.Environment
		obsCfg.Insecure = cfg.Tracing.Insecure
		if cfg.Tracing.Endpoint != "" {
			obsCfg.Endpoint = cfg.Tracing.Endpoint
		}
		var err error
		obs, err = observability.Init(ctx, obsCfg, log)
		if err != nil {
			return fmt.Errorf("init observability: %w", err)
		}
	}

	transcriber, diarizer, llmProvider, backends, err := buildProviders(&cfg)
	if err != nil {
		return err
	}
	for _, b := range backends {
		log.Info("Backend registered", logger.Fields(
			"backend", b.Name(),
			"available", b.IsAvailable(ctx),
		))
	}

	cache := diarcache.New(cfg.Cache.Dir, cfg.Cache.MaxEntries)

	engine := attribution.New(attribution.Config{
		Diarizer:    diarizer,
		Transcriber: transcriber,
		LLM:         llmProvider,
		LLMModel:    cfg.LLM.Model,
		Cache:       cache,
		SpillDir:    os.TempDir(),
		Logger:      log,
	})

	srvCfg := server.Config{Host: cfg.Server.Host, Port: cfg.Server.Port}
	srvCfg.ApplyDefaults()
	srv := server.New(srvCfg, engine, backends, log)
	if err := srv.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("Server shutdown error", logger.Fields("error", err.Error()))
	}
	if obs != nil {
		if err := obs.Shutdown(shutdownCtx); err != nil {
			log.Error("Telemetry shutdown error", logger.Fields("error", err.Error()))
		}
	}
	return nil
}

// buildProviders creates the configured backends through their registries.
// The diarizer and LLM are optional; the engine degrades to the text-only
// or parity fallback when they are absent.
func buildProviders(cfg *config.AppConfig) (transcription.Provider, diarization.Provider, llm.Provider, []server.Backend, error) {
	var backends []server.Backend

	transcribers := transcription.NewRegistry()
	transcribers.RegisterFactory(whisper.ProviderName, whisper.Factory())
	transcriber, err := transcribers.CreateAndCache(cfg.Transcription.Backend, map[string]any{
		"url":      cfg.Transcription.URL,
		"model":    cfg.Transcription.Model,
		"language": cfg.Transcription.Language,
		"timeout":  cfg.Transcription.Timeout,
	})
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("create transcription backend %q: %w", cfg.Transcription.Backend, err)
	}
	backends = append(backends, transcriber)

	var diarizer diarization.Provider
	if cfg.Diarization.Backend != "" {
		diarizers := diarization.NewRegistry()
		diarizers.RegisterFactory(pyannote.ProviderName, pyannote.Factory())
		diarizer, err = diarizers.CreateAndCache(cfg.Diarization.Backend, map[string]any{
			"base_url": cfg.Diarization.URL,
			"token":    cfg.Diarization.Token,
			"timeout":  cfg.Diarization.Timeout,
		})
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("create diarization backend %q: %w", cfg.Diarization.Backend, err)
		}
		backends = append(backends, diarizer)
	}

	var llmProvider llm.Provider
	if cfg.LLM.Backend != "" {
		llms := llm.NewRegistry()
		llms.RegisterFactory(openai.ProviderName, openai.Factory())
		llmProvider, err = llms.CreateAndCache(cfg.LLM.Backend, map[string]any{
			"base_url": cfg.LLM.BaseURL,
			"api_key":  cfg.LLM.APIKey,
			"model":    cfg.LLM.Model,
			"timeout":  cfg.LLM.Timeout,
		})
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("create llm backend %q: %w", cfg.LLM.Backend, err)
		}
		backends = append(backends, llmProvider)
	}

	return transcriber, diarizer, llmProvider, backends, nil
}
