// go_edunote is the EduNote backend: REST API for transcripts and study notes,
// plus an MCP server exposing the same pipeline as tools.
//
// The REST API listens on API_PORT; the MCP server on MCP_PORT.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/proxypool"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_edunote/internal/api"
	"github.com/anatolykoptev/go_edunote/internal/auth"
	"github.com/anatolykoptev/go_edunote/internal/engine"
	"github.com/anatolykoptev/go_edunote/internal/engine/notes"
	"github.com/anatolykoptev/go_edunote/internal/engine/sources"
	"github.com/anatolykoptev/go_edunote/internal/engine/transcript"
	"github.com/anatolykoptev/go_edunote/internal/notebook"
	"github.com/anatolykoptev/go_edunote/internal/noteserver"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env")
	}
	initLogger(env.Str("LOG_FORMAT", "text"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := engineConfig()
	fetcher := newFetcher(cfg)
	cache := engine.NewCache(cfg.RedisURL, cfg.CacheTTL, cfg.CacheMaxEntries, cfg.CacheCleanupInterval)
	defer cache.Close()
	gen := notes.New(engine.NewLLM(cfg), cache, cfg.MaxTranscriptChars)
	if cfg.LLMAPIKey == "" {
		slog.Warn("LLM_API_KEY not set, note generation and translation disabled")
	}

	st, err := openStore(ctx, env.Str("STORE_DRIVER", "sqlite"))
	if err != nil {
		slog.Error("store init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer st.Close()

	authSvc, err := auth.New(st, auth.Config{
		Secret: env.Str("JWT_SECRET", ""),
		Expire: env.Duration("JWT_EXPIRE", auth.DefaultExpire),
	})
	if err != nil {
		slog.Error("auth init failed", slog.Any("error", err))
		os.Exit(1)
	}

	rest := api.New(api.Config{
		Addr:           ":" + env.Str("API_PORT", "5000"),
		FrontendURL:    env.Str("FRONTEND_URL", "http://localhost:3000"),
		RateLimitRPS:   env.Float("RATE_LIMIT_RPS", 1),
		RateLimitBurst: env.Int("RATE_LIMIT_BURST", 10),
	}, api.Deps{
		Auth:      authSvc,
		Notebook:  notebook.New(st, fetcher.Fetcher, fetcher.details, gen),
		Generator: gen,
		Store:     st,
		Metrics:   engine.FormatMetrics,
	})
	apiDone := make(chan struct{})
	go func() {
		defer close(apiDone)
		if err := rest.ListenAndServe(ctx); err != nil {
			slog.Error("rest api failed", slog.Any("error", err))
			stop()
		}
	}()

	mcpPort := env.Str("MCP_PORT", "8891")
	slog.Info("starting go_edunote", slog.String("mcp_port", mcpPort), slog.String("version", version))

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_edunote",
		Version: version,
	}, nil)
	noteserver.RegisterTools(server, noteserver.Deps{Fetcher: fetcher.Fetcher, Notes: gen})

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_edunote",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 300 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("mcp server failed", slog.Any("error", err))
	}

	stop()
	<-apiDone
}

func initLogger(format string) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if env.Str("LOG_LEVEL", "") == "debug" {
		opts.Level = slog.LevelDebug
	}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if format == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

func engineConfig() engine.Config {
	c := engine.Config{
		LLMAPIKey:            env.Str("LLM_API_KEY", ""),
		LLMAPIKeyFallbacks:   env.List("LLM_API_KEY_FALLBACKS", ""),
		LLMAPIBase:           env.Str("LLM_API_BASE", "https://generativelanguage.googleapis.com/v1beta/openai"),
		LLMModel:             env.Str("LLM_MODEL", "gemini-2.5-flash"),
		LLMTemperature:       env.Float("LLM_TEMPERATURE", 0.3),
		LLMMaxTokens:         env.Int("LLM_MAX_TOKENS", 8192),
		LLMTimeout:           env.Duration("LLM_TIMEOUT", 60*time.Second),
		MaxTranscriptChars:   env.Int("MAX_TRANSCRIPT_CHARS", notes.DefaultMaxChars),
		CacheTTL:             env.Duration("CACHE_TTL", 15*time.Minute),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),
		RedisURL:             env.Str("REDIS_URL", ""),
		HTTPClient:           engine.NewHTTPClient(15 * time.Second),
	}

	opts := []stealth.ClientOption{stealth.WithTimeout(15)}
	if apiKey := env.Str("WEBSHARE_API_KEY", ""); apiKey != "" {
		pool, err := proxypool.NewWebshare(apiKey)
		if err != nil {
			slog.Warn("proxy pool init failed, running without proxy", slog.Any("error", err))
		} else {
			opts = append(opts, stealth.WithProxyPool(pool))
			slog.Info("proxy pool initialized", slog.Int("proxies", pool.Len()))
		}
	}
	bc, err := stealth.NewClient(opts...)
	if err != nil {
		slog.Error("stealth client init failed", slog.Any("error", err))
	} else {
		c.BrowserClient = bc
		slog.Info("stealth browser client initialized")
	}
	return c.Defaults()
}

type youtubeFetcher struct {
	*transcript.Fetcher
	details *sources.Innertube
}

func newFetcher(c engine.Config) youtubeFetcher {
	yc := sources.YouTubeConfig{
		BaseURL:    env.Str("YOUTUBE_BASE_URL", sources.DefaultBaseURL),
		HTTPClient: c.HTTPClient,
		Browser:    c.BrowserClient,
		Retry:      c.Retry,
	}
	tc := transcript.DefaultConfig()
	if langs := env.List("TRANSCRIPT_LANGS", ""); len(langs) > 0 {
		tc.Languages = langs
	}
	if langs := env.List("TRANSCRIPT_FALLBACK_LANGS", ""); len(langs) > 0 {
		tc.FallbackLanguages = langs
	}
	tc.PrimaryTimeout = env.Duration("TRANSCRIPT_PRIMARY_TIMEOUT", tc.PrimaryTimeout)
	tc.FallbackTimeout = env.Duration("TRANSCRIPT_FALLBACK_TIMEOUT", tc.FallbackTimeout)

	primary := sources.NewInnertube(yc)
	return youtubeFetcher{
		Fetcher: transcript.New(tc, primary, sources.NewTimedText(yc)),
		details: primary,
	}
}
