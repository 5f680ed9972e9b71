package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/persona"
	"github.com/aretw0/persona/internal/adapters/file"
	"github.com/aretw0/persona/internal/config"
	"github.com/aretw0/persona/internal/logging"
	"github.com/aretw0/persona/pkg/adapters/loam"
	"github.com/aretw0/persona/pkg/adapters/process"
	redisadapter "github.com/aretw0/persona/pkg/adapters/redis"
	"github.com/aretw0/persona/pkg/ext"
	"github.com/aretw0/persona/pkg/observability"
	"github.com/aretw0/persona/pkg/persistence/middleware"
	"github.com/aretw0/persona/pkg/ports"
	"github.com/aretw0/persona/pkg/registry"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
)

// Runtime is a wired engine and the resources it owns.
type Runtime struct {
	Engine  *persona.Engine
	Config  *config.Config
	Metrics *prometheus.Registry
	Logger  *slog.Logger

	closers []func() error
}

// Close releases the resources opened by Build.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	return errors.Join(errs...)
}

// NewLogger builds the application logger described by cfg.
func NewLogger(cfg config.LogConfig) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if cfg.Format == "json" {
		return logging.NewJSON(level), nil
	}
	return logging.New(level), nil
}

// Build wires an engine from cfg: template loader, intent resolver,
// transcript backend and metrics.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	rt := &Runtime{
		Config:  cfg,
		Metrics: prometheus.NewRegistry(),
		Logger:  logger,
	}

	prompts, err := Prompts(cfg.Prompts)
	if err != nil {
		return nil, err
	}
	resolver, err := NewResolver(cfg.LLM, prompts, logger)
	if err != nil {
		return nil, err
	}
	strategy, err := ports.ParseStrategy(cfg.LLM.Strategy)
	if err != nil {
		return nil, err
	}

	metrics := observability.NewMetrics(rt.Metrics)
	opts := []persona.Option{
		persona.WithLogger(logger),
		persona.WithResolver(resolver),
		persona.WithStrategy(strategy),
		persona.WithLifecycleHooks(metrics.Hooks().Merge(observability.LogHooks(logger))),
	}

	exts, err := Extensions(cfg.Actions, logger)
	if err != nil {
		return nil, err
	}
	opts = append(opts, persona.WithExtensions(exts...))

	if cfg.Templates.Loader == config.LoaderLoam {
		l, err := loam.Open(cfg.Templates.Dir)
		if err != nil {
			return nil, err
		}
		opts = append(opts, persona.WithLoader(l))
	}

	sink, locker, closer, err := OpenTranscript(ctx, cfg.Transcript)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		rt.closers = append(rt.closers, closer)
	}
	if sink != nil {
		opts = append(opts, persona.WithTranscript(sink))
	}
	if locker != nil {
		opts = append(opts, persona.WithLocker(locker))
	}

	rt.Engine, err = persona.New(cfg.Templates.Dir, opts...)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	logger.Debug("engine ready",
		"provider", cfg.LLM.Provider,
		"strategy", strategy,
		"loader", cfg.Templates.Loader,
		"transcript", cfg.Transcript.Backend,
	)
	return rt, nil
}

// Extensions returns the built-in actions plus the external command actions
// declared in cfg.File.
func Extensions(cfg config.ActionsConfig, logger *slog.Logger) ([]registry.Extension, error) {
	exts := ext.All(logger)
	if cfg.File == "" {
		return exts, nil
	}
	actions, err := process.LoadActions(cfg.File)
	if err != nil {
		return nil, err
	}
	runner := process.NewRunner(process.WithBaseDir(filepath.Dir(cfg.File)))
	logger.Debug("process actions loaded", "file", cfg.File, "count", len(actions))
	return append(exts, runner.Extensions(actions)...), nil
}

// OpenTranscript opens the configured transcript backend, wrapped with PII
// masking and encryption when configured. The memory backend keeps no
// transcript and returns a nil sink. Redis also provides the distributed lock.
func OpenTranscript(ctx context.Context, cfg config.TranscriptConfig) (ports.TranscriptSink, ports.DistributedLocker, func() error, error) {
	mws, err := protection(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	sink, locker, closer, err := openBackend(ctx, cfg)
	if err != nil || sink == nil {
		return sink, locker, closer, err
	}
	return middleware.Chain(sink, mws...), locker, closer, nil
}

// protection builds the sink middlewares: masking runs before encryption.
func protection(cfg config.TranscriptConfig) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if cfg.MaskPII {
		patterns := cfg.PIIPatterns
		if len(patterns) == 0 {
			patterns = middleware.DefaultPIIPatterns
		}
		mw, err := middleware.NewPIIMiddleware(patterns)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	if cfg.EncryptionKey != "" {
		active, err := middleware.ParseKey(cfg.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("transcript key: %w", err)
		}
		enc := middleware.EncryptionConfig{ActiveKey: active}
		for i, k := range cfg.FallbackKeys {
			key, err := middleware.ParseKey(k)
			if err != nil {
				return nil, fmt.Errorf("transcript fallback key %d: %w", i, err)
			}
			enc.FallbackKeys = append(enc.FallbackKeys, key)
		}
		mw, err := middleware.NewEncryptionMiddleware(enc)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return mws, nil
}

func openBackend(ctx context.Context, cfg config.TranscriptConfig) (ports.TranscriptSink, ports.DistributedLocker, func() error, error) {
	switch cfg.Backend {
	case config.TranscriptFile:
		return file.New(cfg.Dir), nil, nil, nil
	case config.TranscriptRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		var opts []redisadapter.Option
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redisadapter.WithPrefix(cfg.Redis.Prefix))
		}
		if cfg.TTL > 0 {
			opts = append(opts, redisadapter.WithTTL(cfg.TTL))
		}
		prefix := cfg.Redis.Prefix
		if prefix == "" {
			prefix = redisadapter.DefaultPrefix
		}
		return redisadapter.NewFromClient(client, opts...), redisadapter.NewLocker(client, prefix), client.Close, nil
	default:
		return nil, nil, nil, nil
	}
}
