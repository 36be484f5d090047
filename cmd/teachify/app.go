package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/teachify/teachify"
	"github.com/teachify/teachify/gateway"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app is one bootstrapped client plus everything it owns.
type app struct {
	client *teachify.Client
	logger *zap.Logger

	closers []func()
}

func (a *app) Close() {
	_ = a.client.Close()
	a.runClosers()
	_ = a.logger.Sync()
}

type appOptions struct {
	notifier teachify.Notifier
}

// openApp builds and bootstraps a client from the environment and the
// persistent flags.
func openApp(cmd *cobra.Command, opts appOptions) (*app, error) {
	logger, err := newLogger(flags.verbose)
	if err != nil {
		return nil, err
	}
	a := &app{logger: logger}

	cfg, err := loadConfig(cmd)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	b := teachify.New().WithLogger(logger)
	if flags.store == "redis-embedded" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start embedded redis: %w", err)
		}
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		a.closers = append(a.closers, mr.Close, func() { _ = rdb.Close() })
		logger.Warn("embedded redis keeps credentials for this run only", zap.String("addr", mr.Addr()))
		b.WithRedis(rdb)
	}

	gw, err := gateway.New(cfg.Gateway, gateway.WithLogger(logger.Named("gateway")))
	if err != nil {
		a.runClosers()
		return nil, err
	}
	notifier := opts.notifier
	if notifier == nil {
		notifier = newStderrNotifier(cmd.ErrOrStderr())
	}

	client, err := b.WithConfig(cfg).WithGateway(gw).WithNotifier(notifier).Build()
	if err != nil {
		a.runClosers()
		return nil, err
	}
	a.client = client

	if err := client.Bootstrap(cmd.Context()); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) runClosers() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func loadConfig(cmd *cobra.Command) (teachify.Config, error) {
	var files []string
	if flags.envFile != "" {
		files = append(files, flags.envFile)
	}
	cfg, err := teachify.LoadConfigFromEnv(files...)
	if err != nil {
		return teachify.Config{}, err
	}

	pf := cmd.Flags()
	if pf.Changed("api-url") {
		cfg.Gateway.BaseURL = flags.apiURL
	}
	if pf.Changed("redis-addr") {
		cfg.Credentials.RedisAddr = flags.redisAddr
	}
	if pf.Changed("device") {
		cfg.Credentials.Device = flags.device
	}
	if pf.Changed("store-file") {
		cfg.Credentials.FilePath = flags.storeFile
	}

	switch flags.store {
	case "":
		if os.Getenv("TEACHIFY_CREDENTIALS") == "" {
			cfg.Credentials.Backend = teachify.BackendFile
		}
	case "file":
		cfg.Credentials.Backend = teachify.BackendFile
	case "redis", "redis-embedded":
		cfg.Credentials.Backend = teachify.BackendRedis
	case "memory":
		cfg.Credentials.Backend = teachify.BackendMemory
	default:
		return teachify.Config{}, fmt.Errorf("unknown store %q", flags.store)
	}

	if cfg.Credentials.Backend == teachify.BackendFile && cfg.Credentials.FilePath == "" {
		path, err := defaultCredentialsPath()
		if err != nil {
			return teachify.Config{}, err
		}
		cfg.Credentials.FilePath = path
	}
	return cfg, nil
}

func defaultCredentialsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	dir = filepath.Join(dir, "teachify")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	return filepath.Join(dir, "session.json"), nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	return cfg.Build()
}

// stderrNotifier prints notifications the way the web client shows toasts.
type stderrNotifier struct {
	w io.Writer
}

func newStderrNotifier(w io.Writer) *stderrNotifier {
	return &stderrNotifier{w: w}
}

func (n *stderrNotifier) Notify(note teachify.Notification) {
	fmt.Fprintf(n.w, "[%s] %s\n", note.Kind, note.Message)
}
