package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/matheus3301/lexchat/internal/bus"
	"github.com/matheus3301/lexchat/internal/cache"
	"github.com/matheus3301/lexchat/internal/chat"
	"github.com/matheus3301/lexchat/internal/chatapi"
	"github.com/matheus3301/lexchat/internal/config"
	"github.com/matheus3301/lexchat/internal/logging"
	"github.com/matheus3301/lexchat/internal/session"
	"github.com/matheus3301/lexchat/internal/tui"
	"go.uber.org/zap"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	apiFlag := flag.String("api", "", "backend base URL (overrides config api.base_url)")
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := run(sessionName, *apiFlag); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(sessionName, apiOverride string) error {
	cfg, err := config.LoadOrDefault(session.ConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	baseURL := cfg.API.BaseURL
	if apiOverride != "" {
		baseURL = apiOverride
	}

	if err := session.EnsureDir(sessionName); err != nil {
		return err
	}
	logger, err := logging.NewFile(session.ClientLogPath(sessionName), sessionName)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	sess := session.New(sessionName)
	if err := sess.Restore(); err != nil && !errors.Is(err, session.ErrNoToken) {
		logger.Warn("saved login unreadable, signing in again", zap.Error(err))
	}

	tlsConfig, err := cfg.API.TLSConfig()
	if err != nil {
		return err
	}
	api, err := chatapi.New(baseURL,
		chatapi.WithTokenSource(sess),
		chatapi.WithTLSConfig(tlsConfig),
		chatapi.WithTimeout(cfg.API.Timeout.Duration),
		chatapi.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("create api client: %w", err)
	}

	b := bus.New()
	svc := chat.NewService(api, cache.New(b, logger), b, sess, logger)

	logger.Info("starting tui", zap.String("backend", baseURL), zap.Bool("restored", sess.Authenticated()))
	app := tui.NewApp(tui.Options{
		Service:      svc,
		Auth:         api,
		Bus:          b,
		PageSize:     cfg.Client.PageSize,
		PollInterval: cfg.Client.PollInterval.Duration,
		Backend:      baseURL,
		Logger:       logger,
	})
	return app.Run()
}
