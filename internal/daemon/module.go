package daemon

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/matheus3301/lexchat/internal/config"
	"github.com/matheus3301/lexchat/internal/lock"
	"github.com/matheus3301/lexchat/internal/logging"
	"github.com/matheus3301/lexchat/internal/news"
	"github.com/matheus3301/lexchat/internal/server"
	"github.com/matheus3301/lexchat/internal/session"
	"github.com/matheus3301/lexchat/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	Config      *config.Config
	ListenAddr  string // optional override for testing; empty = use config
	// Logger replaces the file logger, mainly for tests.
	Logger *zap.Logger
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideLock,
			provideStore,
			provideNews,
			provideHandler,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	if p.Logger != nil {
		return p.Logger, nil
	}
	return logging.New(session.LogPath(p.SessionName), p.SessionName)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

// provideStore depends on the lock so the database is only opened by its owner.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.DBPath(p.SessionName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("from", result.From), zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideNews(p Params, logger *zap.Logger) (*news.Proxy, error) {
	cfg := p.Config.News
	if cfg.APIKey == "" {
		logger.Warn("news api key not configured; upstream may reject requests")
	}
	return news.NewProxy(cfg.UpstreamURL, cfg.APIKey, cfg.Timeout.Duration, logger.Named("news"))
}

func provideHandler(p Params, db *store.DB, proxy *news.Proxy, logger *zap.Logger) (http.Handler, error) {
	secret, err := signingSecret(p)
	if err != nil {
		return nil, err
	}
	return server.New(db, server.Options{
		JWTSecret:      secret,
		TokenTTL:       p.Config.Server.TokenTTL.Duration,
		AllowedOrigins: p.Config.Server.AllowedOrigins,
		News:           proxy,
	}, logger.Named("http")), nil
}

// signingSecret returns the configured JWT secret, or one generated on first
// boot and kept in the session directory.
func signingSecret(p Params) (string, error) {
	if p.Config.Server.JWTSecret != "" {
		return p.Config.Server.JWTSecret, nil
	}
	path := session.SecretPath(p.SessionName)
	data, err := os.ReadFile(path)
	if err == nil && len(strings.TrimSpace(string(data))) > 0 {
		return strings.TrimSpace(string(data)), nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read signing secret: %w", err)
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate signing secret: %w", err)
	}
	secret := hex.EncodeToString(buf)
	if err := os.WriteFile(path, []byte(secret+"\n"), 0600); err != nil {
		return "", fmt.Errorf("write signing secret: %w", err)
	}
	return secret, nil
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, db *store.DB, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if err := srv.Listen(); err != nil {
				return err
			}
			if err := lk.SetAddr(srv.Addr()); err != nil {
				logger.Warn("could not record listen address", zap.Error(err))
			}
			// Start HTTP server in background.
			go func() {
				if err := srv.Serve(); err != nil {
					logger.Error("http server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			srv.Stop(ctx)
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
