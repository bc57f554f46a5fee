package daemon

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/lexchat/internal/chatapi"
	"github.com/matheus3301/lexchat/internal/config"
	"github.com/matheus3301/lexchat/internal/lock"
	"github.com/matheus3301/lexchat/internal/session"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func testParams(t *testing.T) Params {
	t.Helper()
	t.Setenv(session.HomeEnv, t.TempDir())
	return Params{
		SessionName: "test",
		Config:      config.Default(),
		ListenAddr:  "127.0.0.1:0",
		Logger:      zap.NewNop(),
	}
}

func startApp(t *testing.T, p Params) (*fx.App, *Server) {
	t.Helper()
	var srv *Server
	app := fx.New(Module(p), fx.NopLogger, fx.Populate(&srv))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		t.Fatal(err)
	}
	return app, srv
}

func stopApp(t *testing.T, app *fx.App) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Stop(ctx); err != nil {
		t.Errorf("stop: %v", err)
	}
}

func TestDaemonLifecycle(t *testing.T) {
	p := testParams(t)
	app, srv := startApp(t, p)
	defer stopApp(t, app)

	base := "http://" + srv.Addr()
	resp, err := http.Get(base + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}

	client, err := chatapi.New(base, chatapi.WithTimeout(5*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	reg, err := client.Register(ctx, &chatapi.RegisterRequest{FullName: "Ana", Email: "ana@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	client.SetTokenSource(chatapi.StaticToken(reg.Token))
	convs, err := client.ListConversations(ctx, reg.User.UserID)
	if err != nil {
		t.Fatalf("ListConversations error = %v", err)
	}
	if len(convs) != 0 {
		t.Errorf("expected 0 conversations, got %d", len(convs))
	}

	// The generated signing secret is persisted for the next boot.
	data, err := os.ReadFile(session.SecretPath(p.SessionName))
	if err != nil || strings.TrimSpace(string(data)) == "" {
		t.Errorf("secret file = %q, %v", data, err)
	}

	owner, held := lock.Probe(session.Dir(p.SessionName))
	if !held || owner.Addr != srv.Addr() {
		t.Errorf("lock owner = %+v, %v; want addr %s", owner, held, srv.Addr())
	}
}

func TestSecondDaemonRefusedWhileLocked(t *testing.T) {
	p := testParams(t)
	app, _ := startApp(t, p)
	defer stopApp(t, app)

	second := fx.New(Module(p), fx.NopLogger)
	err := second.Err()
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = second.Start(ctx)
	}
	var held *lock.LockHeldError
	if !errors.As(err, &held) {
		t.Fatalf("err = %v, want LockHeldError", err)
	}
	if held.Owner.PID != os.Getpid() {
		t.Errorf("held by PID %d, want %d", held.Owner.PID, os.Getpid())
	}
}

func TestSigningSecretPrefersConfig(t *testing.T) {
	p := testParams(t)
	p.Config.Server.JWTSecret = "configured"
	got, err := signingSecret(p)
	if err != nil {
		t.Fatal(err)
	}
	if got != "configured" {
		t.Errorf("secret = %q", got)
	}
	if _, err := os.Stat(session.SecretPath(p.SessionName)); !os.IsNotExist(err) {
		t.Errorf("configured secret should not be written, stat err = %v", err)
	}
}

func TestSigningSecretStableAcrossBoots(t *testing.T) {
	p := testParams(t)
	if err := session.EnsureDir(p.SessionName); err != nil {
		t.Fatal(err)
	}
	first, err := signingSecret(p)
	if err != nil {
		t.Fatal(err)
	}
	second, err := signingSecret(p)
	if err != nil {
		t.Fatal(err)
	}
	if first == "" || first != second {
		t.Errorf("secrets = %q, %q", first, second)
	}
}
