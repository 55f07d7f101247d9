// Command server runs the portier authentication service.
//
// Configuration is read from a YAML file (-config, PORTIER_CONFIG,
// ./portier.yaml or /etc/portier/config.yaml) with PORTIER_* environment
// overrides. See pkg/config for the full list.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/rhuss/portier/pkg/auth"
	"github.com/rhuss/portier/pkg/auth/apikey"
	"github.com/rhuss/portier/pkg/auth/noop"
	"github.com/rhuss/portier/pkg/auth/pgmanager"
	"github.com/rhuss/portier/pkg/config"
	"github.com/rhuss/portier/pkg/debug"
	"github.com/rhuss/portier/pkg/tokens"
	"github.com/rhuss/portier/pkg/transport"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	debug.Init(debug.Options{
		Categories: cfg.Log.Debug,
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
	})

	ctx := context.Background()

	codec, err := tokens.New(ctx, cfg.Tokens.Codec())
	if err != nil {
		return fmt.Errorf("creating token codec: %w", err)
	}

	manager, closeManager, err := newManager(ctx, cfg.Auth)
	if err != nil {
		return fmt.Errorf("creating auth manager: %w", err)
	}
	defer closeManager()

	gate := auth.NewGate(manager, codec)

	var ready readiness
	if p, ok := manager.(readiness); ok {
		ready = p
	}

	srv := transport.NewServer(newHandler(cfg, codec, gate, ready), nil,
		transport.WithAddr(":"+strconv.Itoa(cfg.Server.Port)),
		transport.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transport.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
	)

	slog.Info("portier configured",
		"auth_type", cfg.Auth.Type,
		"token_strategy", codec.Strategy(),
		"can_issue", codec.Config().CanIssue(),
		"debug", debug.Categories(),
	)
	return srv.ListenAndServe()
}

// newManager returns a nil AuthManager for auth.type "none".
func newManager(ctx context.Context, cfg config.AuthConfig) (auth.AuthManager, func(), error) {
	nothing := func() {}
	switch cfg.Type {
	case "dev":
		slog.Warn("development auth manager accepts any basic login")
		return noop.Manager{}, nothing, nil
	case "apikey":
		return apikey.New(cfg.Entries()), nothing, nil
	case "postgres":
		m, err := pgmanager.New(ctx, cfg.Postgres.Manager())
		if err != nil {
			return nil, nothing, err
		}
		return m, m.Close, nil
	default:
		return nil, nothing, nil
	}
}
