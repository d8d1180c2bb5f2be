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

	"github.com/spf13/cobra"

	"github.com/boncukgram/boncuk/pkg/core/advisor"
	"github.com/boncukgram/boncuk/pkg/core/providers/gemini"
	"github.com/boncukgram/boncuk/pkg/gateway/config"
	gatewayserver "github.com/boncukgram/boncuk/pkg/gateway/server"
	"github.com/boncukgram/boncuk/pkg/settings"
)

type serveDeps struct {
	loadConfig   func() (config.Config, error)
	openBackends func(context.Context, config.Config, *slog.Logger) (gatewayserver.Deps, func(), error)
	signalNotify func(chan<- os.Signal, ...os.Signal)
	signalStop   func(chan<- os.Signal)
}

func defaultServeDeps() serveDeps {
	return serveDeps{
		loadConfig:   config.LoadFromEnv,
		openBackends: openBackends,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			signal.Notify(c, sig...)
		},
		signalStop: signal.Stop,
	}
}

// openBackends builds the model provider and opens the settings store.
func openBackends(ctx context.Context, cfg config.Config, logger *slog.Logger) (gatewayserver.Deps, func(), error) {
	opts := []gemini.Option{
		gemini.WithHTTPClient(gatewayserver.NewUpstreamClient(cfg)),
		gemini.WithLogger(logger),
	}
	if cfg.GeminiBaseURL != "" {
		opts = append(opts, gemini.WithBaseURL(cfg.GeminiBaseURL))
	}
	provider, err := gemini.New(ctx, cfg.GeminiAPIKey, opts...)
	if err != nil {
		return gatewayserver.Deps{}, nil, fmt.Errorf("create model client: %w", err)
	}

	storeOpts := cfg.SettingsOptions()
	storeOpts.Logger = logger
	store, err := settings.Open(ctx, storeOpts)
	if err != nil {
		return gatewayserver.Deps{}, nil, fmt.Errorf("open settings store: %w", err)
	}

	deps := gatewayserver.Deps{
		Advisor:   advisor.New(provider, advisor.WithModel(cfg.TextModel), advisor.WithLogger(logger)),
		Connector: provider,
		Settings:  store,
	}
	return deps, func() { _ = store.Close() }, nil
}

func buildHTTPServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
	}
}

func newServeCommand(a *app, deps serveDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket gateway",
		Long: `Run the gateway the mobile app talks to: the companion tools over HTTP,
settings, and live sessions relayed over WebSocket at /v1/live.

Configuration is read from BONCUK_* environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), a, deps)
		},
	}
}

func runServe(ctx context.Context, a *app, deps serveDeps) error {
	if deps.loadConfig == nil {
		return errors.New("missing loadConfig dependency")
	}
	if deps.openBackends == nil {
		return errors.New("missing openBackends dependency")
	}
	if deps.signalNotify == nil || deps.signalStop == nil {
		return errors.New("missing signal dependency")
	}

	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := a.logger
	if cfg.LogFormat == config.LogFormatJSON {
		logger = newLogger(a.stderr, cfg.LogFormat, a.debug)
	}

	backends, closeBackends, err := deps.openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackends()

	gw := gatewayserver.New(cfg, logger, backends)
	httpSrv := buildHTTPServer(cfg, gw.Handler())

	logger.Info("starting gateway",
		"addr", cfg.Addr,
		"text_model", cfg.TextModel,
		"live_model", cfg.LiveModel,
		"settings_backend", cfg.SettingsBackend,
	)

	listenErrCh := make(chan error, 1)
	go func() {
		err := httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErrCh <- err
			return
		}
		listenErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	select {
	case err := <-listenErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown requested", "reason", ctx.Err())
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	gw.SetDraining()
	warned := gw.WarnLiveSessionsDraining()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer waitCancel()
	if !gw.WaitLiveSessions(waitCtx) {
		cancelled := gw.CancelLiveSessions()
		logger.Warn("live sessions cancelled after grace period", "warned", warned, "cancelled", cancelled)
	}

	if err := <-listenErrCh; err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("gateway stopped")
	return nil
}
