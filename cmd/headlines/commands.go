package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/samvad-hq/headlines/internal/app"
	"github.com/samvad-hq/headlines/internal/config"
	"github.com/samvad-hq/headlines/internal/logger"
	"github.com/samvad-hq/headlines/internal/metrics"
	"github.com/samvad-hq/headlines/internal/settings"
)

// RunCmd runs the tick loop until interrupted. SIGHUP re-reads the settings
// file, so a key stored with set-key reaches a running process.
type RunCmd struct{}

func (c *RunCmd) Run(globals *Globals) error {
	cfg, err := loadConfig(globals)
	if err != nil {
		return err
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("headlines starting", "config", cfg.Redacted())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	headlines, err := app.NewHeadlines(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize headlines", "error", err.Error())
		return err
	}

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, headlines.Metrics(), log)
		defer shutdownMetrics(srv, log)
	}

	if err := headlines.Run(ctx, hangups(ctx)); err != nil {
		return fmt.Errorf("headlines run: %w", err)
	}
	return nil
}

// SetKeyCmd stores a NewsAPI key. A running process picks it up on SIGHUP.
type SetKeyCmd struct {
	Key string `arg:"" name:"key" help:"NewsAPI key."`
}

func (c *SetKeyCmd) Run(globals *Globals) error {
	key := strings.TrimSpace(c.Key)
	if key == "" {
		return errors.New("key must not be empty")
	}
	return updateSettings(globals, func(s *settings.Settings) { s.APIKey = key })
}

// ToggleThemeCmd flips the stored dark mode flag.
type ToggleThemeCmd struct{}

func (c *ToggleThemeCmd) Run(globals *Globals) error {
	var dark bool
	if err := updateSettings(globals, func(s *settings.Settings) {
		s.DarkMode = !s.DarkMode
		dark = s.DarkMode
	}); err != nil {
		return err
	}
	fmt.Printf("dark mode: %t\n", dark)
	return nil
}

func loadConfig(globals *Globals) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if globals != nil && strings.TrimSpace(globals.Settings) != "" {
		cfg.SettingsFile = globals.Settings
	}
	return cfg, nil
}

func updateSettings(globals *Globals, mutate func(*settings.Settings)) error {
	cfg, err := loadConfig(globals)
	if err != nil {
		return err
	}
	path := cfg.SettingsFile
	if strings.TrimSpace(path) == "" {
		if path, err = settings.DefaultPath(); err != nil {
			return err
		}
	}

	s, err := settings.Load(path)
	if err != nil {
		return err
	}
	mutate(&s)
	return settings.Save(path, s)
}

// hangups turns SIGHUP into reload requests for the tick loop.
func hangups(ctx context.Context) <-chan struct{} {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP)

	out := make(chan struct{}, 1)
	go func() {
		defer signal.Stop(sig)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sig:
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out
}

func serveMetrics(addr string, m *metrics.Collector, log logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.ErrorObj("metrics server failed", "error", err.Error())
		}
	}()
	log.InfoObj("metrics server listening", "metrics_addr", addr)
	return srv
}

func shutdownMetrics(srv *http.Server, log logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WarnObj("metrics server shutdown failed", "error", err.Error())
	}
}
