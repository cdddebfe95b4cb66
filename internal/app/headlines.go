package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/headlines/internal/config"
	"github.com/samvad-hq/headlines/internal/domain"
	"github.com/samvad-hq/headlines/internal/enrich"
	"github.com/samvad-hq/headlines/internal/fetchworker"
	"github.com/samvad-hq/headlines/internal/logger"
	"github.com/samvad-hq/headlines/internal/metrics"
	"github.com/samvad-hq/headlines/internal/poller"
	"github.com/samvad-hq/headlines/internal/settings"
	"github.com/samvad-hq/headlines/internal/storage"
	"github.com/samvad-hq/headlines/pkg/httpclient"
	"github.com/samvad-hq/headlines/pkg/newsapi"
	"github.com/samvad-hq/headlines/pkg/publishers"
)

// Headlines is the foreground runtime. It owns the card list, drains the
// fetch worker once per tick and forwards new cards to the relay.
//
// Every method except LastError must be called from the goroutine that runs
// the tick loop.
type Headlines struct {
	log          logger.Logger
	metrics      *metrics.Collector
	worker       *fetchworker.Worker
	cards        domain.CardList
	tickInterval time.Duration

	settingsPath string
	settings     settings.Settings

	relay  *relay
	fanout *publishers.Fanout
	store  storage.Store

	errMu       sync.Mutex
	lastErr     error
	reportedErr error

	closeOnce sync.Once
}

// components are the collaborators NewHeadlines builds from config; tests
// inject fakes through assemble.
type components struct {
	fetcher  fetchworker.Fetcher
	enricher fetchworker.Enricher
	metrics  *metrics.Collector
	fanout   *publishers.Fanout
	store    storage.Store
	country  string
}

// NewHeadlines builds the runtime from config and starts the fetch worker.
// The credential comes from config when set, otherwise from the settings file;
// with neither the worker waits until Reload finds a key in the settings file.
func NewHeadlines(ctx context.Context, cfg *config.Config, log logger.Logger) (*Headlines, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := newsapi.BuildURL(cfg.NewsBaseURL, newsapi.Endpoint(cfg.NewsEndpoint), newsapi.Country(cfg.NewsCountry)); err != nil {
		return nil, fmt.Errorf("news endpoint: %w", err)
	}

	client := newsapi.NewClient(
		httpclient.NewRestyClientWithOptions(httpclient.Options{
			Timeout:           cfg.HTTPTimeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Burst:             1,
		}),
		newsapi.Config{
			BaseURL:   cfg.NewsBaseURL,
			Endpoint:  newsapi.Endpoint(cfg.NewsEndpoint),
			Country:   newsapi.Country(cfg.NewsCountry),
			UserAgent: cfg.UserAgent,
		},
	)

	parts := components{
		fetcher: client,
		metrics: metrics.New(),
		country: cfg.NewsCountry,
	}
	if cfg.EnrichDescriptions {
		parts.enricher = enrich.NewScraper(httpclient.NewRestyClientWithOptions(httpclient.Options{
			Timeout:      cfg.HTTPTimeout,
			MaxBodyBytes: enrich.MaxHTMLBodyBytes,
		}), cfg.UserAgent, log)
	}

	fanout, err := buildFanout(ctx, cfg.PublishersFile, log)
	if err != nil {
		return nil, err
	}
	parts.fanout = fanout

	if fanout.Size() > 0 {
		store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
			CardTTL:         cfg.StorageTTL,
			CleanupInterval: cfg.StorageCleanupInterval,
		})
		if err != nil {
			_ = fanout.Close()
			return nil, fmt.Errorf("init storage: %w", err)
		}
		log.InfoObj("storage initialized", "storage_config", map[string]any{
			"type":                     cfg.StorageType,
			"path":                     cfg.BBoltPath,
			"card_ttl_seconds":         int(cfg.StorageTTL.Seconds()),
			"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
		})
		parts.store = store
	}

	return assemble(ctx, cfg, log, parts)
}

// buildFanout loads and builds publishers. An empty path disables relaying.
func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	if strings.TrimSpace(path) == "" {
		log.InfoObj("publishers disabled", "publishers_file", "")
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := publisherReg.Enabled()

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients), nil
}

func assemble(ctx context.Context, cfg *config.Config, log logger.Logger, parts components) (*Headlines, error) {
	settingsPath := strings.TrimSpace(cfg.SettingsFile)
	if settingsPath == "" {
		p, err := settings.DefaultPath()
		if err != nil {
			return nil, err
		}
		settingsPath = p
	}
	prefs, err := settings.Load(settingsPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	credential := strings.TrimSpace(cfg.APIKey)
	source := "config"
	if credential == "" {
		credential = prefs.APIKey
		source = "settings"
	}
	if credential == "" {
		source = "none"
	}

	h := &Headlines{
		log:          log,
		metrics:      parts.metrics,
		tickInterval: cfg.TickInterval,
		settingsPath: settingsPath,
		settings:     prefs,
		fanout:       parts.fanout,
		store:        parts.store,
	}
	if h.tickInterval <= 0 {
		h.tickInterval = 100 * time.Millisecond
	}
	if parts.fanout.Size() > 0 {
		h.relay = startRelay(ctx, relayOptions{
			fanout:  parts.fanout,
			store:   parts.store,
			metrics: parts.metrics,
			log:     log,
			country: parts.country,
			buffer:  cfg.ResultBuffer,
		})
	}

	h.worker = fetchworker.Start(ctx, parts.fetcher, credential, fetchworker.Options{
		Logger:       log,
		Metrics:      parts.metrics,
		Enricher:     parts.enricher,
		OnError:      h.recordError,
		ResultBuffer: cfg.ResultBuffer,
	})

	log.InfoObj("headlines runtime ready", "runtime_state", map[string]any{
		"credential_source": source,
		"settings_file":     settingsPath,
		"publishers_count":  parts.fanout.Size(),
		"tick_interval":     h.tickInterval.String(),
	})
	return h, nil
}

// Tick drains ready cards into the list and offers them to the relay. It
// returns how many cards arrived and never blocks.
func (h *Headlines) Tick() int {
	before := h.cards.Len()
	n := poller.DrainInto(h.worker, &h.cards)
	if n == 0 || h.relay == nil {
		return n
	}
	for _, card := range h.cards.Since(before) {
		if !h.relay.Offer(card) {
			h.log.WarnObj("relay queue full; card not published", "relay_drop", map[string]any{
				"url": card.URL,
			})
		}
	}
	return n
}

// Refresh clears the displayed cards and asks the worker for a new pass.
func (h *Headlines) Refresh() error {
	h.cards.Clear()
	if err := h.worker.RequestRefresh(); err != nil {
		return fmt.Errorf("request refresh: %w", err)
	}
	return nil
}

// Reload re-reads the settings file. A new non-blank key is handed to the
// worker, which fetches with it straight away; otherwise the displayed cards
// are refreshed. This is how a key saved by `headlines set-key` reaches a
// running process.
func (h *Headlines) Reload() error {
	prefs, err := settings.Load(h.settingsPath)
	if err != nil {
		return fmt.Errorf("reload settings: %w", err)
	}
	keyChanged := prefs.HasAPIKey() && prefs.APIKey != h.settings.APIKey
	h.settings = prefs

	h.log.InfoObj("settings reloaded", "settings_state", map[string]any{
		"settings_file": h.settingsPath,
		"key_changed":   keyChanged,
		"dark_mode":     h.DarkMode(),
	})

	if !keyChanged {
		return h.Refresh()
	}
	h.cards.Clear()
	if err := h.worker.SendCredential(prefs.APIKey); err != nil {
		return fmt.Errorf("send credential: %w", err)
	}
	return nil
}

// Cards returns the displayed cards in arrival order.
func (h *Headlines) Cards() []domain.NewsCard { return h.cards.Cards() }

// DarkMode reports the theme preference as last read from the settings file.
func (h *Headlines) DarkMode() bool { return h.settings.DarkMode }

// State reports the fetch worker's state.
func (h *Headlines) State() fetchworker.State { return h.worker.State() }

// Metrics returns the collector shared by the worker and the relay.
func (h *Headlines) Metrics() *metrics.Collector { return h.metrics }

// LastError returns the most recent fetch failure, if any. Safe for concurrent use.
func (h *Headlines) LastError() error {
	h.errMu.Lock()
	defer h.errMu.Unlock()
	return h.lastErr
}

func (h *Headlines) recordError(err error) {
	h.errMu.Lock()
	h.lastErr = err
	h.errMu.Unlock()
}

// reportFailure logs the latest fetch failure once, with the reason a user
// would be shown for a rejection.
func (h *Headlines) reportFailure() {
	err := h.LastError()
	if err == nil || err == h.reportedErr {
		return
	}
	h.reportedErr = err

	payload := map[string]any{
		"kind":  newsapi.KindOf(err).String(),
		"error": err.Error(),
	}
	var apiErr *newsapi.Error
	if errors.As(err, &apiErr) && apiErr.Reason != "" {
		payload["reason"] = apiErr.Reason
	}
	h.log.WarnObj("headlines unavailable", "fetch_failure", payload)
}

// Run ticks until ctx is done. Each receive on reloads triggers Reload.
// The runtime is closed on return.
func (h *Headlines) Run(ctx context.Context, reloads <-chan struct{}) error {
	if h == nil || h.worker == nil {
		return fmt.Errorf("headlines runtime is not initialized")
	}
	defer h.Close()

	ticker := time.NewTicker(h.tickInterval)
	defer ticker.Stop()

	h.log.InfoObj("tick loop starting", "runtime_state", map[string]any{
		"tick_interval": h.tickInterval.String(),
		"worker_state":  h.worker.State().String(),
		"dark_mode":     h.DarkMode(),
	})

	for {
		select {
		case <-ctx.Done():
			h.log.InfoObj("tick loop exiting", "runtime_state", map[string]any{
				"reason": ctx.Err().Error(),
				"cards":  len(h.Cards()),
			})
			return nil
		case <-h.worker.Done():
			if ctx.Err() != nil {
				return nil
			}
			return errors.New("fetch worker stopped")
		case <-reloads:
			if err := h.Reload(); err != nil {
				h.log.ErrorObj("reload failed", "error", err.Error())
				continue
			}
			h.log.InfoObj("fetch requested", "runtime_state", h.worker.State().String())
		case <-ticker.C:
			before := h.cards.Len()
			if n := h.Tick(); n > 0 {
				h.logCards(before)
			}
			h.reportFailure()
		}
	}
}

func (h *Headlines) logCards(from int) {
	for i, card := range h.cards.Since(from) {
		h.log.InfoObj("headline", "card", map[string]any{
			"index":       from + i,
			"title":       card.Title,
			"description": card.Description,
			"url":         card.URL,
		})
	}
}

// Close stops the worker and the relay and releases publishers and storage.
func (h *Headlines) Close() {
	if h == nil {
		return
	}
	h.closeOnce.Do(func() {
		if h.worker != nil {
			h.worker.Close()
		}
		if h.relay != nil {
			h.relay.Close()
		}
		if err := h.fanout.Close(); err != nil {
			h.log.ErrorObj("publishers close failed", "error", err.Error())
		}
		if h.store != nil {
			if err := h.store.Close(); err != nil {
				h.log.ErrorObj("storage close failed", "error", err.Error())
			}
		}
	})
}
