package app

import (
	"context"
	"sync"

	"github.com/samvad-hq/headlines/internal/domain"
	"github.com/samvad-hq/headlines/internal/logger"
	"github.com/samvad-hq/headlines/internal/metrics"
	"github.com/samvad-hq/headlines/internal/storage"
	"github.com/samvad-hq/headlines/pkg/publishers"
)

// Publish outcomes recorded on headlines_cards_published_total.
const (
	publishStatusPublished = "published"
	publishStatusDuplicate = "duplicate"
	publishStatusFailed    = "failed"
)

const defaultRelayBuffer = 256

type relayOptions struct {
	fanout  *publishers.Fanout
	store   storage.Store
	metrics *metrics.Collector
	log     logger.Logger
	country string
	buffer  int
}

// relay publishes cards downstream on its own goroutine so the tick loop
// never waits on the network. Cards already marked in the store are skipped.
type relay struct {
	queue   chan domain.NewsCard
	fanout  *publishers.Fanout
	store   storage.Store
	metrics *metrics.Collector
	log     logger.Logger
	country string

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func startRelay(ctx context.Context, opts relayOptions) *relay {
	size := opts.buffer
	if size <= 0 {
		size = defaultRelayBuffer
	}
	store := opts.store
	if store == nil {
		store = storage.NewNoopStore()
	}

	ctx, cancel := context.WithCancel(ctx)
	r := &relay{
		queue:   make(chan domain.NewsCard, size),
		fanout:  opts.fanout,
		store:   store,
		metrics: opts.metrics,
		log:     logger.Ensure(opts.log),
		country: opts.country,
		cancel:  cancel,
	}
	r.wg.Add(1)
	go r.run(ctx)
	return r
}

// Offer queues card for publishing. It reports false when the queue is full.
func (r *relay) Offer(card domain.NewsCard) bool {
	select {
	case r.queue <- card:
		return true
	default:
		return false
	}
}

// Close stops the relay goroutine and waits for it. Queued cards that were
// not yet picked up are dropped.
func (r *relay) Close() {
	r.once.Do(func() {
		r.cancel()
		r.wg.Wait()
	})
}

func (r *relay) run(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case card := <-r.queue:
			r.deliver(ctx, card)
		}
	}
}

func (r *relay) deliver(ctx context.Context, card domain.NewsCard) {
	evt := publishers.NewEvent(card, r.country)

	seen, err := r.store.SeenCard(evt.CardID)
	if err != nil {
		r.log.WarnObj("relay dedupe lookup failed", "relay_error", map[string]any{
			"card_id": evt.CardID,
			"error":   err.Error(),
		})
	}
	if seen {
		r.metrics.CardPublished(publishStatusDuplicate)
		r.log.DebugObj("card already published", "card_id", evt.CardID)
		return
	}

	count, err := r.fanout.Publish(ctx, evt)
	if count == 0 {
		r.metrics.CardPublished(publishStatusFailed)
		r.log.ErrorObj("card publish failed", "relay_error", map[string]any{
			"card_id": evt.CardID,
			"url":     card.URL,
			"error":   errString(err),
		})
		return
	}
	if err != nil {
		r.log.WarnObj("card published partially", "relay_error", map[string]any{
			"card_id":   evt.CardID,
			"delivered": count,
			"error":     err.Error(),
		})
	}

	if err := r.store.MarkCard(evt.CardID); err != nil {
		r.log.WarnObj("relay mark failed", "relay_error", map[string]any{
			"card_id": evt.CardID,
			"error":   err.Error(),
		})
	}
	r.metrics.CardPublished(publishStatusPublished)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
