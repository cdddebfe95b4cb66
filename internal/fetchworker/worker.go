// Package fetchworker runs headline fetches on a background goroutine and
// hands the resulting cards to a foreground loop that must never block.
package fetchworker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/samvad-hq/headlines/internal/domain"
	"github.com/samvad-hq/headlines/internal/logger"
	"github.com/samvad-hq/headlines/internal/metrics"
	"github.com/samvad-hq/headlines/pkg/newsapi"
)

const defaultResultBuffer = 256

var (
	// ErrChannelClosed is returned by the command methods once the worker has exited.
	ErrChannelClosed = errors.New("fetch worker: channel closed")
	// ErrEmptyCredential is returned when SendCredential is given a blank key.
	ErrEmptyCredential = errors.New("fetch worker: empty credential")
)

// Fetcher performs a single fetch attempt.
type Fetcher interface {
	Fetch(ctx context.Context, credential string) (*newsapi.Envelope, error)
}

// Enricher may improve a card before it is handed to the foreground.
type Enricher interface {
	Enrich(ctx context.Context, card domain.NewsCard) domain.NewsCard
}

// State is the worker's position in its fetch cycle.
type State int32

const (
	StateAwaitingCredential State = iota + 1
	StateFetching
	StateIdle
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateAwaitingCredential:
		return "awaiting_credential"
	case StateFetching:
		return "fetching"
	case StateIdle:
		return "idle"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Options configures a Worker. The zero value is usable.
type Options struct {
	Logger   logger.Logger
	Metrics  *metrics.Collector
	Enricher Enricher
	// OnError is called on the worker goroutine for every failed attempt.
	OnError func(error)
	// ResultBuffer bounds the number of cards waiting for the foreground.
	ResultBuffer int
}

// Worker is the caller's handle on a running background fetcher.
type Worker struct {
	fetcher  Fetcher
	log      logger.Logger
	metrics  *metrics.Collector
	enricher Enricher
	onError  func(error)

	results chan domain.NewsCard
	inbox   *mailbox
	quit    chan struct{}
	done    chan struct{}
	once    sync.Once
	state   atomic.Int32
}

// Start spawns the worker goroutine and returns immediately. With an empty
// credential the worker parks until SendCredential; otherwise it fetches at once.
// Cancelling ctx stops the worker at its next suspension point.
func Start(ctx context.Context, fetcher Fetcher, credential string, opts Options) *Worker {
	if ctx == nil {
		ctx = context.Background()
	}
	size := opts.ResultBuffer
	if size <= 0 {
		size = defaultResultBuffer
	}

	w := &Worker{
		fetcher:  fetcher,
		log:      logger.Ensure(opts.Logger),
		metrics:  opts.Metrics,
		enricher: opts.Enricher,
		onError:  opts.OnError,
		results:  make(chan domain.NewsCard, size),
		inbox:    newMailbox(),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	if fetcher == nil {
		w.log.ErrorObj("fetch worker not started", "worker_error", "fetcher is nil")
		w.state.Store(int32(StateStopped))
		w.inbox.close()
		close(w.done)
		return w
	}

	credential = strings.TrimSpace(credential)
	if credential == "" {
		w.state.Store(int32(StateAwaitingCredential))
	} else {
		w.state.Store(int32(StateFetching))
	}

	go w.run(ctx, credential)
	return w
}

// TryReceive returns the next card if one is ready. It never blocks.
func (w *Worker) TryReceive() (domain.NewsCard, bool) {
	if w == nil {
		return domain.NewsCard{}, false
	}
	select {
	case card := <-w.results:
		return card, true
	default:
		return domain.NewsCard{}, false
	}
}

// SendCredential delivers a key to the worker and triggers one fetch with it.
func (w *Worker) SendCredential(cred string) error {
	cred = strings.TrimSpace(cred)
	if cred == "" {
		return ErrEmptyCredential
	}
	return w.inbox.postCredential(cred)
}

// RequestRefresh triggers one fetch with the last known credential. Refreshes
// requested while a fetch is running collapse into a single follow-up fetch.
// Clearing previously displayed cards is the caller's job.
func (w *Worker) RequestRefresh() error {
	return w.inbox.postRefresh()
}

// Close stops the worker. An in-flight request is allowed to finish; its
// cards are discarded if nobody is receiving.
func (w *Worker) Close() {
	w.once.Do(func() {
		w.inbox.close()
		close(w.quit)
	})
}

// Done is closed once the worker goroutine has exited.
func (w *Worker) Done() <-chan struct{} { return w.done }

// State reports the worker's current state.
func (w *Worker) State() State { return State(w.state.Load()) }

func (w *Worker) run(ctx context.Context, credential string) {
	defer close(w.done)
	defer w.state.Store(int32(StateStopped))
	defer w.inbox.close()

	// in-flight requests outlive cancellation of the worker
	fetchCtx := context.WithoutCancel(ctx)

	if credential != "" {
		w.pass(ctx, fetchCtx, credential)
	} else {
		w.log.InfoObj("fetch worker awaiting credential", "worker_state", StateAwaitingCredential.String())
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.quit:
			return
		case <-w.inbox.wake:
		}
		if w.stopping(ctx) {
			return
		}

		cmds := w.inbox.take()
		if cmds.empty() {
			continue
		}
		if cmds.hasCredential {
			credential = cmds.credential
		}
		if credential == "" {
			w.log.WarnObj("refresh ignored", "worker_state", map[string]any{
				"state":  w.State().String(),
				"reason": "no credential",
			})
			continue
		}

		w.pass(ctx, fetchCtx, credential)
	}
}

// stopping reports, without blocking, whether Close or ctx asked the worker to exit.
func (w *Worker) stopping(ctx context.Context) bool {
	select {
	case <-w.quit:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// pass runs one fetch attempt and streams its cards to the result channel.
func (w *Worker) pass(ctx, fetchCtx context.Context, credential string) {
	w.state.Store(int32(StateFetching))
	defer w.state.Store(int32(StateIdle))

	attemptID, _ := gonanoid.New()
	w.metrics.FetchStarted()
	w.log.DebugObj("fetch started", "fetch_attempt", map[string]any{
		"attempt_id": attemptID,
	})

	env, err := w.fetcher.Fetch(fetchCtx, credential)
	if err == nil && env != nil && !env.OK() {
		err = &newsapi.Error{
			Kind:   newsapi.KindRejected,
			Reason: newsapi.ReasonForCode(env.Code),
			Code:   env.Code,
		}
	}
	if err != nil {
		w.fail(attemptID, err)
		return
	}

	var articles []newsapi.Article
	if env != nil {
		articles = env.Articles
	}

	for i, a := range articles {
		card := domain.NewNewsCard(a.Title, a.URL, a.Description)
		if w.enricher != nil && card.HasPlaceholder() {
			card = w.enricher.Enrich(ctx, card)
		}
		if !w.emit(ctx, card) {
			w.log.InfoObj("fetch abandoned", "fetch_attempt", map[string]any{
				"attempt_id": attemptID,
				"delivered":  i,
				"total":      len(articles),
			})
			return
		}
	}

	w.log.InfoObj("fetch completed", "fetch_attempt", map[string]any{
		"attempt_id": attemptID,
		"cards":      len(articles),
	})
}

func (w *Worker) fail(attemptID string, err error) {
	kind := newsapi.KindOf(err)
	w.metrics.FetchFailed(kind.String())
	w.log.WarnObj("fetch failed", "fetch_error", map[string]any{
		"attempt_id": attemptID,
		"kind":       kind.String(),
		"error":      err.Error(),
	})
	if w.onError != nil {
		w.onError(err)
	}
}

func (w *Worker) emit(ctx context.Context, card domain.NewsCard) bool {
	select {
	case w.results <- card:
		w.metrics.CardEmitted()
		return true
	case <-w.quit:
		return false
	case <-ctx.Done():
		return false
	}
}
