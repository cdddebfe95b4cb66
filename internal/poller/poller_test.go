package poller

import (
	"context"
	"testing"
	"time"

	"github.com/samvad-hq/headlines/internal/domain"
	"github.com/samvad-hq/headlines/internal/fetchworker"
	"github.com/samvad-hq/headlines/pkg/newsapi"
)

type sliceReceiver struct {
	cards []domain.NewsCard
	calls int
}

func (s *sliceReceiver) TryReceive() (domain.NewsCard, bool) {
	s.calls++
	if len(s.cards) == 0 {
		return domain.NewsCard{}, false
	}
	c := s.cards[0]
	s.cards = s.cards[1:]
	return c, true
}

func TestDrainIntoAppendsInOrder(t *testing.T) {
	src := &sliceReceiver{cards: []domain.NewsCard{{Title: "1"}, {Title: "2"}, {Title: "3"}}}
	var sink domain.CardList
	sink.Append(domain.NewsCard{Title: "0"})

	if n := DrainInto(src, &sink); n != 3 {
		t.Fatalf("DrainInto returned %d", n)
	}
	got := sink.Cards()
	for i, want := range []string{"0", "1", "2", "3"} {
		if got[i].Title != want {
			t.Fatalf("card[%d] = %q want %q", i, got[i].Title, want)
		}
	}
	if src.calls != 4 {
		t.Fatalf("expected 4 TryReceive calls, got %d", src.calls)
	}
}

func TestDrainIntoEmpty(t *testing.T) {
	var sink domain.CardList
	if n := DrainInto(&sliceReceiver{}, &sink); n != 0 {
		t.Fatalf("expected 0, got %d", n)
	}
	if n := DrainInto(nil, &sink); n != 0 {
		t.Fatalf("nil receiver should drain nothing")
	}
}

type staticFetcher struct{ env *newsapi.Envelope }

func (s staticFetcher) Fetch(context.Context, string) (*newsapi.Envelope, error) {
	return s.env, nil
}

func TestDrainIntoFromWorker(t *testing.T) {
	env := &newsapi.Envelope{Status: newsapi.StatusOK, Articles: []newsapi.Article{
		{Title: "first", URL: "https://example.com/1"},
		{Title: "second", URL: "https://example.com/2"},
	}}
	w := fetchworker.Start(context.Background(), staticFetcher{env: env}, "K", fetchworker.Options{})
	defer w.Close()

	var sink domain.CardList
	deadline := time.Now().Add(2 * time.Second)
	for sink.Len() < 2 && time.Now().Before(deadline) {
		DrainInto(w, &sink)
		time.Sleep(5 * time.Millisecond)
	}

	cards := sink.Cards()
	if len(cards) != 2 || cards[0].Title != "first" || cards[1].Title != "second" {
		t.Fatalf("unexpected cards %#v", cards)
	}
}

func TestDrainIntoTypedNilWorker(t *testing.T) {
	var w *fetchworker.Worker
	var sink domain.CardList

	if n := DrainInto(w, &sink); n != 0 || sink.Len() != 0 {
		t.Fatalf("expected nothing drained from nil worker, got %d", n)
	}
}
