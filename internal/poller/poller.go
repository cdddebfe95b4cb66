package poller

import "github.com/samvad-hq/headlines/internal/domain"

// Receiver is a non-blocking source of cards, such as a fetch worker.
type Receiver interface {
	TryReceive() (domain.NewsCard, bool)
}

// DrainInto moves every card src has ready into sink, in receipt order, and
// returns how many were moved. It is meant to be called once per UI tick and
// never waits for cards that have not arrived yet.
func DrainInto(src Receiver, sink *domain.CardList) int {
	if src == nil || sink == nil {
		return 0
	}
	n := 0
	for {
		card, ok := src.TryReceive()
		if !ok {
			return n
		}
		sink.Append(card)
		n++
	}
}
