package publishers

import (
	"time"

	"github.com/samvad-hq/headlines/internal/domain"
)

// Event is the payload relayed downstream for every new headline card.
type Event struct {
	CardID      string          `json:"card_id"`
	Card        domain.NewsCard `json:"card"`
	Country     string          `json:"country"`
	CollectedAt time.Time       `json:"collected_at"`
}

// NewEvent wraps a card fetched for country.
func NewEvent(card domain.NewsCard, country string) Event {
	return Event{
		CardID:      domain.CardID(card),
		Card:        card,
		Country:     country,
		CollectedAt: time.Now().UTC(),
	}
}

// attributes returns the routing metadata shared by queue and topic sinks.
func (e Event) attributes() map[string]string {
	attrs := map[string]string{"card_id": e.CardID}
	if e.Country != "" {
		attrs["country"] = e.Country
	}
	return attrs
}
