package domain

import (
	"crypto/sha1" //nolint:gosec // non-cryptographic id generation
	"encoding/hex"
	"strings"
)

// DescriptionPlaceholder is shown for articles the provider sent without a description.
const DescriptionPlaceholder = "..."

// NewsCard is the display-ready form of a single headline.
type NewsCard struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// NewNewsCard builds a card, substituting the placeholder for a missing description.
func NewNewsCard(title, url string, description *string) NewsCard {
	desc := DescriptionPlaceholder
	if description != nil && strings.TrimSpace(*description) != "" {
		desc = *description
	}
	return NewsCard{
		Title:       title,
		Description: desc,
		URL:         url,
	}
}

// HasPlaceholder reports whether the card still carries the default description.
func (c NewsCard) HasPlaceholder() bool {
	return c.Description == DescriptionPlaceholder
}

// CardID derives a stable identifier from the card URL.
func CardID(c NewsCard) string {
	sum := sha1.Sum([]byte(strings.TrimSpace(c.URL)))
	return hex.EncodeToString(sum[:])
}

// CardList is an ordered list of cards owned by a single goroutine.
type CardList struct {
	cards []NewsCard
}

// Append adds a card at the end of the list.
func (l *CardList) Append(c NewsCard) {
	l.cards = append(l.cards, c)
}

// Clear drops every card, keeping the allocated capacity.
func (l *CardList) Clear() {
	clear(l.cards)
	l.cards = l.cards[:0]
}

// Len returns the number of cards.
func (l *CardList) Len() int {
	return len(l.cards)
}

// Cards returns a copy of the list in insertion order.
func (l *CardList) Cards() []NewsCard {
	if len(l.cards) == 0 {
		return nil
	}
	out := make([]NewsCard, len(l.cards))
	copy(out, l.cards)
	return out
}

// Since returns a copy of the cards appended at or after index i.
func (l *CardList) Since(i int) []NewsCard {
	if i < 0 {
		i = 0
	}
	if i >= len(l.cards) {
		return nil
	}
	out := make([]NewsCard, len(l.cards)-i)
	copy(out, l.cards[i:])
	return out
}
