// Package storage remembers which headline cards were already relayed so a
// refresh does not publish the same story twice.
package storage

import (
	"fmt"
	"strings"
	"time"
)

// Store is the dedupe ledger used by the relay.
type Store interface {
	SeenCard(id string) (bool, error)
	MarkCard(id string) error
	Close() error
}

// Options controls retention for concrete store implementations.
type Options struct {
	// CardTTL is how long a marked card counts as seen.
	CardTTL time.Duration
	// CleanupInterval is how often expired entries are swept.
	CleanupInterval time.Duration
}

// Store types accepted by NewStore. "disabled" is an alias of TypeNone.
const (
	TypeNone  = "none"
	TypeBBolt = "bbolt"
)

var defaultOptions = Options{
	CardTTL:         5 * 24 * time.Hour,
	CleanupInterval: 12 * time.Hour,
}

// NewStore opens the backend named by typ. An empty type disables dedupe.
func NewStore(typ, path string, opts Options) (Store, error) {
	opts = normalizeOptions(opts)

	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "", TypeNone, "disabled":
		return NewNoopStore(), nil
	case TypeBBolt:
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	}
	return nil, fmt.Errorf("unsupported storage type %q", typ)
}

func normalizeOptions(opts Options) Options {
	if opts.CardTTL <= 0 {
		opts.CardTTL = defaultOptions.CardTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultOptions.CleanupInterval
	}
	return opts
}

// NewNoopStore returns a store that never reports a card as seen.
func NewNoopStore() Store { return noopStore{} }

type noopStore struct{}

func (noopStore) SeenCard(string) (bool, error) { return false, nil }
func (noopStore) MarkCard(string) error         { return nil }
func (noopStore) Close() error                  { return nil }
