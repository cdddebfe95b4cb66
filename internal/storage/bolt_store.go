package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var cardBucket = []byte("published_cards")

const expiryValueBytes = 8

// boltStore keeps card IDs with an expiry timestamp. Expired entries are
// invisible to SeenCard and are swept by a background ticker.
type boltStore struct {
	db      *bolt.DB
	ttl     time.Duration
	now     func() time.Time
	stop    chan struct{}
	stopped sync.WaitGroup
	once    sync.Once
}

func openBolt(path string, opts Options) (*boltStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cardBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	s := &boltStore{
		db:   db,
		ttl:  opts.CardTTL,
		now:  time.Now,
		stop: make(chan struct{}),
	}
	s.stopped.Add(1)
	go s.sweepLoop(opts.CleanupInterval)
	return s, nil
}

// Close stops the sweeper and closes the database.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	var err error
	b.once.Do(func() {
		close(b.stop)
		b.stopped.Wait()
		err = b.db.Close()
	})
	return err
}

// SeenCard reports whether id was marked and has not expired yet.
func (b *boltStore) SeenCard(id string) (bool, error) {
	if b == nil || b.db == nil {
		return false, nil
	}

	var seen bool
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(cardBucket)
		if bucket == nil {
			return fmt.Errorf("card bucket missing")
		}
		expiry, ok := decodeExpiry(bucket.Get([]byte(id)))
		seen = ok && expiry.After(b.now())
		return nil
	})
	return seen, err
}

// MarkCard records id as published until the TTL elapses.
func (b *boltStore) MarkCard(id string) error {
	if b == nil || b.db == nil {
		return nil
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(cardBucket)
		if bucket == nil {
			return fmt.Errorf("card bucket missing")
		}
		return bucket.Put([]byte(id), encodeExpiry(b.now().Add(b.ttl)))
	})
}

// Len returns the number of stored entries, expired or not.
func (b *boltStore) Len() (int, error) {
	var n int
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(cardBucket)
		if bucket == nil {
			return fmt.Errorf("card bucket missing")
		}
		n = bucket.Stats().KeyN
		return nil
	})
	return n, err
}

func (b *boltStore) sweepLoop(interval time.Duration) {
	defer b.stopped.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			_, _ = b.sweep()
		}
	}
}

// sweep deletes expired entries and returns how many were removed.
func (b *boltStore) sweep() (int, error) {
	now := b.now()
	removed := 0
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(cardBucket)
		if bucket == nil {
			return fmt.Errorf("card bucket missing")
		}
		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			expiry, ok := decodeExpiry(v)
			if ok && expiry.After(now) {
				continue
			}
			if err := cursor.Delete(); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}

func encodeExpiry(t time.Time) []byte {
	buf := make([]byte, expiryValueBytes)
	binary.BigEndian.PutUint64(buf, uint64(t.Unix()))
	return buf
}

func decodeExpiry(value []byte) (time.Time, bool) {
	if len(value) != expiryValueBytes {
		return time.Time{}, false
	}
	unix := int64(binary.BigEndian.Uint64(value))
	if unix <= 0 {
		return time.Time{}, false
	}
	return time.Unix(unix, 0), true
}
