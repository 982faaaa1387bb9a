// Package receipts keeps a durable ledger of primary deliveries keyed by the
// exact queue line, so a crash between delivery and dequeue never posts the
// same descriptor twice.
package receipts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/pebble"
)

const (
	keyPrefix = "receipt/"
	// keyLimit is the first key past the prefix range ('0' follows '/').
	keyLimit = "receipt0"
)

// Receipt records one accepted primary delivery.
type Receipt struct {
	Descriptor  string    `json:"descriptor"`
	JobID       string    `json:"job_id"`
	Sink        string    `json:"sink"`
	ID          string    `json:"id"`
	URL         string    `json:"url,omitempty"`
	Title       string    `json:"title,omitempty"`
	SizeBytes   int64     `json:"size_bytes"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// Ledger is a pebble-backed receipt store.
type Ledger struct {
	db *pebble.DB
}

// Open opens or creates the ledger directory.
func Open(path string) (*Ledger, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("receipts: path required")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create receipts dir: %w", err)
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open receipts store: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close closes the store.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

func key(descriptor string) []byte {
	return []byte(keyPrefix + descriptor)
}

// Put stores r under its descriptor line, replacing any earlier receipt.
func (l *Ledger) Put(r Receipt) error {
	if strings.TrimSpace(r.Descriptor) == "" {
		return errors.New("receipts: descriptor required")
	}
	if r.DeliveredAt.IsZero() {
		r.DeliveredAt = time.Now().UTC()
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}
	return l.db.Set(key(r.Descriptor), data, pebble.Sync)
}

// Get looks up the receipt for descriptor.
func (l *Ledger) Get(descriptor string) (Receipt, bool, error) {
	data, closer, err := l.db.Get(key(descriptor))
	if errors.Is(err, pebble.ErrNotFound) {
		return Receipt{}, false, nil
	}
	if err != nil {
		return Receipt{}, false, fmt.Errorf("get receipt: %w", err)
	}
	defer closer.Close()

	var r Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return Receipt{}, false, fmt.Errorf("decode receipt: %w", err)
	}
	return r, true, nil
}

// Delete removes the receipt for descriptor. Missing keys are not an error.
func (l *Ledger) Delete(descriptor string) error {
	return l.db.Delete(key(descriptor), pebble.Sync)
}

// List returns every receipt in key order. Undecodable entries are skipped.
func (l *Ledger) List() ([]Receipt, error) {
	iter, err := l.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyLimit),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []Receipt
	for iter.First(); iter.Valid(); iter.Next() {
		var r Receipt
		if err := json.Unmarshal(iter.Value(), &r); err != nil {
			continue
		}
		out = append(out, r)
	}
	return out, iter.Error()
}

// Prune deletes receipts delivered before cutoff and returns the count.
func (l *Ledger) Prune(cutoff time.Time) (int, error) {
	receipts, err := l.List()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, r := range receipts {
		if !r.DeliveredAt.Before(cutoff) {
			continue
		}
		if err := l.Delete(r.Descriptor); err != nil {
			return removed, fmt.Errorf("delete receipt: %w", err)
		}
		removed++
	}
	return removed, nil
}
