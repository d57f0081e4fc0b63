// Package memo remembers which stories a session was last shown.
package memo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/storydex/internal/db"
	"github.com/kailas-cloud/storydex/internal/domain"
)

// DefaultTTL bounds how long a follow-up can refer back to a previous answer.
const DefaultTTL = 30 * time.Minute

var keyPrefix = domain.KeyPrefix + "memo:"

// store is the consumer interface for the memo (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Entry is what a session was last shown.
type Entry struct {
	IDs        []string `json:"ids"`
	Confidence string   `json:"confidence"`
	TopScore   float64  `json:"top_score"`
}

// Repo stores entries keyed by session ID.
type Repo struct {
	store store
	ttl   time.Duration
}

// New creates a memo repository. ttl <= 0 uses DefaultTTL.
func New(s store, ttl time.Duration) *Repo {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Repo{store: s, ttl: ttl}
}

// Save records entry for sessionID, replacing any previous entry.
func (r *Repo) Save(ctx context.Context, sessionID string, entry Entry) error {
	if sessionID == "" {
		return fmt.Errorf("save memo: empty session id: %w", domain.ErrInvalidQuery)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal memo: %w", err)
	}
	if err := r.store.SetWithTTL(ctx, keyPrefix+sessionID, data, r.ttl); err != nil {
		return fmt.Errorf("save memo %s: %w", sessionID, err)
	}
	return nil
}

// Load returns the last entry for sessionID or domain.ErrNotFound.
func (r *Repo) Load(ctx context.Context, sessionID string) (Entry, error) {
	if sessionID == "" {
		return Entry{}, domain.ErrNotFound
	}
	data, err := r.store.Get(ctx, keyPrefix+sessionID)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return Entry{}, domain.ErrNotFound
		}
		return Entry{}, fmt.Errorf("load memo %s: %w", sessionID, err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, fmt.Errorf("decode memo %s: %w", sessionID, err)
	}
	return entry, nil
}
