package arena

import (
	"fmt"
	"sync"
	"time"

	"github.com/jokebattles/backend/internal/session"
)

const defaultBatchTTL = 30 * time.Minute

type storedBatch struct {
	batch    JokeBatch
	consumed bool
}

// BatchStore holds live joke batches keyed by session token until they are
// consumed by a vote or expire. Batches never outlive their TTL: expired
// entries are evicted lazily on read and reaped by Sweep.
type BatchStore struct {
	mu      sync.Mutex
	batches map[session.Token]*storedBatch
	ttl     time.Duration
	clock   func() time.Time
}

// NewBatchStore constructs a store with the provided TTL and clock. A zero TTL
// falls back to 30 minutes; a nil clock falls back to time.Now.
func NewBatchStore(ttl time.Duration, clock func() time.Time) *BatchStore {
	if ttl <= 0 {
		ttl = defaultBatchTTL
	}
	if clock == nil {
		clock = time.Now
	}
	return &BatchStore{
		batches: make(map[session.Token]*storedBatch),
		ttl:     ttl,
		clock:   clock,
	}
}

// Put stores a freshly generated batch. It fails with ErrDuplicateSession when
// a live batch already exists for the token.
func (s *BatchStore) Put(batch JokeBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.batches[batch.Token]; ok && !s.expired(existing.batch) {
		return fmt.Errorf("%w: %s", ErrDuplicateSession, batch.Token)
	}
	s.batches[batch.Token] = &storedBatch{batch: batch}
	return nil
}

// Get resolves the batch for a token. Expired or absent batches yield
// ErrSessionNotFound. Consumed batches are still returned so a repeated vote
// surfaces as a duplicate at the ledger rather than an unknown session.
func (s *BatchStore) Get(token session.Token) (JokeBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.batches[token]
	if !ok {
		return JokeBatch{}, fmt.Errorf("%w: %s", ErrSessionNotFound, token)
	}
	if s.expired(stored.batch) {
		delete(s.batches, token)
		return JokeBatch{}, fmt.Errorf("%w: %s", ErrSessionNotFound, token)
	}
	return stored.batch, nil
}

// Consume marks the batch as no longer eligible for voting. Consuming an
// already-consumed batch fails with ErrAlreadyConsumed, a missing or expired
// one with ErrSessionNotFound.
func (s *BatchStore) Consume(token session.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.batches[token]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, token)
	}
	if s.expired(stored.batch) {
		delete(s.batches, token)
		return fmt.Errorf("%w: %s", ErrSessionNotFound, token)
	}
	if stored.consumed {
		return fmt.Errorf("%w: %s", ErrAlreadyConsumed, token)
	}
	stored.consumed = true
	return nil
}

// Sweep evicts every expired batch and returns the number removed.
func (s *BatchStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, stored := range s.batches {
		if s.expired(stored.batch) {
			delete(s.batches, token)
			removed++
		}
	}
	return removed
}

// Len reports the number of live entries, expired or not yet evicted included.
func (s *BatchStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func (s *BatchStore) expired(batch JokeBatch) bool {
	return s.clock().Sub(batch.CreatedAt) > s.ttl
}
