package arena

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jokebattles/backend/internal/session"
)

var (
	// ErrGenerationUnavailable indicates the generation backend failed, timed
	// out, or returned fewer than four distinct-identity jokes.
	ErrGenerationUnavailable = errors.New("arena: joke generation unavailable")
	// ErrUnknownSession indicates a stale or fabricated session token.
	ErrUnknownSession = errors.New("arena: unknown or expired session")
	// ErrInvalidSelection indicates a display index outside the batch range.
	ErrInvalidSelection = errors.New("arena: invalid joke selection")
	// ErrDuplicateVote indicates the session has already cast its vote.
	ErrDuplicateVote = errors.New("arena: session already voted")
	// ErrDuplicateSession indicates a batch already exists for the token.
	ErrDuplicateSession = errors.New("arena: session already has a batch")
	// ErrAlreadyConsumed indicates the batch was consumed by an earlier vote.
	ErrAlreadyConsumed = errors.New("arena: batch already consumed")
	// ErrSessionNotFound indicates no live batch exists for the token.
	ErrSessionNotFound = errors.New("arena: session batch not found")
)

// GeneratedJoke is one item returned by the generation backend before it is
// paired with a display slot.
type GeneratedJoke struct {
	Identity GeneratorIdentity
	Content  string
}

// BatchGenerator is the collaborator that produces one joke per known
// generator for a topic. Implementations must return exactly four jokes with
// four pairwise-distinct identities or an error.
type BatchGenerator interface {
	Generate(ctx context.Context, topic string) ([]GeneratedJoke, error)
}

// JokeItem pairs an anonymized display slot with joke content and the hidden
// source identity. Immutable once the batch is created.
type JokeItem struct {
	DisplayIndex int
	Content      string
	Identity     GeneratorIdentity
}

// JokeView is the pre-vote projection of a JokeItem. It structurally lacks an
// identity field so the source can never leak to a client before the vote.
type JokeView struct {
	DisplayIndex int    `json:"id"`
	Content      string `json:"content"`
}

// JokeBatch holds the four jokes generated for one session token together
// with the identity mapping that stays server-side.
type JokeBatch struct {
	Token     session.Token
	Items     [BatchSize]JokeItem
	CreatedAt time.Time
}

// NewJokeBatch pairs generated jokes with display slots. The order slice is a
// permutation of 0..3 deciding which slot each joke occupies, so display order
// carries no information about generator identity. The batch invariant is
// enforced here: exactly four jokes, four distinct known identities.
func NewJokeBatch(token session.Token, jokes []GeneratedJoke, order []int, createdAt time.Time) (JokeBatch, error) {
	if len(jokes) != BatchSize {
		return JokeBatch{}, fmt.Errorf("expected %d jokes, got %d", BatchSize, len(jokes))
	}
	if len(order) != BatchSize {
		return JokeBatch{}, fmt.Errorf("expected permutation of %d slots, got %d", BatchSize, len(order))
	}

	batch := JokeBatch{Token: token, CreatedAt: createdAt}
	seenIdentities := make(map[GeneratorIdentity]struct{}, BatchSize)
	seenSlots := make(map[int]struct{}, BatchSize)
	for position, joke := range jokes {
		if !joke.Identity.Valid() {
			return JokeBatch{}, fmt.Errorf("unknown generator identity %q", joke.Identity)
		}
		if _, dup := seenIdentities[joke.Identity]; dup {
			return JokeBatch{}, fmt.Errorf("duplicate generator identity %q", joke.Identity)
		}
		seenIdentities[joke.Identity] = struct{}{}

		slot := order[position]
		if slot < 0 || slot >= BatchSize {
			return JokeBatch{}, fmt.Errorf("slot %d out of range", slot)
		}
		if _, dup := seenSlots[slot]; dup {
			return JokeBatch{}, fmt.Errorf("slot %d assigned twice", slot)
		}
		seenSlots[slot] = struct{}{}

		batch.Items[slot] = JokeItem{
			DisplayIndex: slot,
			Content:      joke.Content,
			Identity:     joke.Identity,
		}
	}

	return batch, nil
}

// Views returns the anonymized projection of the batch in display order.
func (b JokeBatch) Views() []JokeView {
	views := make([]JokeView, 0, BatchSize)
	for _, item := range b.Items {
		views = append(views, JokeView{DisplayIndex: item.DisplayIndex, Content: item.Content})
	}
	return views
}
