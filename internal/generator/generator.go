// Package generator implements the joke-generation backend: one Joker per
// known generator identity and an Ensemble that fans a topic out to all of
// them concurrently.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jokebattles/backend/internal/arena"
)

const (
	comedianSystemPrompt = "You are a comedian. Generate a single, clean, funny joke based on the user's request. Keep it under 200 characters."

	jokeMaxTokens   = 150
	jokeTemperature = 0.9
)

func jokePrompt(topic string) string {
	return fmt.Sprintf("Generate a single, clean, funny joke about: %s. Keep it under 200 characters and make it genuinely funny!", topic)
}

// Joker produces one joke for a topic on behalf of a single generator.
type Joker interface {
	Identity() arena.GeneratorIdentity
	TellJoke(ctx context.Context, topic string) (string, error)
}

// Ensemble queries every joker concurrently under a shared context. Any
// failure aborts the whole batch: a partial batch would break the
// four-distinct-identities invariant downstream.
type Ensemble struct {
	jokers []Joker
	logger *zap.Logger
}

// NewEnsemble validates that the jokers cover distinct identities and
// constructs the ensemble.
func NewEnsemble(logger *zap.Logger, jokers ...Joker) (*Ensemble, error) {
	if len(jokers) == 0 {
		return nil, errors.New("generator: at least one joker is required")
	}
	seen := make(map[arena.GeneratorIdentity]struct{}, len(jokers))
	for _, joker := range jokers {
		identity := joker.Identity()
		if !identity.Valid() {
			return nil, fmt.Errorf("generator: unknown identity %q", identity)
		}
		if _, dup := seen[identity]; dup {
			return nil, fmt.Errorf("generator: duplicate joker for %q", identity)
		}
		seen[identity] = struct{}{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ensemble{jokers: jokers, logger: logger}, nil
}

// Generate returns one joke per joker, in joker registration order. The first
// failing joker cancels the remaining calls.
func (e *Ensemble) Generate(ctx context.Context, topic string) ([]arena.GeneratedJoke, error) {
	jokes := make([]arena.GeneratedJoke, len(e.jokers))

	group, groupCtx := errgroup.WithContext(ctx)
	for index, joker := range e.jokers {
		group.Go(func() error {
			content, err := joker.TellJoke(groupCtx, topic)
			if err != nil {
				e.logger.Warn("joke generation failed",
					zap.String("model", joker.Identity().String()),
					zap.Error(err))
				return fmt.Errorf("%s: %w", joker.Identity(), err)
			}
			content = strings.TrimSpace(content)
			if content == "" {
				return fmt.Errorf("%s: empty joke", joker.Identity())
			}
			jokes[index] = arena.GeneratedJoke{Identity: joker.Identity(), Content: content}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	e.logger.Debug("joke batch generated",
		zap.String("topic", topic),
		zap.Int("jokes", len(jokes)))
	return jokes, nil
}
