package arena

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jokebattles/backend/internal/session"
)

type recordingPublisher struct {
	mu        sync.Mutex
	published [][]LeaderboardEntry
}

func (p *recordingPublisher) PublishScores(entries []LeaderboardEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, entries)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func TestRequestBatchReturnsAnonymizedJokes(t *testing.T) {
	service := newTestService(t, ServiceConfig{})

	issue, err := service.RequestBatch(context.Background(), "firefighters")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if issue.Token == "" {
		t.Fatal("expected a session token")
	}
	if len(issue.Jokes) != BatchSize {
		t.Fatalf("expected %d jokes, got %d", BatchSize, len(issue.Jokes))
	}
	for index, joke := range issue.Jokes {
		if joke.DisplayIndex != index {
			t.Fatalf("expected display index %d, got %d", index, joke.DisplayIndex)
		}
		if !strings.Contains(joke.Content, "firefighters") {
			t.Fatalf("joke %d missing topic: %q", index, joke.Content)
		}
	}
}

func TestRequestBatchRejectsEmptyTopic(t *testing.T) {
	service := newTestService(t, ServiceConfig{})
	if _, err := service.RequestBatch(context.Background(), "   "); err == nil {
		t.Fatal("expected empty topic to be rejected")
	}
}

func TestRequestBatchSurfacesGenerationFailure(t *testing.T) {
	service := newTestService(t, ServiceConfig{
		Generator: &stubGenerator{err: errors.New("provider down")},
	})

	_, err := service.RequestBatch(context.Background(), "firefighters")
	if !errors.Is(err, ErrGenerationUnavailable) {
		t.Fatalf("expected ErrGenerationUnavailable, got %v", err)
	}
}

func TestRequestBatchRejectsIncompleteEnsemble(t *testing.T) {
	service := newTestService(t, ServiceConfig{
		Generator: &stubGenerator{jokes: []GeneratedJoke{
			{Identity: GeneratorOpenAI, Content: "a"},
			{Identity: GeneratorAnthropic, Content: "b"},
			{Identity: GeneratorGemini, Content: "c"},
			{Identity: GeneratorGemini, Content: "d"},
		}},
	})

	_, err := service.RequestBatch(context.Background(), "firefighters")
	if !errors.Is(err, ErrGenerationUnavailable) {
		t.Fatalf("expected ErrGenerationUnavailable for duplicate identities, got %v", err)
	}
}

func TestCastVoteFullScenario(t *testing.T) {
	publisher := &recordingPublisher{}
	service := newTestService(t, ServiceConfig{Publisher: publisher})
	ctx := context.Background()

	issue, err := service.RequestBatch(ctx, "firefighters")
	if err != nil {
		t.Fatalf("unexpected batch error: %v", err)
	}

	// Slot 2 maps to Gemini under the identity-preserving test shuffle.
	outcome, err := service.CastVote(ctx, issue.Token, 2)
	if err != nil {
		t.Fatalf("unexpected vote error: %v", err)
	}
	if outcome.Generator != GeneratorGemini {
		t.Fatalf("expected Gemini reveal, got %s", outcome.Generator)
	}
	if outcome.Scores[0].Generator != GeneratorGemini || outcome.Scores[0].Votes != 1 {
		t.Fatalf("expected Gemini leading with 1 vote, got %+v", outcome.Scores[0])
	}
	if publisher.count() != 1 {
		t.Fatalf("expected one published snapshot, got %d", publisher.count())
	}

	// Voting again with the same token is a duplicate and changes nothing.
	_, err = service.CastVote(ctx, issue.Token, 2)
	if !errors.Is(err, ErrDuplicateVote) {
		t.Fatalf("expected ErrDuplicateVote, got %v", err)
	}
	scores, err := service.Scores(ctx)
	if err != nil {
		t.Fatalf("unexpected scores error: %v", err)
	}
	if scores[0].Votes != 1 {
		t.Fatalf("duplicate vote must not change the leaderboard: %+v", scores[0])
	}

	// A fresh token votes independently.
	fresh, err := service.RequestBatch(ctx, "firefighters")
	if err != nil {
		t.Fatalf("unexpected batch error: %v", err)
	}
	if fresh.Token == issue.Token {
		t.Fatal("expected a distinct session token")
	}
	outcome, err = service.CastVote(ctx, fresh.Token, 2)
	if err != nil {
		t.Fatalf("unexpected vote error: %v", err)
	}
	if outcome.Scores[0].Votes != 2 {
		t.Fatalf("expected 2 Gemini votes, got %+v", outcome.Scores[0])
	}
}

func TestCastVoteUnknownToken(t *testing.T) {
	service := newTestService(t, ServiceConfig{})
	_, err := service.CastVote(context.Background(), "fabricated", 0)
	if !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("expected ErrUnknownSession, got %v", err)
	}
}

func TestCastVoteExpiredToken(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	clock := func() time.Time { return now }
	service := newTestService(t, ServiceConfig{
		Batches: NewBatchStore(30*time.Minute, clock),
		Clock:   clock,
	})
	ctx := context.Background()

	issue, err := service.RequestBatch(ctx, "firefighters")
	if err != nil {
		t.Fatalf("unexpected batch error: %v", err)
	}

	now = now.Add(31 * time.Minute)
	_, err = service.CastVote(ctx, issue.Token, 0)
	if !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("expected ErrUnknownSession for expired batch, got %v", err)
	}

	count, err := newTestService(t, ServiceConfig{}).Scores(ctx)
	if err != nil {
		t.Fatalf("unexpected scores error: %v", err)
	}
	for _, entry := range count {
		if entry.Votes != 0 {
			t.Fatalf("expired vote must never count: %+v", entry)
		}
	}
}

func TestCastVoteInvalidSelection(t *testing.T) {
	service := newTestService(t, ServiceConfig{})
	ctx := context.Background()

	issue, err := service.RequestBatch(ctx, "firefighters")
	if err != nil {
		t.Fatalf("unexpected batch error: %v", err)
	}

	for _, index := range []int{-1, BatchSize, 42} {
		if _, err := service.CastVote(ctx, issue.Token, index); !errors.Is(err, ErrInvalidSelection) {
			t.Fatalf("expected ErrInvalidSelection for index %d, got %v", index, err)
		}
	}

	// A rejected selection leaves the session able to vote.
	if _, err := service.CastVote(ctx, issue.Token, 1); err != nil {
		t.Fatalf("expected valid vote after rejected selections: %v", err)
	}
}

func TestCastVoteConcurrentRetriesCountOnce(t *testing.T) {
	service := newTestService(t, ServiceConfig{})
	ctx := context.Background()

	issue, err := service.RequestBatch(ctx, "firefighters")
	if err != nil {
		t.Fatalf("unexpected batch error: %v", err)
	}

	const attempts = 6
	var wg sync.WaitGroup
	errCh := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, voteErr := service.CastVote(ctx, issue.Token, 3)
			errCh <- voteErr
		}()
	}
	wg.Wait()
	close(errCh)

	successes := 0
	for err := range errCh {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrDuplicateVote):
		default:
			t.Fatalf("unexpected vote error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one successful vote, got %d", successes)
	}

	scores, err := service.Scores(ctx)
	if err != nil {
		t.Fatalf("unexpected scores error: %v", err)
	}
	if scores[0].Generator != GeneratorLlama || scores[0].Votes != 1 {
		t.Fatalf("expected a single Llama vote, got %+v", scores[0])
	}
}

func TestRequestBatchRetriesTokenCollisionOnce(t *testing.T) {
	issuer := &collidingIssuer{}
	service := newTestService(t, ServiceConfig{Tokens: issuer})
	ctx := context.Background()

	first, err := service.RequestBatch(ctx, "firefighters")
	if err != nil {
		t.Fatalf("unexpected batch error: %v", err)
	}
	second, err := service.RequestBatch(ctx, "firefighters")
	if err != nil {
		t.Fatalf("expected collision retry to succeed: %v", err)
	}
	if first.Token == second.Token {
		t.Fatal("expected retry to mint a fresh token")
	}
}

// collidingIssuer repeats its first token once before becoming unique.
type collidingIssuer struct {
	issued int
}

func (i *collidingIssuer) Issue() (tok session.Token, err error) {
	i.issued++
	if i.issued <= 2 {
		return "collision", nil
	}
	return tokenOf(strings.Repeat("x", i.issued)), nil
}
