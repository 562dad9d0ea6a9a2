package arena

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jokebattles/backend/internal/session"
)

var (
	errMissingLedger    = errors.New("vote ledger is required")
	errMissingBatches   = errors.New("batch store is required")
	errMissingIssuer    = errors.New("token issuer is required")
	errMissingGenerator = errors.New("batch generator is required")
	errMissingTopic     = errors.New("topic is required")
	noOpLogger          = zap.NewNop()
)

// ServiceError carries a stable machine-readable code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the machine-readable error code.
func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew   = "arena.service.new"
	opRequestBatch = "arena.request_batch"
	opCastVote     = "arena.cast_vote"
	opScores       = "arena.scores"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ScorePublisher receives the fresh leaderboard after every accepted vote so
// observers can be notified in near-real-time.
type ScorePublisher interface {
	PublishScores(entries []LeaderboardEntry)
}

// ServiceConfig describes the dependencies of the vote gateway.
type ServiceConfig struct {
	Ledger            *Ledger
	Batches           *BatchStore
	Tokens            session.Issuer
	Generator         BatchGenerator
	GenerationTimeout time.Duration
	Clock             func() time.Time
	Shuffle           func(n int) []int
	Publisher         ScorePublisher
	Logger            *zap.Logger
}

// Service is the vote gateway. All mutation of the arena state flows through
// its two operations; reads go through Scores.
type Service struct {
	ledger            *Ledger
	batches           *BatchStore
	tokens            session.Issuer
	generator         BatchGenerator
	generationTimeout time.Duration
	clock             func() time.Time
	shuffle           func(n int) []int
	publisher         ScorePublisher
	logger            *zap.Logger
}

// NewService validates the configuration and constructs the gateway.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Ledger == nil {
		return nil, newServiceError(opServiceNew, "missing_ledger", errMissingLedger)
	}
	if cfg.Batches == nil {
		return nil, newServiceError(opServiceNew, "missing_batch_store", errMissingBatches)
	}
	if cfg.Tokens == nil {
		return nil, newServiceError(opServiceNew, "missing_token_issuer", errMissingIssuer)
	}
	if cfg.Generator == nil {
		return nil, newServiceError(opServiceNew, "missing_generator", errMissingGenerator)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	shuffle := cfg.Shuffle
	if shuffle == nil {
		shuffle = rand.Perm
	}
	timeout := cfg.GenerationTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		ledger:            cfg.Ledger,
		batches:           cfg.Batches,
		tokens:            cfg.Tokens,
		generator:         cfg.Generator,
		generationTimeout: timeout,
		clock:             clock,
		shuffle:           shuffle,
		publisher:         cfg.Publisher,
		logger:            logger,
	}, nil
}

// BatchIssue is the identity-free result of a batch request.
type BatchIssue struct {
	Token session.Token
	Jokes []JokeView
}

// VoteOutcome reveals the voted generator and carries the updated leaderboard.
type VoteOutcome struct {
	Generator GeneratorIdentity
	Scores    []LeaderboardEntry
}

// RequestBatch calls the generation backend under the configured timeout,
// pairs the jokes with shuffled display slots, issues a fresh session token
// and stores the batch. The returned views never carry generator identities.
func (s *Service) RequestBatch(ctx context.Context, topic string) (BatchIssue, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return BatchIssue{}, newServiceError(opRequestBatch, "missing_topic", errMissingTopic)
	}

	generationCtx, cancel := context.WithTimeout(ctx, s.generationTimeout)
	defer cancel()

	jokes, err := s.generator.Generate(generationCtx, topic)
	if err != nil {
		s.logError(opRequestBatch, "generation_failed", err, zap.String("topic", topic))
		return BatchIssue{}, newServiceError(opRequestBatch, "generation_failed",
			fmt.Errorf("%w: %v", ErrGenerationUnavailable, err))
	}

	batch, err := s.storeBatch(jokes)
	if err != nil {
		s.logError(opRequestBatch, "store_failed", err, zap.String("topic", topic))
		return BatchIssue{}, err
	}

	s.logger.Info("joke batch issued",
		zap.String("topic", topic),
		zap.Int("jokes", len(batch.Items)))
	return BatchIssue{Token: batch.Token, Jokes: batch.Views()}, nil
}

// storeBatch issues a token, builds the batch and puts it in the store. A
// token collision is retried once with a fresh token before giving up.
func (s *Service) storeBatch(jokes []GeneratedJoke) (JokeBatch, error) {
	for attempt := 0; attempt < 2; attempt++ {
		token, err := s.tokens.Issue()
		if err != nil {
			return JokeBatch{}, newServiceError(opRequestBatch, "token_issue_failed", err)
		}

		batch, err := NewJokeBatch(token, jokes, s.shuffle(BatchSize), s.clock().UTC())
		if err != nil {
			return JokeBatch{}, newServiceError(opRequestBatch, "invalid_batch",
				fmt.Errorf("%w: %v", ErrGenerationUnavailable, err))
		}

		err = s.batches.Put(batch)
		if err == nil {
			return batch, nil
		}
		if !errors.Is(err, ErrDuplicateSession) {
			return JokeBatch{}, newServiceError(opRequestBatch, "batch_put_failed", err)
		}
	}
	return JokeBatch{}, newServiceError(opRequestBatch, "token_collision", ErrDuplicateSession)
}

// CastVote validates the selection against the stored batch, appends the vote
// to the ledger, consumes the batch and returns the revealed identity with an
// updated leaderboard. The batch is only consumed after the vote is durable;
// a failed append leaves the batch untouched.
func (s *Service) CastVote(ctx context.Context, token session.Token, displayIndex int) (VoteOutcome, error) {
	batch, err := s.batches.Get(token)
	if err != nil {
		return VoteOutcome{}, newServiceError(opCastVote, "unknown_session",
			fmt.Errorf("%w: %v", ErrUnknownSession, err))
	}

	if displayIndex < 0 || displayIndex >= BatchSize {
		s.logError(opCastVote, "invalid_selection", ErrInvalidSelection,
			zap.Int("display_index", displayIndex))
		return VoteOutcome{}, newServiceError(opCastVote, "invalid_selection",
			fmt.Errorf("%w: index %d", ErrInvalidSelection, displayIndex))
	}

	identity := batch.Items[displayIndex].Identity
	record := VoteRecord{
		SessionToken:  token.String(),
		Generator:     identity,
		CastAtSeconds: s.clock().UTC().Unix(),
	}
	if err := s.ledger.Append(ctx, record); err != nil {
		if errors.Is(err, ErrDuplicateVote) {
			return VoteOutcome{}, newServiceError(opCastVote, "duplicate_vote", err)
		}
		s.logError(opCastVote, "append_failed", err)
		return VoteOutcome{}, newServiceError(opCastVote, "append_failed", err)
	}

	if err := s.batches.Consume(token); err != nil {
		// The vote is durable; losing the consume race only means another
		// path already retired the batch.
		s.logger.Warn("batch consume after vote failed",
			zap.String("operation", opCastVote), zap.Error(err))
	}

	entries, err := s.snapshot(ctx)
	if err != nil {
		s.logError(opCastVote, "snapshot_failed", err)
		return VoteOutcome{}, newServiceError(opCastVote, "snapshot_failed", err)
	}

	if s.publisher != nil {
		s.publisher.PublishScores(entries)
	}

	s.logger.Info("vote recorded", zap.String("model", identity.String()))
	return VoteOutcome{Generator: identity, Scores: entries}, nil
}

// Scores returns the current leaderboard including zero-vote generators.
func (s *Service) Scores(ctx context.Context) ([]LeaderboardEntry, error) {
	entries, err := s.snapshot(ctx)
	if err != nil {
		s.logError(opScores, "snapshot_failed", err)
		return nil, newServiceError(opScores, "snapshot_failed", err)
	}
	return entries, nil
}

func (s *Service) snapshot(ctx context.Context) ([]LeaderboardEntry, error) {
	tally, err := s.ledger.Tally(ctx)
	if err != nil {
		return nil, err
	}
	return BuildLeaderboard(tally), nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("arena service error", attrs...)
}
