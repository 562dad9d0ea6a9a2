package arena

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/jokebattles/backend/internal/session"
)

func newTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:arena_test_%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&VoteRecord{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	ledger, err := NewLedger(newTestDatabase(t))
	if err != nil {
		t.Fatalf("failed to construct ledger: %v", err)
	}
	return ledger
}

// stubGenerator returns one fixed joke per known generator.
type stubGenerator struct {
	err   error
	jokes []GeneratedJoke
}

func (g *stubGenerator) Generate(_ context.Context, topic string) ([]GeneratedJoke, error) {
	if g.err != nil {
		return nil, g.err
	}
	if g.jokes != nil {
		return g.jokes, nil
	}
	jokes := make([]GeneratedJoke, 0, BatchSize)
	for _, identity := range KnownGenerators() {
		jokes = append(jokes, GeneratedJoke{
			Identity: identity,
			Content:  fmt.Sprintf("%s joke about %s", identity, topic),
		})
	}
	return jokes, nil
}

// identityOrder keeps display slots aligned with generation order so tests can
// address a known generator by index.
func identityOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

func tokenOf(value string) session.Token {
	return session.Token(value)
}

type sequenceIssuer struct {
	prefix string
	next   int
}

func (i *sequenceIssuer) Issue() (session.Token, error) {
	i.next++
	return session.Token(fmt.Sprintf("%s-%d", i.prefix, i.next)), nil
}

func newTestService(t *testing.T, cfg ServiceConfig) *Service {
	t.Helper()
	if cfg.Ledger == nil {
		cfg.Ledger = newTestLedger(t)
	}
	if cfg.Batches == nil {
		cfg.Batches = NewBatchStore(30*time.Minute, nil)
	}
	if cfg.Tokens == nil {
		cfg.Tokens = &sequenceIssuer{prefix: "session"}
	}
	if cfg.Generator == nil {
		cfg.Generator = &stubGenerator{}
	}
	if cfg.Shuffle == nil {
		cfg.Shuffle = identityOrder
	}
	service, err := NewService(cfg)
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}
