package arena

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// VoteRecord is one accepted vote. Rows are append-only: the ledger never
// mutates or deletes them, and the unique session index makes the
// one-vote-per-session invariant a property of the store itself.
type VoteRecord struct {
	ID            int64             `gorm:"column:id;primaryKey;autoIncrement"`
	SessionToken  string            `gorm:"column:session_token;size:190;not null;uniqueIndex:idx_votes_session"`
	Generator     GeneratorIdentity `gorm:"column:model_name;size:50;not null;index:idx_votes_model"`
	CastAtSeconds int64             `gorm:"column:cast_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (VoteRecord) TableName() string {
	return "votes"
}

// Ledger is the authoritative record of votes. All aggregate views derive
// from it; no other component stores vote counts.
type Ledger struct {
	db *gorm.DB
}

// NewLedger constructs a ledger over the provided database handle.
func NewLedger(db *gorm.DB) (*Ledger, error) {
	if db == nil {
		return nil, errors.New("arena: database handle is required")
	}
	return &Ledger{db: db}, nil
}

// Append durably records a vote. The duplicate check is atomic with the
// insert: the unique index on session_token guarantees that concurrent
// appends for one token yield exactly one success and one ErrDuplicateVote.
func (l *Ledger) Append(ctx context.Context, record VoteRecord) error {
	if strings.TrimSpace(record.SessionToken) == "" {
		return errors.New("arena: vote record requires a session token")
	}
	if !record.Generator.Valid() {
		return fmt.Errorf("arena: vote record has unknown generator %q", record.Generator)
	}

	err := l.db.WithContext(ctx).Create(&record).Error
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateVote, record.SessionToken)
	}
	return err
}

// Tally returns the current vote count per generator. Generators without
// votes are absent from the map; the leaderboard zero-fills them.
func (l *Ledger) Tally(ctx context.Context) (map[GeneratorIdentity]int64, error) {
	type tallyRow struct {
		ModelName GeneratorIdentity `gorm:"column:model_name"`
		VoteCount int64             `gorm:"column:vote_count"`
	}

	var rows []tallyRow
	err := l.db.WithContext(ctx).
		Model(&VoteRecord{}).
		Select("model_name, COUNT(*) AS vote_count").
		Group("model_name").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	tally := make(map[GeneratorIdentity]int64, len(rows))
	for _, row := range rows {
		tally[row.ModelName] = row.VoteCount
	}
	return tally, nil
}

// Count returns the total number of votes in the ledger.
func (l *Ledger) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := l.db.WithContext(ctx).Model(&VoteRecord{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// glebarez/sqlite does not always translate constraint failures.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
