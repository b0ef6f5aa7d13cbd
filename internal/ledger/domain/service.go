package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	// Append writes one new ledger entry. Callers treat failures as
	// best-effort: a trip mutation is never rolled back because its ledger
	// mirror could not be written.
	Append(ctx context.Context, entry *Entry) error

	// EntriesForAgent returns every entry on the agent's account in
	// chronological order.
	EntriesForAgent(ctx context.Context, agentID snowflake.ID) ([]Entry, error)

	// BalanceForAgent is the canonical balance fold: sum of credits minus
	// sum of debits over all of the agent's entries, informational included.
	BalanceForAgent(ctx context.Context, agentID snowflake.ID) (float64, error)

	// UpsertSettlement writes the single settlement entry for the entry's
	// (trip, agent) pair, updating amount, description and balance snapshot
	// in place when one already exists.
	UpsertSettlement(ctx context.Context, entry *Entry) error

	// HasSettlement reports whether a settlement entry exists for the pair.
	HasSettlement(ctx context.Context, tripID, agentID snowflake.ID) (bool, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *Entry) error
	ListByAgent(ctx context.Context, db *gorm.DB, agentID snowflake.ID) ([]Entry, error)
	FindSettlement(ctx context.Context, db *gorm.DB, tripID, agentID snowflake.ID) (*Entry, error)
	UpdateSettlement(ctx context.Context, db *gorm.DB, entry *Entry) error
}

var (
	ErrInvalidAgent     = errors.New("invalid_agent")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidDirection = errors.New("invalid_direction")
	ErrInvalidEntryType = errors.New("invalid_entry_type")
)
