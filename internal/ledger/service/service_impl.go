package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/openhaul/tripbook/internal/clock"
	ledgerdomain "github.com/openhaul/tripbook/internal/ledger/domain"
	"github.com/openhaul/tripbook/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  ledgerdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  ledgerdomain.Repository
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Append(ctx context.Context, entry *ledgerdomain.Entry) error {
	if err := s.normalize(entry); err != nil {
		return err
	}
	return s.repo.Insert(ctx, s.db, entry)
}

func (s *Service) EntriesForAgent(ctx context.Context, agentID snowflake.ID) ([]ledgerdomain.Entry, error) {
	if agentID == 0 {
		return nil, ledgerdomain.ErrInvalidAgent
	}
	return s.repo.ListByAgent(ctx, s.db, agentID)
}

func (s *Service) BalanceForAgent(ctx context.Context, agentID snowflake.ID) (float64, error) {
	entries, err := s.EntriesForAgent(ctx, agentID)
	if err != nil {
		return 0, err
	}
	return ledgerdomain.Fold(entries), nil
}

// UpsertSettlement keeps exactly one settlement row per (trip, agent). A
// unique partial index backs the insert; when two writers race, the loser
// re-reads and updates in place.
func (s *Service) UpsertSettlement(ctx context.Context, entry *ledgerdomain.Entry) error {
	if err := s.normalize(entry); err != nil {
		return err
	}
	if entry.Type != ledgerdomain.EntryTypeSettlement {
		return ledgerdomain.ErrInvalidEntryType
	}
	if entry.TripID == 0 {
		return ledgerdomain.ErrInvalidEntryType
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindSettlement(ctx, tx, entry.TripID, entry.AgentID)
		if err != nil {
			return err
		}
		if existing != nil {
			existing.Amount = entry.Amount
			existing.Description = entry.Description
			existing.Balance = entry.Balance
			existing.EntryDate = entry.EntryDate
			*entry = *existing
			return s.repo.UpdateSettlement(ctx, tx, existing)
		}

		if err := s.repo.Insert(ctx, tx, entry); err != nil {
			if !db.IsDuplicateKeyErr(err) {
				return err
			}
			loaded, ferr := s.repo.FindSettlement(ctx, tx, entry.TripID, entry.AgentID)
			if ferr != nil {
				return ferr
			}
			if loaded == nil {
				return err
			}
			loaded.Amount = entry.Amount
			loaded.Description = entry.Description
			loaded.Balance = entry.Balance
			loaded.EntryDate = entry.EntryDate
			*entry = *loaded
			return s.repo.UpdateSettlement(ctx, tx, loaded)
		}
		return nil
	})
}

func (s *Service) HasSettlement(ctx context.Context, tripID, agentID snowflake.ID) (bool, error) {
	entry, err := s.repo.FindSettlement(ctx, s.db, tripID, agentID)
	if err != nil {
		return false, err
	}
	return entry != nil, nil
}

func (s *Service) normalize(entry *ledgerdomain.Entry) error {
	if entry == nil || entry.AgentID == 0 {
		return ledgerdomain.ErrInvalidAgent
	}
	if entry.Amount < 0 {
		return ledgerdomain.ErrInvalidAmount
	}
	switch entry.Direction {
	case ledgerdomain.DirectionCredit, ledgerdomain.DirectionDebit:
	default:
		return ledgerdomain.ErrInvalidDirection
	}
	if entry.Type == "" {
		return ledgerdomain.ErrInvalidEntryType
	}
	if entry.ID == 0 {
		entry.ID = s.genID.Generate()
	}
	now := s.clock.Now()
	if entry.EntryDate.IsZero() {
		entry.EntryDate = now
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	return nil
}
