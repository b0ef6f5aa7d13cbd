package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/openhaul/tripbook/internal/ledger/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.Entry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO ledger_entries (
			id, agent_id, trip_id, entry_date, description, type, amount,
			direction, bank, payment_made_by, is_informational, balance, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.AgentID,
		entry.TripID,
		entry.EntryDate,
		entry.Description,
		entry.Type,
		entry.Amount,
		entry.Direction,
		entry.Bank,
		entry.PaymentMadeBy,
		entry.IsInformational,
		entry.Balance,
		entry.CreatedAt,
	).Error
}

func (r *repo) ListByAgent(ctx context.Context, db *gorm.DB, agentID snowflake.ID) ([]domain.Entry, error) {
	var entries []domain.Entry
	err := db.WithContext(ctx).Model(&domain.Entry{}).
		Where("agent_id = ?", agentID).
		Order("created_at asc, id asc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) FindSettlement(ctx context.Context, db *gorm.DB, tripID, agentID snowflake.ID) (*domain.Entry, error) {
	var entry domain.Entry
	err := db.WithContext(ctx).Raw(
		`SELECT id, agent_id, trip_id, entry_date, description, type, amount,
			direction, bank, payment_made_by, is_informational, balance, created_at
		 FROM ledger_entries
		 WHERE trip_id = ? AND agent_id = ? AND type = ?`,
		tripID,
		agentID,
		domain.EntryTypeSettlement,
	).Scan(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == 0 {
		return nil, nil
	}
	return &entry, nil
}

func (r *repo) UpdateSettlement(ctx context.Context, db *gorm.DB, entry *domain.Entry) error {
	return db.WithContext(ctx).Exec(
		`UPDATE ledger_entries
		 SET amount = ?, description = ?, balance = ?, entry_date = ?
		 WHERE id = ? AND type = ?`,
		entry.Amount,
		entry.Description,
		entry.Balance,
		entry.EntryDate,
		entry.ID,
		domain.EntryTypeSettlement,
	).Error
}
