package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/openhaul/tripbook/internal/dispute/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, dispute *domain.Dispute) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO disputes (
			id, trip_id, reason, status, raised_by, raised_by_role,
			resolved_by, resolved_by_role, resolution, resolved_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		dispute.ID,
		dispute.TripID,
		dispute.Reason,
		dispute.Status,
		dispute.RaisedBy,
		dispute.RaisedByRole,
		dispute.ResolvedBy,
		dispute.ResolvedByRole,
		dispute.Resolution,
		dispute.ResolvedAt,
		dispute.CreatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, dispute *domain.Dispute) error {
	return db.WithContext(ctx).Exec(
		`UPDATE disputes SET
			status = ?, resolved_by = ?, resolved_by_role = ?,
			resolution = ?, resolved_at = ?
		 WHERE id = ?`,
		dispute.Status,
		dispute.ResolvedBy,
		dispute.ResolvedByRole,
		dispute.Resolution,
		dispute.ResolvedAt,
		dispute.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Dispute, error) {
	var dispute domain.Dispute
	err := db.WithContext(ctx).Model(&domain.Dispute{}).
		Where("id = ?", id).
		Limit(1).
		Find(&dispute).Error
	if err != nil {
		return nil, err
	}
	if dispute.ID == 0 {
		return nil, nil
	}
	return &dispute, nil
}

func (r *repo) FindOpenForTrip(ctx context.Context, db *gorm.DB, tripID snowflake.ID) (*domain.Dispute, error) {
	var dispute domain.Dispute
	err := db.WithContext(ctx).Model(&domain.Dispute{}).
		Where("trip_id = ? AND status = ?", tripID, domain.DisputeStatusOpen).
		Limit(1).
		Find(&dispute).Error
	if err != nil {
		return nil, err
	}
	if dispute.ID == 0 {
		return nil, nil
	}
	return &dispute, nil
}

func (r *repo) ListByTrip(ctx context.Context, db *gorm.DB, tripID snowflake.ID) ([]domain.Dispute, error) {
	var disputes []domain.Dispute
	err := db.WithContext(ctx).Model(&domain.Dispute{}).
		Where("trip_id = ?", tripID).
		Order("id desc").
		Find(&disputes).Error
	if err != nil {
		return nil, err
	}
	return disputes, nil
}
