package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/openhaul/tripbook/internal/trip/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, trip *domain.Trip) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO trips (
			id, lr_number, trip_number, agent_id, is_bulk, freight, advance,
			deduction_cess, deduction_kata, deduction_expenses, deduction_beta,
			deduction_others, deduction_others_reason, deduction_added_by,
			deduction_added_by_role, balance, final_balance, status,
			closed_by, closed_by_role, closed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trip.ID,
		trip.LRNumber,
		trip.TripNumber,
		trip.AgentID,
		trip.IsBulk,
		trip.Freight,
		trip.Advance,
		trip.Deductions.Cess,
		trip.Deductions.Kata,
		trip.Deductions.Expenses,
		trip.Deductions.Beta,
		trip.Deductions.Others,
		trip.Deductions.OthersReason,
		trip.Deductions.AddedBy,
		trip.Deductions.AddedByRole,
		trip.Balance,
		trip.FinalBalance,
		trip.Status,
		trip.ClosedBy,
		trip.ClosedByRole,
		trip.ClosedAt,
		trip.CreatedAt,
		trip.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, trip *domain.Trip) error {
	return db.WithContext(ctx).Exec(
		`UPDATE trips SET
			deduction_cess = ?, deduction_kata = ?, deduction_expenses = ?,
			deduction_beta = ?, deduction_others = ?, deduction_others_reason = ?,
			deduction_added_by = ?, deduction_added_by_role = ?,
			balance = ?, final_balance = ?, status = ?,
			closed_by = ?, closed_by_role = ?, closed_at = ?, updated_at = ?
		 WHERE id = ?`,
		trip.Deductions.Cess,
		trip.Deductions.Kata,
		trip.Deductions.Expenses,
		trip.Deductions.Beta,
		trip.Deductions.Others,
		trip.Deductions.OthersReason,
		trip.Deductions.AddedBy,
		trip.Deductions.AddedByRole,
		trip.Balance,
		trip.FinalBalance,
		trip.Status,
		trip.ClosedBy,
		trip.ClosedByRole,
		trip.ClosedAt,
		trip.UpdatedAt,
		trip.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Trip, error) {
	var trip domain.Trip
	err := db.WithContext(ctx).Model(&domain.Trip{}).
		Where("id = ?", id).
		Limit(1).
		Find(&trip).Error
	if err != nil {
		return nil, err
	}
	if trip.ID == 0 {
		return nil, nil
	}
	return &trip, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, agentID snowflake.ID, status string, limit int, cursor *snowflake.ID) ([]*domain.Trip, error) {
	var trips []*domain.Trip
	stmt := db.WithContext(ctx).Model(&domain.Trip{})
	if agentID != 0 {
		stmt = stmt.Where("agent_id = ?", agentID)
	}
	if status = strings.TrimSpace(status); status != "" {
		stmt = stmt.Where("status = ?", status)
	}
	if cursor != nil {
		stmt = stmt.Where("id < ?", *cursor)
	}
	stmt = stmt.Order("id desc")
	if limit > 0 {
		stmt = stmt.Limit(limit + 1)
	}
	if err := stmt.Find(&trips).Error; err != nil {
		return nil, err
	}
	return trips, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM trip_payments WHERE trip_id = ?`, id).Error; err != nil {
		return err
	}
	if err := db.WithContext(ctx).Exec(`DELETE FROM trip_attachments WHERE trip_id = ?`, id).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Exec(`DELETE FROM trips WHERE id = ?`, id).Error
}

func (r *repo) InsertPayment(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO trip_payments (
			id, trip_id, position, amount, reason, mode, bank,
			added_by, added_by_role, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.TripID,
		payment.Position,
		payment.Amount,
		payment.Reason,
		payment.Mode,
		payment.Bank,
		payment.AddedBy,
		payment.AddedByRole,
		payment.CreatedAt,
	).Error
}

func (r *repo) ListPayments(ctx context.Context, db *gorm.DB, tripID snowflake.ID) ([]domain.Payment, error) {
	var payments []domain.Payment
	err := db.WithContext(ctx).Model(&domain.Payment{}).
		Where("trip_id = ?", tripID).
		Order("position asc, id asc").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) InsertAttachment(ctx context.Context, db *gorm.DB, attachment *domain.Attachment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO trip_attachments (
			id, trip_id, file_name, stored_name, content_type, size_bytes,
			uploaded_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		attachment.ID,
		attachment.TripID,
		attachment.FileName,
		attachment.StoredName,
		attachment.ContentType,
		attachment.SizeBytes,
		attachment.UploadedBy,
		attachment.CreatedAt,
	).Error
}

func (r *repo) ListAttachments(ctx context.Context, db *gorm.DB, tripID snowflake.ID) ([]domain.Attachment, error) {
	var attachments []domain.Attachment
	err := db.WithContext(ctx).Model(&domain.Attachment{}).
		Where("trip_id = ?", tripID).
		Order("id asc").
		Find(&attachments).Error
	if err != nil {
		return nil, err
	}
	return attachments, nil
}
