package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	agentdomain "github.com/openhaul/tripbook/internal/agent/domain"
	"gorm.io/gorm"
)

type OpenDisputeRequest struct {
	TripID       snowflake.ID
	Reason       string
	RaisedBy     snowflake.ID
	RaisedByRole agentdomain.Role
}

type ResolveDisputeRequest struct {
	DisputeID      snowflake.ID
	Resolution     string
	ResolvedBy     snowflake.ID
	ResolvedByRole agentdomain.Role
}

type Service interface {
	Open(ctx context.Context, req OpenDisputeRequest) (*Dispute, error)
	Resolve(ctx context.Context, req ResolveDisputeRequest) (*Dispute, error)
	ListByTrip(ctx context.Context, tripID snowflake.ID) ([]Dispute, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, dispute *Dispute) error
	Update(ctx context.Context, db *gorm.DB, dispute *Dispute) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Dispute, error)
	// FindOpenForTrip returns the trip's open dispute, or nil when none.
	FindOpenForTrip(ctx context.Context, db *gorm.DB, tripID snowflake.ID) (*Dispute, error)
	ListByTrip(ctx context.Context, db *gorm.DB, tripID snowflake.ID) ([]Dispute, error)
}

var (
	ErrNotFound      = errors.New("dispute_not_found")
	ErrInvalidReason = errors.New("invalid_dispute_reason")
	ErrAlreadyOpen   = errors.New("dispute_already_open")
)
