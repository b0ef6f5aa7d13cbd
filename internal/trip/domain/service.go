package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/openhaul/tripbook/pkg/db/pagination"
	"gorm.io/gorm"
)

type CreateTripRequest struct {
	LRNumber   string
	TripNumber string
	AgentID    snowflake.ID
	IsBulk     bool
	Freight    float64
	Advance    float64
	Bank       string
	Actor      Actor
}

type AddPaymentRequest struct {
	Amount float64
	Reason string
	Mode   string
	Bank   string
	// TargetAgentID names whose ledger a finance payment credits. Required
	// for finance actors, ignored for agents (the actor pays).
	TargetAgentID snowflake.ID
	Actor         Actor
}

type UpdateDeductionsRequest struct {
	Update DeductionUpdate
	Actor  Actor
}

type CloseTripRequest struct {
	Actor      Actor
	ForceClose bool
}

type AddAttachmentRequest struct {
	FileName    string
	StoredName  string
	ContentType string
	SizeBytes   int64
	Actor       Actor
}

type ListTripRequest struct {
	pagination.Pagination
	AgentID snowflake.ID
	Status  string
}

type ListTripResponse struct {
	pagination.PageInfo
	Trips []Trip `json:"trips"`
}

type Service interface {
	Create(ctx context.Context, req CreateTripRequest) (*Trip, error)
	Get(ctx context.Context, id snowflake.ID) (*Trip, error)
	List(ctx context.Context, req ListTripRequest) (ListTripResponse, error)
	AddPayment(ctx context.Context, tripID snowflake.ID, req AddPaymentRequest) (*Trip, error)
	UpdateDeductions(ctx context.Context, tripID snowflake.ID, req UpdateDeductionsRequest) (*Trip, error)
	Close(ctx context.Context, tripID snowflake.ID, req CloseTripRequest) (*Trip, error)
	Delete(ctx context.Context, tripID snowflake.ID, actor Actor) error
	AddAttachment(ctx context.Context, tripID snowflake.ID, req AddAttachmentRequest) (*Trip, error)

	// MarkInDispute / MarkActive are the dispute gate's handles into the
	// lifecycle; the trip service owns every status flip.
	MarkInDispute(ctx context.Context, tripID snowflake.ID) (*Trip, error)
	MarkActive(ctx context.Context, tripID snowflake.ID) (*Trip, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, trip *Trip) error
	Update(ctx context.Context, db *gorm.DB, trip *Trip) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Trip, error)
	List(ctx context.Context, db *gorm.DB, agentID snowflake.ID, status string, limit int, cursor *snowflake.ID) ([]*Trip, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	InsertPayment(ctx context.Context, db *gorm.DB, payment *Payment) error
	ListPayments(ctx context.Context, db *gorm.DB, tripID snowflake.ID) ([]Payment, error)

	InsertAttachment(ctx context.Context, db *gorm.DB, attachment *Attachment) error
	ListAttachments(ctx context.Context, db *gorm.DB, tripID snowflake.ID) ([]Attachment, error)
}
