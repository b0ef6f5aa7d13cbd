package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	agentdomain "github.com/openhaul/tripbook/internal/agent/domain"
)

// DisputeStatus is the dispute's own state, independent of the trip's.
type DisputeStatus string

const (
	DisputeStatusOpen     DisputeStatus = "open"
	DisputeStatusResolved DisputeStatus = "resolved"
)

// Dispute holds a trip's lifecycle while a disagreement over its figures is
// worked out. At most one open dispute exists per trip; the partial unique
// index on (trip_id) WHERE status='open' enforces that under races.
type Dispute struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	TripID         snowflake.ID      `gorm:"not null;index" json:"trip_id"`
	Reason         string            `gorm:"type:text;not null" json:"reason"`
	Status         DisputeStatus     `gorm:"type:text;not null" json:"status"`
	RaisedBy       snowflake.ID      `gorm:"not null" json:"raised_by"`
	RaisedByRole   agentdomain.Role  `gorm:"type:text;not null" json:"raised_by_role"`
	ResolvedBy     *snowflake.ID     `json:"resolved_by,omitempty"`
	ResolvedByRole *agentdomain.Role `gorm:"type:text" json:"resolved_by_role,omitempty"`
	Resolution     string            `gorm:"type:text" json:"resolution,omitempty"`
	ResolvedAt     *time.Time        `json:"resolved_at,omitempty"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Dispute) TableName() string { return "disputes" }
