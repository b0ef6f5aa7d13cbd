package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	agentdomain "github.com/openhaul/tripbook/internal/agent/domain"
)

// Status is the trip lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusInDispute Status = "in_dispute"
	StatusCompleted Status = "completed"
)

// MaxAttachments caps how many files a single trip carries.
const MaxAttachments = 4

// Actor identifies who is performing a mutation.
type Actor struct {
	ID   snowflake.ID
	Role agentdomain.Role
}

// Deductions are the named amounts withheld from a trip's freight. Fields
// merge last-write-wins per field across repeated saves; AddedBy records who
// last saved them and is threaded through every update call rather than
// treated as ambient state.
type Deductions struct {
	Cess         float64          `gorm:"column:cess;not null;default:0" json:"cess"`
	Kata         float64          `gorm:"column:kata;not null;default:0" json:"kata"`
	Expenses     float64          `gorm:"column:expenses;not null;default:0" json:"expenses"`
	Beta         float64          `gorm:"column:beta;not null;default:0" json:"beta"`
	Others       float64          `gorm:"column:others;not null;default:0" json:"others"`
	OthersReason string           `gorm:"column:others_reason;type:text" json:"others_reason"`
	AddedBy      snowflake.ID     `gorm:"column:added_by" json:"added_by"`
	AddedByRole  agentdomain.Role `gorm:"column:added_by_role;type:text" json:"added_by_role"`
}

// Payment is one on-trip payment. Rows are ordered and append-only.
type Payment struct {
	ID          snowflake.ID     `gorm:"primaryKey" json:"id"`
	TripID      snowflake.ID     `gorm:"not null;index" json:"trip_id"`
	Position    int              `gorm:"not null" json:"position"`
	Amount      float64          `gorm:"not null" json:"amount"`
	Reason      string           `gorm:"type:text" json:"reason"`
	Mode        string           `gorm:"type:text" json:"mode"`
	Bank        string           `gorm:"type:text" json:"bank"`
	AddedBy     snowflake.ID     `gorm:"not null" json:"added_by"`
	AddedByRole agentdomain.Role `gorm:"type:text;not null" json:"added_by_role"`
	CreatedAt   time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "trip_payments" }

// Attachment is file metadata attached to a trip. Byte storage is handled
// by the caller; only metadata lives here.
type Attachment struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	TripID      snowflake.ID `gorm:"not null;index" json:"trip_id"`
	FileName    string       `gorm:"type:text;not null" json:"file_name"`
	StoredName  string       `gorm:"type:text;not null" json:"stored_name"`
	ContentType string       `gorm:"type:text" json:"content_type"`
	SizeBytes   int64        `gorm:"not null;default:0" json:"size_bytes"`
	UploadedBy  snowflake.ID `gorm:"not null" json:"uploaded_by"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Attachment) TableName() string { return "trip_attachments" }

// Trip is one freight trip and its financial state. The trip owns its
// lifecycle; ledger entries reference it by id but never own it.
type Trip struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	LRNumber     string            `gorm:"column:lr_number;not null;index" json:"lr_number"`
	TripNumber   string            `gorm:"column:trip_number;not null" json:"trip_number"`
	AgentID      snowflake.ID      `gorm:"not null;index" json:"agent_id"`
	IsBulk       bool              `gorm:"not null;default:false" json:"is_bulk"`
	Freight      float64           `gorm:"not null;default:0" json:"freight"`
	Advance      float64           `gorm:"not null;default:0" json:"advance"`
	Deductions   Deductions        `gorm:"embedded;embeddedPrefix:deduction_" json:"deductions"`
	Balance      float64           `gorm:"not null;default:0" json:"balance"`
	FinalBalance *float64          `json:"final_balance,omitempty"`
	Status       Status            `gorm:"type:text;not null;index" json:"status"`
	ClosedBy     *snowflake.ID     `json:"closed_by,omitempty"`
	ClosedByRole *agentdomain.Role `gorm:"type:text" json:"closed_by_role,omitempty"`
	ClosedAt     *time.Time        `json:"closed_at,omitempty"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Payments    []Payment    `gorm:"-" json:"payments"`
	Attachments []Attachment `gorm:"-" json:"attachments,omitempty"`
}

// TableName sets the database table name.
func (Trip) TableName() string { return "trips" }
