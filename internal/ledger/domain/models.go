package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Direction marks which side of an agent's account an entry lands on.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// EntryType is the closed set of ledger event kinds.
type EntryType string

const (
	EntryTypeTripCreated   EntryType = "trip_created"
	EntryTypeTopup         EntryType = "topup"
	EntryTypeVirtualTopup  EntryType = "virtual_topup"
	EntryTypeVirtualExpense EntryType = "virtual_expense"
	EntryTypeOnTripPayment EntryType = "on_trip_payment"
	EntryTypeAgentTransfer EntryType = "agent_transfer"
	EntryTypeSettlement    EntryType = "settlement"
	EntryTypeTripClosed    EntryType = "trip_closed"
	EntryTypeBetaCredit    EntryType = "beta_credit"
)

// Entry is one row of an agent's cash ledger. Entries are append-only; the
// single sanctioned in-place mutation is the settlement upsert, which
// refreshes amount, description and the balance snapshot for the
// (trip, agent, settlement) key.
//
// IsInformational marks display-only rows written for visibility on another
// agent's statement. The canonical balance fold still includes them: every
// consumer that needs a balance goes through BalanceForAgent rather than
// re-implementing the sum with its own idea of which rows count.
type Entry struct {
	ID              snowflake.ID  `gorm:"primaryKey" json:"id"`
	AgentID         snowflake.ID  `gorm:"not null;index" json:"agent_id"`
	TripID          snowflake.ID  `gorm:"index" json:"trip_id"`
	EntryDate       time.Time     `gorm:"column:entry_date;not null" json:"date"`
	Description     string        `gorm:"type:text" json:"description"`
	Type            EntryType     `gorm:"type:text;not null" json:"type"`
	Amount          float64       `gorm:"not null" json:"amount"`
	Direction       Direction     `gorm:"type:text;not null" json:"direction"`
	Bank            string        `gorm:"type:text" json:"bank"`
	PaymentMadeBy   *snowflake.ID `json:"payment_made_by,omitempty"`
	IsInformational bool          `gorm:"not null;default:false" json:"is_informational"`
	Balance         float64       `gorm:"not null;default:0" json:"balance"`
	CreatedAt       time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Entry) TableName() string { return "ledger_entries" }

// Signed returns the entry's contribution to the agent's balance.
func (e Entry) Signed() float64 {
	if e.Direction == DirectionDebit {
		return -e.Amount
	}
	return e.Amount
}

// Fold computes a balance from a slice of entries: credits add, debits
// subtract. Informational entries are included; see the Entry doc.
func Fold(entries []Entry) float64 {
	var balance float64
	for _, e := range entries {
		balance += e.Signed()
	}
	return balance
}
