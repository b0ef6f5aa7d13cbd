package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Role classifies who is acting. The role decides which ledger legs a
// payment produces and who may force-close a disputed trip.
type Role string

const (
	RoleAgent   Role = "agent"
	RoleFinance Role = "finance"
	RoleAdmin   Role = "admin"
)

func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAgent:
		return RoleAgent, nil
	case RoleFinance:
		return RoleFinance, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", ErrInvalidRole
	}
}

// Agent is a transport agent who runs trips and carries a cash ledger.
type Agent struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Phone     string       `gorm:"type:text;not null" json:"phone"`
	Role      Role         `gorm:"type:text;not null" json:"role"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Agent) TableName() string { return "agents" }
