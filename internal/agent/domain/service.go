package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/openhaul/tripbook/pkg/db/pagination"
	"gorm.io/gorm"
)

type CreateAgentRequest struct {
	Name  string
	Phone string
	Role  string
}

type ListAgentRequest struct {
	pagination.Pagination
	Role string
}

type ListAgentResponse struct {
	pagination.PageInfo
	Agents []Agent `json:"agents"`
}

type Service interface {
	Create(ctx context.Context, req CreateAgentRequest) (*Agent, error)
	FindByID(ctx context.Context, id snowflake.ID) (*Agent, error)
	List(ctx context.Context, req ListAgentRequest) (ListAgentResponse, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, agent *Agent) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Agent, error)
	List(ctx context.Context, db *gorm.DB, role string, limit int, cursor *snowflake.ID) ([]*Agent, error)
}

var (
	ErrNotFound         = errors.New("agent_not_found")
	ErrInvalidName      = errors.New("invalid_agent_name")
	ErrInvalidRole      = errors.New("invalid_role")
	ErrInvalidPageToken = errors.New("invalid_page_token")
)
