package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	agentdomain "github.com/openhaul/tripbook/internal/agent/domain"
	"github.com/openhaul/tripbook/internal/agent/repository"
	"github.com/openhaul/tripbook/internal/clock"
	"github.com/openhaul/tripbook/pkg/db/pagination"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const agentSchema = `
CREATE TABLE agents (
    id BIGINT PRIMARY KEY,
    name TEXT NOT NULL,
    phone TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT 'agent',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

func newTestService(t *testing.T) agentdomain.Service {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.Exec(agentSchema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}

	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	return NewService(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
}

func TestCreateAgentValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, agentdomain.CreateAgentRequest{Name: "  "}); !errors.Is(err, agentdomain.ErrInvalidName) {
		t.Fatalf("blank name err = %v, want invalid name", err)
	}
	if _, err := svc.Create(ctx, agentdomain.CreateAgentRequest{Name: "Ravi", Role: "superuser"}); !errors.Is(err, agentdomain.ErrInvalidRole) {
		t.Fatalf("bad role err = %v, want invalid role", err)
	}

	agent, err := svc.Create(ctx, agentdomain.CreateAgentRequest{Name: "Ravi", Phone: "9000000000"})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	if agent.Role != agentdomain.RoleAgent {
		t.Fatalf("role = %s, want agent default", agent.Role)
	}
}

func TestFindByIDNotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.FindByID(context.Background(), snowflake.ID(999))
	if !errors.Is(err, agentdomain.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestListAgentsPagination(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := svc.Create(ctx, agentdomain.CreateAgentRequest{Name: fmt.Sprintf("Agent %d", i)}); err != nil {
			t.Fatalf("seed agent %d: %v", i, err)
		}
	}

	first, err := svc.List(ctx, agentdomain.ListAgentRequest{
		Pagination: pagination.Pagination{PageSize: 2},
	})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first.Agents) != 2 || !first.HasMore {
		t.Fatalf("first page = %d agents, has_more=%v", len(first.Agents), first.HasMore)
	}

	second, err := svc.List(ctx, agentdomain.ListAgentRequest{
		Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken},
	})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Agents) != 2 {
		t.Fatalf("second page = %d agents, want 2", len(second.Agents))
	}
	if second.Agents[0].ID == first.Agents[0].ID {
		t.Fatalf("pages overlap")
	}
}
