package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/openhaul/tripbook/internal/agent/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, agent *domain.Agent) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO agents (id, name, phone, role, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		agent.ID,
		agent.Name,
		agent.Phone,
		agent.Role,
		agent.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Agent, error) {
	var agent domain.Agent
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, phone, role, created_at FROM agents WHERE id = ?`,
		id,
	).Scan(&agent).Error
	if err != nil {
		return nil, err
	}
	if agent.ID == 0 {
		return nil, nil
	}
	return &agent, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, role string, limit int, cursor *snowflake.ID) ([]*domain.Agent, error) {
	var agents []*domain.Agent
	stmt := db.WithContext(ctx).Model(&domain.Agent{})
	if role = strings.TrimSpace(role); role != "" {
		stmt = stmt.Where("role = ?", role)
	}
	if cursor != nil {
		stmt = stmt.Where("id < ?", *cursor)
	}
	stmt = stmt.Order("id desc")
	if limit > 0 {
		stmt = stmt.Limit(limit + 1)
	}
	if err := stmt.Find(&agents).Error; err != nil {
		return nil, err
	}
	return agents, nil
}
