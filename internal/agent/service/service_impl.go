package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	agentdomain "github.com/openhaul/tripbook/internal/agent/domain"
	"github.com/openhaul/tripbook/internal/clock"
	"github.com/openhaul/tripbook/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  agentdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  agentdomain.Repository
}

func NewService(p Params) agentdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("agent.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req agentdomain.CreateAgentRequest) (*agentdomain.Agent, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, agentdomain.ErrInvalidName
	}

	role := agentdomain.RoleAgent
	if strings.TrimSpace(req.Role) != "" {
		parsed, err := agentdomain.ParseRole(req.Role)
		if err != nil {
			return nil, err
		}
		role = parsed
	}

	agent := agentdomain.Agent{
		ID:        s.genID.Generate(),
		Name:      name,
		Phone:     strings.TrimSpace(req.Phone),
		Role:      role,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

func (s *Service) FindByID(ctx context.Context, id snowflake.ID) (*agentdomain.Agent, error) {
	if id == 0 {
		return nil, agentdomain.ErrNotFound
	}
	agent, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, agentdomain.ErrNotFound
	}
	return agent, nil
}

func (s *Service) List(ctx context.Context, req agentdomain.ListAgentRequest) (agentdomain.ListAgentResponse, error) {
	var cursor *snowflake.ID
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return agentdomain.ListAgentResponse{}, agentdomain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return agentdomain.ListAgentResponse{}, agentdomain.ErrInvalidPageToken
		}
		cursor = &id
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}

	items, err := s.repo.List(ctx, s.db, req.Role, pageSize, cursor)
	if err != nil {
		return agentdomain.ListAgentResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(item *agentdomain.Agent) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: item.ID.String()})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	agents := make([]agentdomain.Agent, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		agents = append(agents, *item)
	}

	resp := agentdomain.ListAgentResponse{Agents: agents}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}
