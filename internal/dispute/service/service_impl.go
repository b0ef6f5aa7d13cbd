package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/openhaul/tripbook/internal/audit/domain"
	"github.com/openhaul/tripbook/internal/clock"
	disputedomain "github.com/openhaul/tripbook/internal/dispute/domain"
	tripdomain "github.com/openhaul/tripbook/internal/trip/domain"
	"github.com/openhaul/tripbook/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     disputedomain.Repository
	TripSvc  tripdomain.Service
	AuditSvc auditdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     disputedomain.Repository
	tripSvc  tripdomain.Service
	auditSvc auditdomain.Service
}

func NewService(p Params) disputedomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("dispute.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		tripSvc:  p.TripSvc,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Open(ctx context.Context, req disputedomain.OpenDisputeRequest) (*disputedomain.Dispute, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, disputedomain.ErrInvalidReason
	}
	if req.RaisedBy == 0 {
		return nil, tripdomain.ErrInvalidInput
	}

	existing, err := s.repo.FindOpenForTrip(ctx, s.db, req.TripID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, disputedomain.ErrAlreadyOpen
	}

	// Flip the trip first: MarkInDispute owns the active-only guard, so a
	// dispute row never lands on a completed or already disputed trip.
	if _, err := s.tripSvc.MarkInDispute(ctx, req.TripID); err != nil {
		return nil, err
	}

	dispute := disputedomain.Dispute{
		ID:           s.genID.Generate(),
		TripID:       req.TripID,
		Reason:       reason,
		Status:       disputedomain.DisputeStatusOpen,
		RaisedBy:     req.RaisedBy,
		RaisedByRole: req.RaisedByRole,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, &dispute); err != nil {
		if _, revertErr := s.tripSvc.MarkActive(ctx, req.TripID); revertErr != nil {
			s.log.Warn("trip status revert failed after dispute insert",
				zap.String("trip_id", req.TripID.String()), zap.Error(revertErr))
		}
		if db.IsDuplicateKeyErr(err) {
			return nil, disputedomain.ErrAlreadyOpen
		}
		return nil, err
	}

	s.recordAudit(ctx, dispute.RaisedBy, string(dispute.RaisedByRole), "dispute.opened", &dispute, map[string]any{
		"trip_id": dispute.TripID.String(),
		"reason":  dispute.Reason,
	})

	return &dispute, nil
}

func (s *Service) Resolve(ctx context.Context, req disputedomain.ResolveDisputeRequest) (*disputedomain.Dispute, error) {
	dispute, err := s.repo.FindByID(ctx, s.db, req.DisputeID)
	if err != nil {
		return nil, err
	}
	if dispute == nil {
		return nil, disputedomain.ErrNotFound
	}
	if dispute.Status != disputedomain.DisputeStatusOpen {
		return nil, tripdomain.ErrInvalidState
	}

	if _, err := s.tripSvc.MarkActive(ctx, dispute.TripID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	resolvedBy := req.ResolvedBy
	resolvedByRole := req.ResolvedByRole
	dispute.Status = disputedomain.DisputeStatusResolved
	dispute.ResolvedBy = &resolvedBy
	dispute.ResolvedByRole = &resolvedByRole
	dispute.Resolution = strings.TrimSpace(req.Resolution)
	dispute.ResolvedAt = &now
	if err := s.repo.Update(ctx, s.db, dispute); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, resolvedBy, string(resolvedByRole), "dispute.resolved", dispute, map[string]any{
		"trip_id":    dispute.TripID.String(),
		"resolution": dispute.Resolution,
	})

	return dispute, nil
}

func (s *Service) ListByTrip(ctx context.Context, tripID snowflake.ID) ([]disputedomain.Dispute, error) {
	return s.repo.ListByTrip(ctx, s.db, tripID)
}

func (s *Service) recordAudit(ctx context.Context, actorID snowflake.ID, actorRole string, action string, dispute *disputedomain.Dispute, metadata map[string]any) {
	targetID := dispute.ID.String()
	var actor *snowflake.ID
	if actorID != 0 {
		actor = &actorID
	}
	s.auditSvc.Record(ctx, actor, actorRole, action, "dispute", &targetID, metadata)
}
