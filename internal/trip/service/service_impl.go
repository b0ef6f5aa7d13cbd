package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/bwmarrin/snowflake"
	agentdomain "github.com/openhaul/tripbook/internal/agent/domain"
	auditdomain "github.com/openhaul/tripbook/internal/audit/domain"
	"github.com/openhaul/tripbook/internal/clock"
	disputedomain "github.com/openhaul/tripbook/internal/dispute/domain"
	ledgerdomain "github.com/openhaul/tripbook/internal/ledger/domain"
	"github.com/openhaul/tripbook/internal/metrics"
	tripdomain "github.com/openhaul/tripbook/internal/trip/domain"
	"github.com/openhaul/tripbook/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        tripdomain.Repository
	AgentSvc    agentdomain.Service
	LedgerSvc   ledgerdomain.Service
	AuditSvc    auditdomain.Service
	DisputeRepo disputedomain.Repository
	Metrics     *metrics.Metrics
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        tripdomain.Repository
	agentSvc    agentdomain.Service
	ledgerSvc   ledgerdomain.Service
	auditSvc    auditdomain.Service
	disputeRepo disputedomain.Repository
	metrics     *metrics.Metrics
	locks       *tripLocks
}

func NewService(p Params) tripdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("trip.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		agentSvc:    p.AgentSvc,
		ledgerSvc:   p.LedgerSvc,
		auditSvc:    p.AuditSvc,
		disputeRepo: p.DisputeRepo,
		metrics:     p.Metrics,
		locks:       newTripLocks(),
	}
}

func (s *Service) Create(ctx context.Context, req tripdomain.CreateTripRequest) (*tripdomain.Trip, error) {
	lrNumber := strings.TrimSpace(req.LRNumber)
	if lrNumber == "" {
		return nil, tripdomain.ErrInvalidInput
	}
	if req.AgentID == 0 {
		return nil, tripdomain.ErrInvalidInput
	}
	if _, err := s.agentSvc.FindByID(ctx, req.AgentID); err != nil {
		return nil, err
	}

	tripNumber := strings.TrimSpace(req.TripNumber)
	if tripNumber == "" {
		tripNumber = lrNumber
	}

	now := s.clock.Now()
	trip := tripdomain.Trip{
		ID:         s.genID.Generate(),
		LRNumber:   lrNumber,
		TripNumber: tripNumber,
		AgentID:    req.AgentID,
		IsBulk:     req.IsBulk,
		Status:     tripdomain.StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if !req.IsBulk {
		trip.Freight = req.Freight
		trip.Advance = req.Advance
		trip.Balance = req.Freight - req.Advance
	}

	if err := s.repo.Insert(ctx, s.db, &trip); err != nil {
		return nil, err
	}

	if !trip.IsBulk && trip.Advance > tripdomain.Tolerance {
		sheet := newBalanceSheet(s.ledgerSvc)
		s.appendEntry(ctx, sheet, &ledgerdomain.Entry{
			AgentID:       trip.AgentID,
			TripID:        trip.ID,
			Description:   fmt.Sprintf("Advance for trip %s", trip.LRNumber),
			Type:          ledgerdomain.EntryTypeTripCreated,
			Amount:        trip.Advance,
			Direction:     ledgerdomain.DirectionDebit,
			Bank:          strings.TrimSpace(req.Bank),
			PaymentMadeBy: actorIDPtr(req.Actor),
		})
	}

	s.audit(ctx, req.Actor, "trip.create", trip.ID, map[string]any{
		"lr_number": trip.LRNumber,
		"agent_id":  trip.AgentID.String(),
		"is_bulk":   trip.IsBulk,
		"freight":   trip.Freight,
		"advance":   trip.Advance,
	})

	return s.loadFull(ctx, &trip)
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*tripdomain.Trip, error) {
	trip, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.loadFull(ctx, trip)
}

func (s *Service) List(ctx context.Context, req tripdomain.ListTripRequest) (tripdomain.ListTripResponse, error) {
	var cursor *snowflake.ID
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return tripdomain.ListTripResponse{}, tripdomain.ErrInvalidInput
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return tripdomain.ListTripResponse{}, tripdomain.ErrInvalidInput
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

	items, err := s.repo.List(ctx, s.db, req.AgentID, req.Status, pageSize, cursor)
	if err != nil {
		return tripdomain.ListTripResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(item *tripdomain.Trip) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: item.ID.String()})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	trips := make([]tripdomain.Trip, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		payments, err := s.repo.ListPayments(ctx, s.db, item.ID)
		if err != nil {
			return tripdomain.ListTripResponse{}, err
		}
		item.Payments = payments
		trips = append(trips, *item)
	}

	resp := tripdomain.ListTripResponse{Trips: trips}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) AddPayment(ctx context.Context, tripID snowflake.ID, req tripdomain.AddPaymentRequest) (*tripdomain.Trip, error) {
	mu := s.locks.forTrip(tripID)
	mu.Lock()
	defer mu.Unlock()

	trip, err := s.find(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if err := tripdomain.CanAddPayment(trip.Status); err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, tripdomain.ErrInvalidInput
	}

	// Finance pays on behalf of a named agent; agents pay as themselves.
	payer := req.Actor.ID
	if req.Actor.Role == agentdomain.RoleFinance {
		payer = req.TargetAgentID
	}
	if payer == 0 {
		return nil, tripdomain.ErrInvalidInput
	}

	payments, err := s.repo.ListPayments(ctx, s.db, trip.ID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	payment := tripdomain.Payment{
		ID:          s.genID.Generate(),
		TripID:      trip.ID,
		Position:    len(payments),
		Amount:      req.Amount,
		Reason:      strings.TrimSpace(req.Reason),
		Mode:        strings.TrimSpace(req.Mode),
		Bank:        strings.TrimSpace(req.Bank),
		AddedBy:     req.Actor.ID,
		AddedByRole: req.Actor.Role,
		CreatedAt:   now,
	}
	if err := s.repo.InsertPayment(ctx, s.db, &payment); err != nil {
		return nil, err
	}

	trip.Payments = append(payments, payment)
	trip.Balance = trip.RunningBalance()
	trip.UpdatedAt = now
	if err := s.repo.Update(ctx, s.db, trip); err != nil {
		return nil, err
	}

	sheet := newBalanceSheet(s.ledgerSvc)
	if req.Actor.Role == agentdomain.RoleFinance {
		// Two legs against the selected agent: the top-up credit and the
		// payment debit net to zero but both stay on record.
		s.appendEntry(ctx, sheet, &ledgerdomain.Entry{
			AgentID:       payer,
			TripID:        trip.ID,
			Description:   fmt.Sprintf("Top-up for trip %s", trip.LRNumber),
			Type:          ledgerdomain.EntryTypeTopup,
			Amount:        req.Amount,
			Direction:     ledgerdomain.DirectionCredit,
			Bank:          payment.Bank,
			PaymentMadeBy: actorIDPtr(req.Actor),
		})
		s.appendEntry(ctx, sheet, &ledgerdomain.Entry{
			AgentID:       payer,
			TripID:        trip.ID,
			Description:   fmt.Sprintf("On-trip payment for trip %s", trip.LRNumber),
			Type:          ledgerdomain.EntryTypeOnTripPayment,
			Amount:        req.Amount,
			Direction:     ledgerdomain.DirectionDebit,
			Bank:          payment.Bank,
			PaymentMadeBy: actorIDPtr(req.Actor),
		})
	} else {
		s.appendEntry(ctx, sheet, &ledgerdomain.Entry{
			AgentID:       payer,
			TripID:        trip.ID,
			Description:   fmt.Sprintf("On-trip payment for trip %s", trip.LRNumber),
			Type:          ledgerdomain.EntryTypeOnTripPayment,
			Amount:        req.Amount,
			Direction:     ledgerdomain.DirectionDebit,
			Bank:          payment.Bank,
			PaymentMadeBy: actorIDPtr(req.Actor),
		})
		if payer != trip.AgentID {
			// Visibility row on the trip creator's statement. Marked
			// informational; the canonical fold still counts it.
			s.appendEntry(ctx, sheet, &ledgerdomain.Entry{
				AgentID:         trip.AgentID,
				TripID:          trip.ID,
				Description:     fmt.Sprintf("On-trip payment for trip %s (paid by another agent)", trip.LRNumber),
				Type:            ledgerdomain.EntryTypeOnTripPayment,
				Amount:          req.Amount,
				Direction:       ledgerdomain.DirectionDebit,
				Bank:            payment.Bank,
				PaymentMadeBy:   &payer,
				IsInformational: true,
			})
		}
	}

	s.audit(ctx, req.Actor, "trip.payment_added", trip.ID, map[string]any{
		"lr_number": trip.LRNumber,
		"amount":    req.Amount,
		"payer_id":  payer.String(),
		"mode":      payment.Mode,
	})

	return s.loadFull(ctx, trip)
}

func (s *Service) UpdateDeductions(ctx context.Context, tripID snowflake.ID, req tripdomain.UpdateDeductionsRequest) (*tripdomain.Trip, error) {
	mu := s.locks.forTrip(tripID)
	mu.Lock()
	defer mu.Unlock()

	trip, err := s.find(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if err := tripdomain.CanUpdateDeductions(trip.Status); err != nil {
		return nil, err
	}

	payments, err := s.repo.ListPayments(ctx, s.db, trip.ID)
	if err != nil {
		return nil, err
	}
	trip.Payments = payments

	trip.Deductions = trip.Deductions.Merge(req.Update, req.Actor)
	trip.Balance = trip.RunningBalance()
	trip.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, trip); err != nil {
		return nil, err
	}

	if settleable := trip.Deductions.SettleableTotal(); settleable > tripdomain.Tolerance {
		s.upsertSettlement(ctx, trip, trip.Deductions.AddedBy, settleable)
	}

	s.audit(ctx, req.Actor, "trip.deductions_updated", trip.ID, map[string]any{
		"lr_number": trip.LRNumber,
		"cess":      trip.Deductions.Cess,
		"kata":      trip.Deductions.Kata,
		"expenses":  trip.Deductions.Expenses,
		"beta":      trip.Deductions.Beta,
		"others":    trip.Deductions.Others,
	})

	return s.loadFull(ctx, trip)
}

func (s *Service) Close(ctx context.Context, tripID snowflake.ID, req tripdomain.CloseTripRequest) (*tripdomain.Trip, error) {
	mu := s.locks.forTrip(tripID)
	mu.Lock()
	defer mu.Unlock()

	trip, err := s.find(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if err := tripdomain.EnsureCloserAllowed(trip, req.Actor); err != nil {
		return nil, err
	}
	if err := tripdomain.CanClose(trip.Status, req.Actor, req.ForceClose); err != nil {
		return nil, err
	}

	open, err := s.disputeRepo.FindOpenForTrip(ctx, s.db, trip.ID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		if !req.ForceClose || req.Actor.Role == agentdomain.RoleAgent {
			return nil, tripdomain.ErrDisputeOpen
		}
	}

	now := s.clock.Now()
	closerID := req.Actor.ID
	closerRole := req.Actor.Role

	if trip.IsBulk {
		trip.Status = tripdomain.StatusCompleted
		trip.ClosedBy = &closerID
		trip.ClosedByRole = &closerRole
		trip.ClosedAt = &now
		trip.UpdatedAt = now
		if err := s.repo.Update(ctx, s.db, trip); err != nil {
			return nil, err
		}
		s.audit(ctx, req.Actor, "trip.closed", trip.ID, map[string]any{
			"lr_number": trip.LRNumber,
			"is_bulk":   true,
		})
		if s.metrics != nil {
			s.metrics.ObserveTripClosed("bulk")
		}
		return s.loadFull(ctx, trip)
	}

	payments, err := s.repo.ListPayments(ctx, s.db, trip.ID)
	if err != nil {
		return nil, err
	}
	trip.Payments = payments

	settlement := trip.Settle()
	sheet := newBalanceSheet(s.ledgerSvc)

	if req.Actor.Role == agentdomain.RoleAgent && !tripdomain.NearZero(settlement.FinalBalance) {
		if settlement.FinalBalance > tripdomain.Tolerance {
			available, err := sheet.current(ctx, req.Actor.ID)
			if err == nil && available+tripdomain.Tolerance < settlement.FinalBalance {
				return nil, &tripdomain.InsufficientFundsError{
					Required:  settlement.FinalBalance,
					Available: available,
				}
			}
		}
		return nil, &tripdomain.OutstandingBalanceError{Outstanding: settlement.FinalBalance}
	}

	finalBalance := settlement.FinalBalance
	trip.FinalBalance = &finalBalance
	trip.Balance = trip.RunningBalance()
	trip.Status = tripdomain.StatusCompleted
	trip.ClosedBy = &closerID
	trip.ClosedByRole = &closerRole
	trip.ClosedAt = &now
	trip.UpdatedAt = now
	if err := s.repo.Update(ctx, s.db, trip); err != nil {
		return nil, err
	}

	// Ledger mirror of the closure. Best effort, like every other ledger
	// side effect: the completed trip is the primary record.
	s.appendEntry(ctx, sheet, &ledgerdomain.Entry{
		AgentID:         req.Actor.ID,
		TripID:          trip.ID,
		Description:     fmt.Sprintf("Trip %s closed", trip.LRNumber),
		Type:            ledgerdomain.EntryTypeTripClosed,
		Amount:          math.Abs(finalBalance),
		Direction:       ledgerdomain.DirectionDebit,
		PaymentMadeBy:   actorIDPtr(req.Actor),
		IsInformational: true,
	})

	if settlement.TotalDeductions > tripdomain.Tolerance &&
		trip.Deductions.AddedBy != 0 && trip.Deductions.AddedBy != trip.AgentID {
		exists, err := s.ledgerSvc.HasSettlement(ctx, trip.ID, trip.AgentID)
		if err != nil {
			s.log.Warn("settlement lookup failed at close", zap.String("trip_id", trip.ID.String()), zap.Error(err))
		} else if !exists {
			s.upsertSettlement(ctx, trip, trip.AgentID, settlement.TotalDeductions)
		}
	}

	if settlement.Beta > tripdomain.Tolerance {
		s.appendEntry(ctx, sheet, &ledgerdomain.Entry{
			AgentID:       trip.AgentID,
			TripID:        trip.ID,
			Description:   fmt.Sprintf("Beta refund for trip %s", trip.LRNumber),
			Type:          ledgerdomain.EntryTypeBetaCredit,
			Amount:        settlement.Beta,
			Direction:     ledgerdomain.DirectionCredit,
			PaymentMadeBy: actorIDPtr(req.Actor),
		})
	}

	s.audit(ctx, req.Actor, "trip.closed", trip.ID, map[string]any{
		"lr_number":     trip.LRNumber,
		"final_balance": finalBalance,
		"force_close":   req.ForceClose,
	})
	if s.metrics != nil {
		if req.ForceClose {
			s.metrics.ObserveTripClosed("forced")
		} else {
			s.metrics.ObserveTripClosed("settled")
		}
	}

	return s.loadFull(ctx, trip)
}

func (s *Service) Delete(ctx context.Context, tripID snowflake.ID, actor tripdomain.Actor) error {
	mu := s.locks.forTrip(tripID)
	mu.Lock()
	defer mu.Unlock()

	trip, err := s.find(ctx, tripID)
	if err != nil {
		return err
	}

	// Ledger entries stay: the ledger is append-only and reconciliation of
	// orphaned trip references is an external concern.
	if err := s.repo.Delete(ctx, s.db, trip.ID); err != nil {
		return err
	}

	s.audit(ctx, actor, "trip.deleted", trip.ID, map[string]any{
		"lr_number": trip.LRNumber,
		"status":    string(trip.Status),
	})
	return nil
}

func (s *Service) AddAttachment(ctx context.Context, tripID snowflake.ID, req tripdomain.AddAttachmentRequest) (*tripdomain.Trip, error) {
	mu := s.locks.forTrip(tripID)
	mu.Lock()
	defer mu.Unlock()

	trip, err := s.find(ctx, tripID)
	if err != nil {
		return nil, err
	}
	fileName := strings.TrimSpace(req.FileName)
	if fileName == "" || strings.TrimSpace(req.StoredName) == "" {
		return nil, tripdomain.ErrInvalidInput
	}

	existing, err := s.repo.ListAttachments(ctx, s.db, trip.ID)
	if err != nil {
		return nil, err
	}
	if len(existing) >= tripdomain.MaxAttachments {
		return nil, tripdomain.ErrAttachmentLimit
	}

	attachment := tripdomain.Attachment{
		ID:          s.genID.Generate(),
		TripID:      trip.ID,
		FileName:    fileName,
		StoredName:  strings.TrimSpace(req.StoredName),
		ContentType: strings.TrimSpace(req.ContentType),
		SizeBytes:   req.SizeBytes,
		UploadedBy:  req.Actor.ID,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.InsertAttachment(ctx, s.db, &attachment); err != nil {
		return nil, err
	}

	s.audit(ctx, req.Actor, "trip.attachment_added", trip.ID, map[string]any{
		"lr_number": trip.LRNumber,
		"file_name": attachment.FileName,
	})

	return s.loadFull(ctx, trip)
}

func (s *Service) MarkInDispute(ctx context.Context, tripID snowflake.ID) (*tripdomain.Trip, error) {
	return s.flipStatus(ctx, tripID, tripdomain.StatusInDispute, tripdomain.CanOpenDispute)
}

func (s *Service) MarkActive(ctx context.Context, tripID snowflake.ID) (*tripdomain.Trip, error) {
	return s.flipStatus(ctx, tripID, tripdomain.StatusActive, tripdomain.CanResolveDispute)
}

func (s *Service) flipStatus(ctx context.Context, tripID snowflake.ID, to tripdomain.Status, guard func(tripdomain.Status) error) (*tripdomain.Trip, error) {
	mu := s.locks.forTrip(tripID)
	mu.Lock()
	defer mu.Unlock()

	trip, err := s.find(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if err := guard(trip.Status); err != nil {
		return nil, err
	}
	trip.Status = to
	trip.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, trip); err != nil {
		return nil, err
	}
	return trip, nil
}

func (s *Service) find(ctx context.Context, id snowflake.ID) (*tripdomain.Trip, error) {
	if id == 0 {
		return nil, tripdomain.ErrNotFound
	}
	trip, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, tripdomain.ErrNotFound
	}
	return trip, nil
}

func (s *Service) loadFull(ctx context.Context, trip *tripdomain.Trip) (*tripdomain.Trip, error) {
	payments, err := s.repo.ListPayments(ctx, s.db, trip.ID)
	if err != nil {
		return nil, err
	}
	attachments, err := s.repo.ListAttachments(ctx, s.db, trip.ID)
	if err != nil {
		return nil, err
	}
	trip.Payments = payments
	trip.Attachments = attachments
	return trip, nil
}

// appendEntry writes one ledger row with a running balance snapshot.
// Failures are logged and swallowed: the trip mutation that triggered the
// entry has already been persisted and must not be rolled back.
func (s *Service) appendEntry(ctx context.Context, sheet *balanceSheet, entry *ledgerdomain.Entry) {
	if err := sheet.stamp(ctx, entry); err != nil {
		s.log.Warn("ledger balance snapshot failed",
			zap.String("agent_id", entry.AgentID.String()),
			zap.String("type", string(entry.Type)),
			zap.Error(err))
	}
	if err := s.ledgerSvc.Append(ctx, entry); err != nil {
		s.log.Warn("ledger entry write failed",
			zap.String("agent_id", entry.AgentID.String()),
			zap.String("type", string(entry.Type)),
			zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveLedgerWrite(string(entry.Type))
	}
}

func (s *Service) upsertSettlement(ctx context.Context, trip *tripdomain.Trip, agentID snowflake.ID, amount float64) {
	sheet := newBalanceSheet(s.ledgerSvc)
	entry := ledgerdomain.Entry{
		AgentID:     agentID,
		TripID:      trip.ID,
		Description: fmt.Sprintf("Deduction settlement for trip %s", trip.LRNumber),
		Type:        ledgerdomain.EntryTypeSettlement,
		Amount:      amount,
		Direction:   ledgerdomain.DirectionCredit,
	}
	if err := sheet.stamp(ctx, &entry); err != nil {
		s.log.Warn("settlement balance snapshot failed",
			zap.String("agent_id", agentID.String()), zap.Error(err))
	}
	if err := s.ledgerSvc.UpsertSettlement(ctx, &entry); err != nil {
		s.log.Warn("settlement entry write failed",
			zap.String("trip_id", trip.ID.String()),
			zap.String("agent_id", agentID.String()),
			zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveLedgerWrite(string(ledgerdomain.EntryTypeSettlement))
	}
}

func (s *Service) audit(ctx context.Context, actor tripdomain.Actor, action string, tripID snowflake.ID, metadata map[string]any) {
	targetID := tripID.String()
	s.auditSvc.Record(ctx, actorIDPtr(actor), string(actor.Role), action, "trip", &targetID, metadata)
}

func actorIDPtr(actor tripdomain.Actor) *snowflake.ID {
	if actor.ID == 0 {
		return nil
	}
	id := actor.ID
	return &id
}
