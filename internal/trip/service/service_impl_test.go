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
	agentrepository "github.com/openhaul/tripbook/internal/agent/repository"
	agentservice "github.com/openhaul/tripbook/internal/agent/service"
	auditrepository "github.com/openhaul/tripbook/internal/audit/repository"
	auditservice "github.com/openhaul/tripbook/internal/audit/service"
	"github.com/openhaul/tripbook/internal/clock"
	disputedomain "github.com/openhaul/tripbook/internal/dispute/domain"
	disputerepository "github.com/openhaul/tripbook/internal/dispute/repository"
	ledgerdomain "github.com/openhaul/tripbook/internal/ledger/domain"
	ledgerrepository "github.com/openhaul/tripbook/internal/ledger/repository"
	ledgerservice "github.com/openhaul/tripbook/internal/ledger/service"
	tripdomain "github.com/openhaul/tripbook/internal/trip/domain"
	triprepository "github.com/openhaul/tripbook/internal/trip/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testSchema = `
CREATE TABLE agents (
    id BIGINT PRIMARY KEY,
    name TEXT NOT NULL,
    phone TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT 'agent',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE trips (
    id BIGINT PRIMARY KEY,
    lr_number TEXT NOT NULL,
    trip_number TEXT NOT NULL,
    agent_id BIGINT NOT NULL,
    is_bulk BOOLEAN NOT NULL DEFAULT FALSE,
    freight DOUBLE PRECISION NOT NULL DEFAULT 0,
    advance DOUBLE PRECISION NOT NULL DEFAULT 0,
    deduction_cess DOUBLE PRECISION NOT NULL DEFAULT 0,
    deduction_kata DOUBLE PRECISION NOT NULL DEFAULT 0,
    deduction_expenses DOUBLE PRECISION NOT NULL DEFAULT 0,
    deduction_beta DOUBLE PRECISION NOT NULL DEFAULT 0,
    deduction_others DOUBLE PRECISION NOT NULL DEFAULT 0,
    deduction_others_reason TEXT NOT NULL DEFAULT '',
    deduction_added_by BIGINT NOT NULL DEFAULT 0,
    deduction_added_by_role TEXT NOT NULL DEFAULT '',
    balance DOUBLE PRECISION NOT NULL DEFAULT 0,
    final_balance DOUBLE PRECISION,
    status TEXT NOT NULL DEFAULT 'active',
    closed_by BIGINT,
    closed_by_role TEXT,
    closed_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE trip_payments (
    id BIGINT PRIMARY KEY,
    trip_id BIGINT NOT NULL,
    position INTEGER NOT NULL,
    amount DOUBLE PRECISION NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    mode TEXT NOT NULL DEFAULT '',
    bank TEXT NOT NULL DEFAULT '',
    added_by BIGINT NOT NULL,
    added_by_role TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE trip_attachments (
    id BIGINT PRIMARY KEY,
    trip_id BIGINT NOT NULL,
    file_name TEXT NOT NULL,
    stored_name TEXT NOT NULL,
    content_type TEXT NOT NULL DEFAULT '',
    size_bytes BIGINT NOT NULL DEFAULT 0,
    uploaded_by BIGINT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE ledger_entries (
    id BIGINT PRIMARY KEY,
    agent_id BIGINT NOT NULL,
    trip_id BIGINT NOT NULL DEFAULT 0,
    entry_date TIMESTAMP NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    type TEXT NOT NULL,
    amount DOUBLE PRECISION NOT NULL,
    direction TEXT NOT NULL,
    bank TEXT NOT NULL DEFAULT '',
    payment_made_by BIGINT,
    is_informational BOOLEAN NOT NULL DEFAULT FALSE,
    balance DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX ux_ledger_entries_settlement
    ON ledger_entries(trip_id, agent_id, type) WHERE type = 'settlement';
CREATE TABLE disputes (
    id BIGINT PRIMARY KEY,
    trip_id BIGINT NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'open',
    raised_by BIGINT NOT NULL,
    raised_by_role TEXT NOT NULL DEFAULT 'agent',
    resolved_by BIGINT,
    resolved_by_role TEXT,
    resolution TEXT NOT NULL DEFAULT '',
    resolved_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX ux_disputes_open_trip
    ON disputes(trip_id) WHERE status = 'open';
CREATE TABLE audit_logs (
    id BIGINT PRIMARY KEY,
    actor_id BIGINT,
    actor_role TEXT NOT NULL DEFAULT '',
    action TEXT NOT NULL,
    target_type TEXT NOT NULL,
    target_id TEXT,
    metadata TEXT,
    source_ip TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

type testEnv struct {
	db          *gorm.DB
	node        *snowflake.Node
	fake        *clock.FakeClock
	tripSvc     tripdomain.Service
	agentSvc    agentdomain.Service
	ledgerSvc   ledgerdomain.Service
	disputeRepo disputedomain.Repository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.Exec(testSchema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	agentSvc := agentservice.NewService(agentservice.Params{
		DB: conn, Log: log, GenID: node, Clock: fake, Repo: agentrepository.Provide(),
	})
	ledgerSvc := ledgerservice.NewService(ledgerservice.Params{
		DB: conn, Log: log, GenID: node, Clock: fake, Repo: ledgerrepository.Provide(),
	})
	auditSvc := auditservice.NewService(auditservice.Params{
		DB: conn, Log: log, GenID: node, Clock: fake, Repo: auditrepository.Provide(),
	})
	disputeRepo := disputerepository.Provide()

	tripSvc := NewService(Params{
		DB:          conn,
		Log:         log,
		GenID:       node,
		Clock:       fake,
		Repo:        triprepository.Provide(),
		AgentSvc:    agentSvc,
		LedgerSvc:   ledgerSvc,
		AuditSvc:    auditSvc,
		DisputeRepo: disputeRepo,
	})

	return &testEnv{
		db:          conn,
		node:        node,
		fake:        fake,
		tripSvc:     tripSvc,
		agentSvc:    agentSvc,
		ledgerSvc:   ledgerSvc,
		disputeRepo: disputeRepo,
	}
}

func (e *testEnv) createAgent(t *testing.T, name string, role agentdomain.Role) *agentdomain.Agent {
	t.Helper()
	agent, err := e.agentSvc.Create(context.Background(), agentdomain.CreateAgentRequest{
		Name: name, Phone: "9000000000", Role: string(role),
	})
	if err != nil {
		t.Fatalf("create agent %s: %v", name, err)
	}
	return agent
}

func (e *testEnv) createTrip(t *testing.T, agent *agentdomain.Agent, freight, advance float64) *tripdomain.Trip {
	t.Helper()
	trip, err := e.tripSvc.Create(context.Background(), tripdomain.CreateTripRequest{
		LRNumber: fmt.Sprintf("LR-%d", e.node.Generate()),
		AgentID:  agent.ID,
		Freight:  freight,
		Advance:  advance,
		Actor:    tripdomain.Actor{ID: agent.ID, Role: agent.Role},
	})
	if err != nil {
		t.Fatalf("create trip: %v", err)
	}
	return trip
}

func (e *testEnv) balance(t *testing.T, agentID snowflake.ID) float64 {
	t.Helper()
	balance, err := e.ledgerSvc.BalanceForAgent(context.Background(), agentID)
	if err != nil {
		t.Fatalf("balance for agent: %v", err)
	}
	return balance
}

func (e *testEnv) entries(t *testing.T, agentID snowflake.ID) []ledgerdomain.Entry {
	t.Helper()
	entries, err := e.ledgerSvc.EntriesForAgent(context.Background(), agentID)
	if err != nil {
		t.Fatalf("entries for agent: %v", err)
	}
	return entries
}

func TestCreateTripRecordsAdvance(t *testing.T) {
	env := newTestEnv(t)
	agent := env.createAgent(t, "Ravi", agentdomain.RoleAgent)

	trip := env.createTrip(t, agent, 10000, 3000)

	if trip.Status != tripdomain.StatusActive {
		t.Fatalf("status = %s, want active", trip.Status)
	}
	if trip.Balance != 7000 {
		t.Fatalf("balance = %.2f, want 7000", trip.Balance)
	}

	entries := env.entries(t, agent.ID)
	if len(entries) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(entries))
	}
	if entries[0].Type != ledgerdomain.EntryTypeTripCreated {
		t.Fatalf("entry type = %s, want trip_created", entries[0].Type)
	}
	if entries[0].Direction != ledgerdomain.DirectionDebit {
		t.Fatalf("entry direction = %s, want debit", entries[0].Direction)
	}
	if env.balance(t, agent.ID) != -3000 {
		t.Fatalf("agent balance = %.2f, want -3000", env.balance(t, agent.ID))
	}
}

func TestCreateTripUnknownAgent(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.tripSvc.Create(context.Background(), tripdomain.CreateTripRequest{
		LRNumber: "LR-1",
		AgentID:  snowflake.ID(424242),
		Freight:  1000,
		Actor:    tripdomain.Actor{ID: 1, Role: agentdomain.RoleAgent},
	})
	if !errors.Is(err, agentdomain.ErrNotFound) {
		t.Fatalf("err = %v, want agent not found", err)
	}
}

func TestBulkTripSkipsFinancials(t *testing.T) {
	env := newTestEnv(t)
	agent := env.createAgent(t, "Ravi", agentdomain.RoleAgent)

	trip, err := env.tripSvc.Create(context.Background(), tripdomain.CreateTripRequest{
		LRNumber: "LR-BULK",
		AgentID:  agent.ID,
		IsBulk:   true,
		Actor:    tripdomain.Actor{ID: agent.ID, Role: agentdomain.RoleAgent},
	})
	if err != nil {
		t.Fatalf("create bulk trip: %v", err)
	}
	if trip.Balance != 0 {
		t.Fatalf("bulk balance = %.2f, want 0", trip.Balance)
	}
	if got := env.entries(t, agent.ID); len(got) != 0 {
		t.Fatalf("ledger entries = %d, want 0 for bulk", len(got))
	}

	// Deductions save on bulk trips too; the balance stays untouched.
	cess := 150.0
	updated, err := env.tripSvc.UpdateDeductions(context.Background(), trip.ID, tripdomain.UpdateDeductionsRequest{
		Update: tripdomain.DeductionUpdate{Cess: &cess},
		Actor:  tripdomain.Actor{ID: agent.ID, Role: agentdomain.RoleAgent},
	})
	if err != nil {
		t.Fatalf("update deductions on bulk: %v", err)
	}
	if updated.Deductions.Cess != 150 {
		t.Fatalf("cess = %.2f, want 150", updated.Deductions.Cess)
	}
	if updated.Balance != 0 {
		t.Fatalf("bulk balance after deductions = %.2f, want 0", updated.Balance)
	}
}

func TestFinancePaymentWritesPairedEntries(t *testing.T) {
	env := newTestEnv(t)
	agent := env.createAgent(t, "Ravi", agentdomain.RoleAgent)
	finance := env.createAgent(t, "Meera", agentdomain.RoleFinance)
	trip := env.createTrip(t, agent, 10000, 0)

	updated, err := env.tripSvc.AddPayment(context.Background(), trip.ID, tripdomain.AddPaymentRequest{
		Amount:        2000,
		TargetAgentID: agent.ID,
		Actor:         tripdomain.Actor{ID: finance.ID, Role: agentdomain.RoleFinance},
	})
	if err != nil {
		t.Fatalf("finance payment: %v", err)
	}
	if updated.Balance != 8000 {
		t.Fatalf("trip balance = %.2f, want 8000", updated.Balance)
	}

	entries := env.entries(t, agent.ID)
	if len(entries) != 2 {
		t.Fatalf("ledger entries = %d, want topup+payment pair", len(entries))
	}
	var sawTopup, sawPayment bool
	for _, entry := range entries {
		switch entry.Type {
		case ledgerdomain.EntryTypeTopup:
			sawTopup = entry.Direction == ledgerdomain.DirectionCredit
		case ledgerdomain.EntryTypeOnTripPayment:
			sawPayment = entry.Direction == ledgerdomain.DirectionDebit
		}
	}
	if !sawTopup || !sawPayment {
		t.Fatalf("missing paired entries: topup=%v payment=%v", sawTopup, sawPayment)
	}
	// The pair nets to zero on the agent's statement.
	if env.balance(t, agent.ID) != 0 {
		t.Fatalf("agent balance = %.2f, want 0", env.balance(t, agent.ID))
	}
}

func TestFinancePaymentRequiresTarget(t *testing.T) {
	env := newTestEnv(t)
	agent := env.createAgent(t, "Ravi", agentdomain.RoleAgent)
	finance := env.createAgent(t, "Meera", agentdomain.RoleFinance)
	trip := env.createTrip(t, agent, 5000, 0)

	_, err := env.tripSvc.AddPayment(context.Background(), trip.ID, tripdomain.AddPaymentRequest{
		Amount: 500,
		Actor:  tripdomain.Actor{ID: finance.ID, Role: agentdomain.RoleFinance},
	})
	if !errors.Is(err, tripdomain.ErrInvalidInput) {
		t.Fatalf("err = %v, want invalid input", err)
	}
}

func TestCrossAgentPaymentAddsInformationalEntry(t *testing.T) {
	env := newTestEnv(t)
	creator := env.createAgent(t, "Ravi", agentdomain.RoleAgent)
	payer := env.createAgent(t, "Suresh", agentdomain.RoleAgent)
	trip := env.createTrip(t, creator, 10000, 0)

	if _, err := env.tripSvc.AddPayment(context.Background(), trip.ID, tripdomain.AddPaymentRequest{
		Amount: 1500,
		Actor:  tripdomain.Actor{ID: payer.ID, Role: agentdomain.RoleAgent},
	}); err != nil {
		t.Fatalf("cross-agent payment: %v", err)
	}

	payerEntries := env.entries(t, payer.ID)
	if len(payerEntries) != 1 || payerEntries[0].IsInformational {
		t.Fatalf("payer should carry one real debit, got %+v", payerEntries)
	}

	creatorEntries := env.entries(t, creator.ID)
	if len(creatorEntries) != 1 {
		t.Fatalf("creator entries = %d, want 1 informational", len(creatorEntries))
	}
	if !creatorEntries[0].IsInformational {
		t.Fatalf("creator entry should be informational")
	}
	// Informational rows still count in the canonical fold.
	if env.balance(t, creator.ID) != -1500 {
		t.Fatalf("creator balance = %.2f, want -1500", env.balance(t, creator.ID))
	}
}

func TestPaymentOnCompletedTripRejected(t *testing.T) {
	env := newTestEnv(t)
	agent := env.createAgent(t, "Ravi", agentdomain.RoleAgent)
	admin := env.createAgent(t, "Asha", agentdomain.RoleAdmin)
	trip := env.createTrip(t, agent, 1000, 1000)

	if _, err := env.tripSvc.Close(context.Background(), trip.ID, tripdomain.CloseTripRequest{
		Actor: tripdomain.Actor{ID: admin.ID, Role: agentdomain.RoleAdmin},
	}); err != nil {
		t.Fatalf("close: %v", err)
	}

	_, err := env.tripSvc.AddPayment(context.Background(), trip.ID, tripdomain.AddPaymentRequest{
		Amount: 100,
		Actor:  tripdomain.Actor{ID: agent.ID, Role: agentdomain.RoleAgent},
	})
	if !errors.Is(err, tripdomain.ErrInvalidState) {
		t.Fatalf("err = %v, want invalid state", err)
	}
}

func TestDeductionUpdatesMergeIntoSingleSettlement(t *testing.T) {
	env := newTestEnv(t)
	agent := env.createAgent(t, "Ravi", agentdomain.RoleAgent)
	trip := env.createTrip(t, agent, 10000, 0)

	cess := 100.0
	if _, err := env.tripSvc.UpdateDeductions(context.Background(), trip.ID, tripdomain.UpdateDeductionsRequest{
		Update: tripdomain.DeductionUpdate{Cess: &cess},
		Actor:  tripdomain.Actor{ID: agent.ID, Role: agentdomain.RoleAgent},
	}); err != nil {
		t.Fatalf("first deduction save: %v", err)
	}

	kata := 100.0
	updated, err := env.tripSvc.UpdateDeductions(context.Background(), trip.ID, tripdomain.UpdateDeductionsRequest{
		Update: tripdomain.DeductionUpdate{Kata: &kata},
		Actor:  tripdomain.Actor{ID: agent.ID, Role: agentdomain.RoleAgent},
	})
	if err != nil {
		t.Fatalf("second deduction save: %v", err)
	}
	if updated.Deductions.Cess != 100 || updated.Deductions.Kata != 100 {
		t.Fatalf("merge lost a field: %+v", updated.Deductions)
	}
	if updated.Balance != 9800 {
		t.Fatalf("balance = %.2f, want 9800", updated.Balance)
	}

	var settlements []ledgerdomain.Entry
	for _, entry := range env.entries(t, agent.ID) {
		if entry.Type == ledgerdomain.EntryTypeSettlement {
			settlements = append(settlements, entry)
		}
	}
	if len(settlements) != 1 {
		t.Fatalf("settlement entries = %d, want exactly 1", len(settlements))
	}
	if settlements[0].Amount != 200 {
		t.Fatalf("settlement amount = %.2f, want 200", settlements[0].Amount)
	}
}

func TestCreatorCannotCloseOwnTrip(t *testing.T) {
	env := newTestEnv(t)
	agent := env.createAgent(t, "Ravi", agentdomain.RoleAgent)
	trip := env.createTrip(t, agent, 1000, 1000)

	_, err := env.tripSvc.Close(context.Background(), trip.ID, tripdomain.CloseTripRequest{
		Actor: tripdomain.Actor{ID: agent.ID, Role: agentdomain.RoleAgent},
	})
	if !errors.Is(err, tripdomain.ErrForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestOpenDisputeBlocksClose(t *testing.T) {
	env := newTestEnv(t)
	agent := env.createAgent(t, "Ravi", agentdomain.RoleAgent)
	admin := env.createAgent(t, "Asha", agentdomain.RoleAdmin)
	trip := env.createTrip(t, agent, 1000, 1000)

	ctx := context.Background()
	if _, err := env.tripSvc.MarkInDispute(ctx, trip.ID); err != nil {
		t.Fatalf("mark in dispute: %v", err)
	}
	if err := env.disputeRepo.Insert(ctx, env.db, &disputedomain.Dispute{
		ID:           env.node.Generate(),
		TripID:       trip.ID,
		Reason:       "short payment",
		Status:       disputedomain.DisputeStatusOpen,
		RaisedBy:     agent.ID,
		RaisedByRole: agentdomain.RoleAgent,
		CreatedAt:    env.fake.Now(),
	}); err != nil {
		t.Fatalf("insert dispute: %v", err)
	}

	_, err := env.tripSvc.Close(ctx, trip.ID, tripdomain.CloseTripRequest{
		Actor: tripdomain.Actor{ID: admin.ID, Role: agentdomain.RoleAdmin},
	})
	if !errors.Is(err, tripdomain.ErrDisputeOpen) {
		t.Fatalf("err = %v, want dispute open", err)
	}

	// An agent cannot force through a dispute either.
	_, err = env.tripSvc.Close(ctx, trip.ID, tripdomain.CloseTripRequest{
		Actor:      tripdomain.Actor{ID: env.createAgent(t, "Suresh", agentdomain.RoleAgent).ID, Role: agentdomain.RoleAgent},
		ForceClose: true,
	})
	if !errors.Is(err, tripdomain.ErrDisputeOpen) {
		t.Fatalf("agent force close err = %v, want dispute open", err)
	}

	closed, err := env.tripSvc.Close(ctx, trip.ID, tripdomain.CloseTripRequest{
		Actor:      tripdomain.Actor{ID: admin.ID, Role: agentdomain.RoleAdmin},
		ForceClose: true,
	})
	if err != nil {
		t.Fatalf("admin force close: %v", err)
	}
	if closed.Status != tripdomain.StatusCompleted {
		t.Fatalf("status = %s, want completed", closed.Status)
	}
}

func TestAgentCloserNeedsSettledBalance(t *testing.T) {
	env := newTestEnv(t)
	creator := env.createAgent(t, "Ravi", agentdomain.RoleAgent)
	closer := env.createAgent(t, "Suresh", agentdomain.RoleAgent)
	trip := env.createTrip(t, creator, 1000, 850)

	// 150 outstanding and the closer's ledger cannot cover it.
	_, err := env.tripSvc.Close(context.Background(), trip.ID, tripdomain.CloseTripRequest{
		Actor: tripdomain.Actor{ID: closer.ID, Role: agentdomain.RoleAgent},
	})
	if !errors.Is(err, tripdomain.ErrInvalidState) {
		t.Fatalf("err = %v, want invalid state", err)
	}

	var insufficient *tripdomain.InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("err = %v, want insufficient funds detail", err)
	}
	if insufficient.Required != 150 {
		t.Fatalf("required = %.2f, want 150", insufficient.Required)
	}
}

func TestAgentClosesZeroBalanceTrip(t *testing.T) {
	env := newTestEnv(t)
	creator := env.createAgent(t, "Ravi", agentdomain.RoleAgent)
	closer := env.createAgent(t, "Suresh", agentdomain.RoleAgent)
	trip := env.createTrip(t, creator, 1000, 1000)

	closed, err := env.tripSvc.Close(context.Background(), trip.ID, tripdomain.CloseTripRequest{
		Actor: tripdomain.Actor{ID: closer.ID, Role: agentdomain.RoleAgent},
	})
	if err != nil {
		t.Fatalf("close zero-balance trip: %v", err)
	}
	if closed.Status != tripdomain.StatusCompleted {
		t.Fatalf("status = %s, want completed", closed.Status)
	}
	if closed.FinalBalance == nil || *closed.FinalBalance != 0 {
		t.Fatalf("final balance = %v, want 0", closed.FinalBalance)
	}
	if closed.ClosedBy == nil || *closed.ClosedBy != closer.ID {
		t.Fatalf("closed by = %v, want %v", closed.ClosedBy, closer.ID)
	}
}

func TestCloseRefundsBeta(t *testing.T) {
	env := newTestEnv(t)
	agent := env.createAgent(t, "Ravi", agentdomain.RoleAgent)
	admin := env.createAgent(t, "Asha", agentdomain.RoleAdmin)
	trip := env.createTrip(t, agent, 1000, 700)

	beta := 300.0
	if _, err := env.tripSvc.UpdateDeductions(context.Background(), trip.ID, tripdomain.UpdateDeductionsRequest{
		Update: tripdomain.DeductionUpdate{Beta: &beta},
		Actor:  tripdomain.Actor{ID: agent.ID, Role: agentdomain.RoleAgent},
	}); err != nil {
		t.Fatalf("set beta: %v", err)
	}

	closed, err := env.tripSvc.Close(context.Background(), trip.ID, tripdomain.CloseTripRequest{
		Actor: tripdomain.Actor{ID: admin.ID, Role: agentdomain.RoleAdmin},
	})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	// Beta is excluded from the settleable total: final = (1000-700) - 0.
	if closed.FinalBalance == nil || *closed.FinalBalance != 300 {
		t.Fatalf("final balance = %v, want 300", closed.FinalBalance)
	}

	var sawRefund bool
	for _, entry := range env.entries(t, agent.ID) {
		if entry.Type == ledgerdomain.EntryTypeBetaCredit {
			sawRefund = entry.Direction == ledgerdomain.DirectionCredit && entry.Amount == 300
		}
	}
	if !sawRefund {
		t.Fatalf("expected a beta refund credit of 300")
	}
}

func TestBulkTripClosesTrivially(t *testing.T) {
	env := newTestEnv(t)
	agent := env.createAgent(t, "Ravi", agentdomain.RoleAgent)
	admin := env.createAgent(t, "Asha", agentdomain.RoleAdmin)

	trip, err := env.tripSvc.Create(context.Background(), tripdomain.CreateTripRequest{
		LRNumber: "LR-BULK",
		AgentID:  agent.ID,
		IsBulk:   true,
		Actor:    tripdomain.Actor{ID: agent.ID, Role: agentdomain.RoleAgent},
	})
	if err != nil {
		t.Fatalf("create bulk trip: %v", err)
	}

	closed, err := env.tripSvc.Close(context.Background(), trip.ID, tripdomain.CloseTripRequest{
		Actor: tripdomain.Actor{ID: admin.ID, Role: agentdomain.RoleAdmin},
	})
	if err != nil {
		t.Fatalf("close bulk trip: %v", err)
	}
	if closed.Status != tripdomain.StatusCompleted {
		t.Fatalf("status = %s, want completed", closed.Status)
	}
	if closed.FinalBalance != nil {
		t.Fatalf("bulk close should not compute a final balance, got %v", *closed.FinalBalance)
	}
	if got := env.entries(t, agent.ID); len(got) != 0 {
		t.Fatalf("ledger entries = %d, want 0 for bulk close", len(got))
	}
}

func TestDeleteTripKeepsLedger(t *testing.T) {
	env := newTestEnv(t)
	agent := env.createAgent(t, "Ravi", agentdomain.RoleAgent)
	trip := env.createTrip(t, agent, 5000, 2000)

	ctx := context.Background()
	if err := env.tripSvc.Delete(ctx, trip.ID, tripdomain.Actor{ID: agent.ID, Role: agentdomain.RoleAgent}); err != nil {
		t.Fatalf("delete trip: %v", err)
	}

	if _, err := env.tripSvc.Get(ctx, trip.ID); !errors.Is(err, tripdomain.ErrNotFound) {
		t.Fatalf("get after delete err = %v, want not found", err)
	}
	// The ledger is append-only; the advance entry survives the trip.
	if got := env.entries(t, agent.ID); len(got) != 1 {
		t.Fatalf("ledger entries after delete = %d, want 1", len(got))
	}
}

func TestAttachmentLimit(t *testing.T) {
	env := newTestEnv(t)
	agent := env.createAgent(t, "Ravi", agentdomain.RoleAgent)
	trip := env.createTrip(t, agent, 1000, 0)

	ctx := context.Background()
	actor := tripdomain.Actor{ID: agent.ID, Role: agentdomain.RoleAgent}
	for i := 0; i < tripdomain.MaxAttachments; i++ {
		if _, err := env.tripSvc.AddAttachment(ctx, trip.ID, tripdomain.AddAttachmentRequest{
			FileName:   fmt.Sprintf("pod-%d.jpg", i),
			StoredName: fmt.Sprintf("stored-%d.jpg", i),
			Actor:      actor,
		}); err != nil {
			t.Fatalf("attachment %d: %v", i, err)
		}
	}

	_, err := env.tripSvc.AddAttachment(ctx, trip.ID, tripdomain.AddAttachmentRequest{
		FileName:   "one-too-many.jpg",
		StoredName: "stored-overflow.jpg",
		Actor:      actor,
	})
	if !errors.Is(err, tripdomain.ErrAttachmentLimit) {
		t.Fatalf("err = %v, want attachment limit", err)
	}
}

func TestTripRoundTripPersistence(t *testing.T) {
	env := newTestEnv(t)
	agent := env.createAgent(t, "Ravi", agentdomain.RoleAgent)
	trip := env.createTrip(t, agent, 10000, 3000)

	if _, err := env.tripSvc.AddPayment(context.Background(), trip.ID, tripdomain.AddPaymentRequest{
		Amount: 1500,
		Reason: "fuel",
		Mode:   "upi",
		Actor:  tripdomain.Actor{ID: agent.ID, Role: agentdomain.RoleAgent},
	}); err != nil {
		t.Fatalf("add payment: %v", err)
	}

	loaded, err := env.tripSvc.Get(context.Background(), trip.ID)
	if err != nil {
		t.Fatalf("get trip: %v", err)
	}
	if loaded.LRNumber != trip.LRNumber {
		t.Fatalf("lr number = %s, want %s", loaded.LRNumber, trip.LRNumber)
	}
	if len(loaded.Payments) != 1 || loaded.Payments[0].Amount != 1500 {
		t.Fatalf("payments = %+v, want one of 1500", loaded.Payments)
	}
	if loaded.Payments[0].Position != 0 {
		t.Fatalf("payment position = %d, want 0", loaded.Payments[0].Position)
	}
	if loaded.Balance != 5500 {
		t.Fatalf("balance = %.2f, want 5500", loaded.Balance)
	}
}
