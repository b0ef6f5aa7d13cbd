package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/openhaul/tripbook/internal/clock"
	ledgerdomain "github.com/openhaul/tripbook/internal/ledger/domain"
	"github.com/openhaul/tripbook/internal/ledger/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const ledgerSchema = `
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
`

func newTestService(t *testing.T) (ledgerdomain.Service, *clock.FakeClock) {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(ledgerSchema).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	svc := NewService(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  repository.Provide(),
	})
	return svc, fake
}

func TestBalanceFoldOrderIndependent(t *testing.T) {
	svc, fake := newTestService(t)
	ctx := context.Background()
	agentID := snowflake.ID(101)

	entries := []ledgerdomain.Entry{
		{AgentID: agentID, Type: ledgerdomain.EntryTypeTopup, Amount: 5000, Direction: ledgerdomain.DirectionCredit},
		{AgentID: agentID, Type: ledgerdomain.EntryTypeOnTripPayment, Amount: 1200, Direction: ledgerdomain.DirectionDebit},
		{AgentID: agentID, Type: ledgerdomain.EntryTypeOnTripPayment, Amount: 800, Direction: ledgerdomain.DirectionDebit, IsInformational: true},
		{AgentID: agentID, Type: ledgerdomain.EntryTypeBetaCredit, Amount: 300, Direction: ledgerdomain.DirectionCredit},
	}
	for i := range entries {
		require.NoError(t, svc.Append(ctx, &entries[i]))
		fake.Advance(time.Minute)
	}

	balance, err := svc.BalanceForAgent(ctx, agentID)
	require.NoError(t, err)
	// Informational rows count in the fold: 5000 - 1200 - 800 + 300.
	assert.InDelta(t, 3300.0, balance, 0.01)

	listed, err := svc.EntriesForAgent(ctx, agentID)
	require.NoError(t, err)
	require.Len(t, listed, 4)
	assert.InDelta(t, balance, ledgerdomain.Fold(listed), 0.01)
}

func TestAppendValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	err := svc.Append(ctx, &ledgerdomain.Entry{
		Type: ledgerdomain.EntryTypeTopup, Amount: 10, Direction: ledgerdomain.DirectionCredit,
	})
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidAgent)

	err = svc.Append(ctx, &ledgerdomain.Entry{
		AgentID: 1, Type: ledgerdomain.EntryTypeTopup, Amount: -5, Direction: ledgerdomain.DirectionCredit,
	})
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidAmount)

	err = svc.Append(ctx, &ledgerdomain.Entry{
		AgentID: 1, Type: ledgerdomain.EntryTypeTopup, Amount: 5, Direction: "sideways",
	})
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidDirection)
}

func TestUpsertSettlementIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	tripID := snowflake.ID(900)
	agentID := snowflake.ID(101)

	first := ledgerdomain.Entry{
		AgentID:     agentID,
		TripID:      tripID,
		Type:        ledgerdomain.EntryTypeSettlement,
		Amount:      150,
		Direction:   ledgerdomain.DirectionCredit,
		Description: "Deduction settlement for trip LR-1",
	}
	require.NoError(t, svc.UpsertSettlement(ctx, &first))

	second := ledgerdomain.Entry{
		AgentID:     agentID,
		TripID:      tripID,
		Type:        ledgerdomain.EntryTypeSettlement,
		Amount:      275,
		Direction:   ledgerdomain.DirectionCredit,
		Description: "Deduction settlement for trip LR-1",
	}
	require.NoError(t, svc.UpsertSettlement(ctx, &second))
	assert.Equal(t, first.ID, second.ID)

	entries, err := svc.EntriesForAgent(ctx, agentID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.InDelta(t, 275.0, entries[0].Amount, 0.01)

	has, err := svc.HasSettlement(ctx, tripID, agentID)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = svc.HasSettlement(ctx, tripID, snowflake.ID(999))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestUpsertSettlementRejectsOtherTypes(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.UpsertSettlement(context.Background(), &ledgerdomain.Entry{
		AgentID:   1,
		TripID:    2,
		Type:      ledgerdomain.EntryTypeTopup,
		Amount:    10,
		Direction: ledgerdomain.DirectionCredit,
	})
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidEntryType)
}
