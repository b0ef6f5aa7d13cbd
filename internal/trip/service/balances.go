package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/openhaul/tripbook/internal/ledger/domain"
)

// balanceSheet batches ledger balance reads within one request. The first
// read per agent scans that agent's full history; entries written through
// the sheet afterwards advance the cached balance so each new row carries a
// correct running snapshot without re-scanning.
type balanceSheet struct {
	ledger ledgerdomain.Service
	cache  map[snowflake.ID]float64
}

func newBalanceSheet(ledger ledgerdomain.Service) *balanceSheet {
	return &balanceSheet{
		ledger: ledger,
		cache:  make(map[snowflake.ID]float64),
	}
}

func (b *balanceSheet) current(ctx context.Context, agentID snowflake.ID) (float64, error) {
	if balance, ok := b.cache[agentID]; ok {
		return balance, nil
	}
	balance, err := b.ledger.BalanceForAgent(ctx, agentID)
	if err != nil {
		return 0, err
	}
	b.cache[agentID] = balance
	return balance, nil
}

// stamp fills the entry's balance snapshot from the sheet and advances the
// cached balance by the entry's signed amount.
func (b *balanceSheet) stamp(ctx context.Context, entry *ledgerdomain.Entry) error {
	prior, err := b.current(ctx, entry.AgentID)
	if err != nil {
		return err
	}
	next := prior + entry.Signed()
	entry.Balance = next
	b.cache[entry.AgentID] = next
	return nil
}
