package domain

import (
	"math"

	agentdomain "github.com/openhaul/tripbook/internal/agent/domain"
)

// Tolerance absorbs floating rounding in zero checks.
const Tolerance = 0.01

// NearZero reports whether v is zero within Tolerance.
func NearZero(v float64) bool {
	return math.Abs(v) <= Tolerance
}

// Total sums every deduction amount, beta included. Used for the running
// balance while a trip is open.
func (d Deductions) Total() float64 {
	return d.Cess + d.Kata + d.Expenses + d.Beta + d.Others
}

// SettleableTotal sums the deductions that settle against the agent at
// close time. Beta is excluded: it is refunded separately.
func (d Deductions) SettleableTotal() float64 {
	return d.Cess + d.Kata + d.Expenses + d.Others
}

// Merge applies a partial update last-write-wins per provided field.
func (d Deductions) Merge(u DeductionUpdate, by Actor) Deductions {
	out := d
	if u.Cess != nil {
		out.Cess = *u.Cess
	}
	if u.Kata != nil {
		out.Kata = *u.Kata
	}
	if u.Expenses != nil {
		out.Expenses = *u.Expenses
	}
	if u.Beta != nil {
		out.Beta = *u.Beta
	}
	if u.Others != nil {
		out.Others = *u.Others
	}
	if u.OthersReason != nil {
		out.OthersReason = *u.OthersReason
	}
	out.AddedBy = by.ID
	out.AddedByRole = by.Role
	return out
}

// DeductionUpdate carries the fields of a partial deduction save. Nil means
// "leave the stored value alone".
type DeductionUpdate struct {
	Cess         *float64
	Kata         *float64
	Expenses     *float64
	Beta         *float64
	Others       *float64
	OthersReason *string
}

// PaymentTotal sums every on-trip payment.
func (t *Trip) PaymentTotal() float64 {
	var total float64
	for _, p := range t.Payments {
		total += p.Amount
	}
	return total
}

// RunningBalance recomputes the trip's live balance:
// freight − advance − all deductions − all payments.
func (t *Trip) RunningBalance() float64 {
	if t.IsBulk {
		return 0
	}
	return t.Freight - t.Advance - t.Deductions.Total() - t.PaymentTotal()
}

// SettlementResult is the close-time breakdown of a regular trip.
type SettlementResult struct {
	TotalDeductions float64
	Beta            float64
	AgentPayments   float64
	FinancePayments float64
	FinalBalance    float64
}

// Settle computes the final balance for closure. Finance payments already
// credited the agent via top-ups, so they are added back rather than
// subtracted: they increase what the agent still settles.
func (t *Trip) Settle() SettlementResult {
	res := SettlementResult{
		TotalDeductions: t.Deductions.SettleableTotal(),
		Beta:            t.Deductions.Beta,
	}
	for _, p := range t.Payments {
		if p.AddedByRole == agentdomain.RoleFinance {
			res.FinancePayments += p.Amount
		} else {
			res.AgentPayments += p.Amount
		}
	}
	res.FinalBalance = (t.Freight - t.Advance) - res.TotalDeductions - res.AgentPayments + res.FinancePayments
	return res
}
