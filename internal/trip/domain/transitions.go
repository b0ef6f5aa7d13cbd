package domain

import agentdomain "github.com/openhaul/tripbook/internal/agent/domain"

// The lifecycle guards live here so every illegal transition has a single
// source of truth instead of status checks scattered across handlers.
//
//	active → in_dispute → active
//	active → completed (close)
//	completed is terminal

// CanAddPayment allows payments only while the trip is active.
func CanAddPayment(s Status) error {
	if s != StatusActive {
		return ErrInvalidState
	}
	return nil
}

// CanUpdateDeductions allows deduction saves on any non-completed trip.
func CanUpdateDeductions(s Status) error {
	if s == StatusCompleted {
		return ErrInvalidState
	}
	return nil
}

// CanOpenDispute allows disputes only on active trips.
func CanOpenDispute(s Status) error {
	if s != StatusActive {
		return ErrInvalidState
	}
	return nil
}

// CanResolveDispute requires the trip to currently be in dispute.
func CanResolveDispute(s Status) error {
	if s != StatusInDispute {
		return ErrInvalidState
	}
	return nil
}

// CanClose gates the active→completed transition. A trip in dispute may
// only pass with forceClose from a non-agent role; the caller checks the
// open-dispute record itself via the dispute gate.
func CanClose(s Status, closer Actor, forceClose bool) error {
	switch s {
	case StatusActive:
		return nil
	case StatusInDispute:
		if forceClose && closer.Role != agentdomain.RoleAgent {
			return nil
		}
		return ErrDisputeOpen
	default:
		return ErrInvalidState
	}
}

// EnsureCloserAllowed rejects a creator closing their own trip, unless the
// closer acts in a non-agent role.
func EnsureCloserAllowed(t *Trip, closer Actor) error {
	if closer.Role == agentdomain.RoleAgent && closer.ID == t.AgentID {
		return ErrForbidden
	}
	return nil
}
