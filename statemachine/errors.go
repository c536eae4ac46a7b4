// Package statemachine runs the per-block anchoring decision deterministically
// at the host chain's commit hook (§4.4): propose, sign, finalize, rollover,
// or idle. It reads no wall clock, and its only I/O outside storage.Store
// is through the optional Service.TipChecker and Service.FundingWatcher;
// every other decision is a function of the persisted state reachable
// through storage.Store.
package statemachine

import "errors"

var (
	// ErrChainMismatch is returned when a SignInput's proposal does not
	// spend the recorded tip as its first input (§7).
	ErrChainMismatch = errors.New("statemachine: proposal does not spend recorded tip")
	// ErrNoActiveConfig is returned when config_history has no entry
	// active at the commit height yet.
	ErrNoActiveConfig = errors.New("statemachine: no active config at this height")
	// ErrTipNotSpendable is returned when the recorded tip has been
	// reorged below the configured confirmation count; the state machine
	// refuses to build a spending proposal until an operator intervenes
	// (§4.4 "Transitions and tie-breaks").
	ErrTipNotSpendable = errors.New("statemachine: tip not spendable, awaiting operator intervention")
)
