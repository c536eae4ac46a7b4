// Package metrics exposes the Prometheus instrumentation the anchoring
// state machine reports through, registered once at process startup and
// passed by reference into statemachine.Service the way certenIO's
// validator wires prometheus/client_golang into its consensus loop.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every counter and gauge the anchoring core reports.
// Nil-safe: a zero-value Metrics silently drops every observation, so
// tests and CLI subcommands that don't need instrumentation can leave it
// unset.
type Metrics struct {
	ProposalsBuilt       prometheus.Counter
	TransactionsFinalized prometheus.Counter
	InsufficientFunds    prometheus.Counter
	RolloverTransitions  prometheus.Counter
	TipHeight            prometheus.Gauge
}

// New registers the anchoring core's metrics with reg under the
// "btcanchor" namespace.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ProposalsBuilt: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "btcanchor",
			Name:      "proposals_built_total",
			Help:      "Number of anchoring proposals this validator has built.",
		}),
		TransactionsFinalized: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "btcanchor",
			Name:      "transactions_finalized_total",
			Help:      "Number of anchoring transactions that reached quorum and finalized.",
		}),
		InsufficientFunds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "btcanchor",
			Name:      "insufficient_funds_total",
			Help:      "Number of trigger heights skipped for lack of spendable funding.",
		}),
		RolloverTransitions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "btcanchor",
			Name:      "rollover_transitions_total",
			Help:      "Number of proposals built that redirected funds to a following configuration.",
		}),
		TipHeight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "btcanchor",
			Name:      "tip_sequence",
			Help:      "Sequence number of the most recently finalized anchoring transaction.",
		}),
	}
}

func (m *Metrics) proposalBuilt() {
	if m == nil || m.ProposalsBuilt == nil {
		return
	}
	m.ProposalsBuilt.Inc()
}

func (m *Metrics) transactionFinalized(sequence uint64) {
	if m == nil {
		return
	}
	if m.TransactionsFinalized != nil {
		m.TransactionsFinalized.Inc()
	}
	if m.TipHeight != nil {
		m.TipHeight.Set(float64(sequence))
	}
}

func (m *Metrics) insufficientFunds() {
	if m == nil || m.InsufficientFunds == nil {
		return
	}
	m.InsufficientFunds.Inc()
}

func (m *Metrics) rollover() {
	if m == nil || m.RolloverTransitions == nil {
		return
	}
	m.RolloverTransitions.Inc()
}

// Hooks holds the statemachine.Service callback fields wired to m's
// OnInsufficientFunds and OnRollover counters. The proposal-built and
// transaction-finalized counters are incremented directly by m.ProposalBuilt
// and m.TransactionFinalized at their call sites in BeforeCommit and
// ExecuteTx, since those events are not modeled as Service callbacks.
type Hooks struct {
	OnInsufficientFunds func(height uint64)
	OnRollover          func(height uint64)
}

// ServiceHooks returns a Hooks bound to m, ready to assign into a
// statemachine.Service's OnInsufficientFunds / OnRollover fields.
func (m *Metrics) ServiceHooks() Hooks {
	return Hooks{
		OnInsufficientFunds: func(uint64) { m.insufficientFunds() },
		OnRollover:          func(uint64) { m.rollover() },
	}
}

// ProposalBuilt records that this validator built a new proposal.
func (m *Metrics) ProposalBuilt() { m.proposalBuilt() }

// TransactionFinalized records that an anchoring transaction reached quorum
// and finalized at sequence.
func (m *Metrics) TransactionFinalized(sequence uint64) { m.transactionFinalized(sequence) }
