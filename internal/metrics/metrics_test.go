package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProposalsBuiltIncrements(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ProposalBuilt()
	m.ProposalBuilt()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.ProposalsBuilt))
}

func TestTransactionFinalizedSetsTipHeight(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.TransactionFinalized(7)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.TransactionsFinalized))
	assert.Equal(t, float64(7), testutil.ToFloat64(m.TipHeight))
}

func TestServiceHooksDriveCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	hooks := m.ServiceHooks()

	require.NotNil(t, hooks.OnInsufficientFunds)
	require.NotNil(t, hooks.OnRollover)

	hooks.OnInsufficientFunds(100)
	hooks.OnRollover(100)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.InsufficientFunds))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RolloverTransitions))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ProposalBuilt()
		m.TransactionFinalized(1)
	})
}
