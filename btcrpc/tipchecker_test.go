package btcrpc

import (
	"errors"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	confirmations int64
	err           error
}

func (f fakeClient) GetTransaction(chainhash.Hash) (*wire.MsgTx, error) { return nil, nil }
func (f fakeClient) SendRawTransaction(*wire.MsgTx) (chainhash.Hash, error) {
	return chainhash.Hash{}, nil
}
func (f fakeClient) GetTxConfirmations(chainhash.Hash) (int64, error) {
	return f.confirmations, f.err
}
func (f fakeClient) ImportAddress(string) error                    { return nil }
func (f fakeClient) ListUnspentAddress(string) ([][]byte, error) { return nil, nil }

func TestTipCheckerSpendableAtThreshold(t *testing.T) {
	checker := TipChecker{Client: fakeClient{confirmations: 6}, MinConfirmations: 6}
	spendable, err := checker.Spendable(chainhash.Hash{})
	require.NoError(t, err)
	assert.True(t, spendable)
}

func TestTipCheckerNotSpendableBelowThreshold(t *testing.T) {
	checker := TipChecker{Client: fakeClient{confirmations: 2}, MinConfirmations: 6}
	spendable, err := checker.Spendable(chainhash.Hash{})
	require.NoError(t, err)
	assert.False(t, spendable)
}

func TestTipCheckerPropagatesRPCError(t *testing.T) {
	checker := TipChecker{Client: fakeClient{err: errors.New("connection refused")}, MinConfirmations: 6}
	_, err := checker.Spendable(chainhash.Hash{})
	assert.Error(t, err)
}
