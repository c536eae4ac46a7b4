package proposal

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/ironpeg/btcanchor/anchoring"
	"github.com/ironpeg/btcanchor/btcprimitives"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, n int, fee int64) anchoring.AnchoringConfig {
	t.Helper()
	keys := make([]anchoring.ValidatorKey, n)
	for i := 0; i < n; i++ {
		priv, err := btcec.NewPrivateKey()
		require.NoError(t, err)
		var vk anchoring.ValidatorKey
		copy(vk.BitcoinKey[:], priv.PubKey().SerializeCompressed())
		vk.ServiceKey[0] = byte(i + 1)
		keys[i] = vk
	}
	return anchoring.AnchoringConfig{
		Network:           btcprimitives.NetworkTestnet,
		AnchoringKeys:     keys,
		AnchoringInterval: 1000,
		TransactionFee:    fee,
	}
}

func testHash(b byte) chainhash.Hash {
	var h chainhash.Hash
	for i := range h {
		h[i] = b
	}
	return h
}

func TestBuildBootstrapProposal(t *testing.T) {
	cfg := testConfig(t, 4, 10)
	req := Request{
		Config: cfg,
		FundingUTXOs: []FundingUTXO{
			{TxID: testHash(0x01), Vout: 0, Value: 100_000_000},
		},
		Height:    0,
		BlockHash: testHash(0x01),
	}

	p, err := Build(req)
	require.NoError(t, err)
	assert.Len(t, p.Tx.TxIn, 1)
	assert.Len(t, p.Tx.TxOut, 2)
	assert.Equal(t, int64(0), p.Tx.TxOut[1].Value)
	assert.Less(t, p.Tx.TxOut[0].Value, int64(100_000_000))
}

func TestBuildChainsToTip(t *testing.T) {
	cfg := testConfig(t, 4, 10)
	req := Request{
		Config: cfg,
		PreviousTip: &PreviousTip{
			TxID:  testHash(0x02),
			Value: 99_998_000,
		},
		Height:    1000,
		BlockHash: testHash(0x02),
	}

	p, err := Build(req)
	require.NoError(t, err)
	require.Len(t, p.Tx.TxIn, 1)
	assert.Equal(t, req.PreviousTip.TxID, p.Tx.TxIn[0].PreviousOutPoint.Hash)
	assert.Equal(t, uint32(0), p.Tx.TxIn[0].PreviousOutPoint.Index)
}

func TestBuildFundingInputsSorted(t *testing.T) {
	cfg := testConfig(t, 4, 10)
	req := Request{
		Config: cfg,
		FundingUTXOs: []FundingUTXO{
			{TxID: testHash(0x05), Vout: 1, Value: 10_000_000},
			{TxID: testHash(0x01), Vout: 2, Value: 10_000_000},
			{TxID: testHash(0x01), Vout: 0, Value: 10_000_000},
		},
		Height:    0,
		BlockHash: testHash(0x01),
	}

	p, err := Build(req)
	require.NoError(t, err)
	require.Len(t, p.Tx.TxIn, 3)
	assert.Equal(t, testHash(0x01), p.Tx.TxIn[0].PreviousOutPoint.Hash)
	assert.Equal(t, uint32(0), p.Tx.TxIn[0].PreviousOutPoint.Index)
	assert.Equal(t, testHash(0x01), p.Tx.TxIn[1].PreviousOutPoint.Hash)
	assert.Equal(t, uint32(2), p.Tx.TxIn[1].PreviousOutPoint.Index)
	assert.Equal(t, testHash(0x05), p.Tx.TxIn[2].PreviousOutPoint.Hash)
}

func TestBuildInsufficientFunds(t *testing.T) {
	cfg := testConfig(t, 4, 10)
	req := Request{
		Config: cfg,
		FundingUTXOs: []FundingUTXO{
			{TxID: testHash(0x01), Vout: 0, Value: 500},
		},
		Height:    0,
		BlockHash: testHash(0x01),
	}

	_, err := Build(req)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestBuildRollover(t *testing.T) {
	cfg := testConfig(t, 4, 10)
	following := testConfig(t, 5, 10)
	req := Request{
		Config:          cfg,
		FollowingConfig: &following,
		FundingUTXOs: []FundingUTXO{
			{TxID: testHash(0x01), Vout: 0, Value: 100_000_000},
		},
		Height:    2000,
		BlockHash: testHash(0x02),
	}

	p, err := Build(req)
	require.NoError(t, err)

	currentScript, err := cfg.RedeemScript()
	require.NoError(t, err)
	followingScript, err := following.RedeemScript()
	require.NoError(t, err)
	followingOut, err := btcprimitives.P2WSHScriptPubKey(followingScript, following.Network)
	require.NoError(t, err)

	assert.Equal(t, followingOut, p.Tx.TxOut[0].PkScript)
	assert.NotEqual(t, currentScript, followingScript)
}

func TestBuildDeterministic(t *testing.T) {
	cfg := testConfig(t, 4, 10)
	req := Request{
		Config: cfg,
		FundingUTXOs: []FundingUTXO{
			{TxID: testHash(0x01), Vout: 0, Value: 100_000_000},
		},
		Height:    0,
		BlockHash: testHash(0x01),
	}

	a, err := Build(req)
	require.NoError(t, err)
	b, err := Build(req)
	require.NoError(t, err)

	rawA, err := btcprimitives.Serialize(a.Tx)
	require.NoError(t, err)
	rawB, err := btcprimitives.Serialize(b.Tx)
	require.NoError(t, err)
	assert.Equal(t, rawA, rawB)

	sigHashesA, err := a.SigHashes()
	require.NoError(t, err)
	sigHashesB, err := b.SigHashes()
	require.NoError(t, err)
	assert.Equal(t, sigHashesA, sigHashesB)
}
