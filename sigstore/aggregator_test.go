package sigstore

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/ironpeg/btcanchor/btcprimitives"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testValidator struct {
	priv btcprimitives.PrivateKey
	pub  btcprimitives.CompressedPubKey
}

func testValidators(t *testing.T, n int) []testValidator {
	t.Helper()
	out := make([]testValidator, n)
	for i := 0; i < n; i++ {
		priv, err := btcec.NewPrivateKey()
		require.NoError(t, err)
		wif, err := newCompressedWIF(priv)
		require.NoError(t, err)
		decoded, err := btcprimitives.DecodeWIF(wif)
		require.NoError(t, err)
		out[i] = testValidator{priv: decoded, pub: decoded.PubKey()}
	}
	return out
}

func testContext(t *testing.T, validators []testValidator, threshold int) ProposalContext {
	t.Helper()
	pubkeys := make([]btcprimitives.CompressedPubKey, len(validators))
	for i, v := range validators {
		pubkeys[i] = v.pub
	}
	script, err := btcprimitives.BuildRedeemScript(pubkeys, threshold)
	require.NoError(t, err)

	sigHash := sha256Fixture("proposal input 0")
	return ProposalContext{
		SigHashes:    [][]byte{sigHash[:]},
		RedeemScript: script,
		Threshold:    threshold,
		Pubkeys:      pubkeys,
		TargetHeight: 1000,
	}
}

func TestInsertAndFinalize(t *testing.T) {
	validators := testValidators(t, 4)
	ctx := testContext(t, validators, 3)
	agg := NewAggregator()
	var txid chainhash.Hash
	txid[0] = 0x01

	for i := 0; i < 3; i++ {
		sig, err := validators[i].priv.Sign(ctx.SigHashes[0])
		require.NoError(t, err)
		err = agg.Insert(txid, ctx, ctx.Pubkeys, 0, uint16(i), sig)
		require.NoError(t, err)
	}

	ok, witnesses, gotCtx := agg.Finalizable(txid)
	require.True(t, ok)
	require.Len(t, witnesses, 1)
	assert.Len(t, witnesses[0], 5) // dummy + 3 sigs + redeem script
	assert.Equal(t, ctx.RedeemScript, gotCtx.RedeemScript)
}

func TestNotFinalizableBelowThreshold(t *testing.T) {
	validators := testValidators(t, 4)
	ctx := testContext(t, validators, 3)
	agg := NewAggregator()
	var txid chainhash.Hash
	txid[0] = 0x02

	sig, err := validators[0].priv.Sign(ctx.SigHashes[0])
	require.NoError(t, err)
	require.NoError(t, agg.Insert(txid, ctx, ctx.Pubkeys, 0, 0, sig))

	ok, _, _ := agg.Finalizable(txid)
	assert.False(t, ok)
}

func TestDuplicateSignatureIdempotent(t *testing.T) {
	validators := testValidators(t, 4)
	ctx := testContext(t, validators, 3)
	agg := NewAggregator()
	var txid chainhash.Hash
	txid[0] = 0x03

	sig, err := validators[0].priv.Sign(ctx.SigHashes[0])
	require.NoError(t, err)
	require.NoError(t, agg.Insert(txid, ctx, ctx.Pubkeys, 0, 0, sig))

	err = agg.Insert(txid, ctx, ctx.Pubkeys, 0, 0, sig)
	assert.ErrorIs(t, err, ErrDuplicateSignature)
	assert.Equal(t, 1, agg.SignerCount(txid, 0))
}

func TestInvalidSignatureRejected(t *testing.T) {
	validators := testValidators(t, 4)
	ctx := testContext(t, validators, 3)
	agg := NewAggregator()
	var txid chainhash.Hash
	txid[0] = 0x04

	wrongHash := sha256Fixture("a different message entirely")
	sig, err := validators[0].priv.Sign(wrongHash[:])
	require.NoError(t, err)

	err = agg.Insert(txid, ctx, ctx.Pubkeys, 0, 0, sig)
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Equal(t, 0, agg.SignerCount(txid, 0))
}

func TestStaleSignerRejected(t *testing.T) {
	validators := testValidators(t, 4)
	ctx := testContext(t, validators, 3)
	agg := NewAggregator()
	var txid chainhash.Hash
	txid[0] = 0x05

	rotated := testValidators(t, 4)
	currentPubkeys := append([]btcprimitives.CompressedPubKey(nil), ctx.Pubkeys...)
	currentPubkeys[1] = rotated[1].pub // validator 1's slot changed

	sig, err := validators[1].priv.Sign(ctx.SigHashes[0])
	require.NoError(t, err)

	err = agg.Insert(txid, ctx, currentPubkeys, 0, 1, sig)
	assert.ErrorIs(t, err, ErrStaleSigner)
}

func TestPruneClearsState(t *testing.T) {
	validators := testValidators(t, 4)
	ctx := testContext(t, validators, 3)
	agg := NewAggregator()
	var txid chainhash.Hash
	txid[0] = 0x06

	sig, err := validators[0].priv.Sign(ctx.SigHashes[0])
	require.NoError(t, err)
	require.NoError(t, agg.Insert(txid, ctx, ctx.Pubkeys, 0, 0, sig))

	agg.Prune(txid)
	assert.Equal(t, 0, agg.SignerCount(txid, 0))
	assert.False(t, agg.HasSigned(txid, 0, 0))
}

func TestUnknownInputAndValidatorRejected(t *testing.T) {
	validators := testValidators(t, 4)
	ctx := testContext(t, validators, 3)
	agg := NewAggregator()
	var txid chainhash.Hash
	txid[0] = 0x07

	sig, err := validators[0].priv.Sign(ctx.SigHashes[0])
	require.NoError(t, err)

	err = agg.Insert(txid, ctx, ctx.Pubkeys, 5, 0, sig)
	assert.ErrorIs(t, err, ErrUnknownInput)

	err = agg.Insert(txid, ctx, ctx.Pubkeys, 0, 99, sig)
	assert.ErrorIs(t, err, ErrUnknownValidator)
}
