package proposal

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ironpeg/btcanchor/anchoring"
	"github.com/ironpeg/btcanchor/btcprimitives"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// rapidConfig builds an AnchoringConfig of n validators without relying on
// *testing.T, since rapid's property function only has a *rapid.T.
func rapidConfig(rt *rapid.T, n int, fee int64) anchoring.AnchoringConfig {
	keys := make([]anchoring.ValidatorKey, n)
	for i := 0; i < n; i++ {
		priv, err := btcec.NewPrivateKey()
		require.NoError(rt, err)
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

// TestBuildDeterministicProperty checks invariant 5 (§8): for any two
// validators observing the identical Request, Build must produce
// byte-identical unsigned transactions and sighashes. rapid drives the
// shape of the funding set and fee rate, since those are the only inputs
// that vary field-to-field between validators' local views in practice.
func TestBuildDeterministicProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 10).Draw(rt, "n")
		fee := rapid.Int64Range(1, 200).Draw(rt, "fee")
		numFunding := rapid.IntRange(1, 4).Draw(rt, "numFunding")

		cfg := rapidConfig(rt, n, fee)

		funding := make([]FundingUTXO, numFunding)
		for i := range funding {
			b := byte(rapid.IntRange(1, 255).Draw(rt, "txidByte"))
			value := rapid.Int64Range(1_000_000, 200_000_000).Draw(rt, "value")
			funding[i] = FundingUTXO{TxID: testHash(b), Vout: uint32(i), Value: value}
		}

		req := Request{
			Config:       cfg,
			FundingUTXOs: funding,
			Height:       uint64(rapid.IntRange(0, 1_000_000).Draw(rt, "height")),
			BlockHash:    testHash(byte(rapid.IntRange(1, 255).Draw(rt, "blockHashByte"))),
		}

		a, errA := Build(req)
		b, errB := Build(req)

		if errA != nil || errB != nil {
			require.ErrorIs(rt, errA, ErrInsufficientFunds)
			require.ErrorIs(rt, errB, ErrInsufficientFunds)
			return
		}

		rawA, err := btcprimitives.Serialize(a.Tx)
		require.NoError(rt, err)
		rawB, err := btcprimitives.Serialize(b.Tx)
		require.NoError(rt, err)
		require.Equal(rt, rawA, rawB)

		hashesA, err := a.SigHashes()
		require.NoError(rt, err)
		hashesB, err := b.SigHashes()
		require.NoError(rt, err)
		require.Equal(rt, hashesA, hashesB)
	})
}
