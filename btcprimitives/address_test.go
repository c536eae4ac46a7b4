package btcprimitives

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkValid(t *testing.T) {
	assert.True(t, NetworkMainnet.Valid())
	assert.True(t, NetworkTestnet.Valid())
	assert.True(t, NetworkRegtest.Valid())
	assert.False(t, Network("signet").Valid())
}

func TestP2WSHAddress(t *testing.T) {
	keys := testPubKeys(t, 4)
	script, err := BuildRedeemScript(keys, Threshold(4))
	require.NoError(t, err)

	t.Run("MainnetAndTestnetDiffer", func(t *testing.T) {
		mainAddr, err := P2WSHAddress(script, NetworkMainnet)
		require.NoError(t, err)
		testAddr, err := P2WSHAddress(script, NetworkTestnet)
		require.NoError(t, err)
		assert.NotEqual(t, mainAddr.String(), testAddr.String())
	})

	t.Run("DeterministicForSameScript", func(t *testing.T) {
		a, err := P2WSHAddress(script, NetworkMainnet)
		require.NoError(t, err)
		b, err := P2WSHAddress(script, NetworkMainnet)
		require.NoError(t, err)
		assert.Equal(t, a.String(), b.String())
	})

	t.Run("UnknownNetwork", func(t *testing.T) {
		_, err := P2WSHAddress(script, Network("signet"))
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})
}

func TestP2WSHScriptPubKey(t *testing.T) {
	keys := testPubKeys(t, 4)
	script, err := BuildRedeemScript(keys, Threshold(4))
	require.NoError(t, err)

	pkScript, err := P2WSHScriptPubKey(script, NetworkRegtest)
	require.NoError(t, err)

	// OP_0 <32-byte-push>
	assert.Equal(t, 34, len(pkScript))
	assert.Equal(t, byte(0x00), pkScript[0])
	assert.Equal(t, byte(0x20), pkScript[1])
}
