package anchoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigHistoryActiveAt(t *testing.T) {
	var h ConfigHistory
	cfgA := AnchoringConfig{AnchoringInterval: 1000}
	cfgB := AnchoringConfig{AnchoringInterval: 2000}
	cfgC := AnchoringConfig{AnchoringInterval: 3000}

	h.Append(0, cfgA)
	h.Append(2000, cfgB)
	h.Append(5000, cfgC)

	t.Run("BeforeFirstActivation", func(t *testing.T) {
		_, ok := (&ConfigHistory{}).ActiveAt(10)
		assert.False(t, ok)
	})

	t.Run("ExactBoundary", func(t *testing.T) {
		cfg, ok := h.ActiveAt(2000)
		assert.True(t, ok)
		assert.Equal(t, cfgB, cfg)
	})

	t.Run("BetweenBoundaries", func(t *testing.T) {
		cfg, ok := h.ActiveAt(2500)
		assert.True(t, ok)
		assert.Equal(t, cfgB, cfg)
	})

	t.Run("AfterLast", func(t *testing.T) {
		cfg, ok := h.ActiveAt(999999)
		assert.True(t, ok)
		assert.Equal(t, cfgC, cfg)
	})

	t.Run("AtGenesis", func(t *testing.T) {
		cfg, ok := h.ActiveAt(0)
		assert.True(t, ok)
		assert.Equal(t, cfgA, cfg)
	})
}

func TestConfigHistoryFollowing(t *testing.T) {
	var h ConfigHistory
	cfgA := AnchoringConfig{AnchoringInterval: 1000}
	cfgB := AnchoringConfig{AnchoringInterval: 2000}
	h.Append(0, cfgA)
	h.Append(2000, cfgB)

	t.Run("HasFollowing", func(t *testing.T) {
		cfg, height, ok := h.Following(500)
		assert.True(t, ok)
		assert.Equal(t, cfgB, cfg)
		assert.Equal(t, uint64(2000), height)
	})

	t.Run("NoFollowingPastLast", func(t *testing.T) {
		_, _, ok := h.Following(2000)
		assert.False(t, ok)
	})
}

func TestFundingTxHasQuorum(t *testing.T) {
	f := FundingTx{AttestedBy: []uint16{0, 1, 1, 2}}

	assert.True(t, f.HasQuorum(3))
	assert.False(t, f.HasQuorum(4))
}

func TestFundingTxEncodeDecode(t *testing.T) {
	f := FundingTx{Raw: []byte{0xde, 0xad, 0xbe, 0xef}, OutputIndex: 2, AttestedBy: []uint16{0, 1, 3}}
	encoded, err := f.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeFundingTx(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	assert.Equal(t, f, decoded)
}
