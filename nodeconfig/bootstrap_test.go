package nodeconfig

import (
	"path/filepath"
	"testing"

	"github.com/ironpeg/btcanchor/btcprimitives"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTemplate() Template {
	return Template{
		Network:           btcprimitives.NetworkRegtest,
		AnchoringInterval: 100,
		TransactionFee:    10,
	}
}

func TestTemplateValidate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		assert.NoError(t, testTemplate().Validate())
	})

	t.Run("UnknownNetwork", func(t *testing.T) {
		tmpl := testTemplate()
		tmpl.Network = "not-a-network"
		assert.Error(t, tmpl.Validate())
	})

	t.Run("ZeroInterval", func(t *testing.T) {
		tmpl := testTemplate()
		tmpl.AnchoringInterval = 0
		assert.Error(t, tmpl.Validate())
	})

	t.Run("NonPositiveFee", func(t *testing.T) {
		tmpl := testTemplate()
		tmpl.TransactionFee = 0
		assert.Error(t, tmpl.Validate())
	})
}

func TestTemplateRoundTrip(t *testing.T) {
	tmpl := testTemplate()
	path := filepath.Join(t.TempDir(), "template.yaml")

	require.NoError(t, WriteTemplate(path, tmpl))
	loaded, err := LoadTemplate(path)
	require.NoError(t, err)
	assert.Equal(t, tmpl, loaded)
}

func TestGenerateLocalConfigAndPublic(t *testing.T) {
	tmpl := testTemplate()

	local, err := GenerateLocalConfig(tmpl)
	require.NoError(t, err)
	assert.Equal(t, tmpl, local.Template)
	assert.NotEmpty(t, local.BitcoinWIF)
	assert.Len(t, local.ServiceKey, 64) // hex-encoded 32 bytes

	pub, err := local.Public()
	require.NoError(t, err)
	assert.Equal(t, local.ServiceKey, pub.ServiceKey)
	assert.NotEmpty(t, pub.BitcoinPubKey)

	t.Run("BadWIFFails", func(t *testing.T) {
		bad := local
		bad.BitcoinWIF = "garbage"
		_, err := bad.Public()
		assert.Error(t, err)
	})
}

func TestLocalConfigRoundTrip(t *testing.T) {
	local, err := GenerateLocalConfig(testTemplate())
	require.NoError(t, err)

	dir := t.TempDir()
	localPath := filepath.Join(dir, "local.yaml")
	pubPath := filepath.Join(dir, "public.yaml")

	require.NoError(t, WriteLocalConfig(localPath, local))
	pub, err := local.Public()
	require.NoError(t, err)
	require.NoError(t, WritePublicConfig(pubPath, pub))

	loadedLocal, err := LoadLocalConfig(localPath)
	require.NoError(t, err)
	assert.Equal(t, local, loadedLocal)

	loadedPub, err := LoadPublicConfig(pubPath)
	require.NoError(t, err)
	assert.Equal(t, pub, loadedPub)
}

func threeValidatorConfigs(t *testing.T) ([]LocalConfig, []PublicConfig) {
	t.Helper()
	tmpl := testTemplate()
	locals := make([]LocalConfig, 3)
	publics := make([]PublicConfig, 3)
	for i := range locals {
		local, err := GenerateLocalConfig(tmpl)
		require.NoError(t, err)
		pub, err := local.Public()
		require.NoError(t, err)
		locals[i] = local
		publics[i] = pub
	}
	return locals, publics
}

func TestFinalize(t *testing.T) {
	locals, publics := threeValidatorConfigs(t)

	t.Run("Succeeds", func(t *testing.T) {
		node, err := Finalize(locals[1], 1, publics)
		require.NoError(t, err)
		assert.Equal(t, uint16(1), node.ValidatorIndex)
		assert.Equal(t, publics, node.PublicConfigs)
		assert.Equal(t, locals[1].BitcoinWIF, node.BitcoinWIF)
		assert.Equal(t, uint64(6), node.SafetyMargin)
	})

	t.Run("IndexOutOfRange", func(t *testing.T) {
		_, err := Finalize(locals[0], 99, publics)
		assert.Error(t, err)
	})

	t.Run("PublicMismatch", func(t *testing.T) {
		_, err := Finalize(locals[0], 1, publics)
		assert.Error(t, err)
	})
}

func TestNodeConfigAnchoringKeys(t *testing.T) {
	locals, publics := threeValidatorConfigs(t)
	node, err := Finalize(locals[0], 0, publics)
	require.NoError(t, err)

	pubkeys, identities, err := node.AnchoringKeys()
	require.NoError(t, err)
	assert.Len(t, pubkeys, 3)
	assert.Len(t, identities, 3)

	t.Run("BadHexFails", func(t *testing.T) {
		bad := node
		bad.PublicConfigs = append([]PublicConfig(nil), publics...)
		bad.PublicConfigs[0].BitcoinPubKey = "zz"
		_, _, err := bad.AnchoringKeys()
		assert.Error(t, err)
	})

	t.Run("ShortServiceKeyFails", func(t *testing.T) {
		bad := node
		bad.PublicConfigs = append([]PublicConfig(nil), publics...)
		bad.PublicConfigs[0].ServiceKey = "aabb"
		_, _, err := bad.AnchoringKeys()
		assert.Error(t, err)
	})
}

func TestNodeConfigRoundTrip(t *testing.T) {
	locals, publics := threeValidatorConfigs(t)
	node, err := Finalize(locals[2], 2, publics)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "node.yaml")
	require.NoError(t, WriteNodeConfig(path, node))

	loaded, err := LoadNodeConfig(path)
	require.NoError(t, err)
	assert.Equal(t, node, loaded)
}

func TestDurationYAML(t *testing.T) {
	type holder struct {
		D Duration `yaml:"d"`
	}
	path := filepath.Join(t.TempDir(), "duration.yaml")

	h := holder{D: Duration(15_000_000_000)} // 15s
	require.NoError(t, writeYAML(path, h))

	var loaded holder
	require.NoError(t, readYAML(path, &loaded))
	assert.Equal(t, h.D.Duration(), loaded.D.Duration())
}
