package nodeconfig

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/ironpeg/btcanchor/btcprimitives"
	"gopkg.in/yaml.v3"
)

// PublicConfig is the half of a validator's LocalConfig that gets shared
// with every other validator out of band before Finalize runs: its Bitcoin
// pubkey and host-chain identity key, in the form AnchoringConfig stores
// them.
type PublicConfig struct {
	BitcoinPubKey string `yaml:"bitcoin_pubkey"` // hex, compressed
	ServiceKey    string `yaml:"service_key"`    // hex, 32 bytes
}

// LocalConfig is what generate-config produces for one validator: the
// agreed-on Template plus a freshly generated Bitcoin keypair and a
// placeholder host-chain identity key (real deployments source the latter
// from the host consensus engine's own keystore; §1 treats that as an
// external collaborator).
type LocalConfig struct {
	Template   Template `yaml:"template"`
	BitcoinWIF string   `yaml:"bitcoin_wif"`
	ServiceKey string   `yaml:"service_key"` // hex, 32 bytes
}

// Public extracts the shareable half of l.
func (l LocalConfig) Public() (PublicConfig, error) {
	priv, err := btcprimitives.DecodeWIF(l.BitcoinWIF)
	if err != nil {
		return PublicConfig{}, err
	}
	pub := priv.PubKey()
	return PublicConfig{
		BitcoinPubKey: hex.EncodeToString(pub[:]),
		ServiceKey:    l.ServiceKey,
	}, nil
}

// GenerateLocalConfig creates a fresh Bitcoin keypair and identity key under
// template, ready to share its Public() half with the other validators.
func GenerateLocalConfig(template Template) (LocalConfig, error) {
	if err := template.Validate(); err != nil {
		return LocalConfig{}, err
	}
	wif, err := btcprimitives.GenerateWIF(template.Network)
	if err != nil {
		return LocalConfig{}, err
	}
	identity, err := randomIdentityKey()
	if err != nil {
		return LocalConfig{}, err
	}
	return LocalConfig{
		Template:   template,
		BitcoinWIF: wif,
		ServiceKey: hex.EncodeToString(identity[:]),
	}, nil
}

// NodeConfig is what the `run` subcommand loads: this validator's position
// in the ordered key list, its signing key, and the operational settings
// (storage, RPC, HTTP) the long-running process needs.
type NodeConfig struct {
	ValidatorIndex uint16         `yaml:"validator_index"`
	Template       Template       `yaml:"template"`
	PublicConfigs  []PublicConfig `yaml:"public_configs"` // ordered, index == validator index
	BitcoinWIF     string         `yaml:"bitcoin_wif"`
	SafetyMargin   uint64         `yaml:"safety_margin"`

	Storage     StorageConfig    `yaml:"storage"`
	BitcoinRPC  BitcoinRPCConfig `yaml:"bitcoin_rpc"`
	PublicHTTP  HTTPConfig       `yaml:"public_http"`
	PrivateHTTP HTTPConfig       `yaml:"private_http"`
	Logging     LoggingConfig    `yaml:"logging"`
	Relay       RelayConfig      `yaml:"relay"`
	Standalone  StandaloneConfig `yaml:"standalone"`
}

// StandaloneConfig drives a local block-commit ticker in place of a real
// host consensus engine, for running and testing this service without one
// (§1 treats the host consensus engine as an external collaborator; this
// is the CLI glue filling that gap for `run`, not part of the
// deterministic core).
type StandaloneConfig struct {
	Enabled       bool     `yaml:"enabled"`
	BlockInterval Duration `yaml:"block_interval"`
}

// StorageConfig points at the persisted state backend.
type StorageConfig struct {
	Dir string `yaml:"dir"`
}

// BitcoinRPCConfig holds the connection parameters for this validator's
// Bitcoin node, used both for tip-spendability checks and, if
// FundingWatcherEnabled, as the AddFunds advisory validator (§4.6).
type BitcoinRPCConfig struct {
	Host                  string `yaml:"host"`
	User                  string `yaml:"user"`
	Pass                  string `yaml:"pass"`
	DisableTLS            bool   `yaml:"disable_tls"`
	FundingWatcherEnabled bool   `yaml:"funding_watcher_enabled"`
}

// HTTPConfig is a bind address for one of the two HTTP API surfaces (§6).
type HTTPConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// LoggingConfig controls internal/logconfig.Init.
type LoggingConfig struct {
	LogFile  string `yaml:"log_file"`
	MaxRolls int    `yaml:"max_rolls"`
	Level    string `yaml:"level"`
}

// RelayConfig controls syncutil.Relay when this process also runs the sync
// utility.
type RelayConfig struct {
	Enabled          bool     `yaml:"enabled"`
	PublicAPIBaseURL string   `yaml:"public_api_base_url"`
	PollInterval     Duration `yaml:"poll_interval"`
}

// AnchoringKeys decodes cfg.PublicConfigs into the ordered key list
// anchoring.AnchoringConfig expects.
func (cfg NodeConfig) AnchoringKeys() ([]btcprimitives.CompressedPubKey, [][32]byte, error) {
	pubkeys := make([]btcprimitives.CompressedPubKey, len(cfg.PublicConfigs))
	identities := make([][32]byte, len(cfg.PublicConfigs))
	for i, pc := range cfg.PublicConfigs {
		raw, err := hex.DecodeString(pc.BitcoinPubKey)
		if err != nil {
			return nil, nil, fmt.Errorf("nodeconfig: decoding bitcoin_pubkey[%d]: %w", i, err)
		}
		pk, err := btcprimitives.ParseCompressedPubKey(raw)
		if err != nil {
			return nil, nil, err
		}
		pubkeys[i] = pk

		idRaw, err := hex.DecodeString(pc.ServiceKey)
		if err != nil {
			return nil, nil, fmt.Errorf("nodeconfig: decoding service_key[%d]: %w", i, err)
		}
		if len(idRaw) != 32 {
			return nil, nil, fmt.Errorf("nodeconfig: service_key[%d] must be 32 bytes", i)
		}
		copy(identities[i][:], idRaw)
	}
	return pubkeys, identities, nil
}

// Finalize combines this validator's LocalConfig with the ordered list of
// every validator's PublicConfig (collected out of band, in validator-index
// order) into a runnable NodeConfig. validatorIndex identifies local's
// position within publicConfigs; local's own entry in publicConfigs must
// match the pubkey local.Public() derives.
func Finalize(local LocalConfig, validatorIndex uint16, publicConfigs []PublicConfig) (NodeConfig, error) {
	if int(validatorIndex) >= len(publicConfigs) {
		return NodeConfig{}, fmt.Errorf("nodeconfig: validator index %d out of range of %d public configs", validatorIndex, len(publicConfigs))
	}
	ownPublic, err := local.Public()
	if err != nil {
		return NodeConfig{}, err
	}
	if ownPublic != publicConfigs[validatorIndex] {
		return NodeConfig{}, fmt.Errorf("nodeconfig: public_configs[%d] does not match this validator's own generated keys", validatorIndex)
	}

	return NodeConfig{
		ValidatorIndex: validatorIndex,
		Template:       local.Template,
		PublicConfigs:  publicConfigs,
		BitcoinWIF:     local.BitcoinWIF,
		SafetyMargin:   6,
	}, nil
}

func randomIdentityKey() ([32]byte, error) {
	var out [32]byte
	if err := readRandom(out[:]); err != nil {
		return out, err
	}
	return out, nil
}

// LoadLocalConfig reads a LocalConfig from a YAML file.
func LoadLocalConfig(path string) (LocalConfig, error) {
	var l LocalConfig
	err := readYAML(path, &l)
	return l, err
}

// WriteLocalConfig writes l to path as YAML, with 0600 permissions since it
// carries a private key.
func WriteLocalConfig(path string, l LocalConfig) error {
	return writeYAMLMode(path, l, 0o600)
}

// LoadPublicConfig reads a PublicConfig from a YAML file.
func LoadPublicConfig(path string) (PublicConfig, error) {
	var p PublicConfig
	err := readYAML(path, &p)
	return p, err
}

// WritePublicConfig writes p to path as YAML.
func WritePublicConfig(path string, p PublicConfig) error {
	return writeYAML(path, p)
}

// LoadNodeConfig reads a NodeConfig from a YAML file.
func LoadNodeConfig(path string) (NodeConfig, error) {
	var n NodeConfig
	err := readYAML(path, &n)
	return n, err
}

// WriteNodeConfig writes n to path as YAML, with 0600 permissions since it
// carries a private key.
func WriteNodeConfig(path string, n NodeConfig) error {
	return writeYAMLMode(path, n, 0o600)
}

func readYAML(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("nodeconfig: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("nodeconfig: parsing %s: %w", path, err)
	}
	return nil
}

func writeYAML(path string, v interface{}) error {
	return writeYAMLMode(path, v, 0o644)
}

func writeYAMLMode(path string, v interface{}, mode os.FileMode) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("nodeconfig: encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("nodeconfig: writing %s: %w", path, err)
	}
	return nil
}
