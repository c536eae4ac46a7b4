// Package nodeconfig implements the three-stage bootstrap a fresh anchoring
// validator goes through before it can run: a shared Template is generated
// once and distributed to every validator, each validator turns it into a
// LocalConfig holding a freshly generated Bitcoin keypair, the public half
// of every validator's LocalConfig is collected out of band, and Finalize
// combines them into the NodeConfig the long-running process loads. Modeled
// on certenIO's pkg/config/anchor_config.go struct-of-structs shape and its
// Duration yaml type; the three-stage handshake itself follows the named
// CLI subcommands of the anchoring service's bootstrap flow, since no
// buildable source survived from the original distillation.
package nodeconfig

import (
	"fmt"
	"time"

	"github.com/ironpeg/btcanchor/btcprimitives"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration for YAML unmarshaling as a Go duration
// string ("15s", "5m") rather than a bare integer of nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Template holds the anchoring parameters every validator must agree on
// before any of them generates a keypair: network, cadence, and fee rate.
// It carries no keys.
type Template struct {
	Network           btcprimitives.Network `yaml:"network"`
	AnchoringInterval uint64                `yaml:"anchoring_interval"`
	TransactionFee    int64                 `yaml:"transaction_fee"`
}

// Validate checks that Template names a known network and carries the
// positive anchoring interval and transaction fee that
// anchoring.ValidateTransition also requires; it does not check keys.
func (t Template) Validate() error {
	if !t.Network.Valid() {
		return fmt.Errorf("nodeconfig: unknown network %q", t.Network)
	}
	if t.AnchoringInterval == 0 {
		return fmt.Errorf("nodeconfig: anchoring_interval must be positive")
	}
	if t.TransactionFee <= 0 {
		return fmt.Errorf("nodeconfig: transaction_fee must be positive")
	}
	return nil
}

// LoadTemplate reads a Template from a YAML file.
func LoadTemplate(path string) (Template, error) {
	var t Template
	if err := readYAML(path, &t); err != nil {
		return Template{}, err
	}
	return t, t.Validate()
}

// WriteTemplate writes t to path as YAML.
func WriteTemplate(path string, t Template) error {
	return writeYAML(path, t)
}
