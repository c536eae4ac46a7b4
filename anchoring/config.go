package anchoring

import (
	"encoding/binary"
	"fmt"

	"github.com/ironpeg/btcanchor/btcprimitives"
)

// configWireVersion gates AnchoringConfig.Decode against future field
// layout changes; bump it whenever Encode's field order changes.
const configWireVersion uint16 = 1

// ValidatorKey is one entry of the ordered validator key list. Its position
// in AnchoringConfig.Keys is the validator index used throughout the
// signature store and witness assembly (§3).
type ValidatorKey struct {
	// BitcoinKey is the validator's compressed secp256k1 key used in the
	// anchoring redeem script.
	BitcoinKey btcprimitives.CompressedPubKey
	// ServiceKey identifies the validator on the host chain; it signs the
	// SignInput/AddFunds transactions that carry this validator's
	// contribution.
	ServiceKey [32]byte
}

// AnchoringConfig is a snapshot of the anchoring chain's parameters, valid
// from some activation height until replaced (§3).
type AnchoringConfig struct {
	Network           btcprimitives.Network
	AnchoringKeys     []ValidatorKey
	AnchoringInterval uint64
	TransactionFee    int64
	Funding           []FundingTx
}

// Threshold returns M = floor(2N/3) + 1 for this config's validator set.
func (c AnchoringConfig) Threshold() int {
	return btcprimitives.Threshold(len(c.AnchoringKeys))
}

// BitcoinPubKeys extracts the ordered Bitcoin keys used to build the
// redeem script, dropping the host-chain identity half of each entry.
func (c AnchoringConfig) BitcoinPubKeys() []btcprimitives.CompressedPubKey {
	keys := make([]btcprimitives.CompressedPubKey, len(c.AnchoringKeys))
	for i, k := range c.AnchoringKeys {
		keys[i] = k.BitcoinKey
	}
	return keys
}

// RedeemScript compiles this config's current multisig witness script.
func (c AnchoringConfig) RedeemScript() ([]byte, error) {
	return btcprimitives.BuildRedeemScript(c.BitcoinPubKeys(), c.Threshold())
}

// Address derives the P2WSH anchoring address of this config.
func (c AnchoringConfig) Address() (string, error) {
	script, err := c.RedeemScript()
	if err != nil {
		return "", err
	}
	addr, err := btcprimitives.P2WSHAddress(script, c.Network)
	if err != nil {
		return "", err
	}
	return addr.String(), nil
}

// ValidateTransition checks that next is a legal successor configuration of
// current: the network is immutable and the validator set is non-empty and
// within bounds (§4.5).
func ValidateTransition(current, next AnchoringConfig) error {
	if current.Network != "" && current.Network != next.Network {
		return fmt.Errorf("%w: network", ErrConfigImmutableField)
	}
	if len(next.AnchoringKeys) == 0 || len(next.AnchoringKeys) > btcprimitives.MaxAnchoringKeys {
		return fmt.Errorf("%w: n=%d", ErrBadThreshold, len(next.AnchoringKeys))
	}
	if next.AnchoringInterval == 0 {
		return fmt.Errorf("%w: anchoring_interval must be positive", ErrInvalidEncoding)
	}
	if next.TransactionFee <= 0 {
		return fmt.Errorf("%w: transaction_fee must be positive", ErrInvalidEncoding)
	}
	return nil
}

// Encode serializes c into the length-prefixed binary wire form used for
// config_history persistence. Field order: version(2) | network-len(1) |
// network | interval(8) | fee(8) | n-keys(2) | keys[33+32] | n-funding(2) |
// funding[len(4) | Encode()]... There is no reflection: every field is written in a
// fixed position, mirroring the teacher's VaultTemplate wire format.
func (c AnchoringConfig) Encode() ([]byte, error) {
	if len(c.AnchoringKeys) > btcprimitives.MaxAnchoringKeys {
		return nil, fmt.Errorf("%w: n=%d", ErrBadThreshold, len(c.AnchoringKeys))
	}

	buf := make([]byte, 0, 64+len(c.AnchoringKeys)*65)
	buf = appendUint16(buf, configWireVersion)

	netBytes := []byte(c.Network)
	if len(netBytes) > 255 {
		return nil, fmt.Errorf("%w: network name too long", ErrInvalidEncoding)
	}
	buf = append(buf, byte(len(netBytes)))
	buf = append(buf, netBytes...)

	buf = appendUint64(buf, c.AnchoringInterval)
	buf = appendInt64(buf, c.TransactionFee)

	buf = appendUint16(buf, uint16(len(c.AnchoringKeys)))
	for _, k := range c.AnchoringKeys {
		buf = append(buf, k.BitcoinKey[:]...)
		buf = append(buf, k.ServiceKey[:]...)
	}

	buf = appendUint16(buf, uint16(len(c.Funding)))
	for _, f := range c.Funding {
		encoded, err := f.Encode()
		if err != nil {
			return nil, err
		}
		buf = appendUint32(buf, uint32(len(encoded)))
		buf = append(buf, encoded...)
	}

	return buf, nil
}

// DecodeAnchoringConfig parses the wire form produced by Encode.
func DecodeAnchoringConfig(data []byte) (AnchoringConfig, error) {
	var c AnchoringConfig
	r := byteReader{buf: data}

	version, err := r.uint16()
	if err != nil {
		return c, err
	}
	if version != configWireVersion {
		return c, fmt.Errorf("%w: unsupported config wire version %d", ErrInvalidEncoding, version)
	}

	netLen, err := r.byte()
	if err != nil {
		return c, err
	}
	netBytes, err := r.bytes(int(netLen))
	if err != nil {
		return c, err
	}
	c.Network = btcprimitives.Network(netBytes)

	if c.AnchoringInterval, err = r.uint64(); err != nil {
		return c, err
	}
	fee, err := r.uint64()
	if err != nil {
		return c, err
	}
	c.TransactionFee = int64(fee)

	nKeys, err := r.uint16()
	if err != nil {
		return c, err
	}
	c.AnchoringKeys = make([]ValidatorKey, nKeys)
	for i := range c.AnchoringKeys {
		pk, err := r.bytes(33)
		if err != nil {
			return c, err
		}
		copy(c.AnchoringKeys[i].BitcoinKey[:], pk)
		sk, err := r.bytes(32)
		if err != nil {
			return c, err
		}
		copy(c.AnchoringKeys[i].ServiceKey[:], sk)
	}

	nFunding, err := r.uint16()
	if err != nil {
		return c, err
	}
	c.Funding = make([]FundingTx, nFunding)
	for i := range c.Funding {
		length, err := r.uint32()
		if err != nil {
			return c, err
		}
		raw, err := r.bytes(int(length))
		if err != nil {
			return c, err
		}
		ftx, err := DecodeFundingTx(raw)
		if err != nil {
			return c, err
		}
		c.Funding[i] = ftx
	}

	if !r.exhausted() {
		return c, fmt.Errorf("%w: trailing bytes after config", ErrInvalidEncoding)
	}
	return c, nil
}

func appendUint16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendInt64(buf []byte, v int64) []byte {
	return appendUint64(buf, uint64(v))
}

// byteReader is a minimal cursor over a decode buffer shared by the wire
// formats in this package.
type byteReader struct {
	buf []byte
	pos int
}

func (r *byteReader) exhausted() bool {
	return r.pos == len(r.buf)
}

func (r *byteReader) bytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, fmt.Errorf("%w: unexpected end of data", ErrInvalidEncoding)
	}
	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *byteReader) byte() (byte, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *byteReader) uint16() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *byteReader) uint32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *byteReader) uint64() (uint64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}
