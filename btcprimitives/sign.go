package btcprimitives

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
)

// GenerateWIF creates a new secp256k1 keypair for net and returns its
// wallet-import-format encoding, compressed. Used only by the bootstrap
// CLI's generate-config step; the deterministic core never generates keys.
func GenerateWIF(net Network) (string, error) {
	params, err := net.Params()
	if err != nil {
		return "", err
	}
	key, err := btcec.NewPrivateKey()
	if err != nil {
		return "", fmt.Errorf("generating key: %w", err)
	}
	wif, err := btcutil.NewWIF(key, params, true)
	if err != nil {
		return "", fmt.Errorf("encoding WIF: %w", err)
	}
	return wif.String(), nil
}

// PrivateKey wraps a secp256k1 signing key decoded from WIF.
type PrivateKey struct {
	key *btcec.PrivateKey
}

// DecodeWIF parses a wallet-import-format private key. Only compressed keys
// are accepted, matching the compressed pubkeys carried in AnchoringConfig.
func DecodeWIF(wif string) (PrivateKey, error) {
	decoded, err := btcutil.DecodeWIF(wif)
	if err != nil {
		return PrivateKey{}, fmt.Errorf("%w: decoding WIF: %v", ErrInvalidEncoding, err)
	}
	if !decoded.CompressPubKey {
		return PrivateKey{}, fmt.Errorf("%w: WIF key must encode a compressed pubkey", ErrInvalidEncoding)
	}
	return PrivateKey{key: decoded.PrivKey}, nil
}

// PubKey returns the compressed public key corresponding to priv.
func (priv PrivateKey) PubKey() CompressedPubKey {
	var out CompressedPubKey
	copy(out[:], priv.key.PubKey().SerializeCompressed())
	return out
}

// Sign produces a low-S DER-encoded ECDSA signature over sigHash with the
// SIGHASH_ALL byte appended, ready to drop into a multisig witness stack
// (§4.1). btcec's signing routine already enforces the low-S rule required
// by BIP62/segwit policy.
func (priv PrivateKey) Sign(sigHash []byte) ([]byte, error) {
	if len(sigHash) != 32 {
		return nil, fmt.Errorf("%w: sighash must be 32 bytes, got %d", ErrInvalidEncoding, len(sigHash))
	}
	sig := ecdsa.Sign(priv.key, sigHash)
	return append(sig.Serialize(), byte(SigHashAll)), nil
}

// VerifySignature checks a DER signature with trailing sighash-type byte,
// as produced by Sign, against sigHash and pub. It is the primitive
// sigstore uses to reject invalid or forged signatures at insert time
// (§4.3, §8 invariant 2).
func VerifySignature(pub CompressedPubKey, sigHash []byte, sigWithHashType []byte) error {
	if len(sigWithHashType) == 0 {
		return fmt.Errorf("%w: empty signature", ErrInvalidSignature)
	}
	hashType := sigWithHashType[len(sigWithHashType)-1]
	if hashType != byte(SigHashAll) {
		return fmt.Errorf("%w: unsupported sighash type 0x%02x", ErrInvalidSignature, hashType)
	}
	derSig := sigWithHashType[:len(sigWithHashType)-1]

	sig, err := ecdsa.ParseSignature(derSig)
	if err != nil {
		return fmt.Errorf("%w: parsing signature: %v", ErrInvalidSignature, err)
	}
	pubKey, err := pub.PublicKey()
	if err != nil {
		return err
	}
	if len(sigHash) != 32 {
		return fmt.Errorf("%w: sighash must be 32 bytes, got %d", ErrInvalidEncoding, len(sigHash))
	}
	if !sig.Verify(sigHash, pubKey) {
		return fmt.Errorf("%w: signature does not match pubkey/sighash", ErrInvalidSignature)
	}
	return nil
}
