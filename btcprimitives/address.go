package btcprimitives

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// Network names the three Bitcoin networks the anchoring config may target
// (§3). It is immutable across the lifetime of an anchoring chain.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
	NetworkRegtest Network = "regtest"
)

// Params resolves a Network to the upstream btcsuite chain parameters used
// for address encoding and WIF decoding.
func (n Network) Params() (*chaincfg.Params, error) {
	switch n {
	case NetworkMainnet:
		return &chaincfg.MainNetParams, nil
	case NetworkTestnet:
		return &chaincfg.TestNet3Params, nil
	case NetworkRegtest:
		return &chaincfg.RegressionNetParams, nil
	default:
		return nil, fmt.Errorf("%w: unknown network %q", ErrInvalidEncoding, n)
	}
}

// Valid reports whether n is one of the three supported networks.
func (n Network) Valid() bool {
	switch n {
	case NetworkMainnet, NetworkTestnet, NetworkRegtest:
		return true
	default:
		return false
	}
}

// P2WSHAddress derives the bech32 pay-to-witness-script-hash address for a
// redeem script under the given network: bech32(witness_version=0,
// sha256(redeemScript)) (§3).
func P2WSHAddress(redeemScript []byte, net Network) (btcutil.Address, error) {
	params, err := net.Params()
	if err != nil {
		return nil, err
	}
	hash := RedeemScriptHash(redeemScript)
	addr, err := btcutil.NewAddressWitnessScriptHash(hash[:], params)
	if err != nil {
		return nil, fmt.Errorf("%w: deriving P2WSH address: %v", ErrInvalidEncoding, err)
	}
	return addr, nil
}

// P2WSHScriptPubKey returns the scriptPubKey (OP_0 <32-byte-hash>) used in
// the anchoring transaction's output 0.
func P2WSHScriptPubKey(redeemScript []byte, net Network) ([]byte, error) {
	addr, err := P2WSHAddress(redeemScript, net)
	if err != nil {
		return nil, err
	}
	witAddr, ok := addr.(*btcutil.AddressWitnessScriptHash)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected address type", ErrInvalidEncoding)
	}
	script, err := txscript.PayToAddrScript(witAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: building scriptPubKey: %v", ErrInvalidEncoding, err)
	}
	return script, nil
}
