package btcprimitives

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// newCompressedWIF is a test helper bridging btcec keys to the WIF strings
// DecodeWIF expects to parse.
func newCompressedWIF(priv *btcec.PrivateKey, params *chaincfg.Params) (string, error) {
	wif, err := btcutil.NewWIF(priv, params, true)
	if err != nil {
		return "", err
	}
	return wif.String(), nil
}
