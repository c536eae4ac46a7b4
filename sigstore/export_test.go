package sigstore

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

func newCompressedWIF(priv *btcec.PrivateKey) (string, error) {
	wif, err := btcutil.NewWIF(priv, &chaincfg.TestNet3Params, true)
	if err != nil {
		return "", err
	}
	return wif.String(), nil
}

func sha256Fixture(msg string) [32]byte {
	return sha256.Sum256([]byte(msg))
}
