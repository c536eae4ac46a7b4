package btcrpc

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// TipChecker adapts Client to statemachine.TipSpendabilityChecker: the tip
// is spendable as long as it has not reorged below MinConfirmations
// confirmations (§4.4 "Propose").
type TipChecker struct {
	Client           Client
	MinConfirmations int64
}

// Spendable reports whether txid still has at least MinConfirmations
// confirmations on the connected node.
func (t TipChecker) Spendable(txid chainhash.Hash) (bool, error) {
	confirmations, err := t.Client.GetTxConfirmations(txid)
	if err != nil {
		return false, err
	}
	return confirmations >= t.MinConfirmations, nil
}
