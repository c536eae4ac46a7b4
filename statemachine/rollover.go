package statemachine

import (
	"github.com/ironpeg/btcanchor/anchoring"
	"github.com/ironpeg/btcanchor/btcprimitives"
	"github.com/ironpeg/btcanchor/proposal"
)

// followingConfig reports the configuration a rollover proposal should
// target at height, if any: config_history holds an activation strictly
// after height whose key set differs from the currently active one, and
// that activation is within safetyMargin trigger blocks (§4.4 "Rollover").
func followingConfig(history *anchoring.ConfigHistory, active anchoring.AnchoringConfig, height, safetyMargin uint64) *anchoring.AnchoringConfig {
	next, activation, ok := history.Following(height)
	if !ok {
		return nil
	}
	if activation > height+safetyMargin {
		return nil
	}
	if keysEqual(active.AnchoringKeys, next.AnchoringKeys) {
		return nil
	}
	cfg := next
	return &cfg
}

func keysEqual(a, b []anchoring.ValidatorKey) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].BitcoinKey != b[i].BitcoinKey || a[i].ServiceKey != b[i].ServiceKey {
			return false
		}
	}
	return true
}

// fundingUTXOs converts the persisted funding pool into spendable proposal
// inputs, dropping entries that have not yet reached validator quorum
// (§4.5) or whose declared output cannot be parsed from the raw tx.
func fundingUTXOs(pool []anchoring.FundingTx, threshold int) ([]proposal.FundingUTXO, error) {
	var utxos []proposal.FundingUTXO
	for _, f := range pool {
		if !f.HasQuorum(threshold) {
			continue
		}
		tx, err := btcprimitives.Deserialize(f.Raw)
		if err != nil {
			return nil, err
		}
		if int(f.OutputIndex) >= len(tx.TxOut) {
			continue
		}
		utxos = append(utxos, proposal.FundingUTXO{
			TxID:  btcprimitives.TxID(tx),
			Vout:  f.OutputIndex,
			Value: tx.TxOut[f.OutputIndex].Value,
		})
	}
	return utxos, nil
}
