package proposal

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/ironpeg/btcanchor/anchoring"
	"github.com/ironpeg/btcanchor/btcprimitives"
)

// PreviousTip is the spendable output of the most recently finalized
// anchoring transaction, the custody UTXO the next proposal spends first
// (§3 "Tip").
type PreviousTip struct {
	TxID  chainhash.Hash
	Value int64
}

// FundingUTXO is one confirmed, not-yet-consumed funding output paying the
// current anchoring address (§4.2 step 1).
type FundingUTXO struct {
	TxID  chainhash.Hash
	Vout  uint32
	Value int64
}

// Request carries every input the proposal builder reads. Two validators
// that construct equal Requests at the same height must get byte-identical
// Proposals (§8 invariant 5).
type Request struct {
	Config          anchoring.AnchoringConfig
	PreviousTip     *PreviousTip
	FundingUTXOs    []FundingUTXO
	Height          uint64
	BlockHash       [32]byte
	FollowingConfig *anchoring.AnchoringConfig
}

// InputSpend is the spending metadata the signer and signature verifier
// need for one transaction input: the redeem script it is locked by and
// the value it carries, both required for the BIP143 sighash (§4.1, §4.2).
type InputSpend struct {
	RedeemScript []byte
	Value        int64
}

// Proposal is an unsigned anchoring transaction plus the per-input
// metadata needed to sign and verify it (§4.2 "Output").
type Proposal struct {
	Tx           *wire.MsgTx
	Inputs       []InputSpend
	RedeemScript []byte
	TargetHeight uint64
}

// Build deterministically assembles the next unsigned anchoring
// transaction (§4.2 algorithm). It performs no I/O and reads no clock;
// every value that influences the result arrives through req.
func Build(req Request) (*Proposal, error) {
	redeemScript, err := req.Config.RedeemScript()
	if err != nil {
		return nil, err
	}
	threshold := req.Config.Threshold()

	tx := wire.NewMsgTx(2)
	tx.LockTime = 0

	var inputs []InputSpend
	var totalValue int64

	// Step 1: previous tip spend first, then funding UTXOs sorted
	// ascending by (txid, vout).
	if req.PreviousTip != nil {
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&req.PreviousTip.TxID, 0), nil, nil))
		inputs = append(inputs, InputSpend{RedeemScript: redeemScript, Value: req.PreviousTip.Value})
		totalValue += req.PreviousTip.Value
	}

	funding := append([]FundingUTXO(nil), req.FundingUTXOs...)
	sort.Slice(funding, func(i, j int) bool {
		cmp := bytes.Compare(funding[i].TxID[:], funding[j].TxID[:])
		if cmp != 0 {
			return cmp < 0
		}
		return funding[i].Vout < funding[j].Vout
	})
	for _, f := range funding {
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&f.TxID, f.Vout), nil, nil))
		inputs = append(inputs, InputSpend{RedeemScript: redeemScript, Value: f.Value})
		totalValue += f.Value
	}

	for _, in := range tx.TxIn {
		in.Sequence = wire.MaxTxInSequenceNum
	}

	// Step 2 & 3: recipient address and payload kind.
	recipientConfig := req.Config
	kind := anchoring.PayloadRegular
	var prevScriptHash [32]byte
	if req.FollowingConfig != nil {
		recipientConfig = *req.FollowingConfig
		kind = anchoring.PayloadTransition
		prevScriptHash = btcprimitives.RedeemScriptHash(redeemScript)
	}
	recipientScript, err := recipientConfig.RedeemScript()
	if err != nil {
		return nil, err
	}
	outputScript, err := btcprimitives.P2WSHScriptPubKey(recipientScript, recipientConfig.Network)
	if err != nil {
		return nil, err
	}

	payload := anchoring.Payload{
		Kind:                 kind,
		Height:               req.Height,
		BlockHash:            req.BlockHash,
		PrevRedeemScriptHash: prevScriptHash,
	}
	payloadBytes, err := payload.Encode()
	if err != nil {
		return nil, err
	}
	opReturnScript, err := anchoring.OpReturnScript(payloadBytes)
	if err != nil {
		return nil, err
	}

	// Step 4: fee from witness-sized virtual size estimate.
	tx.AddTxOut(wire.NewTxOut(0, outputScript))
	tx.AddTxOut(wire.NewTxOut(0, opReturnScript))
	vsize := btcprimitives.VirtualSize(tx, len(redeemScript), threshold)
	fee := btcprimitives.EstimateFee(vsize, req.Config.TransactionFee)

	// Step 5: output 0 amount, checked against the dust threshold.
	outputValue := totalValue - fee
	if outputValue <= btcprimitives.DustThreshold {
		return nil, fmt.Errorf("%w: output value %d sats after %d sat fee", ErrInsufficientFunds, outputValue, fee)
	}
	tx.TxOut[0].Value = outputValue

	return &Proposal{
		Tx:           tx,
		Inputs:       inputs,
		RedeemScript: redeemScript,
		TargetHeight: req.Height,
	}, nil
}

// SigHashes computes the BIP143 sighash for every input of p, in input
// order, for signing or signature verification (§4.1, §4.3).
func (p *Proposal) SigHashes() ([][]byte, error) {
	hashes := make([][]byte, len(p.Inputs))
	for i, in := range p.Inputs {
		hash, err := btcprimitives.WitnessSigHash(p.Tx, i, in.RedeemScript, in.Value)
		if err != nil {
			return nil, err
		}
		hashes[i] = hash
	}
	return hashes, nil
}
