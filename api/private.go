package api

import (
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/ironpeg/btcanchor/btcprimitives"
	"github.com/ironpeg/btcanchor/hostchain"
	"github.com/ironpeg/btcanchor/statemachine"
)

type inputView struct {
	InputIndex    uint32 `json:"input_index"`
	SigHashHex    string `json:"sighash_hex"`
	Value         int64  `json:"value"`
	AlreadySigned bool   `json:"already_signed"`
}

type proposalView struct {
	TxID         string      `json:"txid"`
	RawHex       string      `json:"raw_hex"`
	TargetHeight uint64      `json:"target_height"`
	Inputs       []inputView `json:"inputs"`
}

// Proposal handles GET /proposal: the current unsigned proposal with
// per-input sighashes and values, or null if none is pending (§6 "Private
// HTTP API").
func (d *Deps) Proposal(w http.ResponseWriter, r *http.Request) {
	pending, err := statemachine.LoadPendingProposal(d.Store)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if pending == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	history, err := statemachine.LoadConfigHistory(d.Store)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	targetConfig, ok := history.ActiveAt(pending.TriggerHeight)
	if !ok {
		writeError(w, http.StatusInternalServerError, "no active config at pending proposal's trigger height")
		return
	}
	redeemScript, err := targetConfig.RedeemScript()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	msgTx, err := btcprimitives.Deserialize(pending.Raw)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	tip, err := statemachine.LoadTip(d.Store)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	pool, err := statemachine.LoadFundingPool(d.Store)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	values, err := statemachine.ResolveInputValues(d.Store, tip, pool, msgTx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	inputs := make([]inputView, len(msgTx.TxIn))
	for i := range msgTx.TxIn {
		hash, err := btcprimitives.WitnessSigHash(msgTx, i, redeemScript, values[i])
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		inputs[i] = inputView{
			InputIndex:    uint32(i),
			SigHashHex:    hex.EncodeToString(hash),
			Value:         values[i],
			AlreadySigned: d.Aggregator.HasSigned(pending.TxID, i, d.ValidatorIndex),
		}
	}

	writeJSON(w, http.StatusOK, proposalView{
		TxID:         pending.TxID.String(),
		RawHex:       hex.EncodeToString(pending.Raw),
		TargetHeight: pending.TriggerHeight,
		Inputs:       inputs,
	})
}

type signInputRequest struct {
	InputIndex   uint32 `json:"input_index"`
	SignatureHex string `json:"signature_hex"`
}

// SignInput handles POST /sign-input: submits this node's signature for one
// input of the pending proposal as a SignInput host-chain transaction.
func (d *Deps) SignInput(w http.ResponseWriter, r *http.Request) {
	var req signInputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sig, err := hex.DecodeString(req.SignatureHex)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid signature_hex")
		return
	}

	pending, err := statemachine.LoadPendingProposal(d.Store)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if pending == nil {
		writeError(w, http.StatusBadRequest, "no pending proposal")
		return
	}
	if d.Aggregator.HasSigned(pending.TxID, int(req.InputIndex), d.ValidatorIndex) {
		writeError(w, http.StatusConflict, "signature already recorded")
		return
	}

	err = d.Submitter.Submit(hostchain.Tx{SignInput: &hostchain.SignInput{
		ValidatorIndex: d.ValidatorIndex,
		Proposal:       pending.Raw,
		InputIndex:     req.InputIndex,
		Signature:      sig,
		TargetHeight:   pending.TriggerHeight,
	}})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

type addFundsRequest struct {
	RawTxHex string `json:"raw_tx_hex"`
}

// AddFunds handles POST /add-funds: submits a raw Bitcoin transaction this
// node observed paying the current anchoring address as an AddFunds
// host-chain transaction.
func (d *Deps) AddFunds(w http.ResponseWriter, r *http.Request) {
	var req addFundsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	raw, err := hex.DecodeString(req.RawTxHex)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid raw_tx_hex")
		return
	}
	if _, err := btcprimitives.Deserialize(raw); err != nil {
		writeError(w, http.StatusBadRequest, "raw_tx_hex does not decode to a transaction")
		return
	}

	if err := d.Submitter.Submit(hostchain.Tx{AddFunds: &hostchain.AddFunds{
		ValidatorIndex: d.ValidatorIndex,
		RawTx:          raw,
	}}); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, nil)
}
