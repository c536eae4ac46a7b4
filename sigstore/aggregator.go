package sigstore

import (
	"fmt"
	"sort"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/ironpeg/btcanchor/btcprimitives"
)

// ProposalContext is the signing context an Aggregator needs to verify
// signatures for one proposal: the per-input sighashes, the redeem script
// and quorum threshold, and the ordered validator pubkeys of the config
// that was active when the proposal was built (§4.3).
type ProposalContext struct {
	SigHashes    [][]byte
	RedeemScript []byte
	Threshold    int
	Pubkeys      []btcprimitives.CompressedPubKey
	TargetHeight uint64
}

type proposalState struct {
	ctx        ProposalContext
	signatures []map[uint16][]byte // one map per input, validator index -> signature
}

// Aggregator stores, per proposal txid, the signatures submitted for each
// of its inputs and reports when a proposal has reached Byzantine quorum
// (§4.3). Mirrors the mutex-guarded session-map shape of the teacher's
// MuSig2Session, generalized from Schnorr nonce exchange to plain
// two-phase ECDSA-multisig collection (collecting, then finalizable) since
// OP_CHECKMULTISIG needs no nonce round.
type Aggregator struct {
	mu        sync.Mutex
	proposals map[chainhash.Hash]*proposalState
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{proposals: make(map[chainhash.Hash]*proposalState)}
}

// Insert verifies and records one validator's witness signature for one
// input of a proposal. currentPubkeys is the validator pubkey list of
// whatever config is active at insertion time — it may differ from
// ctx.Pubkeys if a config change landed between proposal and insertion,
// which is exactly the StaleSigner condition (§4.3, §7).
func (a *Aggregator) Insert(
	txid chainhash.Hash,
	ctx ProposalContext,
	currentPubkeys []btcprimitives.CompressedPubKey,
	inputIndex int,
	validatorIndex uint16,
	sig []byte,
) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if inputIndex < 0 || inputIndex >= len(ctx.SigHashes) {
		return fmt.Errorf("%w: input %d", ErrUnknownInput, inputIndex)
	}
	if int(validatorIndex) >= len(ctx.Pubkeys) {
		return fmt.Errorf("%w: validator %d", ErrUnknownValidator, validatorIndex)
	}

	state, ok := a.proposals[txid]
	if !ok {
		state = &proposalState{
			ctx:        ctx,
			signatures: make([]map[uint16][]byte, len(ctx.SigHashes)),
		}
		for i := range state.signatures {
			state.signatures[i] = make(map[uint16][]byte)
		}
		a.proposals[txid] = state
	}

	if _, dup := state.signatures[inputIndex][validatorIndex]; dup {
		return ErrDuplicateSignature
	}

	proposalKey := ctx.Pubkeys[validatorIndex]
	if int(validatorIndex) < len(currentPubkeys) && currentPubkeys[validatorIndex] != proposalKey {
		return fmt.Errorf("%w: validator %d", ErrStaleSigner, validatorIndex)
	}

	if err := btcprimitives.VerifySignature(proposalKey, ctx.SigHashes[inputIndex], sig); err != nil {
		log.Warnf("rejecting signature from validator %d for %s input %d: %v", validatorIndex, txid, inputIndex, err)
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	state.signatures[inputIndex][validatorIndex] = sig
	return nil
}

// Finalizable reports whether every input of txid has signatures from at
// least ctx.Threshold distinct validator indices, and if so returns the
// assembled witness stack for each input, signers sorted ascending by
// validator index (§4.3 "Quorum rule").
func (a *Aggregator) Finalizable(txid chainhash.Hash) (bool, []wire.TxWitness, ProposalContext) {
	a.mu.Lock()
	defer a.mu.Unlock()

	state, ok := a.proposals[txid]
	if !ok {
		return false, nil, ProposalContext{}
	}

	witnesses := make([]wire.TxWitness, len(state.signatures))
	for i, sigsByValidator := range state.signatures {
		if len(sigsByValidator) < state.ctx.Threshold {
			return false, nil, ProposalContext{}
		}
		indices := make([]uint16, 0, len(sigsByValidator))
		for idx := range sigsByValidator {
			indices = append(indices, idx)
		}
		sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
		indices = indices[:state.ctx.Threshold]

		ordered := make([][]byte, state.ctx.Threshold)
		for j, idx := range indices {
			ordered[j] = sigsByValidator[idx]
		}
		witness, err := btcprimitives.AssembleWitness(ordered, state.ctx.RedeemScript, state.ctx.Threshold)
		if err != nil {
			return false, nil, ProposalContext{}
		}
		witnesses[i] = witness
	}

	return true, witnesses, state.ctx
}

// Prune discards all collected signatures for txid. The state machine
// calls it when txid itself finalizes and when it abandons a pending
// proposal that outlived its window. Signatures held for other proposals
// are not pruned when a different proposal finalizes.
func (a *Aggregator) Prune(txid chainhash.Hash) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.proposals, txid)
}

// SignerCount returns the number of distinct validators that have signed
// input inputIndex of txid. The state machine itself uses HasSigned to
// decide whether this validator still needs to contribute.
func (a *Aggregator) SignerCount(txid chainhash.Hash, inputIndex int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	state, ok := a.proposals[txid]
	if !ok || inputIndex < 0 || inputIndex >= len(state.signatures) {
		return 0
	}
	return len(state.signatures[inputIndex])
}

// SignedIndices returns every validator index that has signed input
// inputIndex of txid, ascending. Used when finalizing to clear the
// persisted signature rows of every contributor, not just the M that made
// it into the assembled witness.
func (a *Aggregator) SignedIndices(txid chainhash.Hash, inputIndex int) []uint16 {
	a.mu.Lock()
	defer a.mu.Unlock()
	state, ok := a.proposals[txid]
	if !ok || inputIndex < 0 || inputIndex >= len(state.signatures) {
		return nil
	}
	indices := make([]uint16, 0, len(state.signatures[inputIndex]))
	for idx := range state.signatures[inputIndex] {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	return indices
}

// HasSigned reports whether validatorIndex has already submitted a
// signature for input inputIndex of txid.
func (a *Aggregator) HasSigned(txid chainhash.Hash, inputIndex int, validatorIndex uint16) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	state, ok := a.proposals[txid]
	if !ok || inputIndex < 0 || inputIndex >= len(state.signatures) {
		return false
	}
	_, signed := state.signatures[inputIndex][validatorIndex]
	return signed
}
