package statemachine

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/ironpeg/btcanchor/anchoring"
	"github.com/ironpeg/btcanchor/btcprimitives"
	"github.com/ironpeg/btcanchor/hostchain"
	"github.com/ironpeg/btcanchor/proposal"
	"github.com/ironpeg/btcanchor/storage"
)

// BeforeCommit is the commit-hook entry point: it decides this validator's
// state for height among Idle, Propose, Sign and Rollover (§4.4), and
// submits any resulting SignInput transactions through sub. Beyond store
// reads and sub.Submit, its only I/O is through the optional FundingWatcher
// (which may also lead to AddFunds submissions) and TipChecker; it reads no
// wall clock.
func (s *Service) BeforeCommit(height uint64, blockHash [32]byte, store storage.Store, sub hostchain.Submitter) error {
	history, err := LoadConfigHistory(store)
	if err != nil {
		return err
	}
	active, ok := history.ActiveAt(height)
	if !ok {
		return ErrNoActiveConfig
	}

	if s.FundingWatcher != nil {
		if err := s.observeFunding(active, store, sub); err != nil {
			return err
		}
	}

	pending, err := LoadPendingProposal(store)
	if err != nil {
		return err
	}

	interval := active.AnchoringInterval
	isTrigger := interval > 0 && height%interval == 0

	if pending != nil {
		abandonAt := pending.TriggerHeight + interval*(1+DefaultAbandonIntervals)
		if height >= abandonAt {
			s.Aggregator.Prune(pending.TxID)
			pending = nil
		}
	}

	if pending != nil {
		return s.contributeSignatures(*pending, history, store, sub)
	}

	if !isTrigger {
		return nil
	}

	return s.proposeFresh(height, blockHash, active, history, store, sub)
}

// contributeSignatures re-derives the pending proposal from locally
// persisted state and, if it matches byte-for-byte, signs and submits any
// inputs this validator has not yet signed (§4.4 "Sign"). The governing
// config is resolved at the proposal's own TriggerHeight, not the caller's
// current height: a config activation (including a rollover's H_next) can
// fall between the two, and re-deriving against whatever is active now
// would rebuild a transaction with the wrong redeem script for an input
// still locked by the config that was active when the proposal was first
// built.
func (s *Service) contributeSignatures(pending PendingProposal, history *anchoring.ConfigHistory, store storage.Store, sub hostchain.Submitter) error {
	active, ok := history.ActiveAt(pending.TriggerHeight)
	if !ok {
		return ErrNoActiveConfig
	}

	following, err := LoadFollowingConfig(store)
	if err != nil {
		return err
	}

	prop, err := s.buildProposal(pending.TriggerHeight, pending.BlockHash, active, following, store)
	if err != nil {
		// Funding or tip state has moved on since the proposal was first
		// built; nothing to contribute until the next trigger.
		return nil
	}

	raw, err := btcprimitives.Serialize(prop.Tx)
	if err != nil {
		return err
	}
	txid := btcprimitives.TxID(prop.Tx)
	if txid != pending.TxID || !bytes.Equal(raw, pending.Raw) {
		return ErrChainMismatch
	}

	return s.signAndSubmit(prop, txid, raw, active, sub)
}

// proposeFresh builds a new proposal at a trigger height and submits this
// validator's signatures for it (§4.4 "Propose").
func (s *Service) proposeFresh(height uint64, blockHash [32]byte, active anchoring.AnchoringConfig, history *anchoring.ConfigHistory, store storage.Store, sub hostchain.Submitter) error {
	tip, err := LoadTip(store)
	if err != nil {
		return err
	}
	if tip != nil && s.TipChecker != nil {
		spendable, err := s.TipChecker.Spendable(tip.TxID)
		if err != nil {
			return err
		}
		if !spendable {
			return ErrTipNotSpendable
		}
	}

	following := followingConfig(history, active, height, s.SafetyMargin)

	prop, err := s.buildProposal(height, blockHash, active, following, store)
	if err != nil {
		if isInsufficientFunds(err) {
			log.Warnf("skipping anchoring trigger at height %d: insufficient funds", height)
			if s.OnInsufficientFunds != nil {
				s.OnInsufficientFunds(height)
			}
			return nil
		}
		return err
	}

	if following != nil {
		log.Infof("proposal at height %d redirects funds to following configuration", height)
		if s.OnRollover != nil {
			s.OnRollover(height)
		}
	}

	raw, err := btcprimitives.Serialize(prop.Tx)
	if err != nil {
		return err
	}
	txid := btcprimitives.TxID(prop.Tx)

	s.Metrics.ProposalBuilt()
	return s.signAndSubmit(prop, txid, raw, active, sub)
}

// buildProposal assembles the deterministic proposal request from
// persisted state and delegates to proposal.Build. following is whatever
// the caller has already resolved as the rollover target for this
// proposal's trigger height, if any; buildProposal does not re-derive it,
// so a caller re-deriving a pending proposal can pass back the following
// config that was actually persisted when the proposal was first built
// rather than recomputing it against config_history's current state.
func (s *Service) buildProposal(height uint64, blockHash [32]byte, active anchoring.AnchoringConfig, following *anchoring.AnchoringConfig, store storage.Store) (*proposal.Proposal, error) {
	tip, err := LoadTip(store)
	if err != nil {
		return nil, err
	}
	pool, err := LoadFundingPool(store)
	if err != nil {
		return nil, err
	}
	fundingUTXOList, err := fundingUTXOs(pool, active.Threshold())
	if err != nil {
		return nil, err
	}

	req := proposal.Request{
		Config:       active,
		FundingUTXOs: fundingUTXOList,
		Height:       height,
		BlockHash:    blockHash,
	}
	if tip != nil {
		anchored, err := LoadAnchoredTip(store, *tip)
		if err != nil {
			return nil, err
		}
		prevTx, err := btcprimitives.Deserialize(anchored.Raw)
		if err != nil {
			return nil, err
		}
		req.PreviousTip = &proposal.PreviousTip{TxID: tip.TxID, Value: prevTx.TxOut[0].Value}
	}
	req.FollowingConfig = following

	return proposal.Build(req)
}

// signAndSubmit signs every input this validator has not yet contributed
// and emits one SignInput transaction per freshly signed input. It writes
// nothing to the store; the pending-proposal record is stored by
// executeSignInput when the first SignInput for txid is executed.
func (s *Service) signAndSubmit(prop *proposal.Proposal, txid chainhash.Hash, raw []byte, active anchoring.AnchoringConfig, sub hostchain.Submitter) error {
	sigHashes, err := prop.SigHashes()
	if err != nil {
		return err
	}

	for i, hash := range sigHashes {
		if s.Aggregator.HasSigned(txid, i, s.ValidatorIndex) {
			continue
		}
		sig, err := s.SigningKey.Sign(hash)
		if err != nil {
			return err
		}
		if err := sub.Submit(hostchain.Tx{SignInput: &hostchain.SignInput{
			ValidatorIndex: s.ValidatorIndex,
			Proposal:       raw,
			InputIndex:     uint32(i),
			Signature:      sig,
			TargetHeight:   prop.TargetHeight,
		}}); err != nil {
			return fmt.Errorf("submitting SignInput for input %d: %w", i, err)
		}
	}
	return nil
}

func isInsufficientFunds(err error) bool {
	return errors.Is(err, proposal.ErrInsufficientFunds)
}

// observeFunding asks FundingWatcher for transactions currently paying the
// active anchoring address and submits an AddFunds transaction for every
// one this validator has not already attested to.
func (s *Service) observeFunding(active anchoring.AnchoringConfig, store storage.Store, sub hostchain.Submitter) error {
	addr, err := active.Address()
	if err != nil {
		return err
	}
	candidates, err := s.FundingWatcher.Observe(addr)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return nil
	}

	pool, err := LoadFundingPool(store)
	if err != nil {
		return err
	}
	attested := make(map[chainhash.Hash]bool, len(pool))
	for _, f := range pool {
		tx, err := btcprimitives.Deserialize(f.Raw)
		if err != nil {
			continue
		}
		for _, v := range f.AttestedBy {
			if v == s.ValidatorIndex {
				attested[btcprimitives.TxID(tx)] = true
				break
			}
		}
	}

	for _, raw := range candidates {
		tx, err := btcprimitives.Deserialize(raw)
		if err != nil {
			continue
		}
		if attested[btcprimitives.TxID(tx)] {
			continue
		}
		if err := sub.Submit(hostchain.Tx{AddFunds: &hostchain.AddFunds{
			ValidatorIndex: s.ValidatorIndex,
			RawTx:          raw,
		}}); err != nil {
			return fmt.Errorf("submitting AddFunds: %w", err)
		}
	}
	return nil
}
