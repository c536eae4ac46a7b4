package statemachine

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/ironpeg/btcanchor/anchoring"
	"github.com/ironpeg/btcanchor/btcprimitives"
	"github.com/ironpeg/btcanchor/internal/metrics"
	"github.com/ironpeg/btcanchor/sigstore"
	"github.com/ironpeg/btcanchor/storage"
)

// DefaultSafetyMargin is the default number of blocks before a config's
// activation height at which rollover proposals begin targeting the
// following address (§9 open question: one hour of Bitcoin blocks).
const DefaultSafetyMargin = 6

// DefaultAbandonIntervals is how many additional trigger intervals an
// unfinalized proposal is given before the next trigger rebuilds it from
// scratch (§4.4).
const DefaultAbandonIntervals = 1

// DefaultUTXOConfirmations is the number of Bitcoin confirmations the
// recorded tip must keep to count as spendable; cmd/btcanchor passes it to
// btcrpc.TipChecker as MinConfirmations. AddFunds attestations are not held
// to it: the funding watcher reports outputs with one confirmation or more,
// and executeAddFunds checks no confirmation count.
const DefaultUTXOConfirmations = 6

// TipSpendabilityChecker reports whether the current tip UTXO is still
// spendable, i.e. has not been reorged away below the configured
// confirmation count. It is consulted only by the Propose path; the
// deterministic core never performs the check itself (§4.4, §5).
type TipSpendabilityChecker interface {
	Spendable(txid chainhash.Hash) (bool, error)
}

// Service is the anchoring service instance attached to one host-chain
// validator. Three of its exported methods are the typed hooks the host
// consensus calls at well-defined points in block processing, replacing
// the trait-object polymorphism of the original source (§9 DESIGN NOTES):
// BeforeCommit decides and submits this validator's contribution,
// ExecuteTx applies a committed SignInput/AddFunds transaction, and
// AfterCommit is a no-op hook kept for symmetry with the host consensus
// lifecycle (no anchoring state depends on post-commit notification).
type Service struct {
	ValidatorIndex uint16
	SigningKey     btcprimitives.PrivateKey
	SafetyMargin   uint64

	TipChecker      TipSpendabilityChecker
	FundingWatcher  FundingWatcher
	Aggregator      *sigstore.Aggregator
	Metrics         *metrics.Metrics

	OnInsufficientFunds func(height uint64)
	OnRollover          func(height uint64)
}

// FundingWatcher observes the Bitcoin network for transactions paying the
// current anchoring address. It is consulted only by the validator acting
// as the AddFunds advisory validator (§4.6, §5) — the one allowed to
// perform Bitcoin RPC from inside BeforeCommit. Its output is an
// attestation, not a consensus decision: a missed or duplicate observation
// cannot corrupt state, since executeAddFunds only takes effect once
// ⌊2N/3⌋+1 validators submit matching attestations (§4.5).
type FundingWatcher interface {
	Observe(address string) ([][]byte, error)
}

// NewService constructs a Service with the package default for
// SafetyMargin and a fresh Aggregator; ValidatorIndex, SigningKey and
// TipChecker still need to be set by the caller.
func NewService() *Service {
	return &Service{
		SafetyMargin: DefaultSafetyMargin,
		Aggregator:   sigstore.NewAggregator(),
	}
}

// AfterCommit is the post-commit hook. It does nothing and always returns
// nil: no anchoring state depends on post-commit notification.
func (s *Service) AfterCommit(height uint64, store storage.Store) error {
	return nil
}

// LoadConfigHistory rebuilds the full config_history from the store.
// Exported for the read-only HTTP API, which needs the active config and
// address without going through a Service.
func LoadConfigHistory(store storage.Store) (*anchoring.ConfigHistory, error) {
	var history anchoring.ConfigHistory
	err := store.Iterate(storage.ConfigHistoryPrefix(), func(key, value []byte) bool {
		height := binary.BigEndian.Uint64(key[len(storage.ConfigHistoryPrefix()):])
		cfg, decodeErr := anchoring.DecodeAnchoringConfig(value)
		if decodeErr != nil {
			return false
		}
		history.Append(height, cfg)
		return true
	})
	if err != nil {
		return nil, err
	}
	return &history, nil
}

// StoreConfig records cfg as the configuration activating at
// activationHeight. Callers must respect ConfigHistory.Append's
// strictly increasing height ordering requirement; used both by the genesis
// bootstrap path and by host consensus applying an accepted config-change
// proposal (§3 "Lifecycle").
func StoreConfig(batch storage.WriteBatch, activationHeight uint64, cfg anchoring.AnchoringConfig) error {
	encoded, err := cfg.Encode()
	if err != nil {
		return err
	}
	batch.Set(storage.ConfigHistoryKey(activationHeight), encoded)
	return nil
}

// LoadTip returns the current chain tip, or nil before the first anchor.
func LoadTip(store storage.Store) (*anchoring.ChainTip, error) {
	raw, err := store.Get(storage.TipKey())
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	var tip anchoring.ChainTip
	tip.Sequence = binary.LittleEndian.Uint64(raw[:8])
	copy(tip.TxID[:], raw[8:40])
	return &tip, nil
}

func StoreTip(batch storage.WriteBatch, tip anchoring.ChainTip) {
	buf := make([]byte, 40)
	binary.LittleEndian.PutUint64(buf[:8], tip.Sequence)
	copy(buf[8:40], tip.TxID[:])
	batch.Set(storage.TipKey(), buf)
}

// LoadFundingPool returns the confirmed, not-yet-consumed funding pool.
func LoadFundingPool(store storage.Store) ([]anchoring.FundingTx, error) {
	raw, err := store.Get(storage.FundingPoolKey())
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return anchoring.DecodeFundingList(raw)
}

func StoreFundingPool(batch storage.WriteBatch, pool []anchoring.FundingTx) error {
	encoded, err := anchoring.EncodeFundingList(pool)
	if err != nil {
		return err
	}
	batch.Set(storage.FundingPoolKey(), encoded)
	return nil
}

// LoadAnchoredTip fetches the finalized anchored_txs entry tip points at.
func LoadAnchoredTip(store storage.Store, tip anchoring.ChainTip) (anchoring.AnchoredTx, error) {
	raw, err := store.Get(storage.AnchoredTxKey(tip.Sequence))
	if err != nil {
		return anchoring.AnchoredTx{}, err
	}
	return anchoring.DecodeAnchoredTx(raw)
}
