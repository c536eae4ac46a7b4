// Package api exposes the two HTTP surfaces of §6: a public read-only API
// for block explorers and monitoring, and a private API the sync utility
// calls to fetch the pending proposal and submit this node's signatures
// and funding attestations. Routing follows the chi.Router + handler
// package layout of Fantasim-hdpay's internal/api and internal/poller/api.
package api

import (
	"github.com/ironpeg/btcanchor/hostchain"
	"github.com/ironpeg/btcanchor/sigstore"
	"github.com/ironpeg/btcanchor/storage"
)

// Deps holds everything the handlers need: read access to the persisted
// store, the in-memory quorum aggregator for duplicate checks, a submit
// handle for this node's own contributions, the node's own validator
// index, and a way to ask the host chain its current height (config
// lookups are height-scoped, §4.5).
type Deps struct {
	Store          storage.Store
	Aggregator     *sigstore.Aggregator
	Submitter      hostchain.Submitter
	ValidatorIndex uint16
	Height         func() uint64
}
