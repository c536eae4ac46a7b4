package main

import (
	"github.com/ironpeg/btcanchor/hostchain"
	"github.com/ironpeg/btcanchor/statemachine"
	"github.com/ironpeg/btcanchor/storage"
)

// localSubmitter applies a submitted transaction immediately against the
// local store, standing in for the host consensus mempool this service
// normally submits into (§1 treats the host chain as an external
// collaborator). It exists so `run` is usable standalone, against a single
// validator's own store, without a real BFT network behind it.
type localSubmitter struct {
	height uint64
	store  storage.Store
	svc    *statemachine.Service
}

func (s *localSubmitter) Submit(tx hostchain.Tx) error {
	return s.store.Batch(func(batch storage.WriteBatch) error {
		return s.svc.ExecuteTx(s.height, s.store, batch, tx)
	})
}
