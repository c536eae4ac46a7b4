// Package syncutil is the external relay process of §4.6: once a quorum of
// validators has signed a proposal, the host chain's state machine has
// already assembled the final witnessed transaction (statemachine.ExecuteTx)
// and recorded it under anchored_txs. Nothing inside consensus ever talks to
// Bitcoin. Relay's only job is mechanical: poll the node's public HTTP API
// for anchored transactions it hasn't broadcast yet, and push them to a
// Bitcoin node over RPC. Modeled on Fantasim-hdpay's scanner.Scanner: a
// single-threaded polling goroutine, context-cancellable, with hand-rolled
// exponential backoff on failure.
package syncutil

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/ironpeg/btcanchor/btcprimitives"
	"github.com/ironpeg/btcanchor/btcrpc"
)

// Config controls Relay's polling cadence and backoff bounds.
type Config struct {
	// PublicAPIBaseURL is the node's public HTTP API, e.g. "http://127.0.0.1:8080".
	PublicAPIBaseURL string
	// PollInterval is how often Relay checks for newly finalized transactions.
	PollInterval time.Duration
	// PageSize bounds how many anchored transactions Relay requests per poll.
	PageSize uint64
	// MaxBackoff caps the exponential backoff delay after consecutive failures.
	MaxBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 15 * time.Second
	}
	if c.PageSize == 0 {
		c.PageSize = 50
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	return c
}

// Relay polls the node's public API for anchored transactions and
// broadcasts any the Bitcoin node does not already know about.
type Relay struct {
	cfg        Config
	httpClient *http.Client
	btc        btcrpc.Client

	nextSeq uint64
}

// NewRelay builds a Relay that broadcasts through btc and reads finalized
// transactions from the node's public HTTP API described by cfg.
func NewRelay(cfg Config, btc btcrpc.Client) *Relay {
	return &Relay{
		cfg:        cfg.withDefaults(),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		btc:        btc,
	}
}

type transactionPage []anchoredTxView

type anchoredTxView struct {
	Sequence uint64 `json:"sequence"`
	Height   uint64 `json:"height"`
	TxID     string `json:"txid"`
	RawHex   string `json:"raw_hex"`
}

// Run polls on cfg.PollInterval until ctx is cancelled, doubling the delay
// between attempts (capped at cfg.MaxBackoff) after each consecutive
// failure and resetting it on success.
func (r *Relay) Run(ctx context.Context) {
	backoff := time.Duration(0)
	for {
		if backoff > 0 {
			log.Warnf("relay backing off %s after failure", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
		}

		if err := r.pollOnce(ctx); err != nil {
			log.Errorf("relay poll failed: %v", err)
			if backoff == 0 {
				backoff = time.Second
			} else {
				backoff *= 2
			}
			if backoff > r.cfg.MaxBackoff {
				backoff = r.cfg.MaxBackoff
			}
			continue
		}
		backoff = 0

		select {
		case <-time.After(r.cfg.PollInterval):
		case <-ctx.Done():
			return
		}
	}
}

// pollOnce fetches one page of anchored transactions starting at r.nextSeq
// and broadcasts every one this node's Bitcoin RPC connection doesn't
// already know about.
func (r *Relay) pollOnce(ctx context.Context) error {
	page, err := r.fetchPage(ctx, r.nextSeq)
	if err != nil {
		return fmt.Errorf("fetch transaction page: %w", err)
	}
	if len(page) == 0 {
		return nil
	}

	for _, entry := range page {
		if err := r.broadcastIfUnseen(entry); err != nil {
			return fmt.Errorf("broadcast sequence %d: %w", entry.Sequence, err)
		}
		r.nextSeq = entry.Sequence + 1
	}
	return nil
}

func (r *Relay) broadcastIfUnseen(entry anchoredTxView) error {
	txid, err := chainhash.NewHashFromStr(entry.TxID)
	if err != nil {
		return fmt.Errorf("parse txid: %w", err)
	}
	if _, err := r.btc.GetTransaction(*txid); err == nil {
		// Already broadcast and known to the node; nothing to do.
		return nil
	}

	raw, err := hex.DecodeString(entry.RawHex)
	if err != nil {
		return fmt.Errorf("decode raw tx: %w", err)
	}
	msgTx, err := btcprimitives.Deserialize(raw)
	if err != nil {
		return fmt.Errorf("deserialize raw tx: %w", err)
	}

	sent, err := r.btc.SendRawTransaction(msgTx)
	if err != nil {
		return err
	}
	log.Infof("broadcast anchoring transaction sequence=%d txid=%s", entry.Sequence, sent)
	return nil
}

func (r *Relay) fetchPage(ctx context.Context, from uint64) (transactionPage, error) {
	url := fmt.Sprintf("%s/transactions?from=%d&count=%d", r.cfg.PublicAPIBaseURL, from, r.cfg.PageSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var page transactionPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return page, nil
}
