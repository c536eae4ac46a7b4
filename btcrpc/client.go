package btcrpc

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"
	"github.com/ironpeg/btcanchor/btcprimitives"
)

// Client is the Bitcoin RPC surface the sync utility and the AddFunds
// advisory validator need (§4.6): fetch a transaction, broadcast one, check
// its confirmation depth, and watch a wallet-imported address for incoming
// payments. Mirrors the trio mainstay's AttestClient drives through
// rpcclient.Client (GetRawTransaction / SendRawTransaction / GetTransaction
// for confirmations, ImportAddress + ListUnspent for funding discovery),
// narrowed to an interface so the state machine and HTTP layer never import
// rpcclient directly.
type Client interface {
	GetTransaction(txid chainhash.Hash) (*wire.MsgTx, error)
	SendRawTransaction(tx *wire.MsgTx) (chainhash.Hash, error)
	GetTxConfirmations(txid chainhash.Hash) (int64, error)
	ImportAddress(address string) error
	ListUnspentAddress(address string) ([][]byte, error)
}

// RPCClient is the production Client backed by a real bitcoind/btcd node
// over JSON-RPC.
type RPCClient struct {
	conn   *rpcclient.Client
	params *chaincfg.Params
}

// Config holds the JSON-RPC connection parameters for a Bitcoin node.
type Config struct {
	Host         string
	User         string
	Pass         string
	DisableTLS   bool
	HTTPPostMode bool
	Network      btcprimitives.Network
}

// Dial opens an RPC connection to a Bitcoin node. HTTP POST mode is always
// used (cfg.HTTPPostMode is not consulted) since consensus nodes rarely
// expose full notification websockets; DisableTLS is taken from cfg.
// Callers needing push notifications should construct rpcclient.Client
// directly and wrap it.
func Dial(cfg Config) (*RPCClient, error) {
	params, err := cfg.Network.Params()
	if err != nil {
		return nil, err
	}
	connCfg := &rpcclient.ConnConfig{
		Host:         cfg.Host,
		User:         cfg.User,
		Pass:         cfg.Pass,
		HTTPPostMode: true,
		DisableTLS:   cfg.DisableTLS,
	}
	conn, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	log.Infof("connected to bitcoin node at %s", cfg.Host)
	return &RPCClient{conn: conn, params: params}, nil
}

// Shutdown closes the underlying RPC connection.
func (c *RPCClient) Shutdown() {
	c.conn.Shutdown()
}

// GetTransaction fetches a raw transaction by txid.
func (c *RPCClient) GetTransaction(txid chainhash.Hash) (*wire.MsgTx, error) {
	tx, err := c.conn.GetRawTransaction(&txid)
	if err != nil {
		return nil, fmt.Errorf("%w: get transaction %s: %v", ErrUnavailable, txid, err)
	}
	return tx.MsgTx(), nil
}

// SendRawTransaction broadcasts a fully-witnessed transaction.
func (c *RPCClient) SendRawTransaction(tx *wire.MsgTx) (chainhash.Hash, error) {
	hash, err := c.conn.SendRawTransaction(tx, false)
	if err != nil {
		return chainhash.Hash{}, fmt.Errorf("%w: send raw transaction: %v", ErrUnavailable, err)
	}
	return *hash, nil
}

// GetTxConfirmations reports the confirmation count of txid, or 0 if it is
// unconfirmed or unknown to the node's wallet.
func (c *RPCClient) GetTxConfirmations(txid chainhash.Hash) (int64, error) {
	result, err := c.conn.GetTransaction(&txid)
	if err != nil {
		return 0, fmt.Errorf("%w: get confirmations for %s: %v", ErrUnavailable, txid, err)
	}
	return result.Confirmations, nil
}

// ImportAddress registers address with the node's wallet as watch-only, so
// ListUnspentAddress can subsequently see payments to it. Idempotent: safe
// to call on every startup.
func (c *RPCClient) ImportAddress(address string) error {
	if err := c.conn.ImportAddress(address); err != nil {
		return fmt.Errorf("%w: import address %s: %v", ErrUnavailable, address, err)
	}
	return nil
}

// ListUnspentAddress returns the raw transactions currently funding address,
// as seen by the node's wallet (§4.6 "AddFunds advisory validator").
func (c *RPCClient) ListUnspentAddress(address string) ([][]byte, error) {
	addr, err := btcutil.DecodeAddress(address, c.params)
	if err != nil {
		return nil, fmt.Errorf("decode address: %w", err)
	}
	unspent, err := c.conn.ListUnspentMinMaxAddresses(1, 9999999, []btcutil.Address{addr})
	if err != nil {
		return nil, fmt.Errorf("%w: list unspent for %s: %v", ErrUnavailable, address, err)
	}

	raw := make([][]byte, 0, len(unspent))
	for _, u := range unspent {
		txid, err := chainhash.NewHashFromStr(u.TxID)
		if err != nil {
			continue
		}
		tx, err := c.GetTransaction(*txid)
		if err != nil {
			continue
		}
		rawTx, err := btcprimitives.Serialize(tx)
		if err != nil {
			continue
		}
		raw = append(raw, rawTx)
	}
	return raw, nil
}
