package api

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/ironpeg/btcanchor/anchoring"
	"github.com/ironpeg/btcanchor/btcprimitives"
	"github.com/ironpeg/btcanchor/hostchain"
	"github.com/ironpeg/btcanchor/sigstore"
	"github.com/ironpeg/btcanchor/statemachine"
	"github.com/ironpeg/btcanchor/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) btcprimitives.PrivateKey {
	t.Helper()
	ecPriv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	wif, err := btcutil.NewWIF(ecPriv, &chaincfg.TestNet3Params, true)
	require.NoError(t, err)
	priv, err := btcprimitives.DecodeWIF(wif.String())
	require.NoError(t, err)
	return priv
}

func seedConfig(t *testing.T, store storage.Store, cfg anchoring.AnchoringConfig) {
	t.Helper()
	encoded, err := cfg.Encode()
	require.NoError(t, err)
	require.NoError(t, store.Set(storage.ConfigHistoryKey(0), encoded))
}

type nullSubmitter struct{ txs []hostchain.Tx }

func (n *nullSubmitter) Submit(tx hostchain.Tx) error {
	n.txs = append(n.txs, tx)
	return nil
}

func testConfig(t *testing.T) (anchoring.AnchoringConfig, []btcprimitives.PrivateKey) {
	t.Helper()
	privs := make([]btcprimitives.PrivateKey, 4)
	keys := make([]anchoring.ValidatorKey, 4)
	for i := range keys {
		privs[i] = newKey(t)
		keys[i] = anchoring.ValidatorKey{BitcoinKey: privs[i].PubKey(), ServiceKey: [32]byte{byte(i)}}
	}
	return anchoring.AnchoringConfig{
		Network:           btcprimitives.NetworkTestnet,
		AnchoringKeys:     keys,
		AnchoringInterval: 1000,
		TransactionFee:    10,
	}, privs
}

func TestConfigEndpoint(t *testing.T) {
	store := storage.NewMemStore()
	cfg, _ := testConfig(t)
	seedConfig(t, store, cfg)

	d := &Deps{Store: store, Aggregator: sigstore.NewAggregator(), Submitter: &nullSubmitter{}, Height: func() uint64 { return 0 }}
	req := httptest.NewRequest(http.MethodGet, "/config", nil)
	rec := httptest.NewRecorder()
	PublicRouter(d).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp configResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Threshold)
	assert.Len(t, resp.Keys, 4)
}

func TestAddressActualEndpoint(t *testing.T) {
	store := storage.NewMemStore()
	cfg, _ := testConfig(t)
	seedConfig(t, store, cfg)
	wantAddr, err := cfg.Address()
	require.NoError(t, err)

	d := &Deps{Store: store, Aggregator: sigstore.NewAggregator(), Submitter: &nullSubmitter{}, Height: func() uint64 { return 0 }}
	req := httptest.NewRequest(http.MethodGet, "/address/actual", nil)
	rec := httptest.NewRecorder()
	PublicRouter(d).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, wantAddr, resp["address"])
}

func TestTransactionsEndpointPagesFinalized(t *testing.T) {
	store := storage.NewMemStore()
	cfg, _ := testConfig(t)
	seedConfig(t, store, cfg)

	raw, err := btcprimitives.Serialize(wire.NewMsgTx(2))
	require.NoError(t, err)
	entry := anchoring.AnchoredTx{Sequence: 0, Height: 1000, TxID: chainhash.Hash{0x01}, Raw: raw}
	require.NoError(t, store.Set(storage.AnchoredTxKey(0), entry.Encode()))

	d := &Deps{Store: store, Aggregator: sigstore.NewAggregator(), Submitter: &nullSubmitter{}, Height: func() uint64 { return 0 }}
	req := httptest.NewRequest(http.MethodGet, "/transactions?from=0&count=10", nil)
	rec := httptest.NewRecorder()
	PublicRouter(d).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []anchoredTxView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, uint64(1000), resp[0].Height)
}

func TestProposalEndpointNullWhenNonePending(t *testing.T) {
	store := storage.NewMemStore()
	d := &Deps{Store: store, Aggregator: sigstore.NewAggregator(), Submitter: &nullSubmitter{}, Height: func() uint64 { return 0 }}
	req := httptest.NewRequest(http.MethodGet, "/proposal", nil)
	rec := httptest.NewRecorder()
	PrivateRouter(d).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null\n", rec.Body.String())
}

func TestSignInputRejectsDuplicateWithConflict(t *testing.T) {
	store := storage.NewMemStore()
	cfg, validatorKeys := testConfig(t)
	seedConfig(t, store, cfg)

	fundingScript, err := cfg.RedeemScript()
	require.NoError(t, err)
	pkScript, err := btcprimitives.P2WSHScriptPubKey(fundingScript, cfg.Network)
	require.NoError(t, err)
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{0xAA}, 0), nil, nil))
	tx.AddTxOut(wire.NewTxOut(100_000_000, pkScript))
	raw, err := btcprimitives.Serialize(tx)
	require.NoError(t, err)
	txid := btcprimitives.TxID(tx)

	require.NoError(t, store.Batch(func(b storage.WriteBatch) error {
		statemachine.StorePendingProposal(b, statemachine.PendingProposal{
			TriggerHeight: 0,
			TxID:          txid,
			Raw:           raw,
		})
		return nil
	}))

	agg := sigstore.NewAggregator()
	hash, err := btcprimitives.WitnessSigHash(tx, 0, fundingScript, 100_000_000)
	require.NoError(t, err)
	key := validatorKeys[0]
	require.NoError(t, func() error {
		// seed the aggregator as if this validator already signed input 0
		sig, err := key.Sign(hash)
		if err != nil {
			return err
		}
		return agg.Insert(txid, sigstore.ProposalContext{
			SigHashes:    [][]byte{hash},
			RedeemScript: fundingScript,
			Threshold:    cfg.Threshold(),
			Pubkeys:      cfg.BitcoinPubKeys(),
			TargetHeight: 0,
		}, cfg.BitcoinPubKeys(), 0, 0, sig)
	}())

	d := &Deps{Store: store, Aggregator: agg, Submitter: &nullSubmitter{}, ValidatorIndex: 0, Height: func() uint64 { return 0 }}
	body, _ := json.Marshal(signInputRequest{InputIndex: 0, SignatureHex: hex.EncodeToString([]byte{0x01})})
	req := httptest.NewRequest(http.MethodPost, "/sign-input", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	PrivateRouter(d).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}
