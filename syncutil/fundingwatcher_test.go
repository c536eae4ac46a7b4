package syncutil

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWalletClient struct {
	imported []string
	unspent  [][]byte
}

func (f *fakeWalletClient) GetTransaction(chainhash.Hash) (*wire.MsgTx, error) { return nil, nil }
func (f *fakeWalletClient) SendRawTransaction(*wire.MsgTx) (chainhash.Hash, error) {
	return chainhash.Hash{}, nil
}
func (f *fakeWalletClient) GetTxConfirmations(chainhash.Hash) (int64, error) { return 0, nil }
func (f *fakeWalletClient) ImportAddress(address string) error {
	f.imported = append(f.imported, address)
	return nil
}
func (f *fakeWalletClient) ListUnspentAddress(string) ([][]byte, error) { return f.unspent, nil }

func TestFundingWatcherImportsAddressOnce(t *testing.T) {
	btc := &fakeWalletClient{unspent: [][]byte{{0x01}}}
	watcher := &BitcoinFundingWatcher{Client: btc}

	_, err := watcher.Observe("bc1qexample")
	require.NoError(t, err)
	_, err = watcher.Observe("bc1qexample")
	require.NoError(t, err)

	assert.Equal(t, []string{"bc1qexample"}, btc.imported)
}

func TestFundingWatcherReturnsUnspentRawTxs(t *testing.T) {
	btc := &fakeWalletClient{unspent: [][]byte{{0x01, 0x02}}}
	watcher := &BitcoinFundingWatcher{Client: btc}

	raw, err := watcher.Observe("bc1qexample")
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{0x01, 0x02}}, raw)
}
