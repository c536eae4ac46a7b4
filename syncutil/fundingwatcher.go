package syncutil

import "github.com/ironpeg/btcanchor/btcrpc"

// BitcoinFundingWatcher adapts a btcrpc.Client to
// statemachine.FundingWatcher, for the single validator process configured
// as the AddFunds advisory validator (§4.6, §5). It imports the anchoring
// address into the node's wallet once and thereafter reports whatever the
// wallet currently sees funding it.
type BitcoinFundingWatcher struct {
	Client btcrpc.Client

	imported map[string]bool
}

// Observe returns the raw transactions currently funding address, importing
// the address into the node's wallet on first sight.
func (w *BitcoinFundingWatcher) Observe(address string) ([][]byte, error) {
	if w.imported == nil {
		w.imported = make(map[string]bool)
	}
	if !w.imported[address] {
		if err := w.Client.ImportAddress(address); err != nil {
			return nil, err
		}
		w.imported[address] = true
	}
	return w.Client.ListUnspentAddress(address)
}
