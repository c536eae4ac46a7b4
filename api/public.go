package api

import (
	"encoding/hex"
	"net/http"
	"strconv"

	"github.com/ironpeg/btcanchor/anchoring"
	"github.com/ironpeg/btcanchor/statemachine"
	"github.com/ironpeg/btcanchor/storage"
)

// configResponse is the JSON shape of GET /config: the active configuration
// with keys hex-encoded for transport.
type configResponse struct {
	Network           string             `json:"network"`
	AnchoringInterval uint64             `json:"anchoring_interval"`
	TransactionFee    int64              `json:"transaction_fee"`
	Threshold         int                `json:"threshold"`
	Keys              []validatorKeyView `json:"keys"`
}

type validatorKeyView struct {
	BitcoinKey string `json:"bitcoin_key"`
	ServiceKey string `json:"service_key"`
}

// AddressActual handles GET /address/actual: the current anchoring
// address string.
func (d *Deps) AddressActual(w http.ResponseWriter, r *http.Request) {
	history, err := statemachine.LoadConfigHistory(d.Store)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	active, ok := history.ActiveAt(d.Height())
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	addr, err := active.Address()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"address": addr})
}

// AddressFollowing handles GET /address/following: the address of the next
// configuration scheduled in config_history after the current height, or
// null when none is scheduled. It applies no rollover safety margin and does
// not compare key sets, so a scheduled config is reported however far off
// its activation is.
func (d *Deps) AddressFollowing(w http.ResponseWriter, r *http.Request) {
	history, err := statemachine.LoadConfigHistory(d.Store)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	following, _, ok := history.Following(d.Height())
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	addr, err := following.Address()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"address": addr})
}

// Config handles GET /config: the active configuration.
func (d *Deps) Config(w http.ResponseWriter, r *http.Request) {
	history, err := statemachine.LoadConfigHistory(d.Store)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	active, ok := history.ActiveAt(d.Height())
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	keys := make([]validatorKeyView, len(active.AnchoringKeys))
	for i, k := range active.AnchoringKeys {
		keys[i] = validatorKeyView{
			BitcoinKey: hex.EncodeToString(k.BitcoinKey[:]),
			ServiceKey: hex.EncodeToString(k.ServiceKey[:]),
		}
	}
	writeJSON(w, http.StatusOK, configResponse{
		Network:           string(active.Network),
		AnchoringInterval: active.AnchoringInterval,
		TransactionFee:    active.TransactionFee,
		Threshold:         active.Threshold(),
		Keys:              keys,
	})
}

type anchoredTxView struct {
	Sequence uint64 `json:"sequence"`
	Height   uint64 `json:"height"`
	TxID     string `json:"txid"`
	RawHex   string `json:"raw_hex"`
}

// Transactions handles GET /transactions?from=&count=: a page of finalized
// anchoring transactions in sequence order.
func (d *Deps) Transactions(w http.ResponseWriter, r *http.Request) {
	from, err := parseUintParam(r, "from", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from")
		return
	}
	count, err := parseUintParam(r, "count", 20)
	if err != nil || count == 0 || count > 500 {
		writeError(w, http.StatusBadRequest, "invalid count")
		return
	}

	var out []anchoredTxView
	for seq := from; uint64(len(out)) < count; seq++ {
		raw, err := d.Store.Get(storage.AnchoredTxKey(seq))
		if err != nil {
			break
		}
		tx, decodeErr := anchoring.DecodeAnchoredTx(raw)
		if decodeErr != nil {
			writeError(w, http.StatusInternalServerError, decodeErr.Error())
			return
		}
		out = append(out, anchoredTxView{
			Sequence: tx.Sequence,
			Height:   tx.Height,
			TxID:     tx.TxID.String(),
			RawHex:   hex.EncodeToString(tx.Raw),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func parseUintParam(r *http.Request, name string, def uint64) (uint64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}
