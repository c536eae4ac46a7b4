package btcrpc

import "github.com/btcsuite/btclog"

var log btclog.Logger = btclog.Disabled

// UseLogger sets the subsystem logger used by this package.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// DisableLog disables all library log output.
func DisableLog() {
	log = btclog.Disabled
}
