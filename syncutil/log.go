package syncutil

import "github.com/btcsuite/btclog"

var log btclog.Logger = btclog.Disabled

// UseLogger sets the package-wide logger used by Relay.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// DisableLog turns off all library log output.
func DisableLog() {
	log = btclog.Disabled
}
