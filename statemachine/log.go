package statemachine

import "github.com/btcsuite/btclog"

// log is the package-level subsystem logger. Disabled by default; the
// hosting process installs a real backend with UseLogger.
var log btclog.Logger = btclog.Disabled

// UseLogger sets the subsystem logger used by this package.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// DisableLog disables all library log output.
func DisableLog() {
	log = btclog.Disabled
}
