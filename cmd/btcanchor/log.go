package main

import "github.com/btcsuite/btclog"

var log btclog.Logger = btclog.Disabled

func parseLogLevel(s string) (btclog.Level, bool) {
	if s == "" {
		return btclog.LevelInfo, true
	}
	level, ok := btclog.LevelFromString(s)
	return level, ok
}
