package main

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ironpeg/btcanchor/anchoring"
	"github.com/ironpeg/btcanchor/api"
	"github.com/ironpeg/btcanchor/btcprimitives"
	"github.com/ironpeg/btcanchor/btcrpc"
	"github.com/ironpeg/btcanchor/internal/logconfig"
	"github.com/ironpeg/btcanchor/internal/metrics"
	"github.com/ironpeg/btcanchor/nodeconfig"
	"github.com/ironpeg/btcanchor/statemachine"
	"github.com/ironpeg/btcanchor/storage"
	"github.com/ironpeg/btcanchor/syncutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type runCmd struct {
	Args struct {
		NodeConfig string `positional-arg-name:"node-config" description:"path to a finalize output"`
	} `positional-args:"yes" required:"yes"`
}

func (c *runCmd) Execute([]string) error {
	cfg, err := nodeconfig.LoadNodeConfig(c.Args.NodeConfig)
	if err != nil {
		return ioErr(err)
	}

	level, ok := parseLogLevel(cfg.Logging.Level)
	if !ok {
		return invalidErr(fmt.Errorf("run: unknown log level %q", cfg.Logging.Level))
	}
	mainLog, closer, err := logconfig.Init(logconfig.Config{
		LogFile:  cfg.Logging.LogFile,
		MaxRolls: cfg.Logging.MaxRolls,
		Level:    level,
	})
	if err != nil {
		return ioErr(err)
	}
	defer closer.Close()
	log = mainLog

	store, err := storage.NewGoLevelDBStore("btcanchor", cfg.Storage.Dir)
	if err != nil {
		return ioErr(err)
	}

	if err := seedGenesisConfig(store, cfg); err != nil {
		return invalidErr(err)
	}

	signingKey, err := btcprimitives.DecodeWIF(cfg.BitcoinWIF)
	if err != nil {
		return invalidErr(err)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	svc := statemachine.NewService()
	svc.ValidatorIndex = cfg.ValidatorIndex
	svc.SigningKey = signingKey
	svc.SafetyMargin = cfg.SafetyMargin
	svc.Metrics = m
	hooks := m.ServiceHooks()
	svc.OnInsufficientFunds = hooks.OnInsufficientFunds
	svc.OnRollover = hooks.OnRollover

	var rpcClient *btcrpc.RPCClient
	if cfg.BitcoinRPC.Host != "" {
		rpcClient, err = btcrpc.Dial(btcrpc.Config{
			Host:       cfg.BitcoinRPC.Host,
			User:       cfg.BitcoinRPC.User,
			Pass:       cfg.BitcoinRPC.Pass,
			DisableTLS: cfg.BitcoinRPC.DisableTLS,
			Network:    cfg.Template.Network,
		})
		if err != nil {
			return ioErr(err)
		}
		defer rpcClient.Shutdown()

		svc.TipChecker = btcrpc.TipChecker{Client: rpcClient, MinConfirmations: statemachine.DefaultUTXOConfirmations}
		if cfg.BitcoinRPC.FundingWatcherEnabled {
			svc.FundingWatcher = &syncutil.BitcoinFundingWatcher{Client: rpcClient}
		}
	}

	if err := svc.Restore(store); err != nil {
		return invalidErr(err)
	}

	var height atomic.Uint64
	if tip, err := statemachine.LoadTip(store); err == nil && tip != nil {
		height.Store(tip.Sequence)
	}

	submitter := &localSubmitter{store: store, svc: svc}

	deps := &api.Deps{
		Store:          store,
		Aggregator:     svc.Aggregator,
		Submitter:      submitter,
		ValidatorIndex: cfg.ValidatorIndex,
		Height:         func() uint64 { return height.Load() },
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	servers := startHTTPServers(cfg, deps, reg)
	defer shutdownServers(servers)

	if cfg.Relay.Enabled && rpcClient != nil {
		relay := syncutil.NewRelay(syncutil.Config{
			PublicAPIBaseURL: cfg.Relay.PublicAPIBaseURL,
			PollInterval:     cfg.Relay.PollInterval.Duration(),
		}, rpcClient)
		go relay.Run(ctx)
	}

	if cfg.Standalone.Enabled {
		go runStandaloneDriver(ctx, cfg, svc, store, submitter, &height)
	}

	waitForShutdown()
	return nil
}

// seedGenesisConfig records the template's network/interval/fee and the
// collected public configs as the config activating at height 0, if
// config_history is still empty.
func seedGenesisConfig(store storage.Store, cfg nodeconfig.NodeConfig) error {
	history, err := statemachine.LoadConfigHistory(store)
	if err != nil {
		return err
	}
	if _, ok := history.ActiveAt(0); ok {
		return nil
	}

	pubkeys, identities, err := cfg.AnchoringKeys()
	if err != nil {
		return err
	}
	keys := make([]anchoring.ValidatorKey, len(pubkeys))
	for i := range pubkeys {
		keys[i] = anchoring.ValidatorKey{BitcoinKey: pubkeys[i], ServiceKey: identities[i]}
	}

	genesis := anchoring.AnchoringConfig{
		Network:           cfg.Template.Network,
		AnchoringKeys:     keys,
		AnchoringInterval: cfg.Template.AnchoringInterval,
		TransactionFee:    cfg.Template.TransactionFee,
	}

	return store.Batch(func(batch storage.WriteBatch) error {
		return statemachine.StoreConfig(batch, 0, genesis)
	})
}

func startHTTPServers(cfg nodeconfig.NodeConfig, deps *api.Deps, reg *prometheus.Registry) []*http.Server {
	var servers []*http.Server

	if cfg.PublicHTTP.ListenAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/", api.PublicRouter(deps))
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: cfg.PublicHTTP.ListenAddr, Handler: mux}
		servers = append(servers, srv)
		go srv.ListenAndServe()
	}
	if cfg.PrivateHTTP.ListenAddr != "" {
		srv := &http.Server{Addr: cfg.PrivateHTTP.ListenAddr, Handler: api.PrivateRouter(deps)}
		servers = append(servers, srv)
		go srv.ListenAndServe()
	}
	return servers
}

func shutdownServers(servers []*http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, srv := range servers {
		srv.Shutdown(ctx)
	}
}

// runStandaloneDriver substitutes for a real host-chain commit hook: it
// advances a local height counter on a fixed cadence and calls
// BeforeCommit, deriving each tick's block hash deterministically from the
// height so repeated runs against the same store are reproducible.
func runStandaloneDriver(ctx context.Context, cfg nodeconfig.NodeConfig, svc *statemachine.Service, store storage.Store, sub *localSubmitter, height *atomic.Uint64) {
	interval := cfg.Standalone.BlockInterval.Duration()
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			next := height.Add(1)
			sub.height = next
			blockHash := deriveBlockHash(next)
			if err := svc.BeforeCommit(next, blockHash, store, sub); err != nil {
				log.Errorf("standalone driver: before-commit at height %d: %v", next, err)
			}
		}
	}
}

func deriveBlockHash(height uint64) [32]byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], height)
	return sha256.Sum256(buf[:])
}

func waitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
}
