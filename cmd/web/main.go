// cmd/web/main.go
//
// Barkhaus publish service – HTTP entry point.
//
// Start-up sequence
// -----------------
//
//  1. Load configuration (conf/.env → conf/global.yaml → BARKHAUS_ env).
//
//  2. Start daily rotating logger (tees to console when running in a TTY).
//
//  3. Resolve the server-held backend token: static from config, or a
//     KV-v2 secret read through Vault when backend.vault_path is set.
//
//  4. Build the gateway and everything that talks through it: draft
//     store, snapshot ledger, live-site reader, domain resolver, AI
//     generator, and the analytics sink.
//
//  5. Open the publish journal when journal.dsn is set.
//
//  6. Wire the coordinator and the chi router, then serve until SIGINT or
//     SIGTERM.  In-flight requests get a grace period; the analytics queue
//     is drained last.
//
// Large comment blocks are framed by blank "//" lines; inline comments use
// a single "//".
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Rigby35X/barkhaus-dash-sub003/internal/ai"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/analytics"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/api"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/config"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/database"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/domain"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/draft"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/gateway"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/journal"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/ledger"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/livesite"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/logger"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/publish"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/requestinfo"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/server"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/snapshot"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/vault"
)

const (
	vaultSecretTTL = 5 * time.Minute
	drainTimeout   = 10 * time.Second
)

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logOut, err := logger.New(cfg.Paths.Root, cfg.Log.Level, runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}
	defer func() { _ = logOut.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logOut); err != nil {
		logOut.Errorw("service stopped", "err", err)
		_ = logOut.Sync()
		os.Exit(1)
	}
	logOut.Info("service stopped")
}

func run(ctx context.Context, cfg *config.Config, logOut *zap.SugaredLogger) error {
	//
	// ── 1.  Backend gateway ─────────────────────────────────────────────
	//
	gwOpts := []gateway.Option{gateway.WithLogger(logOut)}
	if cfg.Backend.VaultPath != "" {
		vc, err := vault.New(ctx, vault.Options{Renew: true}, logOut)
		if err != nil {
			return err
		}
		gwOpts = append(gwOpts, gateway.WithTokenSource(gateway.VaultToken{
			Secrets: vc,
			Path:    cfg.Backend.VaultPath,
			Key:     cfg.Backend.VaultKey,
			TTL:     vaultSecretTTL,
		}))
		logOut.Infow("backend token from vault", "path", cfg.Backend.VaultPath)
	}
	gw, err := gateway.New(cfg.Backend, gwOpts...)
	if err != nil {
		return err
	}

	//
	// ── 2.  Optional enrichment and journal ─────────────────────────────
	//
	if cfg.Geo.DBPath != "" {
		if err := requestinfo.InitGeo(cfg.Geo.DBPath); err != nil {
			logOut.Warnw("geo database unavailable", "path", cfg.Geo.DBPath, "err", err)
		} else {
			defer requestinfo.CloseGeo()
		}
	}

	var rec journal.Recorder = journal.Nop{}
	if cfg.Journal.DSN != "" {
		db, err := database.Open(ctx, cfg.Journal.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		j := journal.New(db)
		if err := j.EnsureSchema(ctx); err != nil {
			return err
		}
		rec = j
		logOut.Info("publish journal online")
	}

	var events analytics.Emitter = analytics.Discard{}
	if cfg.Analytics.Enabled {
		sink := analytics.New(gw, cfg.Analytics.QueueSize, logOut)
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
			defer cancel()
			if err := sink.Close(dctx); err != nil {
				logOut.Warnw("analytics drain incomplete", "err", err)
			}
		}()
		events = sink
	}

	//
	// ── 3.  Stores, caches, and the coordinator ─────────────────────────
	//
	drafts := draft.New(gw)
	led := ledger.New(gw)
	live := livesite.New(led, livesite.Options{
		IdleTTL:       cfg.Cache.LiveIdleTTL,
		MaxEntries:    cfg.Cache.LiveMaxEntries,
		EvictInterval: cfg.Cache.EvictInterval,
		MaxAge:        cfg.Cache.LiveMaxAge,
	}, logOut)
	defer live.Close()
	domains := domain.New(gw, cfg.Cache.DomainCapacity, cfg.Cache.DomainTTL)

	coord := publish.New(publish.Deps{
		Drafts:       drafts,
		Ledger:       led,
		Builder:      snapshot.NewBuilder(snapshot.SystemClock, &snapshot.Monotonic{}),
		Invalidators: []publish.Invalidator{live, domains},
		Events:       events,
		Journal:      rec,
		Log:          logOut,
	}, publish.Options{
		ReadRetries:  cfg.Publish.ReadRetries,
		RetryBackoff: cfg.Publish.RetryBackoff,
	})

	//
	// ── 4.  HTTP surface ────────────────────────────────────────────────
	//
	router := api.NewRouter(api.Deps{
		Publisher: coord,
		Live:      live,
		History:   led,
		AI:        ai.New(gw, events),
		Drafts:    drafts,
		Domains:   domains,
		Journal:   rec,
	}, api.Options{ForceHTTPS: cfg.HTTP.ForceHTTPS})

	srv := server.New(cfg.HTTP.ListenAddr, router, cfg.Backend.Timeout)
	return server.Run(ctx, srv, logOut)
}
