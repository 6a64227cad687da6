package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"goldrush.bot/internal/client"
	"goldrush.bot/internal/config"
	"goldrush.bot/internal/journal"
	"goldrush.bot/internal/mine"
	"goldrush.bot/internal/statsdb"
	"goldrush.bot/internal/statusd"
)

func main() {
	var (
		configPath     = flag.String("config", "", "path to miner.yaml (optional; env vars still override)")
		dataDir        = flag.String("data", "", "runtime data directory override")
		statusAddr     = flag.String("status", "", "loopback status listen address, e.g. 127.0.0.1:8090 (empty to disable)")
		disableDB      = flag.Bool("disable_db", false, "disable the sqlite run-stats index")
		disableJournal = flag.Bool("disable_journal", false, "disable the compressed run journal")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[miner] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *statusAddr != "" {
		cfg.StatusAddr = *statusAddr
	}
	if *disableDB {
		cfg.DisableDB = true
	}
	if *disableJournal {
		cfg.DisableJournal = true
	}

	os.Exit(run(cfg, logger))
}

func run(cfg config.Config, logger *log.Logger) int {
	start := time.Now()
	api := client.New(cfg.BaseURL(), logger, client.Options{
		RetryBudget:  cfg.RetryBudget,
		Backoff:      time.Duration(cfg.BackoffMs) * time.Millisecond,
		HealthProbes: cfg.HealthProbes,
	})
	// The exit report runs on every path out of here, error or not.
	defer func() {
		logger.Printf("worked for %s and made %d requests", time.Since(start).Round(time.Millisecond), api.Requests())
	}()

	var recorders []mine.Recorder
	if !cfg.DisableJournal {
		j, err := journal.Open(filepath.Join(cfg.DataDir, "journal"))
		if err != nil {
			logger.Printf("journal disabled: %v", err)
		} else {
			defer func() {
				if err := j.Close(); err != nil {
					logger.Printf("close journal: %v", err)
				}
			}()
			recorders = append(recorders, j)
		}
	}

	var db *statsdb.DB
	if !cfg.DisableDB {
		d, err := statsdb.Open(filepath.Join(cfg.DataDir, "stats.db"))
		if err != nil {
			logger.Printf("stats index disabled: %v", err)
		} else {
			db = d
			recorders = append(recorders, d)
		}
	}

	pool := mine.New(cfg, api, mine.MultiRecorder(recorders...), api.Requests, logger)
	if db != nil {
		defer func() {
			snap := pool.Snapshot()
			if err := db.CloseWithSummary(snap.Requests, snap.Explored, snap.Finds, snap.Banked, snap.Coins); err != nil {
				logger.Printf("close stats index: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	status := statusd.New(cfg.StatusAddr, pool.Snapshot, logger)
	go func() {
		if err := status.Run(ctx); err != nil {
			logger.Printf("status server: %v", err)
		}
	}()

	logger.Printf("mining %dx%d cells at offset (%d,%d) with %d diggers against %s",
		cfg.Region.Width, cfg.Region.Height, cfg.Region.OffsetX, cfg.Region.OffsetY, cfg.Diggers, cfg.BaseURL())

	if err := pool.Run(ctx); err != nil {
		logger.Printf("pipeline: %v", err)
		return 1
	}
	snap := pool.Snapshot()
	logger.Printf("done: explored %d cells, banked %d treasures, earned %d coins",
		snap.Explored, snap.Banked, snap.Coins)
	return 0
}
