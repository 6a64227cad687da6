// Package statsdb indexes a run's telemetry into sqlite for post-run
// analysis. Events go through a buffered channel to a single writer
// goroutine so the pipeline never blocks on disk.
package statsdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

type DB struct {
	db    *sql.DB
	runID int64

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqFind reqKind = iota + 1
	reqLoot
	reqCash
	reqBalance
)

type req struct {
	kind reqKind

	x, y   int
	amount int
	count  int

	treasure string
	coins    int

	balance uint64
	wallet  int
}

func Open(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	res, err := db.Exec(`INSERT INTO runs (started_at) VALUES (?)`, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	runID, err := res.LastInsertId()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &DB{
		db:    db,
		runID: runID,
		// Large enough to absorb dig bursts without stalling diggers.
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-only write pattern.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			requests INTEGER NOT NULL DEFAULT 0,
			explored INTEGER NOT NULL DEFAULT 0,
			finds INTEGER NOT NULL DEFAULT 0,
			banked INTEGER NOT NULL DEFAULT 0,
			coins INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS finds (
			run_id INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			amount INTEGER NOT NULL,
			PRIMARY KEY (run_id, x, y)
		);`,
		`CREATE TABLE IF NOT EXISTS loot (
			run_id INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			treasures INTEGER NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS cash (
			run_id INTEGER NOT NULL,
			treasure TEXT NOT NULL,
			coins INTEGER NOT NULL,
			PRIMARY KEY (run_id, treasure)
		);`,
		`CREATE TABLE IF NOT EXISTS balances (
			run_id INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			balance INTEGER NOT NULL,
			wallet INTEGER NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *DB) loop() {
	lootSeq, balSeq := 0, 0
	for r := range s.ch {
		switch r.kind {
		case reqFind:
			_, _ = s.db.Exec(`INSERT OR REPLACE INTO finds (run_id, x, y, amount) VALUES (?, ?, ?, ?)`,
				s.runID, r.x, r.y, r.amount)
		case reqLoot:
			lootSeq++
			_, _ = s.db.Exec(`INSERT INTO loot (run_id, seq, x, y, treasures) VALUES (?, ?, ?, ?, ?)`,
				s.runID, lootSeq, r.x, r.y, r.count)
		case reqCash:
			_, _ = s.db.Exec(`INSERT OR REPLACE INTO cash (run_id, treasure, coins) VALUES (?, ?, ?)`,
				s.runID, r.treasure, r.coins)
		case reqBalance:
			balSeq++
			_, _ = s.db.Exec(`INSERT INTO balances (run_id, seq, balance, wallet) VALUES (?, ?, ?, ?)`,
				s.runID, balSeq, r.balance, r.wallet)
		}
	}
}

func (s *DB) submit(r req) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		// Drop under pressure; the journal remains the source of truth.
	}
}

// Recorder hooks (mine.Recorder).

func (s *DB) RecordFind(x, y, amount int) {
	s.submit(req{kind: reqFind, x: x, y: y, amount: amount})
}

func (s *DB) RecordGrant(int, int, bool) {}

func (s *DB) RecordLoot(x, y, count int) {
	s.submit(req{kind: reqLoot, x: x, y: y, count: count})
}

func (s *DB) RecordCash(treasure string, coins int) {
	s.submit(req{kind: reqCash, treasure: treasure, coins: coins})
}

func (s *DB) RecordBalance(balance uint64, walletSize int) {
	s.submit(req{kind: reqBalance, balance: balance, wallet: walletSize})
}

// CloseWithSummary drains pending writes, stamps the run row and closes
// the database.
func (s *DB) CloseWithSummary(requests, explored, finds, banked, coins uint64) error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		_, err = s.db.Exec(`UPDATE runs SET finished_at = ?, requests = ?, explored = ?, finds = ?, banked = ?, coins = ? WHERE id = ?`,
			time.Now().UTC().Format(time.RFC3339), requests, explored, finds, banked, coins, s.runID)
		if cerr := s.db.Close(); err == nil {
			err = cerr
		}
	})
	return err
}
