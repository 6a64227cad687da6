// Package journal writes a compressed JSONL record of one mining run:
// finds, grants, loot, cash-outs and balance snapshots. Write-only
// telemetry; a run never reads it back.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

type Entry struct {
	TS   string `json:"ts"`
	Kind string `json:"kind"`

	X      int `json:"x,omitempty"`
	Y      int `json:"y,omitempty"`
	Amount int `json:"amount,omitempty"`

	LicenseID  int  `json:"license_id,omitempty"`
	DigAllowed int  `json:"dig_allowed,omitempty"`
	Paid       bool `json:"paid,omitempty"`

	Treasures int    `json:"treasures,omitempty"`
	Treasure  string `json:"treasure,omitempty"`
	Coins     int    `json:"coins,omitempty"`

	Balance uint64 `json:"balance,omitempty"`
	Wallet  int    `json:"wallet,omitempty"`
}

// Journal is a zstd-compressed JSONL writer, one file per run.
type Journal struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

func Open(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("run-%s.jsonl.zst", time.Now().UTC().Format("2006-01-02T15-04-05"))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Journal{
		f:   f,
		enc: enc,
		w:   bufio.NewWriterSize(enc, 64*1024),
	}, nil
}

func (j *Journal) write(e Entry) {
	e.TS = time.Now().UTC().Format(time.RFC3339Nano)
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.w == nil {
		return
	}
	b, err := json.Marshal(e)
	if err != nil {
		return
	}
	_, _ = j.w.Write(b)
	_ = j.w.WriteByte('\n')
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.w == nil {
		return nil
	}
	_ = j.w.Flush()
	err := j.enc.Close()
	if cerr := j.f.Close(); err == nil {
		err = cerr
	}
	j.w = nil
	j.enc = nil
	j.f = nil
	return err
}

// Recorder hooks (mine.Recorder).

func (j *Journal) RecordFind(x, y, amount int) {
	j.write(Entry{Kind: "find", X: x, Y: y, Amount: amount})
}

func (j *Journal) RecordGrant(id, digAllowed int, paid bool) {
	j.write(Entry{Kind: "grant", LicenseID: id, DigAllowed: digAllowed, Paid: paid})
}

func (j *Journal) RecordLoot(x, y, count int) {
	j.write(Entry{Kind: "loot", X: x, Y: y, Treasures: count})
}

func (j *Journal) RecordCash(treasure string, coins int) {
	j.write(Entry{Kind: "cash", Treasure: treasure, Coins: coins})
}

func (j *Journal) RecordBalance(balance uint64, walletSize int) {
	j.write(Entry{Kind: "balance", Balance: balance, Wallet: walletSize})
}
