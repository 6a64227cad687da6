package mine

import (
	"sync/atomic"
	"time"
)

// Stats are live pipeline counters. Each counter has one writing role;
// atomics make them safe to read from the status server.
type Stats struct {
	start time.Time

	Explored atomic.Uint64 // cells probed (explorer)
	Finds    atomic.Uint64 // positive probes (explorer)
	Digs     atomic.Uint64 // extraction attempts charged (diggers)
	Banked   atomic.Uint64 // treasures forwarded for cash-out (diggers)
	Coins    atomic.Uint64 // coins earned (coordinator)
	Licenses atomic.Uint64 // licenses issued (licenser)
	Wallet   atomic.Uint64 // current wallet size, gauge (licenser)
}

func NewStats() *Stats { return &Stats{start: time.Now()} }

// Snapshot is a point-in-time view for the status server and exit report.
type Snapshot struct {
	UptimeMs int64  `json:"uptime_ms"`
	Requests uint64 `json:"requests"`
	Explored uint64 `json:"explored"`
	Finds    uint64 `json:"finds"`
	Digs     uint64 `json:"digs"`
	Banked   uint64 `json:"banked"`
	Coins    uint64 `json:"coins"`
	Licenses uint64 `json:"licenses"`
	Wallet   uint64 `json:"wallet"`
	Diggers  int    `json:"diggers"`
	Idle     int    `json:"idle_diggers"`
}

func (s *Stats) snapshot() Snapshot {
	return Snapshot{
		UptimeMs: time.Since(s.start).Milliseconds(),
		Explored: s.Explored.Load(),
		Finds:    s.Finds.Load(),
		Digs:     s.Digs.Load(),
		Banked:   s.Banked.Load(),
		Coins:    s.Coins.Load(),
		Licenses: s.Licenses.Load(),
		Wallet:   s.Wallet.Load(),
	}
}

// Recorder receives pipeline events for telemetry sinks (journal, stats
// index). Called only from the coordinator goroutine.
type Recorder interface {
	RecordFind(x, y, amount int)
	RecordGrant(id, digAllowed int, paid bool)
	RecordLoot(x, y, count int)
	RecordCash(treasure string, coins int)
	RecordBalance(balance uint64, walletSize int)
}

// NopRecorder drops everything.
type NopRecorder struct{}

func (NopRecorder) RecordFind(int, int, int) {}
func (NopRecorder) RecordGrant(int, int, bool) {}
func (NopRecorder) RecordLoot(int, int, int) {}
func (NopRecorder) RecordCash(string, int) {}
func (NopRecorder) RecordBalance(uint64, int) {}

type multiRecorder []Recorder

// MultiRecorder fans events out to every non-nil sink.
func MultiRecorder(rs ...Recorder) Recorder {
	var out multiRecorder
	for _, r := range rs {
		if r != nil {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return NopRecorder{}
	}
	return out
}

func (m multiRecorder) RecordFind(x, y, amount int) {
	for _, r := range m {
		r.RecordFind(x, y, amount)
	}
}

func (m multiRecorder) RecordGrant(id, digAllowed int, paid bool) {
	for _, r := range m {
		r.RecordGrant(id, digAllowed, paid)
	}
}

func (m multiRecorder) RecordLoot(x, y, count int) {
	for _, r := range m {
		r.RecordLoot(x, y, count)
	}
}

func (m multiRecorder) RecordCash(treasure string, coins int) {
	for _, r := range m {
		r.RecordCash(treasure, coins)
	}
}

func (m multiRecorder) RecordBalance(balance uint64, walletSize int) {
	for _, r := range m {
		r.RecordBalance(balance, walletSize)
	}
}
