package mine

import (
	"context"
	"log"
	"sync"
	"time"

	"goldrush.bot/internal/config"
	"goldrush.bot/internal/protocol"
)

// Pool wires the roles together and runs them. It stops when the outer
// context is cancelled or when the scan has finished and the pipeline has
// drained.
type Pool struct {
	cfg   config.Config
	log   *log.Logger
	stats *Stats

	finds    chan Find
	grants   chan Grant
	loot     chan Loot
	deposits chan []protocol.Coin

	explorer *Explorer
	licenser *Licenser
	coord    *Coordinator
	diggers  []*Digger

	requests func() uint64
}

// New assembles a pool. requests reports the client's logical call count
// for snapshots; rec receives telemetry events (may be nil).
func New(cfg config.Config, api API, rec Recorder, requests func() uint64, logger *log.Logger) *Pool {
	if rec == nil {
		rec = NopRecorder{}
	}
	if requests == nil {
		requests = func() uint64 { return 0 }
	}
	stats := NewStats()
	poll := time.Duration(cfg.PollMs) * time.Millisecond

	p := &Pool{
		cfg:      cfg,
		log:      logger,
		stats:    stats,
		finds:    make(chan Find, 4096),
		grants:   make(chan Grant, 256),
		loot:     make(chan Loot, 1024),
		deposits: make(chan []protocol.Coin, 256),
		requests: requests,
	}

	p.diggers = make([]*Digger, cfg.Diggers)
	for i := range p.diggers {
		p.diggers[i] = newDigger(i, api, p.loot, cfg.MaxDepth, cfg.SellDepth, poll, stats, logger)
	}
	p.explorer = newExplorer(api, p.finds, cfg.Region, stats, logger)
	p.licenser = newLicenser(api, p.grants, p.deposits, cfg.MaxFreeLicenses, cfg.MaxPaidLicenses,
		cfg.PaidLicenses, cfg.SpendFraction, poll, stats, logger)
	p.coord = newCoordinator(api, p.finds, p.grants, p.loot, p.deposits, p.diggers,
		time.Now().UnixNano(), stats, rec, logger)
	return p
}

// Snapshot is the live view served by the status endpoint.
func (p *Pool) Snapshot() Snapshot {
	s := p.stats.snapshot()
	s.Requests = p.requests()
	s.Diggers = len(p.diggers)
	for _, d := range p.diggers {
		if d.Idle() {
			s.Idle++
		}
	}
	return s
}

func (p *Pool) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	run := func(f func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f(ctx)
		}()
	}

	run(p.coord.Run)
	run(p.licenser.Run)
	for _, d := range p.diggers {
		run(d.Run)
	}

	scanDone := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.explorer.Run(ctx)
		close(scanDone)
	}()

	// Quiesce watcher: once the scan is over, stop after the pipeline has
	// been drained for a few consecutive polls. Licenses still queued at
	// that point are abandoned; the service expires them on its own.
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-scanDone:
		}
		poll := time.Duration(p.cfg.PollMs) * time.Millisecond
		calm := 0
		for {
			if err := sleep(ctx, poll); err != nil {
				return
			}
			if p.drained() {
				calm++
			} else {
				calm = 0
			}
			if calm >= 3 {
				p.log.Printf("pool: pipeline drained, stopping")
				cancel()
				return
			}
		}
	}()

	wg.Wait()
	return nil
}

func (p *Pool) drained() bool {
	for _, d := range p.diggers {
		if !d.Idle() {
			return false
		}
	}
	return p.coord.Idle() && len(p.finds) == 0 && len(p.loot) == 0
}
