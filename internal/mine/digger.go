package mine

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"goldrush.bot/internal/protocol"
)

// Digger is one pool worker. Its pending cells and license deque are
// private: only inbound channel messages feed them, only this goroutine
// touches them. A held license belongs to this digger alone until it is
// requeued or dropped.
type Digger struct {
	id  int
	api API
	log *log.Logger

	maxDepth  int
	sellDepth int
	poll      time.Duration

	cells  chan Find
	grants chan Grant
	loot   chan<- Loot

	pending  []Find
	licenses grantDeque

	idle  atomic.Bool
	stats *Stats
}

func newDigger(id int, api API, loot chan<- Loot, maxDepth, sellDepth int, poll time.Duration, stats *Stats, logger *log.Logger) *Digger {
	return &Digger{
		id:        id,
		api:       api,
		log:       logger,
		maxDepth:  maxDepth,
		sellDepth: sellDepth,
		poll:      poll,
		cells:     make(chan Find, 4096),
		grants:    make(chan Grant, 64),
		loot:      loot,
		stats:     stats,
	}
}

// Enqueue hands the digger a cell to mine. Fire-and-forget from the
// coordinator's side.
func (d *Digger) Enqueue(f Find) { d.cells <- f }

// Offer hands the digger a license grant.
func (d *Digger) Offer(g Grant) { d.grants <- g }

// Idle reports whether the digger has nothing queued. Used only for
// quiesce detection after the scan completes.
func (d *Digger) Idle() bool { return d.idle.Load() && len(d.cells) == 0 }

func (d *Digger) Run(ctx context.Context) {
	for {
		d.drain()
		if len(d.pending) == 0 {
			d.idle.Store(true)
			if err := sleep(ctx, d.poll); err != nil {
				return
			}
			continue
		}
		d.idle.Store(false)
		cell := d.pending[0]
		d.pending = d.pending[1:]
		d.mine(ctx, cell)
		if ctx.Err() != nil {
			return
		}
	}
}

// drain moves inbound messages into the private structures without
// blocking.
func (d *Digger) drain() {
	for {
		select {
		case f := <-d.cells:
			d.pending = append(d.pending, f)
		case g := <-d.grants:
			d.stash(g)
		default:
			return
		}
	}
}

// stash applies the pool discipline: free to the front, paid to the back.
func (d *Digger) stash(g Grant) {
	if g.Paid {
		d.licenses.PushBack(g)
	} else {
		d.licenses.PushFront(g)
	}
}

// takeLicense pops the next usable license, idle-polling until one
// arrives. The digger is not idle here: it still owes work for a cell.
func (d *Digger) takeLicense(ctx context.Context) (Grant, bool) {
	for {
		d.drain()
		if g, ok := d.licenses.PopFront(); ok {
			return g, true
		}
		if err := sleep(ctx, d.poll); err != nil {
			return Grant{}, false
		}
	}
}

// mine extracts a single cell depth by depth until its amount is
// recovered or the cell is abandoned. Depths are strictly increasing and
// never parallelized within a cell.
func (d *Digger) mine(ctx context.Context, cell Find) {
	left := cell.Amount
	depth := 1
	for left > 0 {
		g, ok := d.takeLicense(ctx)
		if !ok {
			return // held nothing; queued licenses are abandoned with the run
		}
		lic := &g.License

		// Charged up front, whether or not the attempt yields anything.
		lic.DigUsed++
		d.stats.Digs.Add(1)

		treasures, err := d.api.Dig(ctx, lic.ID, cell.X, cell.Y, depth)
		abandon := false
		switch {
		case err == nil:
			dugAt := depth
			depth++
			if len(treasures) > 0 && dugAt >= d.sellDepth {
				left -= len(treasures)
				d.stats.Banked.Add(uint64(len(treasures)))
				select {
				case d.loot <- Loot{X: cell.X, Y: cell.Y, Treasures: treasures}:
				case <-ctx.Done():
					return
				}
			}
		default:
			var se *protocol.ServerError
			if !errors.As(err, &se) {
				if ctx.Err() != nil {
					return
				}
				// Transport budget spent; the charge stands, the service
				// may have consumed the dig.
				d.log.Printf("digger %d: dig (%d,%d) depth %d: %v", d.id, cell.X, cell.Y, depth, err)
				break
			}
			switch se.Code {
			case protocol.CodeNotFound:
				// Nothing at this depth.
				depth++
			case protocol.CodeInvalidLicense:
				// Broken or expired license: burn it so it is dropped,
				// keep the depth progress.
				lic.DigUsed = lic.DigAllowed
			default:
				lic.DigUsed--
				if depth > d.maxDepth && (se.Code == protocol.CodeDepthSpent || se.Code == protocol.CodeRunOver) {
					abandon = true
				} else {
					d.log.Printf("digger %d: dig (%d,%d) depth %d: %v", d.id, cell.X, cell.Y, depth, err)
				}
			}
		}

		if lic.Active() {
			d.stash(Grant{License: *lic, Paid: g.Paid})
		}
		if abandon {
			d.log.Printf("digger %d: abandoning (%d,%d) with %d left", d.id, cell.X, cell.Y, left)
			return
		}
	}
}
