package mine

import (
	"context"
	"log"
	"math/rand"
	"sync/atomic"

	"goldrush.bot/internal/protocol"
)

// Coordinator fans finds and grants out to the digger pool and turns loot
// into coins. It is the single consumer of all three event channels and
// processes each in arrival order; no ordering holds across channels.
type Coordinator struct {
	api API
	log *log.Logger

	finds  <-chan Find
	grants <-chan Grant
	loot   <-chan Loot

	deposits chan<- []protocol.Coin
	diggers  []*Digger

	// Uniform-random slot selection. Round-robin or least-loaded would
	// do as well; nothing downstream depends on the choice.
	rng *rand.Rand

	busy atomic.Bool

	stats *Stats
	rec   Recorder
}

func newCoordinator(api API, finds <-chan Find, grants <-chan Grant, loot <-chan Loot, deposits chan<- []protocol.Coin, diggers []*Digger, seed int64, stats *Stats, rec Recorder, logger *log.Logger) *Coordinator {
	return &Coordinator{
		api:      api,
		log:      logger,
		finds:    finds,
		grants:   grants,
		loot:     loot,
		deposits: deposits,
		diggers:  diggers,
		rng:      rand.New(rand.NewSource(seed)),
		stats:    stats,
		rec:      rec,
	}
}

func (c *Coordinator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-c.finds:
			c.busy.Store(true)
			c.rec.RecordFind(f.X, f.Y, f.Amount)
			c.pick().Enqueue(f)
			c.busy.Store(false)
		case g := <-c.grants:
			c.busy.Store(true)
			c.rec.RecordGrant(g.License.ID, g.License.DigAllowed, g.Paid)
			c.pick().Offer(g)
			c.busy.Store(false)
		case l := <-c.loot:
			c.busy.Store(true)
			c.rec.RecordLoot(l.X, l.Y, len(l.Treasures))
			c.cashOut(ctx, l)
			c.busy.Store(false)
		}
	}
}

// Idle reports whether the coordinator is between events. A loot batch
// taken off the channel is invisible to channel-length checks, so quiesce
// detection must also wait for the cash-out in flight to finish.
func (c *Coordinator) Idle() bool { return !c.busy.Load() }

func (c *Coordinator) pick() *Digger {
	return c.diggers[c.rng.Intn(len(c.diggers))]
}

// cashOut exchanges each treasure individually. A failed exchange is a
// zero yield, not a batch retry; a successful one is never repeated.
func (c *Coordinator) cashOut(ctx context.Context, l Loot) {
	var earned []protocol.Coin
	for _, t := range l.Treasures {
		coins, err := c.api.Cash(ctx, t)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Printf("coordinator: cash %q: %v", t, err)
			continue
		}
		earned = append(earned, coins...)
		c.rec.RecordCash(t, len(coins))
	}
	if len(earned) > 0 {
		c.stats.Coins.Add(uint64(len(earned)))
		select {
		case c.deposits <- earned:
		case <-ctx.Done():
			return
		}
	}

	bal, err := c.api.Balance(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.log.Printf("coordinator: balance: %v", err)
		}
		return
	}
	c.rec.RecordBalance(bal.Balance, len(bal.Wallet))
	c.log.Printf("coordinator: balance %d, wallet %d coins", bal.Balance, len(bal.Wallet))
}
