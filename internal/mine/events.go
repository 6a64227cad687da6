// Package mine is the concurrent mining pipeline: one explorer scanning
// the grid, one licenser keeping the license pool topped up, N diggers
// extracting treasure, and a coordinator fanning events out and cashing
// loot. Roles communicate over channels only; every shared value has a
// single writer.
package mine

import (
	"context"
	"time"

	"goldrush.bot/internal/protocol"
)

// Find reports a cell whose probe returned a positive amount.
type Find struct {
	X      int
	Y      int
	Amount int
}

// Grant hands a freshly issued license to a digger. Paid grants queue
// behind free ones in the digger's pool.
type Grant struct {
	License protocol.License
	Paid    bool
}

// Loot is a batch of treasures recovered from one cell, forwarded as soon
// as produced rather than per-cell.
type Loot struct {
	X         int
	Y         int
	Treasures []protocol.Treasure
}

// API is the slice of the resilient client the pipeline uses.
// *client.Client satisfies it; tests substitute stubs.
type API interface {
	Explore(ctx context.Context, x, y int) (int, error)
	Licenses(ctx context.Context) ([]protocol.License, error)
	IssueLicense(ctx context.Context, coins []protocol.Coin) (protocol.License, error)
	Dig(ctx context.Context, licenseID, x, y, depth int) ([]protocol.Treasure, error)
	Cash(ctx context.Context, treasure protocol.Treasure) ([]protocol.Coin, error)
	Balance(ctx context.Context) (protocol.Balance, error)
}

// FreeTierDigs is the dig capacity of an unpaid license; anything above
// it is classified as paid.
const FreeTierDigs = 3

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
