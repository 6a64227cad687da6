package mine

import (
	"context"
	"testing"
	"time"

	"goldrush.bot/internal/protocol"
)

func TestCashOutNoDoubleCount(t *testing.T) {
	cashed := map[string]int{}
	api := &stubAPI{
		cash: func(tr protocol.Treasure) ([]protocol.Coin, error) {
			cashed[tr]++
			if cashed[tr] > 1 {
				// The service prevents double-spend; the coordinator must
				// not count anything for the rejection.
				return nil, &protocol.ServerError{Code: protocol.CodeNotFound, Message: "treasure not found"}
			}
			return []protocol.Coin{7}, nil
		},
		balance: func() (protocol.Balance, error) {
			return protocol.Balance{Balance: 1, Wallet: []protocol.Coin{7}}, nil
		},
	}
	stats := NewStats()
	deposits := make(chan []protocol.Coin, 8)
	c := newCoordinator(api, nil, nil, nil, deposits, nil, 1, stats, NopRecorder{}, quietLogger())

	// The same item id arrives in two batches; only the first yields.
	c.cashOut(context.Background(), Loot{X: 0, Y: 0, Treasures: []protocol.Treasure{"dup"}})
	c.cashOut(context.Background(), Loot{X: 0, Y: 0, Treasures: []protocol.Treasure{"dup"}})

	if cashed["dup"] != 2 {
		t.Fatalf("cash calls = %d, want one per batch (no retry of success, no skip)", cashed["dup"])
	}
	if got := stats.Coins.Load(); got != 1 {
		t.Fatalf("coins counted = %d, want 1", got)
	}
	if len(deposits) != 1 {
		t.Fatalf("deposits = %d batches, want 1", len(deposits))
	}
}

func TestCashOutFailureIsZeroYieldNotRetry(t *testing.T) {
	calls := 0
	api := &stubAPI{
		cash: func(tr protocol.Treasure) ([]protocol.Coin, error) {
			calls++
			if tr == "bad" {
				return nil, &protocol.ServerError{Code: 422, Message: "bogus"}
			}
			return []protocol.Coin{1, 2}, nil
		},
	}
	stats := NewStats()
	deposits := make(chan []protocol.Coin, 8)
	c := newCoordinator(api, nil, nil, nil, deposits, nil, 1, stats, NopRecorder{}, quietLogger())

	c.cashOut(context.Background(), Loot{Treasures: []protocol.Treasure{"bad", "good"}})

	if calls != 2 {
		t.Fatalf("cash calls = %d, want 2 (the batch is not retried)", calls)
	}
	if got := stats.Coins.Load(); got != 2 {
		t.Fatalf("coins = %d, want 2 from the good treasure only", got)
	}
}

func TestCoordinatorFansOutToDiggers(t *testing.T) {
	api := &stubAPI{}
	loot := make(chan Loot, 1)
	var diggers []*Digger
	for i := 0; i < 3; i++ {
		diggers = append(diggers, newDigger(i, api, loot, 10, 5, time.Millisecond, NewStats(), quietLogger()))
	}
	finds := make(chan Find, 8)
	grants := make(chan Grant, 8)
	c := newCoordinator(api, finds, grants, loot, make(chan []protocol.Coin, 1), diggers, 42, NewStats(), NopRecorder{}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	for i := 0; i < 12; i++ {
		finds <- Find{X: i, Amount: 1}
		grants <- Grant{License: protocol.License{ID: i, DigAllowed: 3}}
	}
	deadline := time.After(5 * time.Second)
	for {
		queued := 0
		for _, d := range diggers {
			queued += len(d.cells) + len(d.grants)
		}
		if queued == 24 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("fan-out incomplete: %d of 24 queued", queued)
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	<-done
}
