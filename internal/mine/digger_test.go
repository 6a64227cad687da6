package mine

import (
	"context"
	"testing"
	"time"

	"goldrush.bot/internal/protocol"
)

func testDigger(api API, loot chan Loot, maxDepth, sellDepth int) *Digger {
	return newDigger(0, api, loot, maxDepth, sellDepth, time.Millisecond, NewStats(), quietLogger())
}

func TestLicensePoolOrdering(t *testing.T) {
	// Grant free A, paid B, free C: the next two licenses used must be
	// C then A; B only after the free ones are gone.
	d := testDigger(&stubAPI{}, make(chan Loot, 1), 10, 5)
	d.stash(Grant{License: protocol.License{ID: 1, DigAllowed: 3}, Paid: false}) // A
	d.stash(Grant{License: protocol.License{ID: 2, DigAllowed: 10}, Paid: true}) // B
	d.stash(Grant{License: protocol.License{ID: 3, DigAllowed: 3}, Paid: false}) // C

	want := []int{3, 1, 2}
	for i, id := range want {
		g, ok := d.licenses.PopFront()
		if !ok {
			t.Fatalf("pool empty at %d", i)
		}
		if g.License.ID != id {
			t.Fatalf("pop %d = license %d, want %d", i, g.License.ID, id)
		}
	}
}

func TestExhaustedLicenseNeverRequeued(t *testing.T) {
	digs := 0
	api := &stubAPI{
		dig: func(licenseID, x, y, depth int) ([]protocol.Treasure, error) {
			digs++
			if digs == 2 {
				// Second dig recovers everything.
				return []protocol.Treasure{"t1", "t2"}, nil
			}
			return nil, &protocol.ServerError{Code: protocol.CodeNotFound, Message: "no treasure"}
		},
	}
	loot := make(chan Loot, 4)
	d := testDigger(api, loot, 10, 1)
	d.stash(Grant{License: protocol.License{ID: 5, DigAllowed: 2}})

	d.mine(context.Background(), Find{X: 1, Y: 2, Amount: 2})

	if digs != 2 {
		t.Fatalf("dig calls = %d, want 2", digs)
	}
	if d.licenses.Len() != 0 {
		t.Fatalf("exhausted license must not be requeued")
	}
	select {
	case l := <-loot:
		if len(l.Treasures) != 2 || l.X != 1 || l.Y != 2 {
			t.Fatalf("loot = %+v", l)
		}
	default:
		t.Fatalf("expected loot")
	}
}

func TestDigUsedNeverExceedsDigAllowed(t *testing.T) {
	api := &stubAPI{
		dig: func(licenseID, x, y, depth int) ([]protocol.Treasure, error) {
			return []protocol.Treasure{"t"}, nil
		},
	}
	loot := make(chan Loot, 16)
	d := testDigger(api, loot, 10, 1)
	d.stash(Grant{License: protocol.License{ID: 9, DigAllowed: 3}})
	// Three licenses' worth of digs is more than one license allows; the
	// worker must stop charging the first after three uses. Give it more
	// licenses so the cell finishes.
	d.stash(Grant{License: protocol.License{ID: 10, DigAllowed: 3}})

	d.mine(context.Background(), Find{Amount: 5})

	for {
		g, ok := d.licenses.PopFront()
		if !ok {
			break
		}
		if g.License.DigUsed > g.License.DigAllowed {
			t.Fatalf("digUsed %d exceeds digAllowed %d", g.License.DigUsed, g.License.DigAllowed)
		}
		if g.License.Exhausted() {
			t.Fatalf("exhausted license found in pool")
		}
	}
}

func TestBrokenLicenseDiscardedKeepsDepth(t *testing.T) {
	var depths []int
	api := &stubAPI{
		dig: func(licenseID, x, y, depth int) ([]protocol.Treasure, error) {
			depths = append(depths, depth)
			if licenseID == 1 {
				return nil, &protocol.ServerError{Code: protocol.CodeInvalidLicense, Message: "license not found"}
			}
			return []protocol.Treasure{"t"}, nil
		},
	}
	loot := make(chan Loot, 4)
	d := testDigger(api, loot, 10, 1)
	d.stash(Grant{License: protocol.License{ID: 1, DigAllowed: 3}})
	d.stash(Grant{License: protocol.License{ID: 2, DigAllowed: 10}, Paid: true})

	d.mine(context.Background(), Find{Amount: 1})

	// Broken license burns at depth 1; the replacement digs the same depth.
	if len(depths) != 2 || depths[0] != 1 || depths[1] != 1 {
		t.Fatalf("depths = %v, want [1 1]", depths)
	}
	if d.licenses.Len() != 1 {
		t.Fatalf("broken license must be dropped, healthy one requeued")
	}
}

func TestShallowRecoveriesNotBanked(t *testing.T) {
	api := &stubAPI{
		dig: func(licenseID, x, y, depth int) ([]protocol.Treasure, error) {
			if depth < 3 {
				return []protocol.Treasure{"shallow"}, nil
			}
			return []protocol.Treasure{"deep"}, nil
		},
	}
	loot := make(chan Loot, 8)
	d := testDigger(api, loot, 10, 3)
	d.stash(Grant{License: protocol.License{ID: 1, DigAllowed: 10}})

	d.mine(context.Background(), Find{Amount: 1})

	l := <-loot
	if len(l.Treasures) != 1 || l.Treasures[0] != "deep" {
		t.Fatalf("banked = %+v, want only the deep treasure", l)
	}
	select {
	case extra := <-loot:
		t.Fatalf("shallow treasure banked: %+v", extra)
	default:
	}
}

func TestAbandonBeyondMaxDepthOnTerminalCode(t *testing.T) {
	digs := 0
	api := &stubAPI{
		dig: func(licenseID, x, y, depth int) ([]protocol.Treasure, error) {
			digs++
			if depth <= 3 {
				return nil, &protocol.ServerError{Code: protocol.CodeNotFound, Message: "no treasure"}
			}
			return nil, &protocol.ServerError{Code: protocol.CodeDepthSpent, Message: "depth spent"}
		},
	}
	d := testDigger(api, make(chan Loot, 1), 3, 1)
	lic := protocol.License{ID: 1, DigAllowed: 100}
	d.stash(Grant{License: lic})

	done := make(chan struct{})
	go func() {
		d.mine(context.Background(), Find{Amount: 2})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("terminal code beyond max depth must abandon the cell")
	}
	if digs != 4 {
		t.Fatalf("dig calls = %d, want 4 (depths 1-3 plus the terminal one)", digs)
	}
	// The terminal attempt's charge is rolled back.
	g, ok := d.licenses.PopFront()
	if !ok {
		t.Fatalf("license should be requeued")
	}
	if g.License.DigUsed != 3 {
		t.Fatalf("digUsed = %d, want 3 after rollback", g.License.DigUsed)
	}
}
