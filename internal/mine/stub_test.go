package mine

import (
	"context"
	"fmt"
	"io"
	"log"

	"goldrush.bot/internal/protocol"
)

// stubAPI scripts the remote service per test.
type stubAPI struct {
	explore  func(x, y int) (int, error)
	licenses func() ([]protocol.License, error)
	issue    func(coins []protocol.Coin) (protocol.License, error)
	dig      func(licenseID, x, y, depth int) ([]protocol.Treasure, error)
	cash     func(t protocol.Treasure) ([]protocol.Coin, error)
	balance  func() (protocol.Balance, error)
}

func (s *stubAPI) Explore(_ context.Context, x, y int) (int, error) {
	if s.explore == nil {
		return 0, fmt.Errorf("unexpected explore")
	}
	return s.explore(x, y)
}

func (s *stubAPI) Licenses(context.Context) ([]protocol.License, error) {
	if s.licenses == nil {
		return nil, nil
	}
	return s.licenses()
}

func (s *stubAPI) IssueLicense(_ context.Context, coins []protocol.Coin) (protocol.License, error) {
	if s.issue == nil {
		return protocol.License{}, fmt.Errorf("unexpected issue")
	}
	return s.issue(coins)
}

func (s *stubAPI) Dig(_ context.Context, licenseID, x, y, depth int) ([]protocol.Treasure, error) {
	if s.dig == nil {
		return nil, fmt.Errorf("unexpected dig")
	}
	return s.dig(licenseID, x, y, depth)
}

func (s *stubAPI) Cash(_ context.Context, t protocol.Treasure) ([]protocol.Coin, error) {
	if s.cash == nil {
		return nil, fmt.Errorf("unexpected cash")
	}
	return s.cash(t)
}

func (s *stubAPI) Balance(context.Context) (protocol.Balance, error) {
	if s.balance == nil {
		return protocol.Balance{}, nil
	}
	return s.balance()
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }
