package mine

import "goldrush.bot/internal/protocol"

// Wallet is the coin sequence funding paid licenses: append on earn,
// spend from the tail. The licenser is its only mutator; coins arrive
// from the coordinator by message.
type Wallet struct {
	coins []protocol.Coin
}

func (w *Wallet) Deposit(coins []protocol.Coin) {
	w.coins = append(w.coins, coins...)
}

func (w *Wallet) Len() int { return len(w.coins) }

// SpendTail removes a fraction of the wallet (at least one coin) from the
// tail, newest first, and returns it as payment.
func (w *Wallet) SpendTail(fraction float64) []protocol.Coin {
	if len(w.coins) == 0 {
		return nil
	}
	n := int(float64(len(w.coins)) * fraction)
	if n < 1 {
		n = 1
	}
	if n > len(w.coins) {
		n = len(w.coins)
	}
	out := make([]protocol.Coin, 0, n)
	for i := 0; i < n; i++ {
		last := len(w.coins) - 1
		out = append(out, w.coins[last])
		w.coins = w.coins[:last]
	}
	return out
}

// Refund puts coins from a rejected issuance back.
func (w *Wallet) Refund(coins []protocol.Coin) {
	w.coins = append(w.coins, coins...)
}
