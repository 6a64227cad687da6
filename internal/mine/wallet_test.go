package mine

import (
	"testing"

	"goldrush.bot/internal/protocol"
)

func TestWalletSpendTailReverseOrder(t *testing.T) {
	var w Wallet
	w.Deposit([]protocol.Coin{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})

	got := w.SpendTail(0.2)
	if len(got) != 2 {
		t.Fatalf("spend = %v, want 2 coins", got)
	}
	if got[0] != 10 || got[1] != 9 {
		t.Fatalf("tail spend must be newest first, got %v", got)
	}
	if w.Len() != 8 {
		t.Fatalf("wallet left = %d, want 8", w.Len())
	}
}

func TestWalletSpendTailMinimumOne(t *testing.T) {
	var w Wallet
	w.Deposit([]protocol.Coin{42})
	got := w.SpendTail(0.1)
	if len(got) != 1 || got[0] != 42 {
		t.Fatalf("spend = %v, want the single coin", got)
	}
	if w.Len() != 0 {
		t.Fatalf("wallet should be empty")
	}
	if w.SpendTail(0.5) != nil {
		t.Fatalf("empty wallet must spend nothing")
	}
}

func TestWalletRefund(t *testing.T) {
	var w Wallet
	w.Deposit([]protocol.Coin{1, 2, 3})
	coins := w.SpendTail(1)
	if w.Len() != 0 {
		t.Fatalf("full spend should empty the wallet")
	}
	w.Refund(coins)
	if w.Len() != 3 {
		t.Fatalf("refund lost coins: %d", w.Len())
	}
}
