package mine

import (
	"context"
	"errors"
	"log"
	"time"

	"goldrush.bot/internal/protocol"
)

// Licenser keeps the account topped up with licenses: free-tier ones
// always, paid ones when funding is enabled and the wallet has coins.
// It owns the wallet; earned coins arrive over the deposits channel.
type Licenser struct {
	api API
	out chan<- Grant
	log *log.Logger

	deposits <-chan []protocol.Coin
	wallet   Wallet

	freeMax     int
	paidMax     int
	paidEnabled bool
	fraction    float64
	poll        time.Duration

	stats *Stats
}

func newLicenser(api API, out chan<- Grant, deposits <-chan []protocol.Coin, freeMax, paidMax int, paidEnabled bool, fraction float64, poll time.Duration, stats *Stats, logger *log.Logger) *Licenser {
	return &Licenser{
		api:         api,
		out:         out,
		log:         logger,
		deposits:    deposits,
		freeMax:     freeMax,
		paidMax:     paidMax,
		paidEnabled: paidEnabled,
		fraction:    fraction,
		poll:        poll,
		stats:       stats,
	}
}

func (l *Licenser) Run(ctx context.Context) {
	for {
		if err := sleep(ctx, l.poll); err != nil {
			return
		}
		l.drainDeposits()
		l.tick(ctx)
		l.stats.Wallet.Store(uint64(l.wallet.Len()))
	}
}

func (l *Licenser) drainDeposits() {
	for {
		select {
		case coins := <-l.deposits:
			l.wallet.Deposit(coins)
		default:
			return
		}
	}
}

// tick reconciles active license counts against the per-class ceilings.
// The view lags remote state by at most one poll interval, which the
// ceilings tolerate.
func (l *Licenser) tick(ctx context.Context) {
	list, err := l.api.Licenses(ctx)
	if err != nil {
		if ctx.Err() == nil {
			l.log.Printf("licenser: list licenses: %v", err)
		}
		return
	}

	free, paid := 0, 0
	for _, lic := range list {
		if !lic.Active() {
			continue
		}
		if lic.DigAllowed > FreeTierDigs {
			paid++
		} else {
			free++
		}
	}

	for free < l.freeMax {
		lic, err := l.api.IssueLicense(ctx, nil)
		if err != nil {
			l.reportIssue(ctx, "free", err)
			break
		}
		free++
		l.grant(ctx, lic, false)
	}

	if !l.paidEnabled {
		return
	}
	for paid < l.paidMax && l.wallet.Len() > 0 {
		coins := l.wallet.SpendTail(l.fraction)
		lic, err := l.api.IssueLicense(ctx, coins)
		if err != nil {
			// The service rejected the purchase; the coins were not spent.
			l.wallet.Refund(coins)
			l.reportIssue(ctx, "paid", err)
			break
		}
		paid++
		l.grant(ctx, lic, true)
	}
}

func (l *Licenser) grant(ctx context.Context, lic protocol.License, paid bool) {
	l.stats.Licenses.Add(1)
	select {
	case l.out <- Grant{License: lic, Paid: paid}:
	case <-ctx.Done():
	}
}

func (l *Licenser) reportIssue(ctx context.Context, class string, err error) {
	if ctx.Err() != nil {
		return
	}
	var se *protocol.ServerError
	if errors.As(err, &se) && se.Code == protocol.CodeLicenseCap {
		// Ceiling race with our own lagging view; next tick resolves it.
		return
	}
	l.log.Printf("licenser: issue %s license: %v", class, err)
}
