package shop

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/coffeeshop/internal/domain/identity"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/token"
	"github.com/Zhima-Mochi/coffeeshop/internal/observability"
)

const ledgerPeer = "token_ledger"

// InstrumentedLedger records external-call RED metrics around the ledger the
// processor talks to.
type InstrumentedLedger struct {
	next    token.Ledger
	counter observability.Counter
	hist    observability.Histogram
}

func NewInstrumentedLedger(next token.Ledger, tel observability.Observability) *InstrumentedLedger {
	if tel == nil {
		tel = observability.Nop()
	}
	return &InstrumentedLedger{
		next:    next,
		counter: tel.Metrics().Counter(observability.MExternalRequests),
		hist:    tel.Metrics().Histogram(observability.MExternalRequestDuration),
	}
}

func (l *InstrumentedLedger) BalanceOf(ctx context.Context, owner identity.Address) (token.Amount, error) {
	start := time.Now()
	a, err := l.next.BalanceOf(ctx, owner)
	l.observe("balanceOf", start, err)
	return a, err
}

func (l *InstrumentedLedger) Allowance(ctx context.Context, owner, spender identity.Address) (token.Amount, error) {
	start := time.Now()
	a, err := l.next.Allowance(ctx, owner, spender)
	l.observe("allowance", start, err)
	return a, err
}

func (l *InstrumentedLedger) TransferFrom(ctx context.Context, spender, from, to identity.Address, amount token.Amount) error {
	start := time.Now()
	err := l.next.TransferFrom(ctx, spender, from, to, amount)
	l.observe("transferFrom", start, err)
	return err
}

func (l *InstrumentedLedger) observe(endpoint string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	l.counter.Add(1,
		observability.L("peer", ledgerPeer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	l.hist.Observe(time.Since(start).Seconds(),
		observability.L("peer", ledgerPeer),
		observability.L("endpoint", endpoint),
	)
}
