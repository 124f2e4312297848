package shop_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/Zhima-Mochi/coffeeshop/internal/domain/identity"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/shop"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/token"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner    = identity.MustParse("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")
	store    = identity.MustParse("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
	customer = identity.MustParse("0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc")
	shopAddr = identity.MustParse("0xe7f1725e7734ce288f8367e1bb143e90bb3f0512")
	fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
)

func usdt(n uint64) token.Amount { return token.Amount(n * 1_000_000) }

// fakeLedger is a minimal token ledger with failure injection.
type fakeLedger struct {
	mu         sync.Mutex
	balances   map[identity.Address]token.Amount
	allowances map[[2]identity.Address]token.Amount

	allowanceErr error
	balanceErr   error
	transferErr  error
	transfers    int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		balances:   make(map[identity.Address]token.Amount),
		allowances: make(map[[2]identity.Address]token.Amount),
	}
}

func (l *fakeLedger) fund(holder identity.Address, balance, allowance token.Amount) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[holder] = balance
	l.allowances[[2]identity.Address{holder, shopAddr}] = allowance
}

func (l *fakeLedger) BalanceOf(_ context.Context, owner identity.Address) (token.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balanceErr != nil {
		return 0, l.balanceErr
	}
	return l.balances[owner], nil
}

func (l *fakeLedger) Allowance(_ context.Context, owner, spender identity.Address) (token.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.allowanceErr != nil {
		return 0, l.allowanceErr
	}
	return l.allowances[[2]identity.Address{owner, spender}], nil
}

func (l *fakeLedger) TransferFrom(_ context.Context, spender, from, to identity.Address, amount token.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.transferErr != nil {
		return l.transferErr
	}
	key := [2]identity.Address{from, spender}
	if l.allowances[key] < amount {
		return token.ErrInsufficientAllowance
	}
	if l.balances[from] < amount {
		return token.ErrInsufficientBalance
	}
	l.allowances[key] -= amount
	l.balances[from] -= amount
	l.balances[to] += amount
	l.transfers++
	return nil
}

type snapshot struct {
	balances   map[identity.Address]token.Amount
	allowances map[[2]identity.Address]token.Amount
	nextID     uint64
	prices     map[uint64]token.Amount
}

func takeSnapshot(l *fakeLedger, p *shop.Processor, items ...uint64) snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := snapshot{
		balances:   make(map[identity.Address]token.Amount, len(l.balances)),
		allowances: make(map[[2]identity.Address]token.Amount, len(l.allowances)),
		nextID:     p.NextOrderID(),
		prices:     make(map[uint64]token.Amount, len(items)),
	}
	for k, v := range l.balances {
		s.balances[k] = v
	}
	for k, v := range l.allowances {
		s.allowances[k] = v
	}
	for _, item := range items {
		s.prices[item] = p.PriceOf(item)
	}
	return s
}

func newProcessor(t *testing.T, ledger token.Ledger, rec shop.Recorder) *shop.Processor {
	t.Helper()
	p, err := shop.New(shop.Config{
		Owner:       owner,
		StoreWallet: store,
		Ledger:      ledger,
		Address:     shopAddr,
		Recorder:    rec,
		Clock:       func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return p
}

func TestNew(t *testing.T) {
	ledger := newFakeLedger()

	tests := []struct {
		name string
		cfg  shop.Config
	}{
		{name: "missing owner", cfg: shop.Config{StoreWallet: store, Ledger: ledger}},
		{name: "missing store wallet", cfg: shop.Config{Owner: owner, Ledger: ledger}},
		{name: "missing ledger", cfg: shop.Config{Owner: owner, StoreWallet: store}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := shop.New(tt.cfg)
			require.ErrorIs(t, err, shop.ErrInvalidConfiguration)
			assert.Equal(t, shop.KindInvalidConfiguration, shop.KindOf(err))
			assert.Nil(t, p)
		})
	}

	t.Run("defaults", func(t *testing.T) {
		p, err := shop.New(shop.Config{Owner: owner, StoreWallet: store, Ledger: ledger})
		require.NoError(t, err)
		assert.Equal(t, owner, p.Owner())
		assert.Equal(t, store, p.StoreWallet())
		assert.False(t, p.Address().IsZero())
		assert.Equal(t, uint64(1), p.NextOrderID())
		for item := uint64(0); item < 10; item++ {
			assert.Zero(t, p.PriceOf(item))
		}
	})

	t.Run("owner may double as store wallet", func(t *testing.T) {
		p, err := shop.New(shop.Config{Owner: owner, StoreWallet: owner, Ledger: ledger})
		require.NoError(t, err)
		assert.Equal(t, p.Owner(), p.StoreWallet())
	})
}

func TestSetPrice(t *testing.T) {
	ctx := context.Background()
	p := newProcessor(t, newFakeLedger(), nil)

	require.NoError(t, p.SetPrice(ctx, owner, 1, usdt(5)))
	assert.Equal(t, usdt(5), p.PriceOf(1))

	err := p.SetPrice(ctx, customer, 1, usdt(7))
	require.ErrorIs(t, err, shop.ErrUnauthorized)
	assert.Equal(t, "not owner", err.Error())
	assert.Equal(t, usdt(5), p.PriceOf(1), "rejected call must not touch the catalog")

	err = p.SetPrice(ctx, store, 2, usdt(1))
	require.ErrorIs(t, err, shop.ErrUnauthorized)
	assert.Zero(t, p.PriceOf(2))

	require.NoError(t, p.SetPrice(ctx, owner, 1, 0), "zero withdraws the item")
	assert.Zero(t, p.PriceOf(1))
	assert.Equal(t, uint64(1), p.NextOrderID(), "pricing never advances the counter")
}

func TestBuy_PlacesOrderAndPaysStore(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	var recorded []shop.OrderPlaced
	p := newProcessor(t, ledger, shop.RecorderFunc(func(_ context.Context, e shop.OrderPlaced) {
		recorded = append(recorded, e)
	}))

	require.NoError(t, p.SetPrice(ctx, owner, 7, usdt(3)))
	ledger.fund(customer, usdt(100), usdt(9))

	evt, err := p.Buy(ctx, customer, 7, 3)
	require.NoError(t, err)

	want := shop.OrderPlaced{OrderID: 1, Customer: customer, ItemID: 7, Qty: 3, Total: usdt(9), OccurredAt: fixedNow}
	if diff := cmp.Diff(want, evt); diff != "" {
		t.Fatalf("OrderPlaced mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, recorded, 1)
	assert.Equal(t, want, recorded[0])

	assert.Equal(t, usdt(9), ledger.balances[store])
	assert.Equal(t, usdt(91), ledger.balances[customer])
	assert.Equal(t, uint64(2), p.NextOrderID())

	_, err = p.Buy(ctx, customer, 7, 3)
	require.ErrorIs(t, err, shop.ErrAllowanceTooLow)
	assert.Equal(t, "allowance too low", err.Error())
	assert.Equal(t, uint64(2), p.NextOrderID())
	assert.Len(t, recorded, 1)
}

func TestNew_ResumeAfter(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	ledger.fund(customer, usdt(100), usdt(100))

	p, err := shop.New(shop.Config{
		Owner: owner, StoreWallet: store, Ledger: ledger, Address: shopAddr,
		ResumeAfter: 41,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), p.NextOrderID())

	require.NoError(t, p.SetPrice(ctx, owner, 1, usdt(1)))
	evt, err := p.Buy(ctx, customer, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), evt.OrderID)
	assert.Equal(t, uint64(43), p.NextOrderID())

	t.Run("exhausted counter stays exhausted", func(t *testing.T) {
		p, err := shop.New(shop.Config{
			Owner: owner, StoreWallet: store, Ledger: ledger, Address: shopAddr,
			ResumeAfter: math.MaxUint64,
		})
		require.NoError(t, err)
		require.NoError(t, p.SetPrice(ctx, owner, 1, usdt(1)))

		before := ledger.balances[customer]
		_, err = p.Buy(ctx, customer, 1, 1)
		require.ErrorIs(t, err, shop.ErrArithmeticOverflow)
		assert.Equal(t, before, ledger.balances[customer])
	})
}

func TestBuy_ValidationOrder(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	p := newProcessor(t, ledger, nil)

	_, err := p.Buy(ctx, customer, 9, 0)
	require.ErrorIs(t, err, shop.ErrInvalidQuantity, "qty is checked before price")

	_, err = p.Buy(ctx, customer, 9, 1)
	require.ErrorIs(t, err, shop.ErrItemNotForSale)

	require.NoError(t, p.SetPrice(ctx, owner, 9, 5))
	_, err = p.Buy(ctx, customer, 9, 0)
	require.ErrorIs(t, err, shop.ErrInvalidQuantity)

	// Neither allowance nor balance: allowance is reported first.
	_, err = p.Buy(ctx, customer, 9, 1)
	require.ErrorIs(t, err, shop.ErrAllowanceTooLow)

	ledger.fund(customer, 0, 5)
	_, err = p.Buy(ctx, customer, 9, 1)
	require.ErrorIs(t, err, shop.ErrInsufficientBalance)
	assert.Equal(t, "not enough usdt", err.Error())
}

func TestBuy_NotForSale(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	ledger.fund(customer, usdt(100), usdt(100))
	p := newProcessor(t, ledger, nil)

	require.NoError(t, p.SetPrice(ctx, owner, 2, usdt(2)))
	require.NoError(t, p.SetPrice(ctx, owner, 2, 0))

	for _, item := range []uint64{0, 1, 2, math.MaxUint64} {
		for _, qty := range []uint64{1, 2, 1000} {
			_, err := p.Buy(ctx, customer, item, qty)
			require.ErrorIs(t, err, shop.ErrItemNotForSale, "item %d qty %d", item, qty)
		}
	}
	assert.Equal(t, 0, ledger.transfers)
}

func TestBuy_FailuresLeaveStateUntouched(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("rpc: connection reset")

	tests := []struct {
		name     string
		arrange  func(l *fakeLedger, p *shop.Processor)
		item     uint64
		qty      uint64
		wantKind shop.Kind
	}{
		{name: "zero qty", item: 1, qty: 0, wantKind: shop.KindInvalidQuantity},
		{name: "unpriced", item: 2, qty: 1, wantKind: shop.KindItemNotForSale},
		{name: "overflow", item: 3, qty: math.MaxUint64, wantKind: shop.KindArithmeticOverflow},
		{
			name:     "allowance too low",
			arrange:  func(l *fakeLedger, _ *shop.Processor) { l.fund(customer, usdt(100), usdt(4)) },
			item:     1, qty: 1, wantKind: shop.KindAllowanceTooLow,
		},
		{
			name:     "balance too low",
			arrange:  func(l *fakeLedger, _ *shop.Processor) { l.fund(customer, usdt(4), usdt(50)) },
			item:     1, qty: 1, wantKind: shop.KindInsufficientBalance,
		},
		{
			name:     "allowance query fails",
			arrange:  func(l *fakeLedger, _ *shop.Processor) { l.allowanceErr = boom },
			item:     1, qty: 1, wantKind: shop.KindLedgerUnavailable,
		},
		{
			name: "balance query fails",
			arrange: func(l *fakeLedger, _ *shop.Processor) {
				l.fund(customer, usdt(100), usdt(100))
				l.balanceErr = boom
			},
			item: 1, qty: 1, wantKind: shop.KindLedgerUnavailable,
		},
		{
			name: "ledger rejects transfer",
			arrange: func(l *fakeLedger, _ *shop.Processor) {
				l.fund(customer, usdt(100), usdt(100))
				l.transferErr = token.ErrInsufficientBalance
			},
			item: 1, qty: 1, wantKind: shop.KindLedgerTransferFailed,
		},
		{
			name: "counter exhausted",
			arrange: func(l *fakeLedger, p *shop.Processor) {
				l.fund(customer, usdt(100), usdt(100))
				shop.SetNextOrderID(p, math.MaxUint64)
			},
			item: 1, qty: 1, wantKind: shop.KindArithmeticOverflow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := newFakeLedger()
			recorded := 0
			p := newProcessor(t, ledger, shop.RecorderFunc(func(context.Context, shop.OrderPlaced) { recorded++ }))
			require.NoError(t, p.SetPrice(ctx, owner, 1, usdt(5)))
			require.NoError(t, p.SetPrice(ctx, owner, 3, math.MaxUint64/2))
			ledger.fund(store, usdt(1), 0)
			if tt.arrange != nil {
				tt.arrange(ledger, p)
			}

			before := takeSnapshot(ledger, p, 1, 2, 3)
			_, err := p.Buy(ctx, customer, tt.item, tt.qty)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, shop.KindOf(err))

			after := takeSnapshot(ledger, p, 1, 2, 3)
			if diff := cmp.Diff(before, after, cmp.AllowUnexported(snapshot{})); diff != "" {
				t.Fatalf("state changed on failure (-before +after):\n%s", diff)
			}
			assert.Zero(t, recorded)
		})
	}
}

func TestBuy_LedgerErrorsAreWrapped(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	ledger.fund(customer, usdt(100), usdt(100))
	ledger.transferErr = token.ErrInsufficientAllowance
	p := newProcessor(t, ledger, nil)
	require.NoError(t, p.SetPrice(ctx, owner, 1, usdt(1)))

	_, err := p.Buy(ctx, customer, 1, 1)
	require.ErrorIs(t, err, shop.ErrLedgerTransferFailed)
	require.ErrorIs(t, err, token.ErrInsufficientAllowance)
	assert.Equal(t, "ledger transfer failed", shop.ReasonOf(err))
}

func TestBuy_OrderIDsAreGapFree(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	ledger.fund(customer, usdt(1000), usdt(1000))
	p := newProcessor(t, ledger, nil)
	require.NoError(t, p.SetPrice(ctx, owner, 1, usdt(1)))

	var ids []uint64
	for i := 0; i < 10; i++ {
		evt, err := p.Buy(ctx, customer, 1, 1)
		require.NoError(t, err)
		ids = append(ids, evt.OrderID)

		// Failures in between must not consume ids.
		_, err = p.Buy(ctx, customer, 1, 0)
		require.Error(t, err)
		_, err = p.Buy(ctx, customer, 42, 1)
		require.Error(t, err)
	}

	for i, id := range ids {
		assert.Equal(t, uint64(i+1), id)
	}
	assert.Equal(t, uint64(11), p.NextOrderID())
	assert.Equal(t, usdt(10), ledger.balances[store])
	assert.Equal(t, usdt(990), ledger.balances[customer])
}

func TestBuy_ConcurrentBuyers(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	p := newProcessor(t, ledger, nil)
	require.NoError(t, p.SetPrice(ctx, owner, 1, 3))

	const buyers, perBuyer = 8, 25
	addrs := make([]identity.Address, buyers)
	for i := range addrs {
		a, err := identity.NewRandom()
		require.NoError(t, err)
		addrs[i] = a
		ledger.fund(a, 1_000, 1_000)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[uint64]bool)
	)
	for _, a := range addrs {
		wg.Add(1)
		go func(a identity.Address) {
			defer wg.Done()
			for i := 0; i < perBuyer; i++ {
				evt, err := p.Buy(ctx, a, 1, 2)
				if err != nil {
					t.Errorf("buy: %v", err)
					return
				}
				mu.Lock()
				seen[evt.OrderID] = true
				mu.Unlock()
			}
		}(a)
	}
	wg.Wait()

	require.Len(t, seen, buyers*perBuyer)
	for id := uint64(1); id <= buyers*perBuyer; id++ {
		assert.True(t, seen[id], "missing order id %d", id)
	}
	assert.Equal(t, uint64(buyers*perBuyer+1), p.NextOrderID())
	assert.Equal(t, token.Amount(buyers*perBuyer*6), ledger.balances[store])
}

func TestReasonOf(t *testing.T) {
	assert.Equal(t, "", shop.ReasonOf(nil))
	assert.Equal(t, "plain", shop.ReasonOf(errors.New("plain")))
	assert.Equal(t, shop.Kind(""), shop.KindOf(errors.New("plain")))
}
