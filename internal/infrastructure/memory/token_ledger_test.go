package memory_test

import (
	"context"
	"math"
	"testing"

	"github.com/Zhima-Mochi/coffeeshop/internal/domain/identity"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/token"
	"github.com/Zhima-Mochi/coffeeshop/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	minter  = identity.MustParse("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")
	alice   = identity.MustParse("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
	bob     = identity.MustParse("0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc")
	spender = identity.MustParse("0xe7f1725e7734ce288f8367e1bb143e90bb3f0512")
)

func newLedger(t *testing.T) *memory.TokenLedger {
	t.Helper()
	l := memory.NewTokenLedger(token.USDT, minter)
	require.NoError(t, l.Mint(context.Background(), minter, alice, 100))
	return l
}

func balance(t *testing.T, l *memory.TokenLedger, a identity.Address) token.Amount {
	t.Helper()
	b, err := l.BalanceOf(context.Background(), a)
	require.NoError(t, err)
	return b
}

func TestTokenLedger_Mint(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	assert.Equal(t, token.USDT, l.Metadata())
	assert.Equal(t, token.Amount(100), balance(t, l, alice))

	require.ErrorIs(t, l.Mint(ctx, alice, alice, 1), token.ErrNotMinter)
	require.ErrorIs(t, l.Mint(ctx, minter, identity.Zero, 1), token.ErrInvalidAddress)
	require.ErrorIs(t, l.Mint(ctx, minter, bob, math.MaxUint64), token.ErrOverflow)

	supply, err := l.TotalSupply(ctx)
	require.NoError(t, err)
	assert.Equal(t, token.Amount(100), supply)
	assert.Zero(t, balance(t, l, bob))
}

func TestTokenLedger_Transfer(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	require.NoError(t, l.Transfer(ctx, alice, bob, 40))
	assert.Equal(t, token.Amount(60), balance(t, l, alice))
	assert.Equal(t, token.Amount(40), balance(t, l, bob))

	require.ErrorIs(t, l.Transfer(ctx, alice, bob, 61), token.ErrInsufficientBalance)
	require.ErrorIs(t, l.Transfer(ctx, alice, identity.Zero, 1), token.ErrInvalidAddress)
	assert.Equal(t, token.Amount(60), balance(t, l, alice))
}

func TestTokenLedger_ApproveOverwrites(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	require.NoError(t, l.Approve(ctx, alice, spender, 10))
	require.NoError(t, l.Approve(ctx, alice, spender, 3))
	got, err := l.Allowance(ctx, alice, spender)
	require.NoError(t, err)
	assert.Equal(t, token.Amount(3), got)

	require.ErrorIs(t, l.Approve(ctx, alice, identity.Zero, 1), token.ErrInvalidAddress)
}

func TestTokenLedger_TransferFrom(t *testing.T) {
	ctx := context.Background()

	t.Run("consumes allowance", func(t *testing.T) {
		l := newLedger(t)
		require.NoError(t, l.Approve(ctx, alice, spender, 9))
		require.NoError(t, l.TransferFrom(ctx, spender, alice, bob, 9))

		left, err := l.Allowance(ctx, alice, spender)
		require.NoError(t, err)
		assert.Zero(t, left)
		assert.Equal(t, token.Amount(9), balance(t, l, bob))

		require.ErrorIs(t, l.TransferFrom(ctx, spender, alice, bob, 1), token.ErrInsufficientAllowance)
	})

	t.Run("unlimited allowance is not decremented", func(t *testing.T) {
		l := newLedger(t)
		require.NoError(t, l.Approve(ctx, alice, spender, token.Unlimited))
		require.NoError(t, l.TransferFrom(ctx, spender, alice, bob, 50))

		left, err := l.Allowance(ctx, alice, spender)
		require.NoError(t, err)
		assert.Equal(t, token.Unlimited, left)
	})

	t.Run("failed balance check leaves allowance", func(t *testing.T) {
		l := newLedger(t)
		require.NoError(t, l.Approve(ctx, alice, spender, 500))
		require.ErrorIs(t, l.TransferFrom(ctx, spender, alice, bob, 101), token.ErrInsufficientBalance)

		left, err := l.Allowance(ctx, alice, spender)
		require.NoError(t, err)
		assert.Equal(t, token.Amount(500), left)
		assert.Equal(t, token.Amount(100), balance(t, l, alice))
	})
}

func TestTokenLedger_CanceledContext(t *testing.T) {
	l := newLedger(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.BalanceOf(ctx, alice)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, l.Transfer(ctx, alice, bob, 1), context.Canceled)
	assert.Equal(t, token.Amount(100), balance(t, l, alice))
}
