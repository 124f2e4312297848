// Package token models a fungible token ledger: balances, spending allowances
// and authorized debit transfers, denominated in the token's smallest unit.
package token

import (
	"context"
	"errors"
	"math"
	"math/bits"

	"github.com/Zhima-Mochi/coffeeshop/internal/domain/identity"
)

var (
	ErrInsufficientBalance   = errors.New("token: transfer amount exceeds balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	ErrNotMinter             = errors.New("token: caller is not the minter")
	ErrInvalidAddress        = errors.New("token: invalid address")
	ErrOverflow              = errors.New("token: amount overflow")
)

// Amount is a quantity of the token in its smallest unit.
type Amount uint64

// Unlimited is the allowance value treated as never-decreasing.
const Unlimited Amount = math.MaxUint64

// MulQty returns a*qty and false if the product does not fit in an Amount.
func (a Amount) MulQty(qty uint64) (Amount, bool) {
	hi, lo := bits.Mul64(uint64(a), qty)
	if hi != 0 {
		return 0, false
	}
	return Amount(lo), true
}

// Add returns a+b and false on overflow.
func (a Amount) Add(b Amount) (Amount, bool) {
	sum, carry := bits.Add64(uint64(a), uint64(b), 0)
	if carry != 0 {
		return 0, false
	}
	return Amount(sum), true
}

// Ledger is the subset of the token the shop consumes: two read-only queries
// and one authorized debit transfer. spender is the identity whose allowance
// is consumed.
type Ledger interface {
	BalanceOf(ctx context.Context, owner identity.Address) (Amount, error)
	Allowance(ctx context.Context, owner, spender identity.Address) (Amount, error)
	TransferFrom(ctx context.Context, spender, from, to identity.Address, amount Amount) error
}

// Token is the full fungible-token surface used by wallets and tooling.
type Token interface {
	Ledger
	Metadata() Metadata
	TotalSupply(ctx context.Context) (Amount, error)
	Approve(ctx context.Context, owner, spender identity.Address, amount Amount) error
	Transfer(ctx context.Context, from, to identity.Address, amount Amount) error
	Mint(ctx context.Context, caller, to identity.Address, amount Amount) error
}

// Metadata describes how amounts are displayed.
type Metadata struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// USDT mirrors the 6-decimal stable coin the shop was built around.
var USDT = Metadata{Name: "Mock USDT", Symbol: "USDT", Decimals: 6}
