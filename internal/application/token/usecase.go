package token

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/coffeeshop/internal/application"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/identity"
	domain "github.com/Zhima-Mochi/coffeeshop/internal/domain/token"
	"github.com/Zhima-Mochi/coffeeshop/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	tokenService   = "token-service"
	useCaseApprove = "token.approve"
	useCaseMint    = "token.mint"
)

type ApproveCommand struct {
	Owner   identity.Address
	Spender identity.Address
	Amount  domain.Amount
}

type MintCommand struct {
	Caller identity.Address
	To     identity.Address
	Amount domain.Amount
}

// Service exposes the wallet-side operations of the token: approvals,
// minting and read-only queries.
type Service struct {
	token domain.Token
	inst  application.Instrumentation
}

func NewService(t domain.Token, tel observability.Observability) *Service {
	return &Service{token: t, inst: application.NewInstrumentation(tel, tokenService)}
}

func (s *Service) Approve(ctx context.Context, cmd ApproveCommand) (err error) {
	ctx, exec := s.inst.Begin(ctx, useCaseApprove, "Approve",
		attribute.String("token.owner", cmd.Owner.String()),
		attribute.String("token.spender", cmd.Spender.String()),
	)
	defer func() { s.inst.End(exec, err) }()
	exec.Field("spender", cmd.Spender)
	exec.Field("amount", uint64(cmd.Amount))

	if err := s.token.Approve(ctx, cmd.Owner, cmd.Spender, cmd.Amount); err != nil {
		return exec.Fail(statusOf(err), err)
	}
	return nil
}

func (s *Service) Mint(ctx context.Context, cmd MintCommand) (err error) {
	ctx, exec := s.inst.Begin(ctx, useCaseMint, "Mint",
		attribute.String("token.caller", cmd.Caller.String()),
		attribute.String("token.to", cmd.To.String()),
	)
	defer func() { s.inst.End(exec, err) }()
	exec.Field("to", cmd.To)
	exec.Field("amount", uint64(cmd.Amount))

	if err := s.token.Mint(ctx, cmd.Caller, cmd.To, cmd.Amount); err != nil {
		return exec.Fail(statusOf(err), err)
	}
	return nil
}

func (s *Service) Metadata() domain.Metadata { return s.token.Metadata() }

func (s *Service) TotalSupply(ctx context.Context) (domain.Amount, error) {
	return s.token.TotalSupply(ctx)
}

func (s *Service) BalanceOf(ctx context.Context, owner identity.Address) (domain.Amount, error) {
	return s.token.BalanceOf(ctx, owner)
}

func (s *Service) Allowance(ctx context.Context, owner, spender identity.Address) (domain.Amount, error) {
	return s.token.Allowance(ctx, owner, spender)
}

func statusOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotMinter):
		return "NOT_MINTER"
	case errors.Is(err, domain.ErrInvalidAddress):
		return "INVALID_ADDRESS"
	case errors.Is(err, domain.ErrOverflow):
		return "ARITHMETIC_OVERFLOW"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "CONTEXT_CANCELED"
	default:
		return "LEDGER_FAILED"
	}
}
