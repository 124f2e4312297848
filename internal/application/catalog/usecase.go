package catalog

import (
	"context"
	"fmt"

	"github.com/Zhima-Mochi/coffeeshop/internal/application"
	appshop "github.com/Zhima-Mochi/coffeeshop/internal/application/shop"
	domain "github.com/Zhima-Mochi/coffeeshop/internal/domain/catalog"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/identity"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/token"
	"github.com/Zhima-Mochi/coffeeshop/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	catalogService = "catalog-service"
	useCaseSeed    = "catalog.seed"
)

// PriceSetter is the set-price use case.
type PriceSetter interface {
	Execute(ctx context.Context, cmd appshop.SetPriceCommand) (appshop.SetPriceResult, error)
}

// PriceReader reads current catalog prices.
type PriceReader interface {
	PriceOf(itemID uint64) token.Amount
}

type SeedItem struct {
	ItemID uint64
	Name   string
	Price  token.Amount
}

type SeedCommand struct {
	Owner identity.Address
	Items []SeedItem
}

// SeedMenuUseCase names menu items and prices them as the owner, so the same
// authorization applies as for any other price change.
type SeedMenuUseCase struct {
	repo     domain.Repository
	setPrice PriceSetter
	inst     application.Instrumentation
}

func NewSeedMenuUseCase(repo domain.Repository, setPrice PriceSetter, tel observability.Observability) *SeedMenuUseCase {
	return &SeedMenuUseCase{repo: repo, setPrice: setPrice, inst: application.NewInstrumentation(tel, catalogService)}
}

func (uc *SeedMenuUseCase) Execute(ctx context.Context, cmd SeedCommand) (_ int, err error) {
	ctx, exec := uc.inst.Begin(ctx, useCaseSeed, "SeedMenu",
		attribute.Int("catalog.items", len(cmd.Items)),
	)
	defer func() { uc.inst.End(exec, err) }()

	for i, it := range cmd.Items {
		item, err := domain.NewMenuItem(it.ItemID, it.Name)
		if err != nil {
			return i, exec.Fail("INVALID_ITEM", fmt.Errorf("seed item %d: %w", it.ItemID, err))
		}
		if err := uc.repo.Save(ctx, item); err != nil {
			return i, exec.Fail("REPO_SAVE_FAILED", fmt.Errorf("seed item %d: %w", it.ItemID, err))
		}
		if _, err := uc.setPrice.Execute(ctx, appshop.SetPriceCommand{Caller: cmd.Owner, ItemID: it.ItemID, Price: it.Price}); err != nil {
			return i, exec.Fail("SET_PRICE_FAILED", fmt.Errorf("seed item %d: %w", it.ItemID, err))
		}
	}
	exec.Field("items", len(cmd.Items))
	return len(cmd.Items), nil
}

// MenuEntry is a menu line with its live price.
type MenuEntry struct {
	ItemID       uint64       `json:"item_id"`
	Name         string       `json:"name"`
	Price        token.Amount `json:"price"`
	PriceDisplay string       `json:"price_display"`
	ForSale      bool         `json:"for_sale"`
}

type MenuQuery struct {
	repo   domain.Repository
	prices PriceReader
	meta   token.Metadata
}

func NewMenuQuery(repo domain.Repository, prices PriceReader, meta token.Metadata) *MenuQuery {
	return &MenuQuery{repo: repo, prices: prices, meta: meta}
}

func (q *MenuQuery) List(ctx context.Context) ([]MenuEntry, error) {
	items, err := q.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("menu: list: %w", err)
	}
	out := make([]MenuEntry, 0, len(items))
	for _, it := range items {
		price := q.prices.PriceOf(it.ItemID)
		out = append(out, MenuEntry{
			ItemID:       it.ItemID,
			Name:         it.Name,
			Price:        price,
			PriceDisplay: q.meta.Format(price),
			ForSale:      price > 0,
		})
	}
	return out, nil
}
