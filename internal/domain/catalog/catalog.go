// Package catalog holds the display side of the menu. Prices live in the
// shop processor; the menu only names items.
package catalog

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrInvalidItem = errors.New("catalog: item name is required")
	ErrNotFound    = errors.New("catalog: item not found")
)

type MenuItem struct {
	ItemID uint64
	Name   string
}

func NewMenuItem(itemID uint64, name string) (MenuItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return MenuItem{}, ErrInvalidItem
	}
	return MenuItem{ItemID: itemID, Name: name}, nil
}

type Repository interface {
	Save(ctx context.Context, item MenuItem) error
	Get(ctx context.Context, itemID uint64) (MenuItem, error)
	// List returns items ordered by ItemID.
	List(ctx context.Context) ([]MenuItem, error)
}
