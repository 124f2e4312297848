package memory

import (
	"context"
	"sort"
	"sync"

	domain "github.com/Zhima-Mochi/coffeeshop/internal/domain/catalog"
)

type MenuRepository struct {
	mu    sync.RWMutex
	items map[uint64]domain.MenuItem
}

func NewMenuRepository() *MenuRepository {
	return &MenuRepository{
		items: make(map[uint64]domain.MenuItem),
	}
}

func (r *MenuRepository) Save(ctx context.Context, item domain.MenuItem) error {
	_ = ctx
	if item.Name == "" {
		return domain.ErrInvalidItem
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[item.ItemID] = item
	return nil
}

func (r *MenuRepository) Get(ctx context.Context, itemID uint64) (domain.MenuItem, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[itemID]
	if !ok {
		return domain.MenuItem{}, domain.ErrNotFound
	}
	return item, nil
}

func (r *MenuRepository) List(ctx context.Context) ([]domain.MenuItem, error) {
	_ = ctx

	r.mu.RLock()
	out := make([]domain.MenuItem, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}
