package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/Zhima-Mochi/coffeeshop/internal/domain/journal"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/shop"
	"github.com/Zhima-Mochi/coffeeshop/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderJournal(t *testing.T) {
	ctx := context.Background()
	j := memory.NewOrderJournal()
	evt := shop.OrderPlaced{OrderID: 1, Customer: alice, ItemID: 7, Qty: 3, Total: 9, OccurredAt: time.Now().UTC()}

	require.NoError(t, j.Append(ctx, evt))
	replay := evt
	replay.OccurredAt = replay.OccurredAt.Add(time.Second)
	require.NoError(t, j.Append(ctx, replay), "re-delivery is idempotent")

	conflicting := evt
	conflicting.Qty = 4
	require.ErrorIs(t, j.Append(ctx, conflicting), journal.ErrDuplicate)
	require.Error(t, j.Append(ctx, shop.OrderPlaced{}))

	got, err := j.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, evt, got)
	assert.Equal(t, 1, j.Len())

	_, err = j.Get(ctx, 2)
	require.ErrorIs(t, err, journal.ErrNotFound)
}

func TestOrderJournal_LastOrderID(t *testing.T) {
	ctx := context.Background()
	j := memory.NewOrderJournal()

	last, err := j.LastOrderID(ctx)
	require.NoError(t, err)
	assert.Zero(t, last)

	for _, id := range []uint64{3, 9, 4} {
		require.NoError(t, j.Append(ctx, shop.OrderPlaced{OrderID: id, Customer: alice, ItemID: 1, Qty: 1, Total: 1}))
	}
	last, err = j.LastOrderID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), last)
}
