package menufile_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	appcatalog "github.com/Zhima-Mochi/coffeeshop/internal/application/catalog"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/token"
	"github.com/Zhima-Mochi/coffeeshop/internal/infrastructure/menufile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	items, err := menufile.Parse(strings.NewReader(`
items:
  - id: 1
    name: Americano
    price: "3"
  - id: 2
    name: Espresso
    price: 2.5
  - id: 9
    name: Off menu
`), token.USDT)
	require.NoError(t, err)
	assert.Equal(t, []appcatalog.SeedItem{
		{ItemID: 1, Name: "Americano", Price: 3_000_000},
		{ItemID: 2, Name: "Espresso", Price: 2_500_000},
		{ItemID: 9, Name: "Off menu", Price: 0},
	}, items)
}

func TestParse_Errors(t *testing.T) {
	tests := map[string]string{
		"duplicate id":    "items:\n  - {id: 1, name: a, price: '1'}\n  - {id: 1, name: b, price: '2'}\n",
		"too precise":     "items:\n  - {id: 1, name: a, price: '0.0000001'}\n",
		"negative":        "items:\n  - {id: 1, name: a, price: '-1'}\n",
		"unknown field":   "items:\n  - {id: 1, name: a, cost: '1'}\n",
		"not a number id": "items:\n  - {id: x, name: a}\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := menufile.Parse(strings.NewReader(doc), token.USDT)
			require.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	items, err := menufile.Load(filepath.Join(t.TempDir(), "missing.yaml"), token.USDT)
	require.NoError(t, err)
	assert.Empty(t, items)

	path := filepath.Join(t.TempDir(), "menu.yaml")
	require.NoError(t, os.WriteFile(path, []byte("items:\n  - {id: 4, name: Cappuccino, price: '5'}\n"), 0o600))
	items, err = menufile.Load(path, token.USDT)
	require.NoError(t, err)
	assert.Equal(t, []appcatalog.SeedItem{{ItemID: 4, Name: "Cappuccino", Price: 5_000_000}}, items)
}
