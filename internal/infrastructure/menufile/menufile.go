// Package menufile reads the menu seed from YAML.
package menufile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	appcatalog "github.com/Zhima-Mochi/coffeeshop/internal/application/catalog"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/token"
	"gopkg.in/yaml.v3"
)

// File is the on-disk layout:
//
//	items:
//	  - id: 1
//	    name: Americano
//	    price: "3"      # display units of the payment token
type File struct {
	Items []Item `yaml:"items"`
}

type Item struct {
	ID    uint64 `yaml:"id"`
	Name  string `yaml:"name"`
	Price string `yaml:"price"`
}

// Load reads path. A missing file yields an empty menu.
func Load(path string, meta token.Metadata) ([]appcatalog.SeedItem, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("menufile: read %s: %w", path, err)
	}
	return Parse(bytes.NewReader(data), meta)
}

func Parse(r io.Reader, meta token.Metadata) ([]appcatalog.SeedItem, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("menufile: decode: %w", err)
	}

	seen := make(map[uint64]bool, len(f.Items))
	out := make([]appcatalog.SeedItem, 0, len(f.Items))
	for _, it := range f.Items {
		if seen[it.ID] {
			return nil, fmt.Errorf("menufile: item %d listed twice", it.ID)
		}
		seen[it.ID] = true

		price := token.Amount(0)
		if it.Price != "" {
			p, err := meta.Units(it.Price)
			if err != nil {
				return nil, fmt.Errorf("menufile: item %d: %w", it.ID, err)
			}
			price = p
		}
		out = append(out, appcatalog.SeedItem{ItemID: it.ID, Name: it.Name, Price: price})
	}
	return out, nil
}
