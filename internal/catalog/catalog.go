// Package catalog holds the canonical master list of recognizable medical
// items and the embedding-backed normalization service that resolves raw bill
// descriptions against it.
package catalog

import (
	_ "embed"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed items.yaml
var bundledItems []byte

// NonPayableCategory marks catalog entries the insurer never reimburses
// (the IRDAI non-payable consumables list).
const NonPayableCategory = "Non-Payable Item"

// Item is one canonical catalog entry.
type Item struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
}

type itemsFile struct {
	Items []Item `yaml:"items"`
}

// Load parses the bundled master item list.
func Load() ([]Item, error) {
	var file itemsFile
	if err := yaml.Unmarshal(bundledItems, &file); err != nil {
		return nil, eris.Wrap(err, "catalog: parse items")
	}
	if len(file.Items) == 0 {
		return nil, eris.New("catalog: no items defined")
	}
	seen := make(map[string]struct{}, len(file.Items))
	for _, it := range file.Items {
		if it.ID == "" || it.Name == "" || it.Category == "" {
			return nil, eris.Errorf("catalog: incomplete item %+v", it)
		}
		if _, dup := seen[it.ID]; dup {
			return nil, eris.Errorf("catalog: duplicate item id %s", it.ID)
		}
		seen[it.ID] = struct{}{}
	}
	return file.Items, nil
}
