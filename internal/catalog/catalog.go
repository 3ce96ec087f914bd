package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// ItemKind is a tradable kind of item. Name is matched case-insensitively.
type ItemKind struct {
	Name      string `json:"name" mapstructure:"name"`
	UnitPrice int    `json:"unit_price" mapstructure:"unit_price"`
}

// Catalog is the fixed table of item kinds. It is immutable once built and
// safe for concurrent use.
type Catalog struct {
	kinds []ItemKind
	index map[string]int
}

var defaultKinds = []ItemKind{
	{Name: "Water", UnitPrice: 1},
	{Name: "Shirt", UnitPrice: 3},
	{Name: "Pants", UnitPrice: 4},
	{Name: "Dog", UnitPrice: 5},
	{Name: "Soup", UnitPrice: 8},
	{Name: "BE developer", UnitPrice: 10},
}

// Default returns the standard island catalog.
func Default() *Catalog {
	c, err := New(defaultKinds...)
	if err != nil {
		panic(err)
	}
	return c
}

// New builds a catalog, rejecting empty tables, blank or duplicate names and
// non-positive prices.
func New(kinds ...ItemKind) (*Catalog, error) {
	if len(kinds) == 0 {
		return nil, errors.New("catalog must contain at least one item kind")
	}

	c := &Catalog{
		kinds: make([]ItemKind, 0, len(kinds)),
		index: make(map[string]int, len(kinds)),
	}
	for _, k := range kinds {
		if strings.TrimSpace(k.Name) == "" {
			return nil, errors.New("item kind name is required")
		}
		if k.UnitPrice <= 0 {
			return nil, fmt.Errorf("item kind %q: unit price must be positive", k.Name)
		}
		key := Key(k.Name)
		if _, exists := c.index[key]; exists {
			return nil, fmt.Errorf("item kind %q is listed twice", k.Name)
		}
		c.index[key] = len(c.kinds)
		c.kinds = append(c.kinds, k)
	}
	return c, nil
}

// Key normalises an item name for comparison.
func Key(name string) string {
	return strings.ToLower(name)
}

// Len returns the number of kinds.
func (c *Catalog) Len() int {
	return len(c.kinds)
}

// At returns the i-th kind in catalog order.
func (c *Catalog) At(i int) ItemKind {
	return c.kinds[i]
}

// Kinds returns a copy of all kinds in catalog order.
func (c *Catalog) Kinds() []ItemKind {
	out := make([]ItemKind, len(c.kinds))
	copy(out, c.kinds)
	return out
}

// Lookup finds a kind by case-insensitive name.
func (c *Catalog) Lookup(name string) (ItemKind, bool) {
	i, ok := c.index[Key(name)]
	if !ok {
		return ItemKind{}, false
	}
	return c.kinds[i], true
}

// Cheapest returns the lowest unit price in the catalog.
func (c *Catalog) Cheapest() int {
	min := c.kinds[0].UnitPrice
	for _, k := range c.kinds[1:] {
		if k.UnitPrice < min {
			min = k.UnitPrice
		}
	}
	return min
}
