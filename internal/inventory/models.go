package inventory

import (
	"github.com/Imellstorm/wptest/internal/catalog"
	"github.com/Imellstorm/wptest/internal/types"
)

// Line is a held quantity of one item kind.
type Line struct {
	Name      string `json:"name"`
	UnitPrice int    `json:"unit_price"`
	Count     int    `json:"count"`
}

// Value returns Count×UnitPrice.
func (l Line) Value() int {
	return l.Count * l.UnitPrice
}

// Inventory is a participant's holdings. TotalValue always equals the sum of
// the line values; every mutation keeps it in step.
type Inventory struct {
	TotalValue int    `json:"total_value"`
	Lines      []Line `json:"lines"`
}

// New returns an empty inventory.
func New() *Inventory {
	return &Inventory{Lines: []Line{}}
}

func (inv *Inventory) find(name string) int {
	key := catalog.Key(name)
	for i, line := range inv.Lines {
		if catalog.Key(line.Name) == key {
			return i
		}
	}
	return -1
}

// Count returns the held quantity of a kind, 0 when not held.
func (inv *Inventory) Count(name string) int {
	if i := inv.find(name); i >= 0 {
		return inv.Lines[i].Count
	}
	return 0
}

// ValueOf returns the unit price of a held kind.
func (inv *Inventory) ValueOf(name string) (int, error) {
	i := inv.find(name)
	if i < 0 {
		return 0, types.Errorf(types.ErrUnknownItem, "no %s in inventory", name)
	}
	return inv.Lines[i].UnitPrice, nil
}

// AddOrIncrement adds qty of a kind. An absent kind starts at zero and is
// appended with the given name and price; a held kind keeps its own name and
// price.
func (inv *Inventory) AddOrIncrement(name string, unitPrice, qty int) error {
	if qty <= 0 {
		return types.Errorf(types.ErrMalformedInput, "quantity of %s must be positive", name)
	}

	i := inv.find(name)
	if i < 0 {
		inv.Lines = append(inv.Lines, Line{Name: name, UnitPrice: unitPrice})
		i = len(inv.Lines) - 1
	}
	inv.Lines[i].Count += qty
	inv.TotalValue += inv.Lines[i].UnitPrice * qty
	return nil
}

// RemoveOrDecrement takes qty of a kind away. A line reaching zero is removed;
// the order of the remaining lines is preserved.
func (inv *Inventory) RemoveOrDecrement(name string, qty int) error {
	if qty <= 0 {
		return types.Errorf(types.ErrMalformedInput, "quantity of %s must be positive", name)
	}

	i := inv.find(name)
	if i < 0 {
		return types.Errorf(types.ErrUnknownItem, "no %s in inventory", name)
	}
	line := inv.Lines[i]
	if qty > line.Count {
		return types.Errorf(types.ErrInsufficientQuantity, "requested %d %s, holding %d", qty, name, line.Count)
	}

	inv.TotalValue -= line.UnitPrice * qty
	if qty == line.Count {
		inv.Lines = append(inv.Lines[:i], inv.Lines[i+1:]...)
		return nil
	}
	inv.Lines[i].Count -= qty
	return nil
}

// Clone returns a deep copy.
func (inv *Inventory) Clone() *Inventory {
	lines := make([]Line, len(inv.Lines))
	copy(lines, inv.Lines)
	return &Inventory{TotalValue: inv.TotalValue, Lines: lines}
}

// Sum recomputes the total from the lines.
func Sum(lines []Line) int {
	total := 0
	for _, line := range lines {
		total += line.Value()
	}
	return total
}
