package inventory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Imellstorm/wptest/internal/catalog"
)

// Marshal serializes an inventory as {total_value, lines:[{name, unit_price, count}]}.
func Marshal(inv *Inventory) ([]byte, error) {
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(inv)
}

// Unmarshal decodes and validates a stored inventory.
func Unmarshal(data []byte) (*Inventory, error) {
	var inv Inventory
	if err := DecodeStrict(data, &inv); err != nil {
		return nil, err
	}
	if inv.Lines == nil {
		inv.Lines = []Line{}
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	return &inv, nil
}

// Validate checks the structural invariants of a stored inventory: no zero
// or negative lines, one line per kind, and a consistent total.
func (inv *Inventory) Validate() error {
	if err := CheckLines(inv.Lines, inv.TotalValue); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(inv.Lines))
	for _, line := range inv.Lines {
		key := catalog.Key(line.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("inventory holds %q twice", line.Name)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// CheckLines validates the line set shared by inventories and bids.
func CheckLines(lines []Line, total int) error {
	for i, line := range lines {
		if strings.TrimSpace(line.Name) == "" {
			return fmt.Errorf("line %d: name is required", i)
		}
		if line.UnitPrice <= 0 {
			return fmt.Errorf("line %d (%s): unit price must be positive", i, line.Name)
		}
		if line.Count <= 0 {
			return fmt.Errorf("line %d (%s): count must be positive", i, line.Name)
		}
	}
	if sum := Sum(lines); sum != total {
		return fmt.Errorf("total value %d does not match lines (%d)", total, sum)
	}
	return nil
}

// DecodeStrict decodes a single JSON document, rejecting unknown fields and
// trailing data.
func DecodeStrict(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("decode: unexpected trailing data")
	}
	return nil
}
