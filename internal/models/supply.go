package models

import (
	"fmt"
	"math"
	"strings"
)

// Medical is tracked as available (1) or not (0) rather than as a count.
const Medical = "medical"

// MaxQuantity is the most a single category may hold.
const MaxQuantity = math.MaxInt32

type SupplyCategory struct {
	Name string
	Unit string // empty for binary categories
}

// SupplyCategories is the catalogue offered to operators, in display order.
var SupplyCategories = []SupplyCategory{
	{Name: "food", Unit: "lbs"},
	{Name: Medical},
	{Name: "blankets", Unit: "quantity"},
	{Name: "water", Unit: "lbs"},
}

// LookupCategory matches name against the catalogue case-insensitively.
func LookupCategory(name string) (SupplyCategory, bool) {
	for _, c := range SupplyCategories {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return SupplyCategory{}, false
}

// IsBinary reports whether the category only tracks availability.
func (c SupplyCategory) IsBinary() bool {
	return strings.EqualFold(c.Name, Medical)
}

// FormatQuantity renders quantity with the category's unit, e.g. "30 lbs".
func (c SupplyCategory) FormatQuantity(quantity int) string {
	if c.Unit == "" {
		return fmt.Sprintf("%d", quantity)
	}
	return fmt.Sprintf("%d %s", quantity, c.Unit)
}
