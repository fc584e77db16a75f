package pose

import (
	"strings"

	"github.com/matzehuels/tryon/pkg/errors"
)

// Category is the layer category of a garment. It decides which anchor
// region the garment attaches to and its default stacking order.
type Category string

// Layer categories, from innermost to outermost.
const (
	BaseTop    Category = "base_top"
	BaseBottom Category = "base_bottom"
	MidTop     Category = "mid_top"
	MidBottom  Category = "mid_bottom"
	Outerwear  Category = "outerwear"
	Footwear   Category = "footwear"
	Headwear   Category = "headwear"
	Accessory  Category = "accessory"
)

// Categories lists every known category in stacking order of front_v1.
var Categories = []Category{
	BaseTop, BaseBottom, MidBottom, MidTop, Outerwear, Accessory, Footwear, Headwear,
}

// ParseCategory parses a category name. Both "base_top" and "base-top"
// spellings are accepted, case-insensitively.
func ParseCategory(s string) (Category, error) {
	norm := Category(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if norm.Valid() {
		return norm, nil
	}
	return "", errors.New(errors.ErrCodeInvalidCategory, "unknown layer category: %q", s)
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case BaseTop, BaseBottom, MidTop, MidBottom, Outerwear, Footwear, Headwear, Accessory:
		return true
	}
	return false
}

func (c Category) String() string { return string(c) }
