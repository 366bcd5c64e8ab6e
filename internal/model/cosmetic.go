package model

import (
	"fmt"
	"strings"
)

// Category is the closed set of cosmetic kinds.
type Category string

const (
	CategoryCape  Category = "cape"
	CategoryEmote Category = "emote"
)

// Categories lists every known category in display order.
var Categories = []Category{CategoryCape, CategoryEmote}

// ParseCategory validates a category name.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown cosmetic category %q", s)
}

// Cosmetic is a purchasable item. Path is nil until an asset is bound to it.
type Cosmetic struct {
	ID       int64    `json:"id"`
	Category Category `json:"type"`
	Path     *string  `json:"path,omitempty"`
}

// CosmeticPackage maps a billing provider package to a cosmetic it entitles.
type CosmeticPackage struct {
	PackageID  int64 `json:"package_id"`
	CosmeticID int64 `json:"cosmetic_id"`
}
