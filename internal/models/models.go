package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Categories defines the allowed categories for list items, in display order.
var Categories = []string{"Vegetables", "Beverages", "Meat/Dairy", "Frozen", "Dry Goods"}

// Stores defines the allowed stores, in display order.
var Stores = []string{"Costco", "Trader Joe's", "Whole Foods", "Other"}

// Item represents one row of the shared shopping list.
type Item struct {
	// ID is a UUID minted at creation and used to address the row for
	// toggle/delete. Rows written by the legacy tool have none; a fresh
	// ID is assigned on load and persisted on the next save.
	ID string
	// CreatedAt is an RFC3339 UTC instant for rows we create. Legacy
	// values round-trip untouched.
	CreatedAt string
	Name      string
	Purchased bool
	Category  string
	Store     string
}

// NewItem creates an Item with a generated ID and creation timestamp.
// Purchased always starts false.
func NewItem(name, category, store string) Item {
	return Item{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Name:      name,
		Purchased: false,
		Category:  category,
		Store:     store,
	}
}

// ValidCategory reports whether category is a member of Categories.
func ValidCategory(category string) bool {
	return contains(Categories, category)
}

// ValidStore reports whether store is a member of Stores.
func ValidStore(store string) bool {
	return contains(Stores, store)
}

// ShortID returns the leading segment of a UUID, enough to address an
// item unambiguously on a household-sized list.
func ShortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
