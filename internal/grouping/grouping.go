// Package grouping derives the per-store display view of the list.
// The view is a pure function of the item table, recomputed on every
// call; nothing here mutates or caches.
package grouping

import (
	"basket/internal/models"
)

// CategoryGroup is one category's slice of a store's list.
type CategoryGroup struct {
	Category string
	Items    []models.Item
}

// Grouped filters items down to one store and groups them by category.
// Categories appear in the order they are first encountered in the
// table; within a group, unpurchased items come before purchased ones
// and keep their table order otherwise. A store with no items yields no
// groups.
func Grouped(items []models.Item, store string) []CategoryGroup {
	var order []string
	byCategory := make(map[string][]models.Item)

	for _, item := range items {
		if item.Store != store {
			continue
		}
		if _, seen := byCategory[item.Category]; !seen {
			order = append(order, item.Category)
		}
		byCategory[item.Category] = append(byCategory[item.Category], item)
	}

	groups := make([]CategoryGroup, 0, len(order))
	for _, category := range order {
		groups = append(groups, CategoryGroup{
			Category: category,
			Items:    purchasedLast(byCategory[category]),
		})
	}

	return groups
}

// purchasedLast stably partitions items with unpurchased first.
func purchasedLast(items []models.Item) []models.Item {
	out := make([]models.Item, 0, len(items))
	for _, item := range items {
		if !item.Purchased {
			out = append(out, item)
		}
	}
	for _, item := range items {
		if item.Purchased {
			out = append(out, item)
		}
	}

	return out
}
