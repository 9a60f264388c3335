package dataset

import (
	"strings"

	"basket/internal/models"
	"basket/internal/store"
)

// Dataset is one loaded copy of the shopping list: the full item table
// plus the file reference it was read from. Ref is nil until the file
// exists remotely; Save sets it. Every mutation happens on a Dataset in
// memory and is persisted by rewriting the whole file.
type Dataset struct {
	Items []models.Item
	Ref   *store.FileRef
}

// Append adds an item to the end of the table.
func (d *Dataset) Append(item models.Item) {
	d.Items = append(d.Items, item)
}

// SetPurchased sets the purchased flag of the row at index i. Returns
// false when i is out of range.
func (d *Dataset) SetPurchased(i int, v bool) bool {
	if i < 0 || i >= len(d.Items) {
		return false
	}
	d.Items[i].Purchased = v

	return true
}

// RemoveAt removes the row at index i, compacting the table. Returns
// the removed item, or false when i is out of range.
func (d *Dataset) RemoveAt(i int) (models.Item, bool) {
	if i < 0 || i >= len(d.Items) {
		return models.Item{}, false
	}
	removed := d.Items[i]
	d.Items = append(d.Items[:i], d.Items[i+1:]...)

	return removed, true
}

// IndexByID returns the row index of the item with the given ID, or -1.
func (d *Dataset) IndexByID(id string) int {
	for i, item := range d.Items {
		if item.ID == id {
			return i
		}
	}

	return -1
}

// FindByIDPrefix resolves id as an exact ID or a unique ID prefix and
// returns the row index. Returns -1 when nothing matches or the prefix
// is ambiguous.
func (d *Dataset) FindByIDPrefix(id string) int {
	if i := d.IndexByID(id); i >= 0 {
		return i
	}
	if id == "" {
		return -1
	}

	match := -1
	for i, item := range d.Items {
		if strings.HasPrefix(item.ID, id) {
			if match >= 0 {
				return -1
			}
			match = i
		}
	}

	return match
}
