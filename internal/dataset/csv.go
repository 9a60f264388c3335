package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"basket/internal/models"
)

// columns is the persisted header, in order. Files written before the
// id column existed carry only the trailing five; missing ids are
// minted on load and persisted on the next save.
var columns = []string{"id", "timestamp", "item", "purchased", "category", "store"}

// Marshal encodes items as the canonical CSV document: header row
// first, booleans as True/False, one record per item in slice order.
func Marshal(items []models.Item) []byte {
	var buf bytes.Buffer

	w := csv.NewWriter(&buf)
	_ = w.Write(columns)
	for _, item := range items {
		_ = w.Write([]string{
			item.ID,
			item.CreatedAt,
			item.Name,
			formatBool(item.Purchased),
			item.Category,
			item.Store,
		})
	}
	w.Flush()

	return buf.Bytes()
}

// Unmarshal decodes a CSV document into items. Columns are matched by
// header name, so legacy column orders load fine; short rows read as
// empty cells. A document that cannot be parsed at all, or that has no
// item column, is an error — callers degrade to an empty list.
func Unmarshal(data []byte) ([]models.Item, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return []models.Item{}, nil
	}

	idx := columnIndex(records[0])
	if _, ok := idx["item"]; !ok {
		return nil, fmt.Errorf("csv header has no item column")
	}

	items := make([]models.Item, 0, len(records)-1)
	for _, row := range records[1:] {
		cell := func(name string) string {
			i, ok := idx[name]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i]
		}

		item := models.Item{
			ID:        cell("id"),
			CreatedAt: cell("timestamp"),
			Name:      cell("item"),
			Purchased: parseBool(cell("purchased")),
			Category:  cell("category"),
			Store:     cell("store"),
		}
		if item.ID == "" {
			item.ID = uuid.New().String()
		}

		items = append(items, item)
	}

	return items, nil
}

func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}

	return idx
}

// formatBool matches the format the legacy tool wrote.
func formatBool(v bool) string {
	if v {
		return "True"
	}

	return "False"
}

func parseBool(s string) bool {
	s = strings.TrimSpace(s)

	return strings.EqualFold(s, "true") || s == "1"
}
