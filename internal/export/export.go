// Package export renders the shopping list as a portable markdown
// document, for printing or pasting somewhere the tools don't reach.
package export

import (
	"fmt"
	"strings"

	"basket/internal/grouping"
	"basket/internal/models"
)

// Markdown renders items as a markdown document: one section per store,
// one subsection per category, a checkbox line per item. Stores are
// emitted in the given order; stores with no items are skipped.
// Categories and item ordering follow the grouped display view.
func Markdown(items []models.Item, stores []string, dateStr string) []byte {
	lines := []string{"# Shopping List"}
	if dateStr != "" {
		lines = append(lines, "", fmt.Sprintf("_Exported %s_", dateStr))
	}

	for _, storeName := range stores {
		groups := grouping.Grouped(items, storeName)
		if len(groups) == 0 {
			continue
		}

		lines = append(lines, "", fmt.Sprintf("## %s", storeName))
		for _, group := range groups {
			lines = append(lines, "", fmt.Sprintf("### %s", group.Category), "")
			for _, item := range group.Items {
				mark := " "
				if item.Purchased {
					mark = "x"
				}
				lines = append(lines, fmt.Sprintf("- [%s] %s", mark, item.Name))
			}
		}
	}

	return []byte(strings.Join(lines, "\n") + "\n")
}
