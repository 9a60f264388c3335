package export

import (
	"strings"
	"testing"

	"basket/internal/models"
)

func TestMarkdown(t *testing.T) {
	items := []models.Item{
		{ID: "1", Name: "Milk", Category: "Meat/Dairy", Store: "Costco"},
		{ID: "2", Name: "Carrots", Category: "Vegetables", Store: "Costco", Purchased: true},
		{ID: "3", Name: "Coffee", Category: "Beverages", Store: "Trader Joe's"},
	}

	got := string(Markdown(items, models.Stores, "2026-08-25"))

	want := strings.Join([]string{
		"# Shopping List",
		"",
		"_Exported 2026-08-25_",
		"",
		"## Costco",
		"",
		"### Meat/Dairy",
		"",
		"- [ ] Milk",
		"",
		"### Vegetables",
		"",
		"- [x] Carrots",
		"",
		"## Trader Joe's",
		"",
		"### Beverages",
		"",
		"- [ ] Coffee",
		"",
	}, "\n")

	if got != want {
		t.Errorf("Markdown() =\n%s\nwant:\n%s", got, want)
	}
}

func TestMarkdown_SkipsEmptyStores(t *testing.T) {
	items := []models.Item{
		{ID: "1", Name: "Rice", Category: "Dry Goods", Store: "Other"},
	}

	got := string(Markdown(items, models.Stores, ""))

	if strings.Contains(got, "## Costco") {
		t.Error("empty store Costco was rendered")
	}
	if !strings.Contains(got, "## Other") {
		t.Error("store Other missing from output")
	}
	if strings.Contains(got, "_Exported") {
		t.Error("date line rendered despite empty date")
	}
}

func TestMarkdown_EmptyList(t *testing.T) {
	got := string(Markdown(nil, models.Stores, ""))

	if got != "# Shopping List\n" {
		t.Errorf("Markdown(nil) = %q, want title only", got)
	}
}
