package simplecatalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountCategoriesIncludesZeroCounts(t *testing.T) {
	entries := []*Entry{
		entry("a", "Food", "2024-01-01"),
		entry("b", "Food", "2024-01-01"),
		entry("c", "Abstract", "2024-01-01"),
	}

	got := CountCategories(entries, []string{"Logo", "Food", "Abstract"})
	assert.Equal(t, []CategoryCount{
		{Name: "Abstract", Count: 1},
		{Name: "Food", Count: 2},
		{Name: "Logo", Count: 0},
	}, got)
}

func TestCountCategoriesAddsUnknownAndFoldsCase(t *testing.T) {
	entries := []*Entry{
		entry("a", "food", "2024-01-01"),
		entry("b", "Zines", "2024-01-01"),
	}

	got := CountCategories(entries, []string{"Food"})
	assert.Equal(t, []CategoryCount{
		{Name: "Food", Count: 1},
		{Name: "Zines", Count: 1},
	}, got)
}

func TestCountCategoriesDefaults(t *testing.T) {
	got := CountCategories(nil, DefaultCategories)
	assert.Len(t, got, len(DefaultCategories))
	assert.Contains(t, got, CategoryCount{Name: "Logo", Count: 0})
	assert.Equal(t, "Abstract", got[0].Name)
}
