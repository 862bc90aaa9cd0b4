package simplecatalog

import (
	"sort"
	"strings"
)

// DefaultCategories is the enumerated category list shown even when empty
var DefaultCategories = []string{
	"Abstract",
	"Animals/Wildlife",
	"The Arts",
	"Backgrounds/Textures",
	"Beauty/Fashion",
	"Buildings/Landmarks",
	"Business/Finance",
	"Celebrities",
	"Drink",
	"Education",
	"Font",
	"Food",
	"Healthcare/Medical",
	"Holidays",
	"Icon",
	"Industrial",
	"Interiors",
	"Logo",
	"Miscellaneous",
	"Nature",
	"Objects",
	"Parks/Outdoor",
	"People",
	"Religion",
	"Science",
	"Signs/Symbols",
	"Sports/Recreation",
	"Technology",
	"Transportation",
	"Vintage",
}

// CountCategories counts entries per category. Every known category appears,
// zero counts included, and categories found only in entries are added.
// Names compare case-insensitively; the known spelling wins.
func CountCategories(entries []*Entry, known []string) []CategoryCount {
	byKey := make(map[string]*CategoryCount, len(known))
	result := make([]*CategoryCount, 0, len(known))
	add := func(name string) *CategoryCount {
		key := strings.ToLower(name)
		if c, ok := byKey[key]; ok {
			return c
		}
		c := &CategoryCount{Name: name}
		byKey[key] = c
		result = append(result, c)
		return c
	}

	for _, name := range known {
		add(name)
	}
	for _, e := range entries {
		add(e.Category).Count++
	}

	sort.SliceStable(result, func(i, j int) bool {
		return strings.ToLower(result[i].Name) < strings.ToLower(result[j].Name)
	})

	out := make([]CategoryCount, len(result))
	for i, c := range result {
		out[i] = *c
	}
	return out
}
