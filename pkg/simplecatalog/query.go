package simplecatalog

import (
	"sort"
	"strings"
)

// Page size bounds for catalog queries
const (
	DefaultPageSize = 24
	MaxPageSize     = 100
)

// AllCategories is the category filter sentinel that disables filtering
const AllCategories = "all"

// SortOrder selects how query results are ordered
type SortOrder string

const (
	SortNone   SortOrder = "none"
	SortNewest SortOrder = "newest"
	SortOldest SortOrder = "oldest"
)

// ParseSortOrder maps a request value onto a SortOrder. Unknown values keep index order.
func ParseSortOrder(s string) SortOrder {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case SortNewest:
		return SortNewest
	case SortOldest:
		return SortOldest
	default:
		return SortNone
	}
}

// QueryRequest contains the parameters of a catalog query
type QueryRequest struct {
	Category string
	Search   string
	Sort     SortOrder
	Page     int
	PageSize int
}

// Page is one page of catalog query results
type Page struct {
	Items      []*Entry `json:"items"`
	Total      int      `json:"total"`
	Page       int      `json:"page"`
	TotalPages int      `json:"totalPages"`
}

// Query filters, sorts and paginates entries. The input slice is not modified.
func Query(entries []*Entry, req QueryRequest) *Page {
	matched := Filter(entries, req.Category, req.Search)
	SortEntries(matched, req.Sort)
	return Paginate(matched, req.Page, req.PageSize)
}

// Filter returns the entries in category (case-insensitive, "all" or empty
// matches everything) whose searchable text contains every search term.
func Filter(entries []*Entry, category, search string) []*Entry {
	category = strings.TrimSpace(category)
	filterCategory := category != "" && !strings.EqualFold(category, AllCategories)
	terms := strings.Fields(strings.ToLower(search))

	matched := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		if filterCategory && !strings.EqualFold(e.Category, category) {
			continue
		}
		if !matchesTerms(e, terms) {
			continue
		}
		matched = append(matched, e)
	}
	return matched
}

func matchesTerms(e *Entry, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	text := searchText(e)
	for _, term := range terms {
		if !strings.Contains(text, term) {
			return false
		}
	}
	return true
}

func searchText(e *Entry) string {
	parts := make([]string, 0, 2+len(e.Keywords))
	parts = append(parts, e.Title, e.Description)
	parts = append(parts, e.Keywords...)
	return strings.ToLower(strings.Join(parts, " "))
}

// SortEntries orders entries in place by date. Ties keep their relative order.
func SortEntries(entries []*Entry, order SortOrder) {
	switch order {
	case SortNewest:
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Time().After(entries[j].Time())
		})
	case SortOldest:
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Time().Before(entries[j].Time())
		})
	}
}

// Paginate clamps page and pageSize and slices out the requested page.
// A page past the end yields no items but keeps the totals.
func Paginate(entries []*Entry, page, pageSize int) *Page {
	if page < 1 {
		page = 1
	}
	pageSize = clampPageSize(pageSize)

	total := len(entries)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	items := []*Entry{}
	start := (page - 1) * pageSize
	if start < total {
		end := start + pageSize
		if end > total {
			end = total
		}
		items = append(items, entries[start:end]...)
	}

	return &Page{
		Items:      items,
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
	}
}

func clampPageSize(pageSize int) int {
	switch {
	case pageSize <= 0:
		return DefaultPageSize
	case pageSize > MaxPageSize:
		return MaxPageSize
	default:
		return pageSize
	}
}

// KeywordsRequest contains the parameters of a keyword frequency listing
type KeywordsRequest struct {
	Category string
	Search   string
	Limit    int
}

// DefaultKeywordLimit is the number of keywords returned when no limit is given
const DefaultKeywordLimit = 10

// TopKeywords counts keywords (case-insensitive) across the entries matching
// req and returns the most frequent ones, ties broken alphabetically.
func TopKeywords(entries []*Entry, req KeywordsRequest) []KeywordCount {
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultKeywordLimit
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	counts := make(map[string]int)
	for _, e := range Filter(entries, req.Category, req.Search) {
		for _, kw := range e.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				counts[kw]++
			}
		}
	}

	result := make([]KeywordCount, 0, len(counts))
	for kw, n := range counts {
		result = append(result, KeywordCount{Keyword: kw, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Keyword < result[j].Keyword
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result
}
