package admin

import (
	"context"
	"sort"
	"strings"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
)

// AdminService defines the interface for administrative catalog operations.
//
// IMPORTANT: Endpoints using this service should be protected with the admin
// key middleware so only operators can reach them.
type AdminService interface {
	// ListAll returns every entry in index order with references attached
	ListAll(ctx context.Context) (*ListResponse, error)

	// GetStatistics returns totals and a per-category breakdown
	GetStatistics(ctx context.Context) (*Statistics, error)
}

// ListResponse is the full catalog listing
type ListResponse struct {
	Vectors []*simplecatalog.Entry `json:"vectors"`
}

// CategoryStatistics is one row of the per-category breakdown
type CategoryStatistics struct {
	Name      string `json:"name"`
	Count     int    `json:"count"`
	Downloads int64  `json:"downloads"`
}

// Statistics provides aggregated statistics about the catalog
type Statistics struct {
	TotalVectors   int                  `json:"totalVectors"`
	TotalDownloads int64                `json:"totalDownloads"`
	Categories     []CategoryStatistics `json:"categories"`
	NewestDate     string               `json:"newestDate,omitempty"`
	OldestDate     string               `json:"oldestDate,omitempty"`
}

// New creates a new AdminService over the catalog service
func New(svc simplecatalog.Service) AdminService {
	return &adminService{svc: svc}
}

// adminService implements the AdminService interface
type adminService struct {
	svc simplecatalog.Service
}

var _ AdminService = (*adminService)(nil)

func (s *adminService) ListAll(ctx context.Context) (*ListResponse, error) {
	entries, err := s.svc.ListEntries(ctx)
	if err != nil {
		return nil, err
	}
	return &ListResponse{Vectors: entries}, nil
}

func (s *adminService) GetStatistics(ctx context.Context) (*Statistics, error) {
	entries, err := s.svc.ListEntries(ctx)
	if err != nil {
		return nil, err
	}
	return Summarize(entries), nil
}

// Summarize computes catalog statistics. Categories appear only when they
// hold entries and are sorted by name.
func Summarize(entries []*simplecatalog.Entry) *Statistics {
	stats := &Statistics{
		TotalVectors: len(entries),
		Categories:   []CategoryStatistics{},
	}

	byName := make(map[string]int)
	for _, e := range entries {
		stats.TotalDownloads += e.Downloads

		i, ok := byName[e.Category]
		if !ok {
			i = len(stats.Categories)
			byName[e.Category] = i
			stats.Categories = append(stats.Categories, CategoryStatistics{Name: e.Category})
		}
		stats.Categories[i].Count++
		stats.Categories[i].Downloads += e.Downloads

		if e.Date != "" {
			if stats.NewestDate == "" || e.Date > stats.NewestDate {
				stats.NewestDate = e.Date
			}
			if stats.OldestDate == "" || e.Date < stats.OldestDate {
				stats.OldestDate = e.Date
			}
		}
	}

	sort.Slice(stats.Categories, func(i, j int) bool {
		return strings.ToLower(stats.Categories[i].Name) < strings.ToLower(stats.Categories[j].Name)
	})
	return stats
}
