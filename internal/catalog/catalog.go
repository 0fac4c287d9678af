// Package catalog serves the product listing: reads from the record store,
// filtered either in memory or through the search index.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/es"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/recordstore"
	"github.com/Skotchmaster/storefront/internal/util"
)

var ErrNotFound = errors.New("product not found")

type Filter struct {
	Query    string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

func (f Filter) esQuery() es.Query {
	return es.Query{Text: f.Query, Category: f.Category, MinPrice: f.MinPrice, MaxPrice: f.MaxPrice}
}

// Match applies the filter to one product: exact category, case-insensitive
// substring over name or description, inclusive price bounds.
func (f Filter) Match(p *models.Product) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	return true
}

type Page struct {
	Items      []models.Product `json:"data"`
	Page       int              `json:"page"`
	Size       int              `json:"size"`
	Total      int64            `json:"total"`
	TotalPages int64            `json:"total_pages"`
	HasPrev    bool             `json:"has_prev"`
	HasNext    bool             `json:"has_next"`
}

// Searcher is the search index backend.
type Searcher interface {
	Search(ctx context.Context, q es.Query, from, size int) (int64, []models.Product, error)
}

type Service struct {
	Store    recordstore.Client
	Searcher Searcher
}

// List returns the active products in store order.
func (s *Service) List(ctx context.Context) ([]models.Product, error) {
	all, err := recordstore.ListAs[models.Product](ctx, s.Store, recordstore.Products)
	if err != nil {
		return nil, err
	}
	out := make([]models.Product, 0, len(all))
	for i := range all {
		if all[i].Active() {
			out = append(out, all[i])
		}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id models.ID) (*models.Product, error) {
	p, err := recordstore.GetAs[models.Product](ctx, s.Store, recordstore.Products, id.String())
	if err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

// Find returns one page of matching products. Text queries go to the search
// index when one is configured; if it fails the in-memory filter answers.
func (s *Service) Find(ctx context.Context, f Filter, page, size int) (Page, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.find")
	if page < 1 {
		page = 1
	}
	offset, limit := util.Calculate(page, size)

	if s.Searcher != nil && strings.TrimSpace(f.Query) != "" {
		total, items, err := s.Searcher.Search(ctx, f.esQuery(), offset, limit)
		if err == nil {
			return newPage(items, page, offset, limit, total), nil
		}
		l.Warn("search_index_failed", "reason", "falling back to in-memory filter", "error", err)
	}

	all, err := s.List(ctx)
	if err != nil {
		return Page{}, err
	}
	matched := make([]models.Product, 0, len(all))
	for i := range all {
		if f.Match(&all[i]) {
			matched = append(matched, all[i])
		}
	}

	total := int64(len(matched))
	end := offset + limit
	if offset > len(matched) {
		offset = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}
	return newPage(matched[offset:end], page, offset, limit, total), nil
}

// Categories lists the distinct categories of active products in first-seen
// order.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []string
	for _, p := range all {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		out = append(out, p.Category)
	}
	return out, nil
}

func newPage(items []models.Product, page, offset, limit int, total int64) Page {
	if items == nil {
		items = []models.Product{}
	}
	return Page{
		Items:      items,
		Page:       page,
		Size:       limit,
		Total:      total,
		TotalPages: util.TotalPages(total, limit),
		HasPrev:    page > 1,
		HasNext:    int64(offset+limit) < total,
	}
}
