package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/es"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/recordstore"
)

func seeded(t *testing.T) *recordstore.Memory {
	t.Helper()
	m := recordstore.NewMemory()
	m.Seed(recordstore.Products, map[string]any{"name": "Kaju Katli", "description": "Cashew fudge", "price": 450, "category": "Sweets"})
	m.Seed(recordstore.Products, map[string]any{"name": "Badam", "description": "Premium almonds", "price": "300", "category": "Nuts"})
	m.Seed(recordstore.Products, map[string]any{"name": "Pista Roll", "description": "Pistachio sweet", "price": 120, "category": "Sweets"})
	m.Seed(recordstore.Products, map[string]any{"name": "Old Stock", "price": 10, "category": "Sweets", "isActive": false})
	return m
}

func dec(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func names(ps []models.Product) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Name)
	}
	return out
}

func TestService_ListHidesInactive(t *testing.T) {
	t.Parallel()
	svc := &Service{Store: seeded(t)}

	all, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Kaju Katli", "Badam", "Pista Roll"}, names(all))
}

func TestService_FindInMemory(t *testing.T) {
	t.Parallel()
	svc := &Service{Store: seeded(t)}
	ctx := context.Background()

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "all", filter: Filter{}, want: []string{"Kaju Katli", "Badam", "Pista Roll"}},
		{name: "category", filter: Filter{Category: "Sweets"}, want: []string{"Kaju Katli", "Pista Roll"}},
		{name: "text in description", filter: Filter{Query: "ALMOND"}, want: []string{"Badam"}},
		{name: "price bounds inclusive", filter: Filter{MinPrice: dec(120), MaxPrice: dec(300)}, want: []string{"Badam", "Pista Roll"}},
		{name: "no match", filter: Filter{Query: "chocolate"}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			page, err := svc.Find(ctx, tt.filter, 1, 10)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(page.Items))
			assert.Equal(t, int64(len(tt.want)), page.Total)
		})
	}
}

func TestService_FindPaginates(t *testing.T) {
	t.Parallel()
	svc := &Service{Store: seeded(t)}

	page, err := svc.Find(context.Background(), Filter{}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pista Roll"}, names(page.Items))
	assert.Equal(t, int64(2), page.TotalPages)
	assert.True(t, page.HasPrev)
	assert.False(t, page.HasNext)

	page, err = svc.Find(context.Background(), Filter{}, 5, 2)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

type stubSearcher struct {
	got   es.Query
	items []models.Product
	err   error
}

func (s *stubSearcher) Search(_ context.Context, q es.Query, _, _ int) (int64, []models.Product, error) {
	s.got = q
	return int64(len(s.items)), s.items, s.err
}

func TestService_FindUsesSearcherForText(t *testing.T) {
	t.Parallel()
	stub := &stubSearcher{items: []models.Product{{ID: "9", Name: "Kaju Katli"}}}
	svc := &Service{Store: seeded(t), Searcher: stub}

	page, err := svc.Find(context.Background(), Filter{Query: "katly", Category: "Sweets"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Kaju Katli"}, names(page.Items))
	assert.Equal(t, "katly", stub.got.Text)
	assert.Equal(t, "Sweets", stub.got.Category)
}

func TestService_FindFallsBackWhenSearchFails(t *testing.T) {
	t.Parallel()
	stub := &stubSearcher{err: errors.New("cluster down")}
	svc := &Service{Store: seeded(t), Searcher: stub}

	page, err := svc.Find(context.Background(), Filter{Query: "pista"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pista Roll"}, names(page.Items))
}

func TestService_Get(t *testing.T) {
	t.Parallel()
	svc := &Service{Store: seeded(t)}
	ctx := context.Background()

	p, err := svc.Get(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "Badam", p.Name)
	assert.True(t, p.Price.Equal(decimal.NewFromInt(300)))

	_, err = svc.Get(ctx, "99")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Categories(t *testing.T) {
	t.Parallel()
	svc := &Service{Store: seeded(t)}
	cats, err := svc.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Sweets", "Nuts"}, cats)
}
