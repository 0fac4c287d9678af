package catalog

import (
	"context"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/storefront/internal/es"
	"github.com/Skotchmaster/storefront/internal/models"
)

type ESSearcher struct {
	Client *elasticsearch.Client
	Index  string
}

func (s *ESSearcher) Search(ctx context.Context, q es.Query, from, size int) (int64, []models.Product, error) {
	return es.Search(ctx, s.Client, s.Index, q, from, size)
}
