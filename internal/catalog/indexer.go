package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/storefront/internal/es"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/recordstore"
)

// Indexer mirrors record store products into the search index.
// Deactivated and deleted products are removed from it.
type Indexer struct {
	Client *elasticsearch.Client
	Index  string
	Store  recordstore.Client
}

func (ix *Indexer) Sync(ctx context.Context, id string) error {
	p, err := recordstore.GetAs[models.Product](ctx, ix.Store, recordstore.Products, id)
	if err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return es.DeleteProduct(ctx, ix.Client, ix.Index, id)
		}
		return err
	}
	if !p.Active() {
		return es.DeleteProduct(ctx, ix.Client, ix.Index, id)
	}
	return es.IndexProduct(ctx, ix.Client, ix.Index, *p)
}

// Reindex pushes every product in the store.
func (ix *Indexer) Reindex(ctx context.Context) (int, error) {
	all, err := recordstore.ListAs[models.Product](ctx, ix.Store, recordstore.Products)
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range all {
		if err := ix.Sync(ctx, all[i].ID.String()); err != nil {
			return n, fmt.Errorf("reindex %s: %w", all[i].ID, err)
		}
		n++
	}
	return n, nil
}

// HandleEvent reacts to product events published by the record store.
func (ix *Indexer) HandleEvent(ctx context.Context, ev events.Event) error {
	id, _ := ev.Data["productID"].(string)
	if id == "" {
		logging.FromContext(ctx).Warn("index_event_skipped", "type", ev.Type, "reason", "no product id")
		return nil
	}
	return ix.Sync(ctx, id)
}
