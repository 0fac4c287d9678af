package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/events"
)

type esLog struct {
	mu   sync.Mutex
	reqs []string
}

func (l *esLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.reqs...)
}

func newIndexer(t *testing.T) (*Indexer, *esLog) {
	t.Helper()
	log := &esLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.mu.Lock()
		log.reqs = append(log.reqs, r.Method+" "+r.URL.Path)
		log.mu.Unlock()
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":"ok"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return &Indexer{Client: client, Index: "product", Store: seeded(t)}, log
}

func TestIndexer_Reindex(t *testing.T) {
	t.Parallel()
	ix, log := newIndexer(t)

	n, err := ix.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []string{
		"PUT /product/_doc/1",
		"PUT /product/_doc/2",
		"PUT /product/_doc/3",
		"DELETE /product/_doc/4",
	}, log.all())
}

func TestIndexer_HandleEvent(t *testing.T) {
	t.Parallel()
	ix, log := newIndexer(t)
	ctx := context.Background()

	require.NoError(t, ix.HandleEvent(ctx, events.New("product_deleted", "", map[string]any{"productID": "77"})))
	require.NoError(t, ix.HandleEvent(ctx, events.New("product_updated", "", nil)))

	assert.Equal(t, []string{"DELETE /product/_doc/77"}, log.all())
}
