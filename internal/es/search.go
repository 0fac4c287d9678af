package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/models"
)

type Query struct {
	Text     string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

// BuildQuery renders q as a search body. Text matches name (boosted) and
// description with fuzzy matching; category and price only filter.
// Deactivated products never match.
func BuildQuery(q Query, from, size int) map[string]any {
	must := []any{}
	if text := strings.TrimSpace(q.Text); text != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":     text,
				"fields":    []string{"name^2", "description"},
				"fuzziness": "AUTO",
			},
		})
	} else {
		must = append(must, map[string]any{"match_all": map[string]any{}})
	}

	filter := []any{}
	if q.Category != "" {
		filter = append(filter, map[string]any{
			"term": map[string]any{"category.keyword": q.Category},
		})
	}
	if q.MinPrice != nil || q.MaxPrice != nil {
		rng := map[string]any{}
		if q.MinPrice != nil {
			rng["gte"] = q.MinPrice.InexactFloat64()
		}
		if q.MaxPrice != nil {
			rng["lte"] = q.MaxPrice.InexactFloat64()
		}
		filter = append(filter, map[string]any{"range": map[string]any{"price": rng}})
	}

	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must":     must,
				"filter":   filter,
				"must_not": []any{map[string]any{"term": map[string]any{"isActive": false}}},
			},
		},
		"from": from,
		"size": size,
	}
}

func Search(ctx context.Context, client *elasticsearch.Client, index string, q Query, from, size int) (int64, []models.Product, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(BuildQuery(q, from, size)); err != nil {
		return 0, nil, fmt.Errorf("encode search: %w", err)
	}

	res, err := client.Search(
		client.Search.WithContext(ctx),
		client.Search.WithIndex(index),
		client.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return 0, nil, fmt.Errorf("search %s: %s", res.Status(), body)
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Product `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("decode search: %w", err)
	}

	prods := make([]models.Product, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		prods[i] = hit.Source
	}
	return r.Hits.Total.Value, prods, nil
}

func IndexProduct(ctx context.Context, client *elasticsearch.Client, index string, p models.Product) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode product: %w", err)
	}

	res, err := client.Index(index, bytes.NewReader(body),
		client.Index.WithContext(ctx),
		client.Index.WithDocumentID(p.ID.String()),
		client.Index.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("index product %s: %w", p.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		b, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index product %s: %s: %s", p.ID, res.Status(), b)
	}
	return nil
}

// DeleteProduct removes a document; a missing document is not an error.
func DeleteProduct(ctx context.Context, client *elasticsearch.Client, index, id string) error {
	res, err := client.Delete(index, id,
		client.Delete.WithContext(ctx),
		client.Delete.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		b, _ := io.ReadAll(res.Body)
		return fmt.Errorf("delete product %s: %s: %s", id, res.Status(), b)
	}
	return nil
}
