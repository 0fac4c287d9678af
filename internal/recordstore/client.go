// Package recordstore talks to the remote collection store that holds users
// and products. Records are JSON documents addressed by collection and id.
package recordstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	Users    = "users"
	Products = "products"
)

var (
	// ErrUnreachable means the store could not be reached or failed on its
	// side. Callers fall back to local state.
	ErrUnreachable = errors.New("record store unreachable")
	ErrNotFound    = errors.New("record not found")
)

// Client is resource oriented CRUD over the store. Patch returns the full
// merged record, which callers treat as the new source of truth.
type Client interface {
	List(ctx context.Context, collection string) ([]json.RawMessage, error)
	Get(ctx context.Context, collection, id string) (json.RawMessage, error)
	Create(ctx context.Context, collection string, payload any) (json.RawMessage, error)
	Patch(ctx context.Context, collection, id string, partial any) (json.RawMessage, error)
	Delete(ctx context.Context, collection, id string) error
}

// StatusError is returned for 4xx answers other than 404.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("record store answered %d: %s", e.Code, e.Body)
}

func ListAs[T any](ctx context.Context, c Client, collection string) ([]T, error) {
	raws, err := c.List(ctx, collection)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raws))
	for _, r := range raws {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			return nil, fmt.Errorf("decode %s record: %w", collection, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func GetAs[T any](ctx context.Context, c Client, collection, id string) (*T, error) {
	raw, err := c.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	return decode[T](collection, raw)
}

func CreateAs[T any](ctx context.Context, c Client, collection string, payload any) (*T, error) {
	raw, err := c.Create(ctx, collection, payload)
	if err != nil {
		return nil, err
	}
	return decode[T](collection, raw)
}

func PatchAs[T any](ctx context.Context, c Client, collection, id string, partial any) (*T, error) {
	raw, err := c.Patch(ctx, collection, id, partial)
	if err != nil {
		return nil, err
	}
	return decode[T](collection, raw)
}

func decode[T any](collection string, raw json.RawMessage) (*T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode %s record: %w", collection, err)
	}
	return &v, nil
}
