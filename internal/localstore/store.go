// Package localstore is the durable key/value area the storefront keeps on
// the user's machine. Values are JSON documents; a value that no longer
// decodes is discarded instead of failing startup.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

var ErrMalformed = errors.New("malformed stored value")

type Store interface {
	// Load returns the raw value for key and whether it was present.
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, value []byte) error
	Clear(ctx context.Context, key string) error
}

// LoadJSON decodes the value under key into dst. A value that does not
// decode is cleared and reported as ErrMalformed; dst is left untouched.
func LoadJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	raw, ok, err := s.Load(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return false, fmt.Errorf("load %s: destination must be a non-nil pointer", key)
	}
	tmp := reflect.New(rv.Elem().Type())
	if err := json.Unmarshal(raw, tmp.Interface()); err != nil {
		if cerr := s.Clear(ctx, key); cerr != nil {
			return false, fmt.Errorf("clear %s: %w", key, cerr)
		}
		return false, fmt.Errorf("%s: %w: %v", key, ErrMalformed, err)
	}
	rv.Elem().Set(tmp.Elem())
	return true, nil
}

func SaveJSON(ctx context.Context, s Store, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Save(ctx, key, b)
}
