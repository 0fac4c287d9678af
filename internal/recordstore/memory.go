package recordstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
)

// Memory is an in-process Client with the same id and merge rules as the
// record server. Setting Down makes every call fail with ErrUnreachable.
type Memory struct {
	mu    sync.Mutex
	down  bool
	colls map[string]map[string]Document
	calls int
}

func NewMemory() *Memory {
	return &Memory{colls: map[string]map[string]Document{}}
}

func (m *Memory) SetDown(down bool) {
	m.mu.Lock()
	m.down = down
	m.mu.Unlock()
}

// Calls counts requests that reached the store, failed ones included.
func (m *Memory) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Seed stores v under collection, assigning an id when it has none, and
// returns the id.
func (m *Memory) Seed(collection string, v any) string {
	doc, err := ToDocument(v)
	if err != nil {
		panic(fmt.Sprintf("seed %s: %v", collection, err))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insert(collection, doc)
}

func (m *Memory) List(_ context.Context, collection string) ([]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return nil, err
	}
	coll := m.colls[collection]
	ids := make([]string, 0, len(coll))
	for id := range coll {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return idLess(ids[i], ids[j]) })
	out := make([]json.RawMessage, 0, len(ids))
	for _, id := range ids {
		out = append(out, coll[id].Raw())
	}
	return out, nil
}

func (m *Memory) Get(_ context.Context, collection, id string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return nil, err
	}
	doc, ok := m.colls[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return doc.Raw(), nil
}

func (m *Memory) Create(_ context.Context, collection string, payload any) (json.RawMessage, error) {
	doc, err := ToDocument(payload)
	if err != nil {
		return nil, &StatusError{Code: 400, Body: err.Error()}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return nil, err
	}
	delete(doc, "id")
	id := m.insert(collection, doc)
	return m.colls[collection][id].Raw(), nil
}

func (m *Memory) Patch(_ context.Context, collection, id string, partial any) (json.RawMessage, error) {
	patch, err := ToDocument(partial)
	if err != nil {
		return nil, &StatusError{Code: 400, Body: err.Error()}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return nil, err
	}
	doc, ok := m.colls[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	doc.Merge(patch)
	return doc.Raw(), nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return err
	}
	if _, ok := m.colls[collection][id]; !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	delete(m.colls[collection], id)
	return nil
}

func (m *Memory) enter() error {
	m.calls++
	if m.down {
		return ErrUnreachable
	}
	return nil
}

func (m *Memory) insert(collection string, doc Document) string {
	coll, ok := m.colls[collection]
	if !ok {
		coll = map[string]Document{}
		m.colls[collection] = coll
	}
	id := doc.ID()
	if id == "" {
		id = strconv.Itoa(nextID(coll))
		doc.SetID(id)
	}
	coll[id] = doc
	return id
}

// nextID is one past the largest numeric id in coll.
func nextID(coll map[string]Document) int {
	top := 0
	for id := range coll {
		if n, err := strconv.Atoi(id); err == nil && n > top {
			top = n
		}
	}
	return top + 1
}

func idLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}
