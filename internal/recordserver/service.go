package recordserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/recordstore"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("record not found")
	ErrUnknownCollection = errors.New("unknown collection")
)

var DefaultCollections = []string{recordstore.Users, recordstore.Products}

type RecordService struct {
	Repo        *GormRepo
	Collections []string
	Producer    events.Publisher
}

func (s *RecordService) known(collection string) error {
	for _, c := range s.Collections {
		if c == collection {
			return nil
		}
	}
	return fmt.Errorf("%s: %w", collection, ErrUnknownCollection)
}

// List returns the collection ordered by numeric id. Documents whose
// top-level field equals every filter value are kept; values compare in
// their unquoted string form.
func (s *RecordService) List(ctx context.Context, collection string, filters map[string]string) ([]recordstore.Document, error) {
	if err := s.known(collection); err != nil {
		return nil, err
	}
	recs, err := s.Repo.List(ctx, collection)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(recs, func(i, j int) bool { return idLess(recs[i].DocID, recs[j].DocID) })

	out := make([]recordstore.Document, 0, len(recs))
	for _, r := range recs {
		doc, err := recordstore.ToDocument(json.RawMessage(r.Body))
		if err != nil {
			logging.FromContext(ctx).Warn("skip_corrupt_record", "collection", collection, "id", r.DocID, "error", err)
			continue
		}
		if matches(doc, filters) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (s *RecordService) Get(ctx context.Context, collection, id string) (recordstore.Document, error) {
	if err := s.known(collection); err != nil {
		return nil, err
	}
	rec, err := s.Repo.Get(ctx, collection, id)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return nil, err
	}
	return recordstore.ToDocument(json.RawMessage(rec.Body))
}

// Create stores payload under a freshly issued id; any id in the payload is
// ignored.
func (s *RecordService) Create(ctx context.Context, collection string, payload json.RawMessage) (recordstore.Document, error) {
	if err := s.known(collection); err != nil {
		return nil, err
	}
	doc, err := recordstore.ToDocument(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	delete(doc, "id")

	rec, err := s.Repo.Create(ctx, collection, func(id string) (string, error) {
		doc.SetID(id)
		return string(doc.Raw()), nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, collection, "created", rec.DocID)
	return doc, nil
}

// Patch merges the top-level fields of partial into the stored document and
// returns the result.
func (s *RecordService) Patch(ctx context.Context, collection, id string, partial json.RawMessage) (recordstore.Document, error) {
	if err := s.known(collection); err != nil {
		return nil, err
	}
	patch, err := recordstore.ToDocument(partial)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var merged recordstore.Document
	_, err = s.Repo.Update(ctx, collection, id, func(body string) (string, error) {
		doc, err := recordstore.ToDocument(json.RawMessage(body))
		if err != nil {
			return "", err
		}
		doc.Merge(patch)
		merged = doc
		return string(doc.Raw()), nil
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return nil, err
	}

	s.publish(ctx, collection, "updated", id)
	return merged, nil
}

func (s *RecordService) Delete(ctx context.Context, collection, id string) error {
	if err := s.known(collection); err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, collection, id); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return err
	}
	s.publish(ctx, collection, "deleted", id)
	return nil
}

// Seed loads a {collection: [documents]} file into an empty store. Documents
// keep their ids; those without one are numbered in file order.
func (s *RecordService) Seed(ctx context.Context, path string) (int, error) {
	l := logging.FromContext(ctx).With("svc", "recordstore.seed")

	total, err := s.Repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if total > 0 {
		l.Info("seed_skipped", "reason", "store not empty", "records", total)
		return 0, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}
	var data map[string][]json.RawMessage
	if err := json.Unmarshal(b, &data); err != nil {
		return 0, fmt.Errorf("decode seed file: %w", err)
	}

	n := 0
	for _, collection := range s.Collections {
		used := map[string]bool{}
		next := 1
		for _, raw := range data[collection] {
			doc, err := recordstore.ToDocument(raw)
			if err != nil {
				return n, fmt.Errorf("seed %s: %w", collection, err)
			}
			id := doc.ID()
			if id == "" || used[id] {
				for used[strconv.Itoa(next)] {
					next++
				}
				id = strconv.Itoa(next)
			}
			used[id] = true
			doc.SetID(id)
			if err := s.Repo.Insert(ctx, collection, id, string(doc.Raw())); err != nil {
				return n, fmt.Errorf("seed %s/%s: %w", collection, id, err)
			}
			n++
		}
	}
	l.Info("seed_loaded", "records", n)
	return n, nil
}

// publish emits product changes for the search indexer. Other collections
// are not published from here.
func (s *RecordService) publish(ctx context.Context, collection, action, id string) {
	if s.Producer == nil || collection != recordstore.Products {
		return
	}
	ev := events.New("product_"+action, "", map[string]any{"productID": id})
	if err := s.Producer.PublishEvent(ctx, events.ProductTopic, id, ev); err != nil {
		logging.FromContext(ctx).Warn("publish_failed", "topic", events.ProductTopic, "error", err)
	}
}

func matches(doc recordstore.Document, filters map[string]string) bool {
	for k, want := range filters {
		raw, ok := doc[k]
		if !ok {
			return false
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			s = string(raw)
		}
		if s != want {
			return false
		}
	}
	return true
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
