// Package admin is the back-office view over the record store: account
// blocking, product maintenance, the order ledger and dashboard figures.
package admin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/recordstore"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
)

// ValidationError carries one message per rejected field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid product: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ProductIndexer is told about every product write.
type ProductIndexer interface {
	Sync(ctx context.Context, id string) error
}

type Service struct {
	Store    recordstore.Client
	Indexer  ProductIndexer
	Producer events.Publisher
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) Users(ctx context.Context) ([]models.User, error) {
	return recordstore.ListAs[models.User](ctx, s.Store, recordstore.Users)
}

// ToggleBlock flips the block flag of a user and returns the stored record.
func (s *Service) ToggleBlock(ctx context.Context, id models.ID) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "admin.toggle_block")

	u, err := recordstore.GetAs[models.User](ctx, s.Store, recordstore.Users, id.String())
	if err != nil {
		return nil, s.wrapNotFound("user", id, err)
	}
	updated, err := recordstore.PatchAs[models.User](ctx, s.Store, recordstore.Users, id.String(),
		map[string]any{"isBlock": !u.IsBlock})
	if err != nil {
		l.Error("toggle_block_failed", "user_id", id, "error", err)
		return nil, err
	}

	l.Info("toggle_block_success", "user_id", id, "blocked", updated.IsBlock)
	s.publish(ctx, events.UserTopic, id.String(), "user_block_toggled", map[string]any{"blocked": updated.IsBlock})
	return updated, nil
}

func (s *Service) wrapNotFound(kind string, id models.ID, err error) error {
	if errors.Is(err, recordstore.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return err
}

func (s *Service) publish(ctx context.Context, topic, key, typ string, data map[string]any) {
	if s.Producer == nil {
		return
	}
	if err := s.Producer.PublishEvent(ctx, topic, key, events.New(typ, key, data)); err != nil {
		logging.FromContext(ctx).Warn("publish_failed", "topic", topic, "type", typ, "error", err)
	}
}
