package admin

import (
	"context"
	"strings"
	"time"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/recordstore"
)

type ProductInput struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Price       models.Money `json:"price"`
	Count       int          `json:"count"`
	Category    string       `json:"category"`
	Images      []string     `json:"images,omitempty"`
	IsActive    *bool        `json:"isActive,omitempty"`
}

func (in ProductInput) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "Required"
	}
	if strings.TrimSpace(in.Description) == "" {
		fields["description"] = "Required"
	}
	if !in.Price.IsPositive() {
		fields["price"] = "Enter valid price"
	}
	if in.Count < 0 {
		fields["count"] = "Enter valid stock"
	}
	if strings.TrimSpace(in.Category) == "" {
		fields["category"] = "Choose category"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Products lists the catalogue as the admin sees it: active products, or
// with recycle set, the soft-deleted ones.
func (s *Service) Products(ctx context.Context, recycle bool) ([]models.Product, error) {
	all, err := recordstore.ListAs[models.Product](ctx, s.Store, recordstore.Products)
	if err != nil {
		return nil, err
	}
	out := make([]models.Product, 0, len(all))
	for i := range all {
		if all[i].Active() != recycle {
			out = append(out, all[i])
		}
	}
	return out, nil
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "admin.create_product")
	if err := in.Validate(); err != nil {
		l.Warn("create_product_failed", "status", 400, "error", err)
		return nil, err
	}

	now := s.now().UTC().Format(time.RFC3339)
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	p := models.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Count:       in.Count,
		Category:    in.Category,
		Images:      nonEmpty(in.Images),
		IsActive:    &active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := recordstore.CreateAs[models.Product](ctx, s.Store, recordstore.Products, p)
	if err != nil {
		l.Error("create_product_failed", "status", 500, "error", err)
		return nil, err
	}

	l.Info("create_product_success", "product_id", created.ID)
	s.afterWrite(ctx, created.ID, "product_created")
	return created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id models.ID, in ProductInput) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "admin.update_product")
	if err := in.Validate(); err != nil {
		l.Warn("update_product_failed", "status", 400, "error", err)
		return nil, err
	}

	patch := map[string]any{
		"name":        strings.TrimSpace(in.Name),
		"description": strings.TrimSpace(in.Description),
		"price":       in.Price,
		"count":       in.Count,
		"category":    in.Category,
		"images":      nonEmpty(in.Images),
		"updated_at":  s.now().UTC().Format(time.RFC3339),
	}
	if in.IsActive != nil {
		patch["isActive"] = *in.IsActive
	}

	updated, err := recordstore.PatchAs[models.Product](ctx, s.Store, recordstore.Products, id.String(), patch)
	if err != nil {
		return nil, s.wrapNotFound("product", id, err)
	}

	l.Info("update_product_success", "product_id", id)
	s.afterWrite(ctx, id, "product_updated")
	return updated, nil
}

// SoftDelete hides a product from the storefront; Restore brings it back.
func (s *Service) SoftDelete(ctx context.Context, id models.ID) (*models.Product, error) {
	return s.setActive(ctx, id, false)
}

func (s *Service) Restore(ctx context.Context, id models.ID) (*models.Product, error) {
	return s.setActive(ctx, id, true)
}

func (s *Service) setActive(ctx context.Context, id models.ID, active bool) (*models.Product, error) {
	p, err := recordstore.PatchAs[models.Product](ctx, s.Store, recordstore.Products, id.String(),
		map[string]any{"isActive": active, "updated_at": s.now().UTC().Format(time.RFC3339)})
	if err != nil {
		return nil, s.wrapNotFound("product", id, err)
	}
	typ := "product_restored"
	if !active {
		typ = "product_deactivated"
	}
	s.afterWrite(ctx, id, typ)
	return p, nil
}

// DeleteProduct removes the record for good.
func (s *Service) DeleteProduct(ctx context.Context, id models.ID) error {
	if err := s.Store.Delete(ctx, recordstore.Products, id.String()); err != nil {
		return s.wrapNotFound("product", id, err)
	}
	s.afterWrite(ctx, id, "product_deleted")
	return nil
}

func (s *Service) afterWrite(ctx context.Context, id models.ID, typ string) {
	if s.Indexer != nil {
		if err := s.Indexer.Sync(ctx, id.String()); err != nil {
			logging.FromContext(ctx).Warn("index_sync_failed", "product_id", id, "type", typ, "error", err)
		}
	}
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
