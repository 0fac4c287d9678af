package session

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/reconcile"
	"github.com/Skotchmaster/storefront/internal/recordstore"
)

// AddToCart adds qty units of p, at least one.
func (s *Session) AddToCart(ctx context.Context, p models.Product, qty int) error {
	if p.ID == "" {
		return ErrInvalidProduct
	}
	if qty < 1 {
		qty = 1
	}
	ref := p.Ref()
	s.mutateCart(ctx, "cart_add", ref.ID, qty, func(c models.Cart) models.Cart {
		return reconcile.AddToCart(c, ref, qty)
	})
	return nil
}

// UpdateCartQty sets the quantity of a line. Zero or less removes it.
func (s *Session) UpdateCartQty(ctx context.Context, id models.ID, qty int) {
	s.mutateCart(ctx, "cart_qty_set", id, qty, func(c models.Cart) models.Cart {
		return reconcile.SetQty(c, id, qty)
	})
}

func (s *Session) RemoveFromCart(ctx context.Context, id models.ID) {
	s.mutateCart(ctx, "cart_remove", id, 0, func(c models.Cart) models.Cart {
		return reconcile.RemoveFromCart(c, id)
	})
}

// mutateCart applies fn to the local cart and persists it, then replays fn
// on a fresh server copy so concurrent changes from other devices survive.
func (s *Session) mutateCart(ctx context.Context, typ string, id models.ID, qty int, fn func(models.Cart) models.Cart) {
	s.mu.Lock()
	s.cart = fn(s.cart)
	s.persistCart(ctx)
	target := s.remoteID()
	s.mu.Unlock()

	logging.FromContext(ctx).Debug(typ, "svc", "session.cart", "product_id", id, "qty", qty)
	if target == "" {
		return
	}
	s.spawn(ctx, "cart_sync", func(ctx context.Context) error {
		fresh, err := recordstore.GetAs[models.User](ctx, s.store, recordstore.Users, target.String())
		if err != nil {
			return err
		}
		resp, err := recordstore.PatchAs[models.User](ctx, s.store, recordstore.Users, target.String(),
			map[string]any{"cart": fn(fresh.Cart)})
		if err != nil {
			return err
		}
		s.adopt(ctx, resp)
		return nil
	})
	s.publish(ctx, events.CartTopic, typ, target, map[string]any{"productId": id, "qty": qty})
}

// AddToWishlist saves p unless it is already there.
func (s *Session) AddToWishlist(ctx context.Context, p models.Product) error {
	if p.ID == "" {
		return ErrInvalidProduct
	}
	s.mutateWishlist(ctx, "wishlist_add", p.ID, func(w models.Wishlist) models.Wishlist {
		out, _ := reconcile.AddToWishlist(w, p)
		return out
	})
	return nil
}

func (s *Session) RemoveFromWishlist(ctx context.Context, id models.ID) {
	s.mutateWishlist(ctx, "wishlist_remove", id, func(w models.Wishlist) models.Wishlist {
		return reconcile.RemoveFromWishlist(w, id)
	})
}

func (s *Session) mutateWishlist(ctx context.Context, typ string, id models.ID, fn func(models.Wishlist) models.Wishlist) {
	s.mu.Lock()
	s.wishlist = fn(s.wishlist)
	s.persistWishlist(ctx)
	target := s.remoteID()
	s.mu.Unlock()

	logging.FromContext(ctx).Debug(typ, "svc", "session.wishlist", "product_id", id)
	if target == "" {
		return
	}
	s.spawn(ctx, "wishlist_sync", func(ctx context.Context) error {
		fresh, err := recordstore.GetAs[models.User](ctx, s.store, recordstore.Users, target.String())
		if err != nil {
			return err
		}
		next := fn(fresh.Wishlist)
		if sameJSON(next, fresh.Wishlist) {
			return nil
		}
		resp, err := recordstore.PatchAs[models.User](ctx, s.store, recordstore.Users, target.String(),
			map[string]any{"wishlist": next})
		if err != nil {
			return err
		}
		s.adopt(ctx, resp)
		return nil
	})
	s.publish(ctx, events.CartTopic, typ, target, map[string]any{"productId": id})
}
