package session

import (
	"context"
	"errors"

	"github.com/Skotchmaster/storefront/internal/localstore"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
)

// Local persistence keys.
const (
	KeyUser       = "cc_user"
	KeyCart       = "cc_cart"
	KeyWishlist   = "cc_wishlist"
	KeyRegistry   = "cc_users"
	KeyCartSynced = "cc_cart_synced"
)

// baseline is the cart the server last acknowledged for a user. Local lines
// above it are units added since then.
type baseline struct {
	UserID models.ID   `json:"userId"`
	Cart   models.Cart `json:"cart"`
}

// restore loads the persisted snapshot. Keys that fail to decode are
// cleared by the store and skipped.
func (s *Session) restore(ctx context.Context) {
	l := logging.FromContext(ctx).With("svc", "session.restore")

	var u models.User
	if ok, err := s.load(ctx, KeyUser, &u); ok {
		s.user = &u
	} else if err != nil {
		l.Warn("restore_failed", "key", KeyUser, "error", err)
	}

	var cart models.Cart
	if ok, err := s.load(ctx, KeyCart, &cart); ok {
		s.cart = cart
	} else if err != nil {
		l.Warn("restore_failed", "key", KeyCart, "error", err)
	}

	var wish models.Wishlist
	if ok, err := s.load(ctx, KeyWishlist, &wish); ok {
		s.wishlist = wish
	} else if err != nil {
		l.Warn("restore_failed", "key", KeyWishlist, "error", err)
	}
}

func (s *Session) load(ctx context.Context, key string, dst any) (bool, error) {
	ok, err := localstore.LoadJSON(ctx, s.local, key, dst)
	if errors.Is(err, localstore.ErrMalformed) {
		logging.FromContext(ctx).Warn("local_state_reset", "key", key, "error", err)
		return false, nil
	}
	return ok, err
}

func (s *Session) save(ctx context.Context, key string, v any) {
	if err := localstore.SaveJSON(ctx, s.local, key, v); err != nil {
		logging.FromContext(ctx).Warn("persist_failed", "key", key, "error", err)
	}
}

// The persist helpers run with s.mu held so the write is ordered with the
// state change it follows.

func (s *Session) persistUser(ctx context.Context) {
	if s.user == nil {
		if err := s.local.Clear(ctx, KeyUser); err != nil {
			logging.FromContext(ctx).Warn("persist_failed", "key", KeyUser, "error", err)
		}
		return
	}
	s.save(ctx, KeyUser, s.user)
}

func (s *Session) persistCart(ctx context.Context) { s.save(ctx, KeyCart, s.cart) }

func (s *Session) persistWishlist(ctx context.Context) { s.save(ctx, KeyWishlist, s.wishlist) }

func (s *Session) loadBaseline(ctx context.Context) baseline {
	var b baseline
	_, _ = s.load(ctx, KeyCartSynced, &b)
	return b
}

func (s *Session) saveBaseline(ctx context.Context, id models.ID, cart models.Cart) {
	s.save(ctx, KeyCartSynced, baseline{UserID: id, Cart: cart.Clone()})
}
