package session

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/reconcile"
	"github.com/Skotchmaster/storefront/internal/recordstore"
)

const (
	msgOrderPlaced  = "Order placed successfully! Cash on Delivery."
	msgOrderRemoved = "Order removed successfully"
)

// Checkout turns the cart into a cash-on-delivery order. addr, when given,
// must be complete and is stored on the order and the account.
func (s *Session) Checkout(ctx context.Context, addr *models.Address) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "session.checkout")

	s.mu.Lock()
	var err error
	switch {
	case s.user == nil:
		err = ErrNotAuthenticated
	case len(s.cart.ValidEntries()) == 0:
		err = ErrEmptyCart
	case addr != nil && !addr.Complete():
		err = ErrIncompleteAddress
	}
	if err != nil {
		s.mu.Unlock()
		typ := notify.Warning
		if err == ErrNotAuthenticated {
			typ = notify.Error
		}
		s.notes.Add(Outcome(err).Message, typ)
		l.Info("checkout_rejected", "reason", err.Error())
		return nil, err
	}

	order := models.NewOrder(s.now(), s.cart, addr)
	s.user.Orders = append(s.user.Orders, order)
	if addr != nil {
		a := *addr
		s.user.Address = &a
	}
	s.user.Cart = models.Cart{}
	s.cart = models.Cart{}
	s.persistUser(ctx)
	s.persistCart(ctx)
	userID := s.user.ID
	target := s.remoteID()
	orders := append([]models.Order(nil), s.user.Orders...)
	s.mu.Unlock()

	if target != "" {
		s.spawn(ctx, "checkout_sync", func(ctx context.Context) error {
			fresh, err := recordstore.GetAs[models.User](ctx, s.store, recordstore.Users, target.String())
			if err != nil {
				return err
			}
			patch := map[string]any{
				"orders": reconcile.MergeOrders(orders, fresh.Orders),
				"cart":   models.Cart{},
			}
			if addr != nil {
				patch["address"] = *addr
			}
			resp, err := recordstore.PatchAs[models.User](ctx, s.store, recordstore.Users, target.String(), patch)
			if err != nil {
				return err
			}
			s.adopt(ctx, resp)
			return nil
		})
	}

	s.notes.Add(msgOrderPlaced, notify.Success)
	s.publish(ctx, events.OrderTopic, "order_placed", userID, map[string]any{
		"total": order.Total,
		"items": len(order.Items),
	})
	l.Info("order_placed", "user_id", userID, "total", order.Total, "items", len(order.Items))
	return &order, nil
}

// RemoveOrder deletes the order at index in the order history.
func (s *Session) RemoveOrder(ctx context.Context, index int) error {
	l := logging.FromContext(ctx).With("svc", "session.remove_order")

	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	if index < 0 || index >= len(s.user.Orders) {
		s.mu.Unlock()
		return ErrOrderNotFound
	}
	key := s.user.Orders[index].Key()
	s.user.Orders = append(append([]models.Order(nil), s.user.Orders[:index]...), s.user.Orders[index+1:]...)
	s.persistUser(ctx)
	userID := s.user.ID
	target := s.remoteID()
	s.mu.Unlock()

	if target != "" {
		s.spawn(ctx, "order_remove_sync", func(ctx context.Context) error {
			fresh, err := recordstore.GetAs[models.User](ctx, s.store, recordstore.Users, target.String())
			if err != nil {
				return err
			}
			resp, err := recordstore.PatchAs[models.User](ctx, s.store, recordstore.Users, target.String(),
				map[string]any{"orders": reconcile.RemoveOrder(fresh.Orders, key)})
			if err != nil {
				return err
			}
			s.adopt(ctx, resp)
			return nil
		})
	}

	s.notes.Add(msgOrderRemoved, notify.Success)
	s.publish(ctx, events.OrderTopic, "order_removed", userID, map[string]any{"date": key.Date, "total": key.Total})
	l.Info("order_removed", "user_id", userID, "date", key.Date)
	return nil
}
