package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/reconcile"
	"github.com/Skotchmaster/storefront/internal/recordstore"
)

func (s *Session) begin() {
	s.mu.Lock()
	s.state = Authenticating
	s.loading = true
	s.mu.Unlock()
}

func (s *Session) finish() {
	s.mu.Lock()
	s.loading = false
	if s.user != nil {
		s.state = Authenticated
	} else {
		s.state = Anonymous
	}
	s.mu.Unlock()
}

func checkAccount(u *models.User, password string) error {
	if u == nil || !hash.CheckPassword(u.Password, password) {
		return ErrInvalidCredentials
	}
	if u.IsBlock {
		return ErrAccountBlocked
	}
	return nil
}

// Login authenticates against the record store and reconciles the local
// cart, wishlist and orders with the account's stored copy. When the store
// cannot be reached it authenticates against the offline registry instead
// and keeps local state as is.
func (s *Session) Login(ctx context.Context, identifier, password string) error {
	l := logging.FromContext(ctx).With("svc", "session.login")
	s.begin()
	defer s.finish()

	users, err := s.listUsers(ctx)
	if errors.Is(err, recordstore.ErrUnreachable) {
		l.Warn("store_unreachable", "reason", "offline_login", "error", err)
		return s.loginOffline(ctx, identifier, password)
	}
	if err != nil {
		l.Error("list_users_failed", "error", err)
		return fmt.Errorf("list users: %w", err)
	}

	found := findUser(users, identifier)
	if err := checkAccount(found, password); err != nil {
		l.Info("login_rejected", "reason", err.Error())
		return err
	}

	patch, dirty := s.mergeAccount(ctx, found)
	if dirty {
		id := found.ID.String()
		s.spawn(ctx, "login_sync", func(ctx context.Context) error {
			resp, err := recordstore.PatchAs[models.User](ctx, s.store, recordstore.Users, id, patch)
			if err != nil {
				return err
			}
			s.adopt(ctx, resp)
			return nil
		})
	}

	s.publish(ctx, events.UserTopic, "user_logged_in", found.ID, map[string]any{"offline": false})
	l.Info("login_ok", "user_id", found.ID, "merged", dirty)
	return nil
}

// mergeAccount makes found the session user, folding local state into it.
// It returns the fields to push back and whether they differ from the
// server copy.
func (s *Session) mergeAccount(ctx context.Context, found *models.User) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	local := s.cart
	if b := s.loadBaseline(ctx); b.UserID == found.ID {
		local = reconcile.CartExcess(local, b.Cart)
	}
	cart := reconcile.MergeCart(local, found.Cart)
	wish := reconcile.MergeWishlist(s.wishlist, found.Wishlist)
	var localOrders []models.Order
	if s.user != nil && s.user.ID == found.ID {
		localOrders = s.user.Orders
	}
	orders := reconcile.MergeOrders(localOrders, found.Orders)

	u := found.Clone()
	u.Password = ""
	u.Cart = cart.Clone()
	u.Wishlist = wish.Clone()
	u.Orders = orders
	s.user = u
	s.cart = cart
	s.wishlist = wish
	s.persistUser(ctx)
	s.persistCart(ctx)
	s.persistWishlist(ctx)
	s.saveBaseline(ctx, found.ID, found.Cart)

	dirty := !sameJSON(cart, found.Cart.ValidEntries()) ||
		!sameJSON(wish, found.Wishlist.Clone()) ||
		len(orders) != len(found.Orders)
	return map[string]any{"cart": cart, "wishlist": wish, "orders": orders}, dirty
}

func (s *Session) loginOffline(ctx context.Context, identifier, password string) error {
	l := logging.FromContext(ctx).With("svc", "session.login_offline")

	found := findUser(s.loadRegistry(ctx), identifier)
	if err := checkAccount(found, password); err != nil {
		l.Info("login_rejected", "reason", err.Error())
		return err
	}

	s.mu.Lock()
	u := found.Clone()
	u.Password = ""
	s.user = u
	s.persistUser(ctx)
	s.mu.Unlock()

	s.publish(ctx, events.UserTopic, "user_logged_in", found.ID, map[string]any{"offline": true})
	l.Info("login_ok", "user_id", found.ID)
	return nil
}

// Register creates an account and logs it in with an empty cart. Without a
// reachable store the account is kept in the offline registry and the
// wishlist starts empty too.
func (s *Session) Register(ctx context.Context, username, password, email string) error {
	l := logging.FromContext(ctx).With("svc", "session.register")
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || password == "" {
		return ErrValidation
	}

	hashed, err := hash.HashPassword(password)
	if err != nil {
		l.Error("hash_failed", "error", err)
		return fmt.Errorf("hash password: %w", err)
	}

	s.begin()
	defer s.finish()

	err = s.registerRemote(ctx, username, hashed, email)
	if errors.Is(err, recordstore.ErrUnreachable) {
		l.Warn("store_unreachable", "reason", "offline_register", "error", err)
		err = s.registerOffline(ctx, username, hashed, email)
	}
	if err != nil {
		l.Info("register_rejected", "reason", err.Error())
		return err
	}

	u := s.User()
	s.publish(ctx, events.UserTopic, "user_registered", u.ID, map[string]any{"username": username, "offline": u.IsLocal()})
	l.Info("register_ok", "user_id", u.ID)
	return nil
}

func (s *Session) registerRemote(ctx context.Context, username, hashed, email string) error {
	users, err := s.listUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.Username == username {
			return ErrUsernameTaken
		}
	}

	created, err := recordstore.CreateAs[models.User](ctx, s.store, recordstore.Users, models.User{
		Username:  username,
		Email:     email,
		Password:  hashed,
		Role:      models.RoleUser,
		Cart:      models.Cart{},
		Wishlist:  models.Wishlist{},
		Orders:    []models.Order{},
		CreatedAt: s.now().UTC().Format(models.OrderDateLayout),
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := created.Clone()
	u.Password = ""
	s.user = u
	s.cart = models.Cart{}
	s.persistUser(ctx)
	s.persistCart(ctx)
	s.saveBaseline(ctx, created.ID, created.Cart)
	return nil
}

func (s *Session) registerOffline(ctx context.Context, username, hashed, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	registry := s.loadRegistry(ctx)
	for _, u := range registry {
		if u.Username == username {
			return ErrUsernameTaken
		}
	}

	now := s.now()
	acct := models.User{
		ID:        models.ID(fmt.Sprintf("%s%d", models.LocalIDPrefix, now.UnixMilli())),
		Username:  username,
		Email:     email,
		Password:  hashed,
		Role:      models.RoleUser,
		Cart:      models.Cart{},
		Wishlist:  models.Wishlist{},
		Orders:    []models.Order{},
		CreatedAt: now.UTC().Format(models.OrderDateLayout),
	}
	s.saveRegistry(ctx, append(registry, acct))

	u := acct.Clone()
	u.Password = ""
	s.user = u
	s.cart = models.Cart{}
	s.wishlist = models.Wishlist{}
	s.persistUser(ctx)
	s.persistCart(ctx)
	s.persistWishlist(ctx)
	return nil
}

// Logout forgets the user. Cart and wishlist stay on the device.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	var id models.ID
	if s.user != nil {
		id = s.user.ID
	}
	s.user = nil
	s.state = Anonymous
	s.persistUser(ctx)
	s.mu.Unlock()

	if id != "" {
		s.publish(ctx, events.UserTopic, "user_logged_out", id, nil)
	}
	logging.FromContext(ctx).Info("logout_ok", "svc", "session.logout", "user_id", id)
}

// UserPatch lists profile fields to change; nil fields are left alone.
type UserPatch struct {
	Username *string
	Name     *string
	Email    *string
	Address  *models.Address
}

func (p UserPatch) apply(u *models.User) {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Address != nil {
		a := *p.Address
		u.Address = &a
	}
}

func (p UserPatch) fields() map[string]any {
	out := map[string]any{}
	if p.Username != nil {
		out["username"] = *p.Username
	}
	if p.Name != nil {
		out["name"] = *p.Name
	}
	if p.Email != nil {
		out["email"] = *p.Email
	}
	if p.Address != nil {
		out["address"] = *p.Address
	}
	return out
}

// UpdateUser changes profile fields. Server accounts are patched and the
// response adopted; offline accounts are updated in place and in the
// registry.
func (s *Session) UpdateUser(ctx context.Context, p UserPatch) error {
	l := logging.FromContext(ctx).With("svc", "session.update_user")

	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	if s.user.IsLocal() {
		defer s.mu.Unlock()
		p.apply(s.user)
		s.persistUser(ctx)
		registry := s.loadRegistry(ctx)
		for i := range registry {
			if registry[i].ID == s.user.ID {
				p.apply(&registry[i])
			}
		}
		s.saveRegistry(ctx, registry)
		l.Info("user_updated", "user_id", s.user.ID, "offline", true)
		return nil
	}
	id := s.user.ID
	s.mu.Unlock()

	resp, err := recordstore.PatchAs[models.User](ctx, s.store, recordstore.Users, id.String(), p.fields())
	if err != nil {
		l.Error("patch_failed", "user_id", id, "error", err)
		return err
	}
	s.adopt(ctx, resp)
	l.Info("user_updated", "user_id", id)
	return nil
}

func sameJSON(a, b any) bool {
	x, errA := json.Marshal(a)
	y, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(x, y)
}
