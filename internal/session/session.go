// Package session owns the shopper's state: who is logged in, the cart, the
// wishlist and the order history. Every change is applied and persisted
// locally first, then synchronized with the record store in the background
// when the account has a server counterpart.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/localstore"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/reconcile"
	"github.com/Skotchmaster/storefront/internal/recordstore"
)

type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

type Deps struct {
	Store  recordstore.Client
	Local  localstore.Store
	Notes  *notify.Queue
	Events events.Publisher
	Now    func() time.Time
}

type Session struct {
	store  recordstore.Client
	local  localstore.Store
	notes  *notify.Queue
	events events.Publisher
	now    func() time.Time

	mu       sync.Mutex
	state    State
	loading  bool
	user     *models.User
	cart     models.Cart
	wishlist models.Wishlist

	tasks sync.WaitGroup
}

// New builds a session from the persisted snapshot in d.Local.
func New(ctx context.Context, d Deps) *Session {
	s := &Session{
		store:    d.Store,
		local:    d.Local,
		notes:    d.Notes,
		events:   d.Events,
		now:      d.Now,
		cart:     models.Cart{},
		wishlist: models.Wishlist{},
		loading:  true,
	}
	if s.local == nil {
		s.local = localstore.NewMemoryStore()
	}
	if s.notes == nil {
		s.notes = notify.NewQueue(notify.DefaultTTL)
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.mu.Lock()
	s.restore(ctx)
	if s.user != nil {
		s.state = Authenticated
	}
	s.loading = false
	s.mu.Unlock()
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Loading is true while a login or register is in flight.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// User returns a copy of the logged in user, or nil.
func (s *Session) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user.Clone()
}

func (s *Session) Cart() models.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

func (s *Session) Wishlist() models.Wishlist {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wishlist.Clone()
}

func (s *Session) Orders() []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	return append([]models.Order(nil), s.user.Orders...)
}

func (s *Session) Notifications() []notify.Notification { return s.notes.List() }

func (s *Session) Notify(message string, typ notify.Type) int64 {
	return s.notes.Add(message, typ)
}

func (s *Session) Dismiss(id int64) { s.notes.Remove(id) }

// Wait blocks until background synchronization and event publishing are
// done.
func (s *Session) Wait() { s.tasks.Wait() }

// spawn runs fn detached from the caller's cancellation. Failures are
// logged and otherwise ignored: local state is already committed.
func (s *Session) spawn(ctx context.Context, name string, fn func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		if err := fn(ctx); err != nil {
			logging.FromContext(ctx).Warn(name+"_failed", "error", err)
		}
	}()
}

func (s *Session) publish(ctx context.Context, topic, typ string, userID models.ID, data map[string]any) {
	ev := events.New(typ, userID.String(), data)
	s.spawn(ctx, "publish_event", func(ctx context.Context) error {
		return s.events.PublishEvent(ctx, topic, userID.String(), ev)
	})
}

// remoteID is the id to sync the current user against, or "" for
// anonymous and offline sessions. Called with s.mu held.
func (s *Session) remoteID() models.ID {
	if s.user == nil || s.user.IsLocal() {
		return ""
	}
	return s.user.ID
}

// adopt replaces the session user with a server response when that user is
// still the one logged in, and records the response cart as acknowledged.
// Responses for an account that has since logged out are dropped. Orders
// placed locally but not yet stored are kept.
func (s *Session) adopt(ctx context.Context, resp *models.User) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil || s.user.ID != resp.ID {
		return false
	}
	u := resp.Clone()
	u.Password = ""
	u.Orders = reconcile.MergeOrders(s.user.Orders, resp.Orders)
	s.user = u
	s.persistUser(ctx)
	s.saveBaseline(ctx, resp.ID, resp.Cart)
	return true
}
