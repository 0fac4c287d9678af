package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/localstore"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/recordstore"
)

var fixedNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store *recordstore.Memory
	local *localstore.MemoryStore
	rec   *events.Recorder
	notes *notify.Queue
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	notes := notify.NewQueue(time.Minute)
	t.Cleanup(notes.Close)
	return &fixture{
		store: recordstore.NewMemory(),
		local: localstore.NewMemoryStore(),
		rec:   &events.Recorder{},
		notes: notes,
	}
}

func (f *fixture) open(t *testing.T) *Session {
	t.Helper()
	s := New(context.Background(), Deps{
		Store:  f.store,
		Local:  f.local,
		Notes:  f.notes,
		Events: f.rec,
		Now:    func() time.Time { return fixedNow },
	})
	t.Cleanup(s.Wait)
	return s
}

func (f *fixture) seedUser(u models.User) models.ID {
	return models.ID(f.store.Seed(recordstore.Users, u))
}

func (f *fixture) serverUser(t *testing.T, id models.ID) *models.User {
	t.Helper()
	u, err := recordstore.GetAs[models.User](context.Background(), f.store, recordstore.Users, id.String())
	require.NoError(t, err)
	return u
}

func product(id, price string) models.Product {
	return models.Product{ID: models.ID(id), Name: "Item " + id, Price: models.MustMoney(price)}
}

func messages(q *notify.Queue) map[string]notify.Type {
	out := map[string]notify.Type{}
	for _, n := range q.List() {
		out[n.Message] = n.Type
	}
	return out
}

func TestLogin_ServerAccount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	id := f.seedUser(models.User{Username: "alice", Email: "Alice@Shop.io", Password: "secret"})
	s := f.open(t)

	require.NoError(t, s.Login(ctx, "  alice@shop.IO ", "secret"))
	s.Wait()

	u := s.User()
	require.NotNil(t, u)
	assert.Equal(t, id, u.ID)
	assert.Empty(t, u.Password)
	assert.Equal(t, Authenticated, s.State())
	assert.False(t, s.Loading())
	assert.Contains(t, f.rec.Types(events.UserTopic), "user_logged_in")

	var persisted models.User
	ok, err := localstore.LoadJSON(ctx, f.local, KeyUser, &persisted)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, persisted.ID)
}

func TestLogin_SkipsUndecodableRecords(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.store.Seed(recordstore.Users, map[string]any{"username": "legacy", "address": "12 Main St"})
	id := f.seedUser(models.User{Username: "alice", Password: "secret"})
	s := f.open(t)

	require.NoError(t, s.Login(ctx, "alice", "secret"))
	s.Wait()
	require.NotNil(t, s.User())
	assert.Equal(t, id, s.User().ID)

	s.Logout(ctx)
	assert.ErrorIs(t, s.Register(ctx, "alice", "pw", ""), ErrUsernameTaken)
	require.NoError(t, s.Register(ctx, "dave", "pw", ""))
}

func TestLogin_Rejections(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(models.User{Username: "bob", Password: "pw", IsBlock: true})
	s := f.open(t)

	tests := []struct {
		name       string
		identifier string
		password   string
		want       error
		message    string
	}{
		{name: "unknown", identifier: "nobody", password: "pw", want: ErrInvalidCredentials, message: "Invalid credentials"},
		{name: "empty identifier", identifier: "  ", password: "pw", want: ErrInvalidCredentials, message: "Invalid credentials"},
		{name: "wrong password on blocked", identifier: "bob", password: "nope", want: ErrInvalidCredentials, message: "Invalid credentials"},
		{name: "blocked", identifier: "BOB", password: "pw", want: ErrAccountBlocked, message: "Account is blocked"},
	}
	for _, tt := range tests {
		err := s.Login(ctx, tt.identifier, tt.password)
		assert.ErrorIs(t, err, tt.want, tt.name)
		assert.Equal(t, Result{OK: false, Message: tt.message}, Outcome(err), tt.name)
		assert.Nil(t, s.User(), tt.name)
		assert.Equal(t, Anonymous, s.State(), tt.name)
	}
}

func TestLogin_OfflineDemoAccount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.store.SetDown(true)
	s := f.open(t)
	require.NoError(t, s.AddToCart(ctx, product("1", "10"), 2))

	require.NoError(t, s.Login(ctx, "demo", "demo123"))

	u := s.User()
	require.NotNil(t, u)
	assert.Equal(t, models.ID("local-demo"), u.ID)
	assert.True(t, u.IsLocal())
	assert.Len(t, s.Cart(), 1, "offline login keeps the local cart as is")
	assert.ErrorIs(t, s.Login(ctx, "demo", "wrong"), ErrInvalidCredentials)
}

func TestLogin_MergesCartOnceAcrossLogins(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	lamp := product("1", "100")
	id := f.seedUser(models.User{
		Username: "alice",
		Password: "secret",
		Cart:     models.Cart{{Product: lamp.Ref(), Qty: 1}},
	})
	s := f.open(t)

	require.NoError(t, s.AddToCart(ctx, lamp, 2))
	require.NoError(t, s.Login(ctx, "alice", "secret"))
	s.Wait()

	line, ok := s.Cart().Find(lamp.ID)
	require.True(t, ok)
	assert.Equal(t, 3, line.Qty)
	serverLine, ok := f.serverUser(t, id).Cart.Find(lamp.ID)
	require.True(t, ok)
	assert.Equal(t, 3, serverLine.Qty)

	s.Logout(ctx)
	require.NoError(t, s.Login(ctx, "alice", "secret"))
	s.Wait()

	line, ok = s.Cart().Find(lamp.ID)
	require.True(t, ok)
	assert.Equal(t, 3, line.Qty, "units already on the server are not added twice")
}

func TestLogin_MergesWishlistAndOrders(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	id := f.seedUser(models.User{
		Username: "alice",
		Password: "secret",
		Wishlist: models.Wishlist{product("1", "5")},
		Orders:   []models.Order{{Date: "2026-01-01T00:00:00.000Z", Total: "5.00", Status: models.OrderSuccess}},
	})
	s := f.open(t)
	require.NoError(t, s.AddToWishlist(ctx, product("1", "5")))
	require.NoError(t, s.AddToWishlist(ctx, product("2", "7")))

	require.NoError(t, s.Login(ctx, "alice", "secret"))
	s.Wait()

	assert.Len(t, s.Wishlist(), 2)
	assert.Len(t, s.Orders(), 1)
	assert.Len(t, f.serverUser(t, id).Wishlist, 2)
}

func TestRegister(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(models.User{Username: "alice", Password: "secret"})
	s := f.open(t)
	require.NoError(t, s.AddToCart(ctx, product("1", "3"), 1))

	err := s.Register(ctx, "alice", "pw", "")
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.ErrorIs(t, s.Register(ctx, " ", "pw", ""), ErrValidation)

	require.NoError(t, s.Register(ctx, "carol", "pw", "carol@shop.io"))
	u := s.User()
	require.NotNil(t, u)
	assert.False(t, u.IsLocal())

	stored := f.serverUser(t, u.ID)
	assert.NotEqual(t, "pw", stored.Password, "passwords are stored hashed")
	assert.Empty(t, stored.Cart, "a new account starts with an empty cart")
	assert.Empty(t, s.Cart())

	var persisted models.Cart
	_, err = localstore.LoadJSON(ctx, f.local, KeyCart, &persisted)
	require.NoError(t, err)
	assert.Empty(t, persisted)

	s.Logout(ctx)
	require.NoError(t, s.Login(ctx, "carol@shop.io", "pw"))
}

func TestRegister_Offline(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.store.SetDown(true)
	s := f.open(t)
	require.NoError(t, s.AddToCart(ctx, product("1", "3"), 2))
	require.NoError(t, s.AddToWishlist(ctx, product("2", "5")))

	err := s.Register(ctx, "demo", "x", "")
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.Equal(t, "Username already exists", Outcome(err).Message)

	require.NoError(t, s.Register(ctx, "carol", "pw", ""))
	u := s.User()
	require.NotNil(t, u)
	assert.True(t, strings.HasPrefix(u.ID.String(), models.LocalIDPrefix))
	assert.Empty(t, s.Cart())
	assert.Empty(t, s.Wishlist())

	var registry []models.User
	ok, err := localstore.LoadJSON(ctx, f.local, KeyRegistry, &registry)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, registry, 2)

	s.Logout(ctx)
	require.NoError(t, s.Login(ctx, "carol", "pw"))
}

func TestLogout_KeepsCartAndWishlist(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(models.User{Username: "alice", Password: "secret"})
	s := f.open(t)

	require.NoError(t, s.Login(ctx, "alice", "secret"))
	require.NoError(t, s.AddToCart(ctx, product("1", "2"), 1))
	require.NoError(t, s.AddToWishlist(ctx, product("2", "2")))
	s.Logout(ctx)

	assert.Nil(t, s.User())
	assert.Equal(t, Anonymous, s.State())
	assert.Len(t, s.Cart(), 1)
	assert.Len(t, s.Wishlist(), 1)
	_, ok, err := f.local.Load(ctx, KeyUser)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateCartQty_NonPositiveRemovesLine(t *testing.T) {
	t.Parallel()
	for _, qty := range []int{0, -1} {
		f := newFixture(t)
		s := f.open(t)
		ctx := context.Background()
		require.NoError(t, s.AddToCart(ctx, product("1", "4"), 3))

		s.UpdateCartQty(ctx, "1", qty)
		assert.Empty(t, s.Cart(), "qty %d", qty)
	}
}

func TestCartMutations(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	id := f.seedUser(models.User{Username: "alice", Password: "secret"})
	s := f.open(t)
	require.NoError(t, s.Login(ctx, "alice", "secret"))

	require.NoError(t, s.AddToCart(ctx, product("1", "4"), 0))
	s.Wait()
	require.NoError(t, s.AddToCart(ctx, product("2", "1"), 2))
	s.Wait()
	s.UpdateCartQty(ctx, "1", 5)
	s.Wait()
	s.RemoveFromCart(ctx, "2")
	s.Wait()

	assert.ErrorIs(t, s.AddToCart(ctx, models.Product{Name: "ghost"}, 1), ErrInvalidProduct)

	cart := s.Cart()
	require.Len(t, cart, 1)
	assert.Equal(t, 5, cart[0].Qty)

	server := f.serverUser(t, id).Cart
	require.Len(t, server, 1)
	assert.Equal(t, 5, server[0].Qty)
	assert.Contains(t, f.rec.Types(events.CartTopic), "cart_qty_set")

	var persisted models.Cart
	ok, err := localstore.LoadJSON(ctx, f.local, KeyCart, &persisted)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, persisted, 1)
}

func TestWishlist_UniqueAndSynced(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	id := f.seedUser(models.User{Username: "alice", Password: "secret"})
	s := f.open(t)
	require.NoError(t, s.Login(ctx, "alice", "secret"))

	require.NoError(t, s.AddToWishlist(ctx, product("9", "1")))
	s.Wait()
	require.NoError(t, s.AddToWishlist(ctx, product("9", "1")))
	s.Wait()
	assert.Len(t, s.Wishlist(), 1)
	assert.Len(t, f.serverUser(t, id).Wishlist, 1)

	s.RemoveFromWishlist(ctx, "9")
	s.Wait()
	assert.Empty(t, s.Wishlist())
	assert.Empty(t, f.serverUser(t, id).Wishlist)
}

func TestLocalAccount_NeverSyncs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.store.SetDown(true)
	s := f.open(t)
	require.NoError(t, s.Login(ctx, "demo", "demo123"))
	f.store.SetDown(false)
	before := f.store.Calls()

	require.NoError(t, s.AddToCart(ctx, product("1", "1"), 1))
	_, err := s.Checkout(ctx, nil)
	require.NoError(t, err)
	s.Wait()

	assert.Equal(t, before, f.store.Calls())
	assert.Len(t, s.Orders(), 1)
}

func TestServerAccount_SyncFailureKeepsLocalChanges(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	id := f.seedUser(models.User{Username: "alice", Password: "secret"})
	s := f.open(t)
	require.NoError(t, s.Login(ctx, "alice", "secret"))
	s.Wait()

	f.store.SetDown(true)
	require.NoError(t, s.AddToCart(ctx, product("1", "10"), 1))
	s.Wait()
	s.UpdateCartQty(ctx, "1", 3)
	s.Wait()
	require.Len(t, s.Cart(), 1)
	assert.Equal(t, 3, s.Cart()[0].Qty)

	order, err := s.Checkout(ctx, nil)
	require.NoError(t, err)
	s.Wait()

	assert.Equal(t, "30.00", order.Total)
	assert.Empty(t, s.Cart())
	require.Len(t, s.Orders(), 1)
	assert.Equal(t, Authenticated, s.State())
	assert.NotContains(t, messages(f.notes), MsgUnknown)

	var persisted models.User
	_, err = localstore.LoadJSON(ctx, f.local, KeyUser, &persisted)
	require.NoError(t, err)
	assert.Len(t, persisted.Orders, 1)
	var cart models.Cart
	_, err = localstore.LoadJSON(ctx, f.local, KeyCart, &cart)
	require.NoError(t, err)
	assert.Empty(t, cart)

	f.store.SetDown(false)
	assert.Empty(t, f.serverUser(t, id).Orders)
}

func TestCheckout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	id := f.seedUser(models.User{Username: "alice", Password: "secret"})
	s := f.open(t)
	require.NoError(t, s.Login(ctx, "alice", "secret"))
	require.NoError(t, s.AddToCart(ctx, product("1", "100"), 2))
	s.Wait()

	addr := &models.Address{Street: "1 Main", City: "Oslo", State: "OS", Zip: "0150", Country: "NO"}
	order, err := s.Checkout(ctx, addr)
	require.NoError(t, err)
	s.Wait()

	assert.Equal(t, "200.00", order.Total)
	assert.Equal(t, models.OrderSuccess, order.Status)
	assert.Equal(t, fixedNow.Format(models.OrderDateLayout), order.Date)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Qty)
	assert.Empty(t, s.Cart())
	assert.Equal(t, notify.Success, messages(f.notes)[msgOrderPlaced])

	server := f.serverUser(t, id)
	assert.Empty(t, server.Cart)
	require.Len(t, server.Orders, 1)
	assert.Equal(t, "200.00", server.Orders[0].Total)
	require.NotNil(t, server.Address)
	assert.Equal(t, "Oslo", server.Address.City)
	assert.Contains(t, f.rec.Types(events.OrderTopic), "order_placed")
}

func TestCheckout_Rejections(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(models.User{Username: "alice", Password: "secret"})
	s := f.open(t)

	_, err := s.Checkout(ctx, nil)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, notify.Error, messages(f.notes)["Please login to place an order"])

	require.NoError(t, s.Login(ctx, "alice", "secret"))
	_, err = s.Checkout(ctx, nil)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, notify.Warning, messages(f.notes)["Your cart is empty"])

	require.NoError(t, s.AddToCart(ctx, product("1", "1"), 1))
	_, err = s.Checkout(ctx, &models.Address{City: "Oslo"})
	assert.ErrorIs(t, err, ErrIncompleteAddress)
	assert.Len(t, s.Cart(), 1)
	assert.Empty(t, s.Orders())
}

func TestRemoveOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	id := f.seedUser(models.User{Username: "alice", Password: "secret"})
	s := f.open(t)
	require.NoError(t, s.Login(ctx, "alice", "secret"))
	require.NoError(t, s.AddToCart(ctx, product("1", "10"), 1))
	s.Wait()
	_, err := s.Checkout(ctx, nil)
	require.NoError(t, err)
	s.Wait()

	assert.ErrorIs(t, s.RemoveOrder(ctx, 1), ErrOrderNotFound)
	assert.ErrorIs(t, s.RemoveOrder(ctx, -1), ErrOrderNotFound)

	require.NoError(t, s.RemoveOrder(ctx, 0))
	s.Wait()
	assert.Empty(t, s.Orders())
	assert.Empty(t, f.serverUser(t, id).Orders)
	assert.Equal(t, notify.Success, messages(f.notes)[msgOrderRemoved])
}

func TestUpdateUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	name := "Alice A."

	t.Run("server account", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		id := f.seedUser(models.User{Username: "alice", Password: "secret"})
		s := f.open(t)
		assert.ErrorIs(t, s.UpdateUser(ctx, UserPatch{Name: &name}), ErrNotAuthenticated)

		require.NoError(t, s.Login(ctx, "alice", "secret"))
		require.NoError(t, s.UpdateUser(ctx, UserPatch{Name: &name}))
		assert.Equal(t, name, s.User().Name)
		assert.Equal(t, name, f.serverUser(t, id).Name)
		assert.Equal(t, "alice", f.serverUser(t, id).Username)
	})

	t.Run("offline account", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.store.SetDown(true)
		s := f.open(t)
		require.NoError(t, s.Login(ctx, "demo", "demo123"))
		require.NoError(t, s.UpdateUser(ctx, UserPatch{Name: &name}))
		assert.Equal(t, name, s.User().Name)

		s.Logout(ctx)
		require.NoError(t, s.Login(ctx, name, "demo123"), "the registry carries the new name")
	})
}

func TestNew_RestoresAndResetsMalformedState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, localstore.SaveJSON(ctx, f.local, KeyUser, models.User{ID: "7", Username: "alice"}))
	require.NoError(t, f.local.Save(ctx, KeyCart, []byte("{not json")))
	require.NoError(t, localstore.SaveJSON(ctx, f.local, KeyWishlist, models.Wishlist{product("3", "1")}))

	s := f.open(t)

	require.NotNil(t, s.User())
	assert.Equal(t, Authenticated, s.State())
	assert.Empty(t, s.Cart())
	assert.Len(t, s.Wishlist(), 1)
	_, ok, err := f.local.Load(ctx, KeyCart)
	require.NoError(t, err)
	assert.False(t, ok, "malformed cart is cleared")
}

func TestNotifications(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	s := f.open(t)

	id := s.Notify("hello", notify.Info)
	require.Len(t, s.Notifications(), 1)
	s.Dismiss(id)
	assert.Empty(t, s.Notifications())
}

func TestAdopt_DropsResponsesForOtherUsers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(models.User{Username: "alice", Password: "secret"})
	s := f.open(t)

	assert.False(t, s.adopt(ctx, &models.User{ID: "1", Name: "stale"}), "nobody logged in")

	require.NoError(t, s.Login(ctx, "alice", "secret"))
	s.Wait()
	assert.False(t, s.adopt(ctx, &models.User{ID: "99", Name: "stale"}))
	assert.Empty(t, s.User().Name)
	assert.True(t, s.adopt(ctx, &models.User{ID: "1", Name: "fresh"}))
	assert.Equal(t, "fresh", s.User().Name)
}

func TestOutcome(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Result{OK: true}, Outcome(nil))
	assert.Equal(t, "Store is unreachable, try again later", Outcome(recordstore.ErrUnreachable).Message)
	assert.Equal(t, "Something went wrong", Outcome(assert.AnError).Message)
}
