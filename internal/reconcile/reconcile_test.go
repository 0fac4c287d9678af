package reconcile

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
)

func line(id string, qty int) models.CartEntry {
	return models.CartEntry{
		Product: models.ProductRef{ID: models.ID(id), Name: "p" + id, Price: models.NewMoney(10)},
		Qty:     qty,
	}
}

func qtyOf(t *testing.T, c models.Cart, id string) int {
	t.Helper()
	e, ok := c.Find(models.ID(id))
	require.True(t, ok, "line %s missing", id)
	return e.Qty
}

func TestMergeCart_DisjointKeepsEveryLine(t *testing.T) {
	t.Parallel()

	local := models.Cart{line("1", 2), line("2", 1)}
	server := models.Cart{line("3", 4), line("4", 5), line("5", 1)}

	merged := MergeCart(local, server)

	require.Len(t, merged, len(local)+len(server))
	for _, e := range append(local, server...) {
		assert.Equal(t, e.Qty, qtyOf(t, merged, string(e.Product.ID)))
	}
}

func TestMergeCart_SharedProductSumsQuantities(t *testing.T) {
	t.Parallel()

	server := models.Cart{line("1", 3), line("2", 1)}
	server[0].Product.Name = "server name"
	local := models.Cart{line("1", 2), line("9", 7)}

	merged := MergeCart(local, server)

	require.Len(t, merged, 3)
	assert.Equal(t, 5, qtyOf(t, merged, "1"))
	assert.Equal(t, 1, qtyOf(t, merged, "2"))
	assert.Equal(t, 7, qtyOf(t, merged, "9"))

	e, _ := merged.Find("1")
	assert.Equal(t, "server name", e.Product.Name)
}

func TestMergeCart_EmptySideIsIdentity(t *testing.T) {
	t.Parallel()

	x := models.Cart{line("1", 1), line("2", 4), line("3", 2)}

	assert.Equal(t, x, MergeCart(x, models.Cart{}))
	assert.Equal(t, x, MergeCart(models.Cart{}, x))
	assert.Equal(t, x, MergeCart(nil, x))
}

func TestMergeCart_CollapsesDuplicatesAndDropsUnusable(t *testing.T) {
	t.Parallel()

	server := models.Cart{line("1", 1), line("1", 2), {Qty: 3}}
	local := models.Cart{line("2", 0), line("1", 1)}

	merged := MergeCart(local, server)

	require.Len(t, merged, 1)
	assert.Equal(t, 4, qtyOf(t, merged, "1"))
}

func TestMergeCart_DoesNotAliasInputs(t *testing.T) {
	t.Parallel()

	server := models.Cart{line("1", 1)}
	local := models.Cart{line("1", 1)}

	merged := MergeCart(local, server)
	merged[0].Qty = 100

	assert.Equal(t, 1, server[0].Qty)
	assert.Equal(t, 1, local[0].Qty)
}

func TestMergeCart_QuantityConservation(t *testing.T) {
	t.Parallel()

	for n := 1; n <= 6; n++ {
		local := models.Cart{}
		server := models.Cart{}
		for i := 0; i < n; i++ {
			local = append(local, line(fmt.Sprint(i), i+1))
			if i%2 == 0 {
				server = append(server, line(fmt.Sprint(i), 10*(i+1)))
			}
		}

		merged := MergeCart(local, server)
		require.Len(t, merged, n)
		for i := 0; i < n; i++ {
			want := i + 1
			if i%2 == 0 {
				want += 10 * (i + 1)
			}
			assert.Equal(t, want, qtyOf(t, merged, fmt.Sprint(i)))
		}
	}
}

func TestCartExcess_IsEmptyOnceReconciled(t *testing.T) {
	t.Parallel()

	server := models.Cart{line("1", 2)}
	local := models.Cart{line("1", 1), line("2", 1)}
	merged := MergeCart(local, server)

	assert.Empty(t, CartExcess(merged, merged))
	assert.Equal(t, merged, MergeCart(CartExcess(merged, merged), merged))
}

func TestCartExcess_KeepsUnsyncedUnits(t *testing.T) {
	t.Parallel()

	base := models.Cart{line("1", 2), line("2", 5)}
	local := models.Cart{line("1", 5), line("2", 3), line("3", 1)}

	excess := CartExcess(local, base)

	require.Len(t, excess, 2)
	assert.Equal(t, 3, qtyOf(t, excess, "1"))
	assert.Equal(t, 1, qtyOf(t, excess, "3"))
}

func TestCartMutations(t *testing.T) {
	t.Parallel()

	cart := models.Cart{line("1", 1)}

	t.Run("add to existing line", func(t *testing.T) {
		t.Parallel()
		fresh := models.ProductRef{ID: "1", Name: "renamed", Price: models.NewMoney(12)}
		out := AddToCart(cart, fresh, 2)
		require.Len(t, out, 1)
		assert.Equal(t, 3, out[0].Qty)
		assert.Equal(t, "renamed", out[0].Product.Name)
		assert.Equal(t, 1, cart[0].Qty)
	})

	t.Run("add new line", func(t *testing.T) {
		t.Parallel()
		out := AddToCart(cart, models.ProductRef{ID: "2"}, 1)
		require.Len(t, out, 2)
	})

	t.Run("set qty zero removes", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, SetQty(cart, "1", 0))
	})

	t.Run("set qty negative removes", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, SetQty(cart, "1", -1))
	})

	t.Run("set qty updates", func(t *testing.T) {
		t.Parallel()
		out := SetQty(cart, "1", 6)
		assert.Equal(t, 6, qtyOf(t, out, "1"))
	})

	t.Run("remove", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, RemoveFromCart(cart, "1"))
		assert.Len(t, RemoveFromCart(cart, "404"), 1)
	})
}

func TestMergeWishlist_UniqueByID(t *testing.T) {
	t.Parallel()

	server := models.Wishlist{{ID: "1", Name: "server"}, {ID: "2"}, {ID: "1", Name: "dup"}}
	local := models.Wishlist{{ID: "1", Name: "local"}, {ID: "3"}, {ID: "3"}, {Name: "no id"}}

	merged := MergeWishlist(local, server)

	require.Len(t, merged, 3)
	seen := map[models.ID]int{}
	for _, p := range merged {
		seen[p.ID]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "id %s", id)
	}
	assert.Equal(t, "server", merged[0].Name)
}

func TestWishlistMutations(t *testing.T) {
	t.Parallel()

	list := models.Wishlist{{ID: "1"}}

	out, changed := AddToWishlist(list, models.Product{ID: "1"})
	assert.False(t, changed)
	assert.Len(t, out, 1)

	out, changed = AddToWishlist(list, models.Product{ID: "2"})
	assert.True(t, changed)
	assert.Len(t, out, 2)
	assert.Len(t, list, 1)

	assert.Empty(t, RemoveFromWishlist(list, "1"))
}

func TestMergeOrders_UniqueByDateAndTotal(t *testing.T) {
	t.Parallel()

	a := models.Order{Date: "2026-01-01T00:00:00.000Z", Total: "10.00", Status: models.OrderSuccess}
	b := models.Order{Date: "2026-01-02T00:00:00.000Z", Total: "10.00"}
	c := models.Order{Date: "2026-01-01T00:00:00.000Z", Total: "11.00"}
	aLocal := a
	aLocal.Status = models.OrderPending

	merged := MergeOrders([]models.Order{aLocal, c, c}, []models.Order{a, b, a})

	require.Len(t, merged, 3)
	keys := map[models.OrderKey]bool{}
	for _, o := range merged {
		require.False(t, keys[o.Key()], "duplicate key %v", o.Key())
		keys[o.Key()] = true
	}
	assert.Equal(t, models.OrderSuccess, merged[0].Status)
}

func TestRemoveOrder(t *testing.T) {
	t.Parallel()

	a := models.Order{Date: "d1", Total: "1.00"}
	b := models.Order{Date: "d2", Total: "1.00"}

	out := RemoveOrder([]models.Order{a, b}, a.Key())
	require.Len(t, out, 1)
	assert.Equal(t, b, out[0])
}
