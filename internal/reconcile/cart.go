// Package reconcile merges locally held storefront state with the copy kept
// in the record store, and computes the per-mutation patches applied to
// either side.
//
// All functions are pure: inputs are never modified and results never share
// backing arrays with them.
package reconcile

import "github.com/Skotchmaster/storefront/internal/models"

// MergeCart folds local lines into the server cart. The server copy is the
// base and keeps its product snapshots; local quantities are treated as units
// added while offline and are summed onto matching server lines. Lines with
// no product id or a non-positive quantity are dropped, and the result holds
// at most one line per product id.
func MergeCart(local, server models.Cart) models.Cart {
	merged := make(models.Cart, 0, len(server)+len(local))
	index := make(map[models.ID]int, len(server)+len(local))

	add := func(e models.CartEntry) {
		if !e.Valid() || e.Qty <= 0 {
			return
		}
		if i, ok := index[e.Product.ID]; ok {
			merged[i].Qty += e.Qty
			return
		}
		index[e.Product.ID] = len(merged)
		e.Product.Images = append([]string(nil), e.Product.Images...)
		merged = append(merged, e)
	}

	for _, e := range server {
		add(e)
	}
	for _, e := range local {
		add(e)
	}
	return merged
}

// CartExcess returns the units of local that are not yet reflected in base,
// the cart last acknowledged by the server. Lines at or below their base
// quantity are omitted.
func CartExcess(local, base models.Cart) models.Cart {
	acked := make(map[models.ID]int, len(base))
	for _, e := range base {
		acked[e.Product.ID] += e.Qty
	}

	out := make(models.Cart, 0, len(local))
	for _, e := range local {
		if !e.Valid() {
			continue
		}
		have := acked[e.Product.ID]
		if e.Qty <= have {
			acked[e.Product.ID] = have - e.Qty
			continue
		}
		acked[e.Product.ID] = 0
		e.Qty -= have
		e.Product.Images = append([]string(nil), e.Product.Images...)
		out = append(out, e)
	}
	return out
}

// AddToCart adds qty units of product. An existing line takes the fresh
// product snapshot and the summed quantity.
func AddToCart(cart models.Cart, product models.ProductRef, qty int) models.Cart {
	out := cart.Clone()
	for i := range out {
		if out[i].Product.ID == product.ID {
			out[i].Product = product
			out[i].Qty += qty
			return out
		}
	}
	return append(out, models.CartEntry{Product: product, Qty: qty})
}

// SetQty replaces the quantity of the line for id. A non-positive quantity
// removes the line.
func SetQty(cart models.Cart, id models.ID, qty int) models.Cart {
	out := make(models.Cart, 0, len(cart))
	for _, e := range cart.Clone() {
		if e.Product.ID == id {
			e.Qty = qty
		}
		if e.Qty > 0 {
			out = append(out, e)
		}
	}
	return out
}

// RemoveFromCart drops the line for id.
func RemoveFromCart(cart models.Cart, id models.ID) models.Cart {
	out := make(models.Cart, 0, len(cart))
	for _, e := range cart.Clone() {
		if e.Product.ID != id {
			out = append(out, e)
		}
	}
	return out
}
