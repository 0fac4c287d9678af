package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// ProductRef is the product snapshot taken when a line is added to a cart.
// It is not refreshed from the catalog afterwards.
type ProductRef struct {
	ID     ID       `json:"id"`
	Name   string   `json:"name"`
	Price  Money    `json:"price"`
	Images []string `json:"images,omitempty"`
}

type CartEntry struct {
	Product ProductRef `json:"product"`
	Qty     int        `json:"qty"`
}

// Valid reports whether the entry references a product id. Entries without
// one are kept but never priced or ordered.
func (e CartEntry) Valid() bool { return e.Product.ID != "" }

func (e CartEntry) Subtotal() decimal.Decimal {
	return e.Product.Price.Mul(decimal.NewFromInt(int64(e.Qty)))
}

// NormalizeCartEntry turns any of the cart line shapes seen in stored records
// into a CartEntry:
//
//	{"product": {...}, "qty": 2}
//	{"productId": 7, "name": "...", "price": 10, "qty": 2}
//	{"id": 7, "name": "...", "price": 10}            (bare product, qty 1)
//
// It reports false for null input and for non-positive quantities.
func NormalizeCartEntry(raw json.RawMessage) (CartEntry, bool) {
	if isNull(raw) {
		return CartEntry{}, false
	}

	var shape struct {
		Product   json.RawMessage `json:"product"`
		Qty       *int            `json:"qty"`
		ProductID ID              `json:"productId"`
		Name      string          `json:"name"`
		Price     Money           `json:"price"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil {
		return CartEntry{}, false
	}

	qty := 1
	if shape.Qty != nil {
		qty = *shape.Qty
	}

	var entry CartEntry
	switch {
	case !isNull(shape.Product):
		var p Product
		if err := json.Unmarshal(shape.Product, &p); err != nil {
			return CartEntry{}, false
		}
		entry = CartEntry{Product: p.Ref(), Qty: qty}
	case shape.ProductID != "":
		entry = CartEntry{
			Product: ProductRef{ID: shape.ProductID, Name: shape.Name, Price: shape.Price},
			Qty:     qty,
		}
	default:
		var p Product
		if err := json.Unmarshal(raw, &p); err != nil {
			return CartEntry{}, false
		}
		entry = CartEntry{Product: p.Ref(), Qty: 1}
	}

	if entry.Qty <= 0 {
		return CartEntry{}, false
	}
	return entry, true
}

// Cart is an ordered list of lines, at most one per product id.
type Cart []CartEntry

// UnmarshalJSON normalizes every line on the way in.
func (c *Cart) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		*c = Cart{}
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Cart, 0, len(raw))
	for _, r := range raw {
		if e, ok := NormalizeCartEntry(r); ok {
			out = append(out, e)
		}
	}
	*c = out
	return nil
}

func (c Cart) Clone() Cart {
	if c == nil {
		return Cart{}
	}
	out := make(Cart, len(c))
	for i, e := range c {
		e.Product.Images = append([]string(nil), e.Product.Images...)
		out[i] = e
	}
	return out
}

// ValidEntries drops lines without a product id.
func (c Cart) ValidEntries() Cart {
	out := make(Cart, 0, len(c))
	for _, e := range c {
		if e.Valid() {
			out = append(out, e)
		}
	}
	return out
}

func (c Cart) Find(id ID) (CartEntry, bool) {
	for _, e := range c {
		if e.Product.ID == id {
			return e, true
		}
	}
	return CartEntry{}, false
}

// Total sums price x qty over valid lines.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range c {
		if e.Valid() {
			total = total.Add(e.Subtotal())
		}
	}
	return total
}

// Units counts items across all lines.
func (c Cart) Units() int {
	n := 0
	for _, e := range c {
		n += e.Qty
	}
	return n
}
