package models

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	// LocalIDPrefix marks accounts that only exist in the offline registry.
	LocalIDPrefix = "local-"
)

// ID is a record id as issued by the record store. Numbers and strings are
// both accepted on the wire and compared by their string form.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Money is a decimal amount that tolerates the loose shapes found in stored
// records: numbers, numeric strings, empty strings and null.
type Money struct {
	decimal.Decimal
}

func NewMoney(v float64) Money { return Money{decimal.NewFromFloat(v)} }

func MustMoney(s string) Money { return Money{decimal.RequireFromString(s)} }

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		m.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	m.Decimal = d
	return nil
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// Complete reports whether every address line is filled in.
func (a Address) Complete() bool {
	for _, v := range []string{a.Street, a.City, a.State, a.Zip, a.Country} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

type User struct {
	ID        ID       `json:"id,omitempty"`
	Username  string   `json:"username"`
	Name      string   `json:"name,omitempty"`
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	Role      string   `json:"role,omitempty"`
	IsBlock   bool     `json:"isBlock"`
	Cart      Cart     `json:"cart"`
	Wishlist  Wishlist `json:"wishlist"`
	Orders    []Order  `json:"orders"`
	Address   *Address `json:"address,omitempty"`
	CreatedAt string   `json:"created_at,omitempty"`
}

// IsLocal reports whether the account lives only in the offline registry
// and has no record store counterpart to sync with.
func (u *User) IsLocal() bool {
	return u.ID == "" || strings.HasPrefix(string(u.ID), LocalIDPrefix)
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// DisplayName is what the storefront greets the user with.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// Clone returns a deep copy so callers never share slices with session state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Cart = u.Cart.Clone()
	c.Wishlist = u.Wishlist.Clone()
	c.Orders = append([]Order(nil), u.Orders...)
	if u.Address != nil {
		a := *u.Address
		c.Address = &a
	}
	return &c
}

type Product struct {
	ID          ID       `json:"id,omitempty"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       Money    `json:"price"`
	Count       int      `json:"count,omitempty"`
	Category    string   `json:"category,omitempty"`
	Images      []string `json:"images,omitempty"`
	IsActive    *bool    `json:"isActive,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
}

// Active treats products without the flag as listed.
func (p *Product) Active() bool { return p.IsActive == nil || *p.IsActive }

// Ref snapshots the fields a cart line keeps.
func (p *Product) Ref() ProductRef {
	return ProductRef{
		ID:     p.ID,
		Name:   p.Name,
		Price:  p.Price,
		Images: append([]string(nil), p.Images...),
	}
}

// UnmarshalJSON accepts the legacy productId field as the id.
func (p *Product) UnmarshalJSON(b []byte) error {
	type plain Product
	var aux struct {
		plain
		ProductID ID `json:"productId"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*p = Product(aux.plain)
	if p.ID == "" {
		p.ID = aux.ProductID
	}
	return nil
}

// Wishlist holds full product snapshots.
type Wishlist []Product

func (w Wishlist) Clone() Wishlist {
	if w == nil {
		return Wishlist{}
	}
	return append(Wishlist{}, w...)
}

func (w Wishlist) Contains(id ID) bool {
	for i := range w {
		if w[i].ID == id {
			return true
		}
	}
	return false
}

// UnmarshalJSON drops null and id-less entries.
func (w *Wishlist) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Wishlist, 0, len(raw))
	for _, r := range raw {
		if isNull(r) {
			continue
		}
		var p Product
		if err := json.Unmarshal(r, &p); err != nil {
			continue
		}
		if p.ID == "" {
			continue
		}
		out = append(out, p)
	}
	*w = out
	return nil
}

func isNull(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) == 0 || string(b) == "null"
}
