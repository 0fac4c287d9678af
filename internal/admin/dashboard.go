package admin

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/recordstore"
)

type Customer struct {
	ID       models.ID `json:"id"`
	Username string    `json:"username"`
	Name     string    `json:"name,omitempty"`
	Email    string    `json:"email,omitempty"`
}

// OrderView is one order of the flattened ledger. Number is 1-based across
// all customers.
type OrderView struct {
	Number   int             `json:"number"`
	Order    models.Order    `json:"order"`
	Customer Customer        `json:"customer"`
	Address  *models.Address `json:"address,omitempty"`
}

// Orders flattens every user's order history in user order. The shipping
// address falls back to the customer's profile address.
func (s *Service) Orders(ctx context.Context) ([]OrderView, error) {
	users, err := s.Users(ctx)
	if err != nil {
		return nil, err
	}
	return flatten(users), nil
}

func flatten(users []models.User) []OrderView {
	var out []OrderView
	for _, u := range users {
		for _, o := range u.Orders {
			addr := o.Address
			if addr == nil {
				addr = u.Address
			}
			out = append(out, OrderView{
				Number:   len(out) + 1,
				Order:    o,
				Customer: Customer{ID: u.ID, Username: u.Username, Name: u.Name, Email: u.Email},
				Address:  addr,
			})
		}
	}
	return out
}

type MonthStat struct {
	Month            string          `json:"month"`
	Revenue          decimal.Decimal `json:"revenue"`
	Orders           int             `json:"orders"`
	CumulativeOrders int             `json:"cumulativeOrders"`
}

type Stats struct {
	Users    int             `json:"users"`
	Products int             `json:"products"`
	Orders   int             `json:"orders"`
	Revenue  decimal.Decimal `json:"revenue"`
	Monthly  []MonthStat     `json:"monthly"`
}

func (s *Service) Dashboard(ctx context.Context) (Stats, error) {
	users, err := s.Users(ctx)
	if err != nil {
		return Stats{}, err
	}
	products, err := s.Store.List(ctx, recordstore.Products)
	if err != nil {
		return Stats{}, err
	}
	st := computeStats(users, s.now())
	st.Products = len(products)
	return st, nil
}

// computeStats buckets orders by the UTC month of their date. Orders whose
// date does not parse count toward the month of now; unparsable totals
// count as zero.
func computeStats(users []models.User, now time.Time) Stats {
	st := Stats{Users: len(users), Revenue: decimal.Zero}
	byMonth := map[string]*MonthStat{}
	var months []string

	for _, u := range users {
		for _, o := range u.Orders {
			total, err := decimal.NewFromString(o.Total)
			if err != nil {
				total = decimal.Zero
			}
			at, err := time.Parse(time.RFC3339, o.Date)
			if err != nil {
				at = now
			}
			key := at.UTC().Format("2006-01")

			m, ok := byMonth[key]
			if !ok {
				m = &MonthStat{Month: key, Revenue: decimal.Zero}
				byMonth[key] = m
				months = append(months, key)
			}
			m.Revenue = m.Revenue.Add(total)
			m.Orders++

			st.Orders++
			st.Revenue = st.Revenue.Add(total)
		}
	}

	sort.Strings(months)
	cum := 0
	st.Monthly = make([]MonthStat, 0, len(months))
	for _, k := range months {
		m := byMonth[k]
		cum += m.Orders
		m.CumulativeOrders = cum
		st.Monthly = append(st.Monthly, *m)
	}
	return st
}
