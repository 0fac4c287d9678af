package models

import (
	"encoding/json"
	"time"
)

type OrderStatus string

const (
	OrderPending OrderStatus = "pending"
	OrderSuccess OrderStatus = "success"
	OrderFailed  OrderStatus = "failed"
)

// OrderDateLayout matches the millisecond UTC timestamps orders are keyed on.
const OrderDateLayout = "2006-01-02T15:04:05.000Z"

type OrderItem struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Price Money  `json:"price"`
	Qty   int    `json:"qty"`
}

// UnmarshalJSON accepts quantity as an alias of qty.
func (i *OrderItem) UnmarshalJSON(b []byte) error {
	type plain OrderItem
	var aux struct {
		plain
		Quantity *int `json:"quantity"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*i = OrderItem(aux.plain)
	if i.Qty == 0 && aux.Quantity != nil {
		i.Qty = *aux.Quantity
	}
	if i.Qty == 0 {
		i.Qty = 1
	}
	return nil
}

// Order is immutable once recorded. Items are frozen copies of the cart lines.
type Order struct {
	Date    string      `json:"date"`
	Total   string      `json:"total"`
	Status  OrderStatus `json:"status"`
	Items   []OrderItem `json:"items"`
	Address *Address    `json:"address,omitempty"`
}

// UnmarshalJSON accepts a numeric total and keeps its literal text.
func (o *Order) UnmarshalJSON(b []byte) error {
	type plain Order
	var aux struct {
		plain
		Total json.RawMessage `json:"total"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*o = Order(aux.plain)
	o.Total = ""
	if !isNull(aux.Total) {
		var s string
		if err := json.Unmarshal(aux.Total, &s); err != nil {
			var n json.Number
			if err := json.Unmarshal(aux.Total, &n); err != nil {
				return err
			}
			s = n.String()
		}
		o.Total = s
	}
	return nil
}

// OrderKey identifies an order across devices. Offline orders carry no
// server id, so the date and total pair is used instead.
type OrderKey struct {
	Date  string
	Total string
}

func (o Order) Key() OrderKey { return OrderKey{Date: o.Date, Total: o.Total} }

// NewOrder snapshots the valid lines of cart into a recorded order.
func NewOrder(at time.Time, cart Cart, addr *Address) Order {
	valid := cart.ValidEntries()
	items := make([]OrderItem, 0, len(valid))
	for _, e := range valid {
		items = append(items, OrderItem{
			ID:    e.Product.ID,
			Name:  e.Product.Name,
			Price: e.Product.Price,
			Qty:   e.Qty,
		})
	}

	order := Order{
		Date:   at.UTC().Format(OrderDateLayout),
		Total:  valid.Total().StringFixed(2),
		Status: OrderSuccess,
		Items:  items,
	}
	if addr != nil {
		a := *addr
		order.Address = &a
	}
	return order
}
