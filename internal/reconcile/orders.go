package reconcile

import "github.com/Skotchmaster/storefront/internal/models"

// MergeOrders is the union of both histories keyed by (date, total). Server
// orders come first and win on key collisions.
//
// TODO(orders): the key collides for two orders placed in the same
// millisecond with the same total; switch to a client-generated order id
// once the record schema carries one.
func MergeOrders(local, server []models.Order) []models.Order {
	merged := make([]models.Order, 0, len(server)+len(local))
	seen := make(map[models.OrderKey]struct{}, len(server)+len(local))

	for _, list := range [][]models.Order{server, local} {
		for _, o := range list {
			k := o.Key()
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			merged = append(merged, o)
		}
	}
	return merged
}

// RemoveOrder drops every order matching key.
func RemoveOrder(orders []models.Order, key models.OrderKey) []models.Order {
	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if o.Key() != key {
			out = append(out, o)
		}
	}
	return out
}
