package reconcile

import "github.com/Skotchmaster/storefront/internal/models"

// MergeWishlist is the union of both lists by product id. Server entries come
// first and win over local duplicates, which are dropped.
func MergeWishlist(local, server models.Wishlist) models.Wishlist {
	merged := make(models.Wishlist, 0, len(server)+len(local))
	seen := make(map[models.ID]struct{}, len(server)+len(local))

	for _, list := range []models.Wishlist{server, local} {
		for _, p := range list {
			if p.ID == "" {
				continue
			}
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			merged = append(merged, p)
		}
	}
	return merged
}

// AddToWishlist appends product unless an entry with its id exists. The
// second result reports whether the list changed.
func AddToWishlist(list models.Wishlist, product models.Product) (models.Wishlist, bool) {
	out := list.Clone()
	if out.Contains(product.ID) {
		return out, false
	}
	return append(out, product), true
}

// RemoveFromWishlist drops the entry for id.
func RemoveFromWishlist(list models.Wishlist, id models.ID) models.Wishlist {
	out := make(models.Wishlist, 0, len(list))
	for _, p := range list {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}
