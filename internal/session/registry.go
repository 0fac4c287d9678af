package session

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/recordstore"
)

// demoAccount is present in every fresh offline registry.
func demoAccount() models.User {
	return models.User{
		ID:       models.LocalIDPrefix + "demo",
		Username: "demo",
		Password: "demo123",
		Role:     models.RoleUser,
		Cart:     models.Cart{},
		Wishlist: models.Wishlist{},
		Orders:   []models.Order{},
	}
}

// loadRegistry returns the offline accounts, seeding the demo account when
// none are stored.
func (s *Session) loadRegistry(ctx context.Context) []models.User {
	var users []models.User
	if ok, _ := s.load(ctx, KeyRegistry, &users); !ok || users == nil {
		return []models.User{demoAccount()}
	}
	return users
}

func (s *Session) saveRegistry(ctx context.Context, users []models.User) {
	s.save(ctx, KeyRegistry, users)
}

func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// findUser matches identifier against email, username and display name,
// case-insensitively, and returns the first record that matches any of them.
func findUser(users []models.User, identifier string) *models.User {
	id := normalize(identifier)
	if id == "" {
		return nil
	}
	for i := range users {
		u := &users[i]
		if id == normalize(u.Email) || id == normalize(u.Username) || id == normalize(u.Name) {
			return u
		}
	}
	return nil
}

// listUsers fetches the user collection, skipping records that do not decode
// so one legacy record cannot lock every account out.
func (s *Session) listUsers(ctx context.Context) ([]models.User, error) {
	raws, err := s.store.List(ctx, recordstore.Users)
	if err != nil {
		return nil, err
	}
	out := make([]models.User, 0, len(raws))
	for _, r := range raws {
		var u models.User
		if err := json.Unmarshal(r, &u); err != nil {
			logging.FromContext(ctx).Warn("skip_malformed_user", "error", err)
			continue
		}
		out = append(out, u)
	}
	return out, nil
}
