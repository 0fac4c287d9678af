package session

import (
	"errors"

	"github.com/Skotchmaster/storefront/internal/localstore"
	"github.com/Skotchmaster/storefront/internal/recordstore"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountBlocked     = errors.New("account is blocked")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrIncompleteAddress  = errors.New("address is incomplete")
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidProduct     = errors.New("product has no id")
	ErrValidation         = errors.New("username and password are required")

	// Recovered locally: the bad key is cleared and the session starts
	// without it.
	ErrMalformedLocalState = localstore.ErrMalformed

	ErrUnreachable = recordstore.ErrUnreachable
	ErrNotFound    = recordstore.ErrNotFound
)

// MsgUnknown is reported for errors without a user-facing message.
const MsgUnknown = "Something went wrong"

// Result is the outcome reported to the user for login, register and
// checkout.
type Result struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func Outcome(err error) Result {
	if err == nil {
		return Result{OK: true}
	}
	var msg string
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		msg = "Invalid credentials"
	case errors.Is(err, ErrAccountBlocked):
		msg = "Account is blocked"
	case errors.Is(err, ErrUsernameTaken):
		msg = "Username already exists"
	case errors.Is(err, ErrNotAuthenticated):
		msg = "Please login to place an order"
	case errors.Is(err, ErrEmptyCart):
		msg = "Your cart is empty"
	case errors.Is(err, ErrIncompleteAddress):
		msg = "Please fill in all address fields"
	case errors.Is(err, ErrOrderNotFound):
		msg = "Order not found"
	case errors.Is(err, ErrInvalidProduct):
		msg = "Product is unavailable"
	case errors.Is(err, ErrValidation):
		msg = "Username and password are required"
	case errors.Is(err, ErrUnreachable):
		msg = "Store is unreachable, try again later"
	default:
		msg = MsgUnknown
	}
	return Result{OK: false, Message: msg}
}
