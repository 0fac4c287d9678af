package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Skotchmaster/storefront/internal/catalog"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/util"
)

func newLoginCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login <email|username|name> <password>",
		Short: "Log in and merge the local cart into the account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := opts.App().Session
			if err := s.Login(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			return printUser(cmd, opts, s.User())
		},
	}
}

func newRegisterCommand(opts *RootOptions) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "register <username> <password>",
		Short: "Create an account and log in",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := opts.App().Session
			if err := s.Register(cmd.Context(), args[0], args[1], email); err != nil {
				return err
			}
			return printUser(cmd, opts, s.User())
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "contact email")
	return cmd
}

func newLogoutCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out; the cart and wishlist stay on this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.App().Session.Logout(cmd.Context())
			return opts.out(cmd).emit(nil, opts.notifications(), func(w io.Writer) {
				fmt.Fprintln(w, "logged out")
			})
		},
	}
}

func newWhoamiCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printUser(cmd, opts, opts.App().Session.User())
		},
	}
}

func printUser(cmd *cobra.Command, opts *RootOptions, u *models.User) error {
	return opts.out(cmd).emit(u, opts.notifications(), func(w io.Writer) {
		if u == nil {
			fmt.Fprintln(w, "anonymous")
			return
		}
		line(w, "id", u.ID)
		line(w, "user", u.DisplayName())
		if u.Email != "" {
			line(w, "email", u.Email)
		}
		if u.IsLocal() {
			line(w, "account", "offline")
		}
		if u.IsAdmin() {
			line(w, "role", u.Role)
		}
	})
}

func newProfileCommand(opts *RootOptions) *cobra.Command {
	var (
		name, email              string
		street, city, state, zip string
		country                  string
	)
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update profile fields of the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var p session.UserPatch
			if cmd.Flags().Changed("name") {
				p.Name = &name
			}
			if cmd.Flags().Changed("email") {
				p.Email = &email
			}
			if addr := addressFlags(cmd, street, city, state, zip, country); addr != nil {
				p.Address = addr
			}
			s := opts.App().Session
			if err := s.UpdateUser(cmd.Context(), p); err != nil {
				return err
			}
			return printUser(cmd, opts, s.User())
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "contact email")
	bindAddress(cmd, &street, &city, &state, &zip, &country)
	return cmd
}

func bindAddress(cmd *cobra.Command, street, city, state, zip, country *string) {
	cmd.Flags().StringVar(street, "street", "", "street address")
	cmd.Flags().StringVar(city, "city", "", "city")
	cmd.Flags().StringVar(state, "state", "", "state or region")
	cmd.Flags().StringVar(zip, "zip", "", "postal code")
	cmd.Flags().StringVar(country, "country", "", "country")
}

// addressFlags is nil unless at least one address flag was given.
func addressFlags(cmd *cobra.Command, street, city, state, zip, country string) *models.Address {
	for _, f := range []string{"street", "city", "state", "zip", "country"} {
		if cmd.Flags().Changed(f) {
			return &models.Address{Street: street, City: city, State: state, Zip: zip, Country: country}
		}
	}
	return nil
}

func newProductsCommand(opts *RootOptions) *cobra.Command {
	var (
		f                catalog.Filter
		lo, hi           string
		pageArg, sizeArg string
	)
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List active products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if f.MinPrice, err = priceFlag("min", lo); err != nil {
				return err
			}
			if f.MaxPrice, err = priceFlag("max", hi); err != nil {
				return err
			}
			page := util.ParseIntDefault(pageArg, 1)
			size := util.ParseIntDefault(sizeArg, util.DefaultPageSize)
			res, err := opts.App().Catalog.Find(cmd.Context(), f, page, size)
			if err != nil {
				return err
			}
			return opts.out(cmd).emit(res, opts.notifications(), func(w io.Writer) {
				line(w, "ID", "NAME", "CATEGORY", "PRICE", "STOCK")
				for _, p := range res.Items {
					line(w, p.ID, p.Name, p.Category, p.Price.StringFixed(2), p.Count)
				}
				fmt.Fprintf(w, "page %d of %d, %d products\n", res.Page, res.TotalPages, res.Total)
			})
		},
	}
	cmd.Flags().StringVarP(&f.Query, "search", "s", "", "text to look for in name or description")
	cmd.Flags().StringVar(&f.Category, "category", "", "exact category")
	cmd.Flags().StringVar(&lo, "min", "", "lowest price")
	cmd.Flags().StringVar(&hi, "max", "", "highest price")
	cmd.Flags().StringVar(&pageArg, "page", "1", "page number")
	cmd.Flags().StringVar(&sizeArg, "size", strconv.Itoa(util.DefaultPageSize), "page size")
	return cmd
}

func priceFlag(name, v string) (*decimal.Decimal, error) {
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &d, nil
}

func newCategoriesCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List product categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := opts.App().Catalog.Categories(cmd.Context())
			if err != nil {
				return err
			}
			return opts.out(cmd).emit(cats, opts.notifications(), func(w io.Writer) {
				for _, c := range cats {
					fmt.Fprintln(w, c)
				}
			})
		},
	}
}

func newCartCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printCart(cmd, opts)
		},
	}

	var qty int
	add := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := opts.App()
			p, err := app.Catalog.Get(cmd.Context(), models.ID(args[0]))
			if err != nil {
				return err
			}
			if err := app.Session.AddToCart(cmd.Context(), *p, qty); err != nil {
				return err
			}
			return printCart(cmd, opts)
		},
	}
	add.Flags().IntVarP(&qty, "qty", "q", 1, "units to add")

	set := &cobra.Command{
		Use:   "qty <product-id> <qty>",
		Short: "Set the quantity of a line; 0 removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("qty: %w", err)
			}
			opts.App().Session.UpdateCartQty(cmd.Context(), models.ID(args[0]), n)
			return printCart(cmd, opts)
		},
	}

	rm := &cobra.Command{
		Use:   "rm <product-id>",
		Short: "Remove a line from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.App().Session.RemoveFromCart(cmd.Context(), models.ID(args[0]))
			return printCart(cmd, opts)
		},
	}

	cmd.AddCommand(add, set, rm)
	return cmd
}

func printCart(cmd *cobra.Command, opts *RootOptions) error {
	cart := opts.App().Session.Cart()
	return opts.out(cmd).emit(cart, opts.notifications(), func(w io.Writer) {
		if len(cart) == 0 {
			fmt.Fprintln(w, "cart is empty")
			return
		}
		line(w, "ID", "NAME", "PRICE", "QTY", "SUBTOTAL")
		for _, e := range cart {
			line(w, e.Product.ID, e.Product.Name, e.Product.Price.StringFixed(2), e.Qty, e.Subtotal().StringFixed(2))
		}
		line(w, "", "", "", cart.Units(), cart.Total().StringFixed(2))
	})
}

func newWishlistCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wishlist",
		Short: "Show the wishlist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printWishlist(cmd, opts)
		},
	}

	add := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Save a product to the wishlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := opts.App()
			p, err := app.Catalog.Get(cmd.Context(), models.ID(args[0]))
			if err != nil {
				return err
			}
			if err := app.Session.AddToWishlist(cmd.Context(), *p); err != nil {
				return err
			}
			return printWishlist(cmd, opts)
		},
	}

	rm := &cobra.Command{
		Use:   "rm <product-id>",
		Short: "Remove a product from the wishlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.App().Session.RemoveFromWishlist(cmd.Context(), models.ID(args[0]))
			return printWishlist(cmd, opts)
		},
	}

	cmd.AddCommand(add, rm)
	return cmd
}

func printWishlist(cmd *cobra.Command, opts *RootOptions) error {
	list := opts.App().Session.Wishlist()
	return opts.out(cmd).emit(list, opts.notifications(), func(w io.Writer) {
		if len(list) == 0 {
			fmt.Fprintln(w, "wishlist is empty")
			return
		}
		line(w, "ID", "NAME", "PRICE")
		for _, p := range list {
			line(w, p.ID, p.Name, p.Price.StringFixed(2))
		}
	})
}

func newCheckoutCommand(opts *RootOptions) *cobra.Command {
	var street, city, state, zip, country string
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place a cash-on-delivery order for the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := addressFlags(cmd, street, city, state, zip, country)
			order, err := opts.App().Session.Checkout(cmd.Context(), addr)
			if err != nil {
				return err
			}
			return opts.out(cmd).emit(order, opts.notifications(), func(w io.Writer) {
				line(w, "date", order.Date)
				line(w, "total", order.Total)
				line(w, "status", order.Status)
			})
		},
	}
	bindAddress(cmd, &street, &city, &state, &zip, &country)
	return cmd
}

func newOrdersCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Show the order history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orders := opts.App().Session.Orders()
			return opts.out(cmd).emit(orders, opts.notifications(), func(w io.Writer) {
				if len(orders) == 0 {
					fmt.Fprintln(w, "no orders")
					return
				}
				line(w, "#", "DATE", "TOTAL", "STATUS", "ITEMS")
				for i, o := range orders {
					line(w, i+1, o.Date, o.Total, o.Status, len(o.Items))
				}
			})
		},
	}

	rm := &cobra.Command{
		Use:   "rm <number>",
		Short: "Remove an order, by its number in the history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("order number: %w", err)
			}
			if err := opts.App().Session.RemoveOrder(cmd.Context(), n-1); err != nil {
				return err
			}
			return opts.out(cmd).emit(nil, opts.notifications(), func(w io.Writer) {
				fmt.Fprintf(w, "order %d removed\n", n)
			})
		},
	}
	cmd.AddCommand(rm)
	return cmd
}
