package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/storefront/internal/admin"
	"github.com/Skotchmaster/storefront/internal/models"
)

func newAdminCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Back-office commands; require JWT_SECRET",
	}
	cmd.AddCommand(
		newAdminUsersCommand(opts),
		newAdminBlockCommand(opts),
		newAdminProductsCommand(opts),
		newAdminOrdersCommand(opts),
		newAdminStatsCommand(opts),
	)
	return cmd
}

func adminService(opts *RootOptions) (*admin.Service, error) {
	return opts.App().Admin()
}

func newAdminUsersCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := adminService(opts)
			if err != nil {
				return err
			}
			users, err := svc.Users(cmd.Context())
			if err != nil {
				return err
			}
			for i := range users {
				users[i].Password = ""
			}
			return opts.out(cmd).emit(users, nil, func(w io.Writer) {
				line(w, "ID", "USERNAME", "EMAIL", "ROLE", "BLOCKED", "ORDERS")
				for _, u := range users {
					line(w, u.ID, u.Username, u.Email, u.Role, u.IsBlock, len(u.Orders))
				}
			})
		},
	}
}

func newAdminBlockCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "block <user-id>",
		Short: "Block or unblock an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := adminService(opts)
			if err != nil {
				return err
			}
			u, err := svc.ToggleBlock(cmd.Context(), models.ID(args[0]))
			if err != nil {
				return err
			}
			u.Password = ""
			return opts.out(cmd).emit(u, nil, func(w io.Writer) {
				state := "unblocked"
				if u.IsBlock {
					state = "blocked"
				}
				fmt.Fprintf(w, "%s %s\n", u.Username, state)
			})
		},
	}
}

func newAdminProductsCommand(opts *RootOptions) *cobra.Command {
	var recycle bool
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List products; --recycle lists deleted ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := adminService(opts)
			if err != nil {
				return err
			}
			list, err := svc.Products(cmd.Context(), recycle)
			if err != nil {
				return err
			}
			return opts.out(cmd).emit(list, nil, func(w io.Writer) {
				line(w, "ID", "NAME", "CATEGORY", "PRICE", "STOCK")
				for _, p := range list {
					line(w, p.ID, p.Name, p.Category, p.Price.StringFixed(2), p.Count)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&recycle, "recycle", false, "list soft-deleted products")

	var in admin.ProductInput
	var price string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := adminService(opts)
			if err != nil {
				return err
			}
			if err := parsePrice(&in, price); err != nil {
				return err
			}
			p, err := svc.CreateProduct(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printProduct(cmd, opts, p)
		},
	}
	bindProduct(create, &in, &price)

	var upd admin.ProductInput
	var updPrice string
	update := &cobra.Command{
		Use:   "update <product-id>",
		Short: "Replace the editable fields of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := adminService(opts)
			if err != nil {
				return err
			}
			if err := parsePrice(&upd, updPrice); err != nil {
				return err
			}
			p, err := svc.UpdateProduct(cmd.Context(), models.ID(args[0]), upd)
			if err != nil {
				return err
			}
			return printProduct(cmd, opts, p)
		},
	}
	bindProduct(update, &upd, &updPrice)

	del := &cobra.Command{
		Use:   "delete <product-id>",
		Short: "Hide a product from the storefront",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := adminService(opts)
			if err != nil {
				return err
			}
			p, err := svc.SoftDelete(cmd.Context(), models.ID(args[0]))
			if err != nil {
				return err
			}
			return printProduct(cmd, opts, p)
		},
	}

	restore := &cobra.Command{
		Use:   "restore <product-id>",
		Short: "Bring a deleted product back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := adminService(opts)
			if err != nil {
				return err
			}
			p, err := svc.Restore(cmd.Context(), models.ID(args[0]))
			if err != nil {
				return err
			}
			return printProduct(cmd, opts, p)
		},
	}

	purge := &cobra.Command{
		Use:   "purge <product-id>",
		Short: "Delete a product record for good",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := adminService(opts)
			if err != nil {
				return err
			}
			if err := svc.DeleteProduct(cmd.Context(), models.ID(args[0])); err != nil {
				return err
			}
			return opts.out(cmd).emit(nil, nil, func(w io.Writer) {
				fmt.Fprintf(w, "product %s deleted\n", args[0])
			})
		},
	}

	cmd.AddCommand(create, update, del, restore, purge)
	return cmd
}

func bindProduct(cmd *cobra.Command, in *admin.ProductInput, price *string) {
	cmd.Flags().StringVar(&in.Name, "name", "", "product name")
	cmd.Flags().StringVar(&in.Description, "description", "", "product description")
	cmd.Flags().StringVar(price, "price", "", "unit price")
	cmd.Flags().IntVar(&in.Count, "count", 0, "units in stock")
	cmd.Flags().StringVar(&in.Category, "category", "", "category")
	cmd.Flags().StringSliceVar(&in.Images, "image", nil, "image URL; repeatable")
}

func parsePrice(in *admin.ProductInput, v string) error {
	if v == "" {
		return nil
	}
	return in.Price.UnmarshalJSON([]byte(v))
}

func printProduct(cmd *cobra.Command, opts *RootOptions, p *models.Product) error {
	return opts.out(cmd).emit(p, nil, func(w io.Writer) {
		line(w, "id", p.ID)
		line(w, "name", p.Name)
		line(w, "category", p.Category)
		line(w, "price", p.Price.StringFixed(2))
		line(w, "stock", p.Count)
		line(w, "active", p.Active())
	})
}

func newAdminOrdersCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "List every customer's orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := adminService(opts)
			if err != nil {
				return err
			}
			orders, err := svc.Orders(cmd.Context())
			if err != nil {
				return err
			}
			return opts.out(cmd).emit(orders, nil, func(w io.Writer) {
				line(w, "#", "DATE", "CUSTOMER", "TOTAL", "STATUS", "CITY")
				for _, o := range orders {
					city := ""
					if o.Address != nil {
						city = o.Address.City
					}
					line(w, o.Number, o.Order.Date, o.Customer.Username, o.Order.Total, o.Order.Status, city)
				}
			})
		},
	}
}

func newAdminStatsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Dashboard figures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := adminService(opts)
			if err != nil {
				return err
			}
			st, err := svc.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			return opts.out(cmd).emit(st, nil, func(w io.Writer) {
				line(w, "users", st.Users)
				line(w, "products", st.Products)
				line(w, "orders", st.Orders)
				line(w, "revenue", st.Revenue.StringFixed(2))
				for _, m := range st.Monthly {
					line(w, m.Month, m.Orders, m.Revenue.StringFixed(2))
				}
			})
		},
	}
}
