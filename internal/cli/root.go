// Package cli is the storefront command line: shopping commands backed by a
// persisted session, and back-office commands for administrators.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/storefront/internal/notify"
)

var ValidFormats = []string{"text", "json"}

// Opener builds the application the commands run against.
type Opener func(ctx context.Context) (*App, error)

// RootOptions holds global flags and the application opened for the
// running command.
type RootOptions struct {
	Format string
	Open   Opener

	app    *App
	errOut io.Writer
}

// App returns the application opened for the current command.
func (o *RootOptions) App() *App { return o.app }

// Close waits for background synchronization, prints the notifications the
// command produced and releases the application.
func (o *RootOptions) Close() {
	if o.app == nil {
		return
	}
	o.app.Session.Wait()
	if o.errOut != nil && o.Format != "json" {
		for _, n := range o.app.Session.Notifications() {
			fmt.Fprintf(o.errOut, "[%s] %s\n", n.Type, n.Message)
		}
	}
	o.app.Close()
	o.app = nil
}

func NewRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "storefront",
		Short:         "Shop from the command line",
		Long:          "Browse the catalog, keep a cart and wishlist, and place cash-on-delivery orders.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.app != nil {
				return nil
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			app, err := opts.Open(ctx)
			if err != nil {
				return err
			}
			opts.app = app
			opts.errOut = cmd.ErrOrStderr()
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newLoginCommand(opts))
	cmd.AddCommand(newRegisterCommand(opts))
	cmd.AddCommand(newLogoutCommand(opts))
	cmd.AddCommand(newWhoamiCommand(opts))
	cmd.AddCommand(newProfileCommand(opts))
	cmd.AddCommand(newProductsCommand(opts))
	cmd.AddCommand(newCategoriesCommand(opts))
	cmd.AddCommand(newCartCommand(opts))
	cmd.AddCommand(newWishlistCommand(opts))
	cmd.AddCommand(newCheckoutCommand(opts))
	cmd.AddCommand(newOrdersCommand(opts))
	cmd.AddCommand(newAdminCommand(opts))

	return cmd
}

// Execute runs the storefront command line against the environment and
// returns the process exit code.
func Execute() int {
	opts := &RootOptions{Open: OpenFromEnv}
	cmd := NewRootCommand(opts)
	err := cmd.Execute()
	opts.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", message(err))
		return 1
	}
	return 0
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func (o *RootOptions) out(cmd *cobra.Command) *printer {
	return &printer{format: o.Format, w: cmd.OutOrStdout()}
}

// notifications is what json output reports alongside command data.
func (o *RootOptions) notifications() []notify.Notification {
	if o.app == nil {
		return nil
	}
	return o.app.Session.Notifications()
}
