package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Skotchmaster/storefront/internal/admin"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/session"
)

// Response is the json output envelope.
type Response struct {
	Status        string                `json:"status"`
	Data          any                   `json:"data,omitempty"`
	Notifications []notify.Notification `json:"notifications,omitempty"`
}

type printer struct {
	format string
	w      io.Writer
}

// emit writes data as a json envelope, or through text in text mode.
func (p *printer) emit(data any, notes []notify.Notification, text func(w io.Writer)) error {
	if p.format == "json" {
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(Response{Status: "ok", Data: data, Notifications: notes})
	}
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	text(tw)
	return tw.Flush()
}

// message is the text shown for a failed command.
func message(err error) string {
	var verr *admin.ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	if r := session.Outcome(err); r.Message != session.MsgUnknown {
		return r.Message
	}
	return err.Error()
}

func line(w io.Writer, cols ...any) {
	for i, c := range cols {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, c)
	}
	fmt.Fprintln(w)
}
