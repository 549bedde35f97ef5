package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"invoicer/internal/core"
	"invoicer/internal/invoice"
)

// invoiceFlags are shared by create and update.
type invoiceFlags struct {
	number  string
	client  string
	date    string
	due     string
	items   []string
	taxRate string
	status  string
	notes   string
	terms   string
}

func (f *invoiceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.number, "number", "", "Invoice number (generated when auto-numbering is on)")
	cmd.Flags().StringVar(&f.client, "client", "", "Client id")
	cmd.Flags().StringVar(&f.date, "date", "", "Issue date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&f.due, "due", "", "Due date YYYY-MM-DD (default date + due days)")
	cmd.Flags().StringArrayVar(&f.items, "item", nil, `Line item "description:quantity:rate" (repeatable)`)
	cmd.Flags().StringVar(&f.taxRate, "tax-rate", "", "Tax rate as a fraction, e.g. 0.2")
	cmd.Flags().StringVar(&f.status, "status", "", "Status: draft, sent, paid, overdue, cancelled")
	cmd.Flags().StringVar(&f.notes, "notes", "", "Notes")
	cmd.Flags().StringVar(&f.terms, "terms", "", "Payment terms")
}

func (f *invoiceFlags) draft() (core.InvoiceDraft, error) {
	var d core.InvoiceDraft
	var err error

	d.Number = strings.TrimSpace(f.number)
	d.ClientID = strings.TrimSpace(f.client)
	d.Notes = f.notes
	d.Terms = f.terms
	if d.Date, err = core.ParseDate(f.date); err != nil {
		return d, err
	}
	if d.DueDate, err = core.ParseDate(f.due); err != nil {
		return d, err
	}
	if d.Items, err = parseItems(f.items); err != nil {
		return d, err
	}
	if f.taxRate != "" {
		rate, err := core.ParseAmount(f.taxRate)
		if err != nil {
			return d, err
		}
		d.TaxRate = &rate
	}
	if f.status != "" {
		if d.Status, err = core.ParseStatus(f.status); err != nil {
			return d, err
		}
	}
	return d, nil
}

// patch builds an InvoicePatch from the flags the user actually set.
func (f *invoiceFlags) patch(cmd *cobra.Command) (core.InvoicePatch, error) {
	var p core.InvoicePatch
	changed := cmd.Flags().Changed

	if changed("number") {
		v := strings.TrimSpace(f.number)
		p.Number = &v
	}
	if changed("client") {
		v := strings.TrimSpace(f.client)
		p.ClientID = &v
	}
	if changed("date") {
		d, err := core.ParseDate(f.date)
		if err != nil {
			return p, err
		}
		p.Date = &d
	}
	if changed("due") {
		d, err := core.ParseDate(f.due)
		if err != nil {
			return p, err
		}
		p.DueDate = &d
	}
	if changed("item") {
		items, err := parseItems(f.items)
		if err != nil {
			return p, err
		}
		p.Items = &items
	}
	if changed("tax-rate") {
		rate, err := core.ParseAmount(f.taxRate)
		if err != nil {
			return p, err
		}
		p.TaxRate = &rate
	}
	if changed("status") {
		s, err := core.ParseStatus(f.status)
		if err != nil {
			return p, err
		}
		p.Status = &s
	}
	if changed("notes") {
		p.Notes = &f.notes
	}
	if changed("terms") {
		p.Terms = &f.terms
	}
	return p, nil
}

// parseItems reads "description:quantity:rate" values. The description may
// itself contain colons.
func parseItems(raw []string) ([]core.LineItem, error) {
	items := make([]core.LineItem, 0, len(raw))
	for _, item := range raw {
		parts := strings.Split(item, ":")
		if len(parts) < 3 {
			return nil, fmt.Errorf("%w: %q must be description:quantity:rate", core.ErrInvalidItem, item)
		}
		n := len(parts)
		qty, err := core.ParseAmount(parts[n-2])
		if err != nil {
			return nil, fmt.Errorf("item %q quantity: %w", item, err)
		}
		rate, err := core.ParseAmount(parts[n-1])
		if err != nil {
			return nil, fmt.Errorf("item %q rate: %w", item, err)
		}
		items = append(items, core.LineItem{
			Description: strings.TrimSpace(strings.Join(parts[:n-2], ":")),
			Quantity:    qty,
			Rate:        rate,
		})
	}
	return items, nil
}

// filterFlags are shared by list and export.
type filterFlags struct {
	status string
	client string
	from   string
	to     string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.status, "status", "", "Only invoices with this status")
	cmd.Flags().StringVar(&f.client, "client", "", "Only invoices of this client id")
	cmd.Flags().StringVar(&f.from, "from", "", "Issued on or after YYYY-MM-DD")
	cmd.Flags().StringVar(&f.to, "to", "", "Issued on or before YYYY-MM-DD")
}

func (f *filterFlags) build() (core.Filters, error) {
	var out core.Filters
	var err error
	if f.status != "" {
		if out.Status, err = core.ParseStatus(f.status); err != nil {
			return out, err
		}
	}
	out.ClientID = strings.TrimSpace(f.client)
	if out.DateFrom, err = core.ParseDate(f.from); err != nil {
		return out, err
	}
	if out.DateTo, err = core.ParseDate(f.to); err != nil {
		return out, err
	}
	return out, nil
}

// resolveInvoice accepts an id or an invoice number.
func resolveInvoice(ctx context.Context, engine *invoice.Engine, ref string) (core.Invoice, error) {
	inv, err := engine.Get(ctx, ref)
	if errors.Is(err, core.ErrNotFound) {
		return engine.GetByNumber(ctx, ref)
	}
	return inv, err
}

func clientIndex(ctx context.Context, engine *invoice.Engine) (map[string]core.Client, error) {
	clients, err := engine.ListClients(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]core.Client, len(clients))
	for _, c := range clients {
		out[c.ID] = c
	}
	return out, nil
}

func showInvoice(cmd *cobra.Command, engine *invoice.Engine, inv core.Invoice, asJSON bool) error {
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), inv)
	}
	var client *core.Client
	if inv.ClientID != "" {
		if c, err := engine.GetClient(cmd.Context(), inv.ClientID); err == nil {
			client = &c
		}
	}
	fmt.Fprint(cmd.OutOrStdout(), renderInvoice(inv, client))
	return nil
}

func newCreateCmd(a *app) *cobra.Command {
	var (
		flags  invoiceFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an invoice",
		Example: `  invoicer create --client 3f2c... --item "Design work:10:85" --item "Hosting:1:20"
  invoicer create --number INV-2025-0100 --tax-rate 0 --status sent`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, err := flags.draft()
			if err != nil {
				return err
			}
			engine, err := a.Engine(cmd.Context())
			if err != nil {
				return err
			}
			inv, err := engine.Create(cmd.Context(), draft)
			if err != nil {
				return fmt.Errorf("create failed: %w", err)
			}
			return showInvoice(cmd, engine, inv, asJSON)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var (
		filters filterFlags
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List invoices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := filters.build()
			if err != nil {
				return err
			}
			engine, err := a.Engine(cmd.Context())
			if err != nil {
				return err
			}
			invoices, err := engine.List(cmd.Context(), f)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), invoices)
			}
			clients, err := clientIndex(cmd.Context(), engine)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderInvoiceTable(invoices, clients))
			return nil
		},
	}
	filters.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id|number>",
		Short: "Show one invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.Engine(cmd.Context())
			if err != nil {
				return err
			}
			inv, err := resolveInvoice(cmd.Context(), engine, args[0])
			if err != nil {
				return err
			}
			return showInvoice(cmd, engine, inv, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	var (
		flags  invoiceFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "update <id|number>",
		Short: "Change fields of an invoice",
		Long:  "Only the flags given are changed. Passing --item replaces every line item.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := flags.patch(cmd)
			if err != nil {
				return err
			}
			engine, err := a.Engine(cmd.Context())
			if err != nil {
				return err
			}
			current, err := resolveInvoice(cmd.Context(), engine, args[0])
			if err != nil {
				return err
			}
			inv, err := engine.Update(cmd.Context(), current.ID, patch)
			if err != nil {
				return fmt.Errorf("update failed: %w", err)
			}
			return showInvoice(cmd, engine, inv, asJSON)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "status <id|number> <status>",
		Short:     "Set the status of an invoice",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"draft", "sent", "paid", "overdue", "cancelled"},
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := core.ParseStatus(args[1])
			if err != nil {
				return err
			}
			engine, err := a.Engine(cmd.Context())
			if err != nil {
				return err
			}
			current, err := resolveInvoice(cmd.Context(), engine, args[0])
			if err != nil {
				return err
			}
			inv, err := engine.SetStatus(cmd.Context(), current.ID, status)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", inv.Number, statusText(inv.Status))
			return nil
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id|number>",
		Short: "Delete an invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.Engine(cmd.Context())
			if err != nil {
				return err
			}
			current, err := resolveInvoice(cmd.Context(), engine, args[0])
			if err != nil {
				return err
			}
			removed, err := engine.Delete(cmd.Context(), current.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted invoice %s (%s)\n", removed.Number, removed.ID)
			return nil
		},
	}
}
