package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"invoicer/internal/core"
)

func newClientCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Manage clients",
	}
	cmd.AddCommand(newClientCreateCmd(a))
	cmd.AddCommand(newClientListCmd(a))
	return cmd
}

func newClientCreateCmd(a *app) *cobra.Command {
	var (
		c      core.Client
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.Engine(cmd.Context())
			if err != nil {
				return err
			}
			created, err := engine.CreateClient(cmd.Context(), c)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), created)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created client %s (%s)\n", created.Name, created.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&c.Name, "name", "", "Client name (required)")
	f.StringVar(&c.Email, "email", "", "Billing email")
	f.StringVar(&c.Phone, "phone", "", "Phone number")
	f.StringVar(&c.TaxID, "tax-id", "", "Tax or VAT id")
	f.StringVar(&c.Notes, "notes", "", "Notes")
	f.StringVar(&c.Address.Street, "street", "", "Street address")
	f.StringVar(&c.Address.City, "city", "", "City")
	f.StringVar(&c.Address.State, "state", "", "State or region")
	f.StringVar(&c.Address.Zip, "zip", "", "Postal code")
	f.StringVar(&c.Address.Country, "country", "", "Country")
	f.BoolVar(&asJSON, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newClientListCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.Engine(cmd.Context())
			if err != nil {
				return err
			}
			clients, err := engine.ListClients(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), clients)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderClients(clients))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
