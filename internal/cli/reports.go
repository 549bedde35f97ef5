package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"invoicer/internal/core"
)

func newStatsCmd(a *app) *cobra.Command {
	var (
		year   int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show revenue and status statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if year == 0 {
				year = currentYear(a.now)
			}
			engine, err := a.Engine(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := engine.Statistics(cmd.Context())
			if err != nil {
				return err
			}
			months, err := engine.MonthlyRevenue(cmd.Context(), year)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), struct {
					Total          int                 `json:"total"`
					ByStatus       map[core.Status]int `json:"byStatus"`
					TotalRevenue   json.Number         `json:"totalRevenue"`
					PendingRevenue json.Number         `json:"pendingRevenue"`
					OverdueRevenue json.Number         `json:"overdueRevenue"`
					TotalClients   int                 `json:"totalClients"`
					Year           int                 `json:"year"`
					Monthly        []core.MonthRevenue `json:"monthly"`
				}{
					Total:          stats.Total,
					ByStatus:       stats.ByStatus,
					TotalRevenue:   core.JSONNumber(stats.TotalRevenue),
					PendingRevenue: core.JSONNumber(stats.PendingRevenue),
					OverdueRevenue: core.JSONNumber(stats.OverdueRevenue),
					TotalClients:   stats.TotalClients,
					Year:           year,
					Monthly:        months,
				})
			}

			s, err := engine.Settings(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderStats(stats, months, year, s.Currency))
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "Year for the monthly revenue table (default current year)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newOverdueCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "overdue",
		Short: "Mark sent invoices past their due date as overdue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.Engine(cmd.Context())
			if err != nil {
				return err
			}
			changed, err := engine.MarkOverdue(cmd.Context(), core.DateOf(a.now()))
			if err != nil {
				return err
			}
			if len(changed) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("No invoices became overdue"))
				return nil
			}
			clients, err := clientIndex(cmd.Context(), engine)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderInvoiceTable(changed, clients))
			return nil
		},
	}
}
