package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"invoicer/internal/core"
	"invoicer/internal/invoice"
)

var (
	accent  = lipgloss.Color("#2563EB") // blue
	fg      = lipgloss.Color("#E5E7EB")
	dim     = lipgloss.Color("#6B7280")
	success = lipgloss.Color("#22C55E")
	danger  = lipgloss.Color("#EF4444")
	warning = lipgloss.Color("#F59E0B")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(accent)
	labelStyle  = lipgloss.NewStyle().Foreground(dim).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(fg)
	dimStyle    = lipgloss.NewStyle().Foreground(dim)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(accent).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	okStyle     = lipgloss.NewStyle().Foreground(success)
	errStyle    = lipgloss.NewStyle().Foreground(danger)
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 2)

	statusColors = map[core.Status]lipgloss.Color{
		core.StatusDraft:     dim,
		core.StatusSent:      accent,
		core.StatusPaid:      success,
		core.StatusOverdue:   danger,
		core.StatusCancelled: warning,
	}
)

func statusText(s core.Status) string {
	c, ok := statusColors[s]
	if !ok {
		return string(s)
	}
	return lipgloss.NewStyle().Foreground(c).Render(string(s))
}

func newTable(headers []string, rows [][]string, numeric map[int]bool) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case numeric[col]:
				return numberStyle
			default:
				return cellStyle
			}
		})
}

func renderInvoiceTable(invoices []core.Invoice, clients map[string]core.Client) string {
	rows := make([][]string, 0, len(invoices))
	for _, inv := range invoices {
		rows = append(rows, []string{
			inv.Number,
			inv.Date.String(),
			inv.DueDate.String(),
			statusText(inv.Status),
			clients[inv.ClientID].Name,
			core.Money(inv.Total),
			inv.ID,
		})
	}
	t := newTable([]string{"Number", "Date", "Due", "Status", "Client", "Total", "ID"}, rows, map[int]bool{5: true})
	return t.String() + "\n" + dimStyle.Render(fmt.Sprintf("%d invoice(s)", len(invoices))) + "\n"
}

func field(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label))
	b.WriteString(valueStyle.Render(value))
	b.WriteString("\n")
}

func renderInvoice(inv core.Invoice, client *core.Client) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Invoice "+inv.Number) + "\n\n")
	field(&b, "ID", inv.ID)
	field(&b, "Status", statusText(inv.Status))
	field(&b, "Date", inv.Date.String())
	field(&b, "Due", inv.DueDate.String())
	if client != nil {
		c := client.Name
		if client.Email != "" {
			c += " <" + client.Email + ">"
		}
		field(&b, "Client", c)
	} else if inv.ClientID != "" {
		field(&b, "Client", inv.ClientID)
	}

	if len(inv.Items) > 0 {
		rows := make([][]string, 0, len(inv.Items))
		for _, it := range inv.Items {
			rows = append(rows, []string{it.Description, it.Quantity.String(), core.Money(it.Rate), core.Money(it.Amount)})
		}
		b.WriteString("\n")
		b.WriteString(newTable([]string{"Description", "Qty", "Rate", "Amount"}, rows, map[int]bool{1: true, 2: true, 3: true}).String())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	field(&b, "Subtotal", core.Money(inv.Subtotal))
	field(&b, "Tax", fmt.Sprintf("%s (%s)", core.Money(inv.TaxAmount), inv.TaxRate.String()))
	field(&b, "Total", core.Money(inv.Total))
	if inv.Notes != "" {
		field(&b, "Notes", inv.Notes)
	}
	if inv.Terms != "" {
		field(&b, "Terms", inv.Terms)
	}
	return b.String()
}

func renderClients(clients []core.Client) string {
	rows := make([][]string, 0, len(clients))
	for _, c := range clients {
		rows = append(rows, []string{c.Name, c.Email, c.Phone, c.Address.City, c.ID})
	}
	t := newTable([]string{"Name", "Email", "Phone", "City", "ID"}, rows, nil)
	return t.String() + "\n" + dimStyle.Render(fmt.Sprintf("%d client(s)", len(clients))) + "\n"
}

func renderStats(stats core.Statistics, months []core.MonthRevenue, year int, currency string) string {
	var b strings.Builder

	var summary strings.Builder
	summary.WriteString(titleStyle.Render("Invoice statistics") + "\n\n")
	field(&summary, "Invoices", fmt.Sprint(stats.Total))
	field(&summary, "Clients", fmt.Sprint(stats.TotalClients))
	field(&summary, "Paid", core.Money(stats.TotalRevenue)+" "+currency)
	field(&summary, "Pending", core.Money(stats.PendingRevenue)+" "+currency)
	field(&summary, "Overdue", core.Money(stats.OverdueRevenue)+" "+currency)
	b.WriteString(boxStyle.Render(strings.TrimRight(summary.String(), "\n")))
	b.WriteString("\n\n")

	statusRows := make([][]string, 0, len(core.Statuses))
	for _, s := range core.Statuses {
		statusRows = append(statusRows, []string{statusText(s), fmt.Sprint(stats.ByStatus[s])})
	}
	b.WriteString(newTable([]string{"Status", "Count"}, statusRows, map[int]bool{1: true}).String())
	b.WriteString("\n\n")

	monthRows := make([][]string, 0, len(months))
	for _, m := range months {
		monthRows = append(monthRows, []string{m.Month.String()[:3], fmt.Sprint(m.Count), core.Money(m.Revenue)})
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("Paid revenue %d", year)) + "\n")
	b.WriteString(newTable([]string{"Month", "Paid", "Revenue"}, monthRows, map[int]bool{1: true, 2: true}).String())
	b.WriteString("\n")
	return b.String()
}

func renderImport(res invoice.ImportResult) string {
	var b strings.Builder
	b.WriteString(okStyle.Render(fmt.Sprintf("Imported %d", res.Imported)))
	b.WriteString(dimStyle.Render(fmt.Sprintf(", skipped %d", res.Skipped)))
	if len(res.Errors) > 0 {
		b.WriteString(errStyle.Render(fmt.Sprintf(", failed %d", len(res.Errors))))
	}
	b.WriteString("\n")
	for _, e := range res.Errors {
		b.WriteString("  " + errStyle.Render(e.Record) + ": " + e.Message + "\n")
	}
	return b.String()
}

func renderSettings(s core.Settings, templates []core.Template) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Settings") + "\n\n")
	field(&b, "Numbering", map[bool]string{true: "automatic", false: "manual"}[s.AutoNumbering])
	field(&b, "Due days", fmt.Sprint(s.DefaultDueDays))
	field(&b, "Tax rate", s.DefaultTaxRate.String())
	field(&b, "Currency", s.Currency)
	field(&b, "Company", s.CompanyInfo.Name)
	if s.CompanyInfo.Email != "" {
		field(&b, "Email", s.CompanyInfo.Email)
	}

	rows := make([][]string, 0, len(templates))
	for _, t := range templates {
		rows = append(rows, []string{t.ID, t.Name, t.Design.Template, t.Design.Color})
	}
	b.WriteString("\n")
	b.WriteString(newTable([]string{"Template", "Name", "Layout", "Color"}, rows, nil).String())
	b.WriteString("\n")
	return b.String()
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func currentYear(now func() time.Time) int {
	return now().Year()
}
