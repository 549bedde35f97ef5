package core

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Statistics summarises an invoice collection for dashboards and the CLI.
type Statistics struct {
	Total          int             `json:"total"`
	ByStatus       map[Status]int  `json:"byStatus"`
	TotalRevenue   decimal.Decimal `json:"totalRevenue"`
	PendingRevenue decimal.Decimal `json:"pendingRevenue"`
	OverdueRevenue decimal.Decimal `json:"overdueRevenue"`
	TotalClients   int             `json:"totalClients"`
}

// MonthRevenue is the paid revenue of one calendar month.
type MonthRevenue struct {
	Month   time.Month      `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
	Count   int             `json:"count"`
}

func (s Statistics) MarshalJSON() ([]byte, error) {
	type plain Statistics
	return json.Marshal(struct {
		plain
		TotalRevenue   json.Number `json:"totalRevenue"`
		PendingRevenue json.Number `json:"pendingRevenue"`
		OverdueRevenue json.Number `json:"overdueRevenue"`
	}{plain(s), JSONNumber(s.TotalRevenue), JSONNumber(s.PendingRevenue), JSONNumber(s.OverdueRevenue)})
}

func (m MonthRevenue) MarshalJSON() ([]byte, error) {
	type plain MonthRevenue
	return json.Marshal(struct {
		plain
		Revenue json.Number `json:"revenue"`
	}{plain(m), JSONNumber(m.Revenue)})
}

// ComputeStatistics counts invoices per status and sums paid, sent and
// overdue totals.
func ComputeStatistics(invoices []Invoice, clientCount int) Statistics {
	stats := Statistics{
		Total:          len(invoices),
		ByStatus:       make(map[Status]int, len(Statuses)),
		TotalRevenue:   decimal.Zero,
		PendingRevenue: decimal.Zero,
		OverdueRevenue: decimal.Zero,
		TotalClients:   clientCount,
	}
	for _, s := range Statuses {
		stats.ByStatus[s] = 0
	}
	for _, inv := range invoices {
		stats.ByStatus[inv.Status]++
		switch inv.Status {
		case StatusPaid:
			stats.TotalRevenue = stats.TotalRevenue.Add(inv.Total)
		case StatusSent:
			stats.PendingRevenue = stats.PendingRevenue.Add(inv.Total)
		case StatusOverdue:
			stats.OverdueRevenue = stats.OverdueRevenue.Add(inv.Total)
		}
	}
	return stats
}

// ComputeMonthlyRevenue returns twelve entries, January first, with the paid
// revenue of each month of year.
func ComputeMonthlyRevenue(invoices []Invoice, year int) []MonthRevenue {
	out := make([]MonthRevenue, 12)
	for i := range out {
		out[i] = MonthRevenue{Month: time.Month(i + 1), Revenue: decimal.Zero}
	}
	for _, inv := range invoices {
		if inv.Status != StatusPaid || inv.Date.Year() != year {
			continue
		}
		m := &out[inv.Date.Month()-1]
		m.Revenue = m.Revenue.Add(inv.Total)
		m.Count++
	}
	return out
}
