package core

// Filters narrows a set of invoices. Zero fields do not filter.
type Filters struct {
	Status   Status
	ClientID string
	DateFrom Date
	DateTo   Date
}

// Match reports whether inv passes every set filter. The date range is
// inclusive on both ends and compares calendar dates.
func (f Filters) Match(inv Invoice) bool {
	if f.Status != "" && inv.Status != f.Status {
		return false
	}
	if f.ClientID != "" && inv.ClientID != f.ClientID {
		return false
	}
	if !f.DateFrom.IsZero() && inv.Date.Before(f.DateFrom) {
		return false
	}
	if !f.DateTo.IsZero() && inv.Date.After(f.DateTo) {
		return false
	}
	return true
}

// Apply returns the invoices matching f, preserving order.
func (f Filters) Apply(invoices []Invoice) []Invoice {
	out := make([]Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if f.Match(inv) {
			out = append(out, inv)
		}
	}
	return out
}
