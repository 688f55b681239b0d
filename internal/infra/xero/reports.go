package xero

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
)

// FetchReport fetches a named report and converts it to the generic tree.
// The provider's Header row becomes the column list, with dated period
// columns ordered oldest first.
func (c *Client) FetchReport(ctx context.Context, userID, tenantID, name string, opts domain.ReportOptions) (*domain.Report, error) {
	q := url.Values{}
	if opts.From != nil {
		q.Set("fromDate", opts.From.Format(domain.DateLayout))
	}
	if opts.To != nil {
		q.Set("toDate", opts.To.Format(domain.DateLayout))
	}
	if opts.Date != nil {
		q.Set("date", opts.Date.Format(domain.DateLayout))
	}
	if opts.Periods > 0 {
		q.Set("periods", strconv.Itoa(opts.Periods))
	}
	if opts.Timeframe != "" {
		q.Set("timeframe", opts.Timeframe)
	}

	var env reportsEnvelope
	if err := c.get(ctx, userID, tenantID, "/Reports/"+url.PathEscape(name), q, &env, "report", name); err != nil {
		return nil, err
	}
	if len(env.Reports) == 0 {
		return nil, &domain.ErrExternalService{
			Service: serviceName,
			Err:     &domain.ErrNotFound{Resource: "report", ID: name},
		}
	}
	return convertReport(name, env.Reports[0]), nil
}

func convertReport(name string, w wireReport) *domain.Report {
	r := &domain.Report{Name: name, Columns: []domain.ReportCell{}, Rows: []domain.ReportRow{}}
	if len(w.ReportTitles) > 0 {
		r.Title = w.ReportTitles[0]
	}
	for _, row := range w.Rows {
		if row.RowType == "Header" {
			r.Columns = cells(row.Cells)
			continue
		}
		r.Rows = append(r.Rows, convertRow(row))
	}
	orderPeriods(r)
	return r
}

// Header labels of period columns, e.g. "31 Mar 2025" or "Mar 2025".
var columnLayouts = []string{
	"2 Jan 2006",
	"2 Jan 06",
	"Jan 2006",
	"Jan 06",
	domain.DateLayout,
}

func columnDate(label string) (time.Time, bool) {
	label = strings.TrimSpace(label)
	for _, layout := range columnLayouts {
		if t, err := time.Parse(layout, label); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// orderPeriods sorts the dated columns oldest first. Multi-period reports
// list the latest period first; label and total columns keep their place.
// Rows whose width differs from the header are left alone.
func orderPeriods(r *domain.Report) {
	type dated struct {
		idx int
		at  time.Time
	}
	var cols []dated
	for i := 1; i < len(r.Columns); i++ {
		if t, ok := columnDate(r.Columns[i].Value); ok {
			cols = append(cols, dated{idx: i, at: t})
		}
	}
	if len(cols) < 2 {
		return
	}

	sorted := make([]dated, len(cols))
	copy(sorted, cols)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].at.Before(sorted[j].at) })

	// slot k of the dated columns receives the k-th oldest.
	from := make(map[int]int, len(cols))
	for k := range cols {
		from[cols[k].idx] = sorted[k].idx
	}

	width := len(r.Columns)
	reorder := func(in []domain.ReportCell) []domain.ReportCell {
		if len(in) != width {
			return in
		}
		out := make([]domain.ReportCell, width)
		copy(out, in)
		for dst, src := range from {
			out[dst] = in[src]
		}
		return out
	}
	var walk func(rows []domain.ReportRow)
	walk = func(rows []domain.ReportRow) {
		for i := range rows {
			rows[i].Cells = reorder(rows[i].Cells)
			walk(rows[i].Rows)
		}
	}
	r.Columns = reorder(r.Columns)
	walk(r.Rows)
}

func convertRow(w wireRow) domain.ReportRow {
	row := domain.ReportRow{Type: w.RowType, Title: w.Title, Cells: cells(w.Cells)}
	for _, child := range w.Rows {
		row.Rows = append(row.Rows, convertRow(child))
	}
	return row
}

func cells(in []wireCell) []domain.ReportCell {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.ReportCell, len(in))
	for i, c := range in {
		out[i] = domain.ReportCell{Value: c.Value}
	}
	return out
}
