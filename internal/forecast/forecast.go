// Package forecast projects a daily cash balance from outstanding and
// recurring receivables and payables.
package forecast

import (
	"math"
	"strconv"
	"time"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
)

// Probabilities, in percent.
const (
	BaseInvoiceProbability      = 80.0
	RepeatingInvoiceProbability = 80.0
	BillProbability             = 100.0
)

// Input is everything the forecast needs. AsOf is the date overdue age is
// measured from; it defaults to StartDate.
type Input struct {
	StartDate         time.Time
	Days              int
	CurrentBalance    float64
	AsOf              time.Time
	Invoices          []domain.Invoice
	Bills             []domain.Invoice
	RepeatingInvoices []domain.RepeatingDocument
	RepeatingBills    []domain.RepeatingDocument
}

// PaymentProbability estimates, in percent, how likely an outstanding
// invoice is to be collected given how overdue it is at asOf.
func PaymentProbability(inv domain.Invoice, asOf time.Time) float64 {
	p := BaseInvoiceProbability
	if inv.DueDate == nil {
		return p
	}

	due := truncateDay(*inv.DueDate)
	asOf = truncateDay(asOf)
	if due.Before(asOf) {
		overdue := int(math.Floor(asOf.Sub(due).Hours() / 24))
		switch {
		case overdue <= 7:
			p -= 10
		case overdue <= 30:
			p -= 30
		case overdue <= 90:
			p -= 50
		default:
			p -= 70
		}
	}
	return math.Max(0, math.Min(100, p))
}

// Generate builds the timeline. It is deterministic: identical input gives
// identical output.
func Generate(in Input) (*domain.ForecastTimeline, error) {
	if in.Days <= 0 {
		return nil, &domain.ErrValidation{Field: "days", Message: "must be greater than zero"}
	}

	start := truncateDay(in.StartDate)
	end := start.AddDate(0, 0, in.Days)
	asOf := start
	if !in.AsOf.IsZero() {
		asOf = truncateDay(in.AsOf)
	}

	daily := make([]domain.DailyForecast, in.Days)
	index := make(map[string]int, in.Days)
	for i := range daily {
		date := start.AddDate(0, 0, i).Format(domain.DateLayout)
		daily[i] = domain.DailyForecast{
			Date:     date,
			Inflows:  []domain.ForecastItem{},
			Outflows: []domain.ForecastItem{},
		}
		index[date] = i
	}

	bucket := func(t *time.Time) (int, bool) {
		if t == nil {
			return 0, false
		}
		i, ok := index[truncateDay(*t).Format(domain.DateLayout)]
		return i, ok
	}

	for _, inv := range in.Invoices {
		i, ok := bucket(inv.DueDate)
		if !ok || inv.AmountDue.IsZero() {
			continue
		}
		amount := inv.AmountDue.InexactFloat64()
		p := PaymentProbability(inv, asOf)
		daily[i].Inflows = append(daily[i].Inflows, domain.ForecastItem{
			Source:      domain.ForecastSourceInvoice,
			DocumentID:  inv.ID,
			Number:      inv.Number,
			Reference:   inv.Reference,
			Contact:     inv.Contact.Name,
			Amount:      amount,
			Probability: p,
		})
		daily[i].TotalInflow += amount * p / 100
	}

	for _, bill := range in.Bills {
		i, ok := bucket(bill.DueDate)
		if !ok || bill.AmountDue.IsZero() {
			continue
		}
		amount := bill.AmountDue.InexactFloat64()
		daily[i].Outflows = append(daily[i].Outflows, domain.ForecastItem{
			Source:      domain.ForecastSourceBill,
			DocumentID:  bill.ID,
			Number:      bill.Number,
			Reference:   bill.Reference,
			Contact:     bill.Contact.Name,
			Amount:      amount,
			Probability: BillProbability,
		})
		daily[i].TotalOutflow += amount
	}

	for _, rep := range in.RepeatingInvoices {
		if rep.Status != domain.DocumentStatusActive || rep.Total.IsZero() {
			continue
		}
		amount := rep.Total.InexactFloat64()
		for _, d := range Occurrences(rep.Schedule, start, end) {
			i, ok := bucket(&d)
			if !ok {
				continue
			}
			daily[i].Inflows = append(daily[i].Inflows, domain.ForecastItem{
				Source:      domain.ForecastSourceRepeatingInvoice,
				DocumentID:  rep.ID,
				Reference:   rep.Reference,
				Contact:     rep.Contact.Name,
				Amount:      amount,
				Probability: RepeatingInvoiceProbability,
			})
			daily[i].TotalInflow += amount * RepeatingInvoiceProbability / 100
		}
	}

	for _, rep := range in.RepeatingBills {
		if rep.Status != domain.DocumentStatusActive || rep.Total.IsZero() {
			continue
		}
		amount := rep.Total.InexactFloat64()
		for _, d := range Occurrences(rep.Schedule, start, end) {
			i, ok := bucket(&d)
			if !ok {
				continue
			}
			daily[i].Outflows = append(daily[i].Outflows, domain.ForecastItem{
				Source:      domain.ForecastSourceRepeatingBill,
				DocumentID:  rep.ID,
				Reference:   rep.Reference,
				Contact:     rep.Contact.Name,
				Amount:      amount,
				Probability: BillProbability,
			})
			daily[i].TotalOutflow += amount
		}
	}

	running := in.CurrentBalance
	for i := range daily {
		daily[i].NetCashFlow = daily[i].TotalInflow - daily[i].TotalOutflow
		running += daily[i].NetCashFlow
		daily[i].RunningBalance = running
	}

	return &domain.ForecastTimeline{
		StartDate:       start.Format(domain.DateLayout),
		EndDate:         daily[len(daily)-1].Date,
		Days:            in.Days,
		StartingBalance: in.CurrentBalance,
		Daily:           daily,
		Weekly:          weekly(daily),
		Monthly:         monthly(daily, start),
		Summary:         summarize(daily, in.CurrentBalance, start),
	}, nil
}

// weekly groups consecutive 7-day runs starting at the first day; the last
// week may be shorter.
func weekly(daily []domain.DailyForecast) []domain.PeriodForecast {
	var weeks []domain.PeriodForecast
	for w := 0; w*7 < len(daily); w++ {
		days := daily[w*7 : min((w+1)*7, len(daily))]
		p := aggregate(days)
		p.Label = "W" + strconv.Itoa(w+1)
		weeks = append(weeks, p)
	}
	return weeks
}

// monthly groups days by calendar month; the first month starts at the
// forecast start date.
func monthly(daily []domain.DailyForecast, start time.Time) []domain.PeriodForecast {
	var months []domain.PeriodForecast
	first := 0
	current := start
	for i := 1; i <= len(daily); i++ {
		d := start.AddDate(0, 0, i)
		if i < len(daily) && d.Month() == current.Month() && d.Year() == current.Year() {
			continue
		}
		p := aggregate(daily[first:i])
		p.Label = current.Format("2006-01")
		months = append(months, p)
		first = i
		current = d
	}
	return months
}

func aggregate(days []domain.DailyForecast) domain.PeriodForecast {
	p := domain.PeriodForecast{
		StartDate: days[0].Date,
		EndDate:   days[len(days)-1].Date,
	}
	for _, d := range days {
		p.TotalInflow += d.TotalInflow
		p.TotalOutflow += d.TotalOutflow
		p.NetCashFlow += d.NetCashFlow
	}
	p.EndingBalance = days[len(days)-1].RunningBalance
	return p
}

func summarize(daily []domain.DailyForecast, balance float64, start time.Time) domain.ForecastSummary {
	s := domain.ForecastSummary{
		LowestBalance:      balance,
		LowestBalanceDate:  start.Format(domain.DateLayout),
		HighestBalance:     balance,
		HighestBalanceDate: start.Format(domain.DateLayout),
	}
	for _, d := range daily {
		s.TotalInflow += d.TotalInflow
		s.TotalOutflow += d.TotalOutflow
		if d.RunningBalance < s.LowestBalance {
			s.LowestBalance = d.RunningBalance
			s.LowestBalanceDate = d.Date
		}
		if d.RunningBalance > s.HighestBalance {
			s.HighestBalance = d.RunningBalance
			s.HighestBalanceDate = d.Date
		}
	}
	s.NetCashFlow = s.TotalInflow - s.TotalOutflow
	s.EndingBalance = daily[len(daily)-1].RunningBalance
	return s
}
