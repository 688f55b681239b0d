package domain

// Forecast item sources.
const (
	ForecastSourceInvoice          = "INVOICE"
	ForecastSourceBill             = "BILL"
	ForecastSourceRepeatingInvoice = "REPEATING_INVOICE"
	ForecastSourceRepeatingBill    = "REPEATING_BILL"
)

// ForecastItem is one expected receipt or payment. Amount is the face
// value; only Amount*Probability/100 affects the balance.
type ForecastItem struct {
	Source      string  `json:"source"`
	DocumentID  string  `json:"documentId"`
	Number      string  `json:"number,omitempty"`
	Reference   string  `json:"reference,omitempty"`
	Contact     string  `json:"contact,omitempty"`
	Amount      float64 `json:"amount"`
	Probability float64 `json:"probability"`
}

type DailyForecast struct {
	Date           string         `json:"date"`
	Inflows        []ForecastItem `json:"inflows"`
	Outflows       []ForecastItem `json:"outflows"`
	TotalInflow    float64        `json:"totalInflow"`
	TotalOutflow   float64        `json:"totalOutflow"`
	NetCashFlow    float64        `json:"netCashFlow"`
	RunningBalance float64        `json:"runningBalance"`
}

// PeriodForecast aggregates consecutive days. EndingBalance is the running
// balance of the last day in the period.
type PeriodForecast struct {
	Label         string  `json:"label"`
	StartDate     string  `json:"startDate"`
	EndDate       string  `json:"endDate"`
	TotalInflow   float64 `json:"totalInflow"`
	TotalOutflow  float64 `json:"totalOutflow"`
	NetCashFlow   float64 `json:"netCashFlow"`
	EndingBalance float64 `json:"endingBalance"`
}

type ForecastSummary struct {
	TotalInflow        float64 `json:"totalInflow"`
	TotalOutflow       float64 `json:"totalOutflow"`
	NetCashFlow        float64 `json:"netCashFlow"`
	EndingBalance      float64 `json:"endingBalance"`
	LowestBalance      float64 `json:"lowestBalance"`
	LowestBalanceDate  string  `json:"lowestBalanceDate"`
	HighestBalance     float64 `json:"highestBalance"`
	HighestBalanceDate string  `json:"highestBalanceDate"`
}

// ForecastTimeline is built fresh per request.
type ForecastTimeline struct {
	StartDate       string           `json:"startDate"`
	EndDate         string           `json:"endDate"`
	Days            int              `json:"days"`
	StartingBalance float64          `json:"startingBalance"`
	Daily           []DailyForecast  `json:"dailyForecasts"`
	Weekly          []PeriodForecast `json:"weeklyForecasts"`
	Monthly         []PeriodForecast `json:"monthlyForecasts"`
	Summary         ForecastSummary  `json:"summary"`
}

type CashFlowIssueType string

const (
	IssueNegativeBalance    CashFlowIssueType = "NEGATIVE_BALANCE"
	IssueLowBalance         CashFlowIssueType = "LOW_BALANCE"
	IssueSignificantOutflow CashFlowIssueType = "SIGNIFICANT_OUTFLOW"
	IssueDecliningCashFlow  CashFlowIssueType = "DECLINING_CASH_FLOW"
)

type Trend string

const (
	TrendImproving Trend = "IMPROVING"
	TrendDeclining Trend = "DECLINING"
	TrendStable    Trend = "STABLE"
)

type CashFlowIssue struct {
	Type            CashFlowIssueType `json:"type"`
	Severity        Severity          `json:"severity"`
	Date            string            `json:"date,omitempty"`
	Amount          float64           `json:"amount,omitempty"`
	Description     string            `json:"description"`
	Items           []ForecastItem    `json:"items,omitempty"`
	Recommendations []string          `json:"recommendations"`
}

// CashFlowIssueReport is the result of detectCashFlowIssues.
type CashFlowIssueReport struct {
	Issues          []CashFlowIssue `json:"issues"`
	WeeklyTrend     Trend           `json:"weeklyTrend"`
	StartDate       string          `json:"startDate"`
	EndDate         string          `json:"endDate"`
	StartingBalance float64         `json:"startingBalance"`
	Summary         ForecastSummary `json:"summary"`
}
