package domain

type AnomalyType string

const (
	AnomalyUnusualTransactionAmount AnomalyType = "UNUSUAL_TRANSACTION_AMOUNT"
	AnomalyDuplicateTransaction     AnomalyType = "POTENTIAL_DUPLICATE_TRANSACTION"
	AnomalyUnusualInvoiceAmount     AnomalyType = "UNUSUAL_INVOICE_AMOUNT"
	AnomalyLongOverdueInvoice       AnomalyType = "LONG_OVERDUE_INVOICE"
	AnomalyUnusualExpensePattern    AnomalyType = "UNUSUAL_EXPENSE_PATTERN"
	AnomalyGrossMarginDecline       AnomalyType = "GROSS_MARGIN_DECLINE"
	AnomalyNetMarginDecline         AnomalyType = "NET_MARGIN_DECLINE"
)

type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// Rank orders severities HIGH < MEDIUM < LOW. Unknown values sort last.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	case SeverityLow:
		return 2
	}
	return 3
}

// Period is a labelled span. For margin anomalies the bounds are report
// column labels rather than calendar dates.
type Period struct {
	From string `json:"fromDate"`
	To   string `json:"toDate"`
}

// Anomaly is a single finding. Details holds one of the *Details structs
// below, chosen by Type.
type Anomaly struct {
	Type        AnomalyType `json:"type"`
	Severity    Severity    `json:"severity"`
	Date        string      `json:"date,omitempty"`
	Period      *Period     `json:"period,omitempty"`
	Description string      `json:"description"`
	Details     any         `json:"details,omitempty"`
}

type OutlierDetails struct {
	DocumentID  string  `json:"documentId"`
	Reference   string  `json:"reference,omitempty"`
	Contact     string  `json:"contact,omitempty"`
	Amount      float64 `json:"amount"`
	Mean        float64 `json:"mean"`
	StdDev      float64 `json:"stdDev"`
	Threshold   float64 `json:"threshold"`
	Description string  `json:"description,omitempty"`
}

type DuplicateDetails struct {
	Amount         float64  `json:"amount"`
	TransactionIDs []string `json:"transactionIds"`
	References     []string `json:"references"`
	Dates          []string `json:"dates"`
}

type OverdueDetails struct {
	InvoiceID   string  `json:"invoiceId"`
	Number      string  `json:"number"`
	Contact     string  `json:"contact,omitempty"`
	DueDate     string  `json:"dueDate"`
	DaysOverdue int     `json:"daysOverdue"`
	AmountDue   float64 `json:"amountDue"`
}

type ExpenseDetails struct {
	AccountCode     string  `json:"accountCode"`
	AccountName     string  `json:"accountName,omitempty"`
	AverageAmount   float64 `json:"averageAmount"`
	Threshold       float64 `json:"threshold"`
	UnusualExpenses int     `json:"unusualExpenses"`
	TotalExpenses   int     `json:"totalExpenses"`
}

type MarginDetails struct {
	CurrentPeriod   string  `json:"currentPeriod"`
	PreviousPeriod  string  `json:"previousPeriod"`
	CurrentMargin   float64 `json:"currentMargin"`
	PreviousMargin  float64 `json:"previousMargin"`
	Change          float64 `json:"change"`
	CurrentRevenue  float64 `json:"currentRevenue"`
	PreviousRevenue float64 `json:"previousRevenue"`
}

// AnomalyScan is the merged, ordered output of all sub-detectors.
type AnomalyScan struct {
	Anomalies []Anomaly `json:"anomalies"`
	Period    Period    `json:"period"`
	Sources   []string  `json:"failedSources,omitempty"`
}

type AnomalyTypeCount struct {
	Type         AnomalyType `json:"type"`
	Count        int         `json:"count"`
	HighSeverity int         `json:"highSeverity"`
}

type AnomalySummary struct {
	Total  int                `json:"totalAnomalies"`
	High   int                `json:"highSeverity"`
	Medium int                `json:"mediumSeverity"`
	Low    int                `json:"lowSeverity"`
	ByType []AnomalyTypeCount `json:"byType"`
}

type AnomalyRecommendation struct {
	Priority       Severity `json:"priority"`
	Recommendation string   `json:"recommendation"`
	Description    string   `json:"description"`
	ActionItems    []string `json:"actionItems"`
}

type AnomalyReport struct {
	Summary         AnomalySummary          `json:"summary"`
	Anomalies       []Anomaly               `json:"anomalies"`
	Recommendations []AnomalyRecommendation `json:"recommendations"`
	Period          Period                  `json:"period"`
}
