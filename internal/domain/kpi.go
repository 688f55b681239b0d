package domain

// FinancialRatios are derived from a profit-and-loss report and a balance
// sheet. Percent ratios are expressed 0-100.
type FinancialRatios struct {
	GrossProfitMargin      float64 `json:"grossProfitMargin"`
	NetProfitMargin        float64 `json:"netProfitMargin"`
	ReturnOnAssets         float64 `json:"returnOnAssets"`
	ReturnOnEquity         float64 `json:"returnOnEquity"`
	CurrentRatio           float64 `json:"currentRatio"`
	QuickRatio             float64 `json:"quickRatio"`
	CashRatio              float64 `json:"cashRatio"`
	AssetTurnover          float64 `json:"assetTurnover"`
	InventoryTurnover      float64 `json:"inventoryTurnover"`
	ReceivablesTurnover    float64 `json:"receivablesTurnover"`
	PayablesTurnover       float64 `json:"payablesTurnover"`
	DebtToEquity           float64 `json:"debtToEquity"`
	DebtToAssets           float64 `json:"debtToAssets"`
	InterestCoverage       float64 `json:"interestCoverage"`
	OperatingCashFlowRatio float64 `json:"operatingCashFlowRatio"`
	DaysReceivables        float64 `json:"daysReceivables"`
	DaysPayables           float64 `json:"daysPayables"`
	DaysInventory          float64 `json:"daysInventory"`
	CashConversionCycle    float64 `json:"cashConversionCycle"`
}

// FinancialData is the set of report line items the ratios are built from.
type FinancialData struct {
	Revenue            float64 `json:"revenue"`
	CostOfSales        float64 `json:"costOfSales"`
	GrossProfit        float64 `json:"grossProfit"`
	Expenses           float64 `json:"expenses"`
	NetProfit          float64 `json:"netProfit"`
	InterestExpense    float64 `json:"interestExpense"`
	OperatingCashFlow  float64 `json:"operatingCashFlow"`
	CurrentAssets      float64 `json:"currentAssets"`
	TotalAssets        float64 `json:"totalAssets"`
	CurrentLiabilities float64 `json:"currentLiabilities"`
	TotalLiabilities   float64 `json:"totalLiabilities"`
	Equity             float64 `json:"equity"`
	Bank               float64 `json:"bank"`
	AccountsReceivable float64 `json:"accountsReceivable"`
	AccountsPayable    float64 `json:"accountsPayable"`
	Inventory          float64 `json:"inventory"`
}

type RatioAnalysis struct {
	Ratios  FinancialRatios `json:"ratios"`
	RawData FinancialData   `json:"rawData"`
	Period  Period          `json:"period"`
}

type HealthStatusTier string

const (
	HealthExcellent  HealthStatusTier = "EXCELLENT"
	HealthGood       HealthStatusTier = "GOOD"
	HealthFair       HealthStatusTier = "FAIR"
	HealthConcerning HealthStatusTier = "CONCERNING"
	HealthCritical   HealthStatusTier = "CRITICAL"
)

type ComponentScores struct {
	Profitability float64 `json:"profitability"`
	Liquidity     float64 `json:"liquidity"`
	Efficiency    float64 `json:"efficiency"`
	Solvency      float64 `json:"solvency"`
	Growth        float64 `json:"growth"`
}

type HealthRecommendation struct {
	Category       string `json:"category"`
	Issue          string `json:"issue"`
	Recommendation string `json:"recommendation"`
}

// BusinessHealth is the composite health score. OverallScore and the
// component scores are rounded to whole numbers.
type BusinessHealth struct {
	OverallScore    float64                `json:"overallScore"`
	Status          HealthStatusTier       `json:"healthStatus"`
	Components      ComponentScores        `json:"componentScores"`
	Ratios          FinancialRatios        `json:"ratios"`
	Recommendations []HealthRecommendation `json:"recommendations"`
	Period          Period                 `json:"period"`
}

type RevenueKPIs struct {
	TotalRevenue    float64 `json:"totalRevenue"`
	PaidRevenue     float64 `json:"paidRevenue"`
	UnpaidRevenue   float64 `json:"unpaidRevenue"`
	CollectionRate  float64 `json:"collectionRate"`
	AvgInvoiceValue float64 `json:"avgInvoiceValue"`
	InvoiceCount    int     `json:"invoiceCount"`
}

type ExpenseKPIs struct {
	TotalExpenses         float64 `json:"totalExpenses"`
	ExpenseToRevenueRatio float64 `json:"expenseToRevenueRatio"`
	BillCount             int     `json:"billCount"`
}

type KPIReport struct {
	Financial       FinancialRatios        `json:"financial"`
	Revenue         RevenueKPIs            `json:"revenue"`
	Expenses        ExpenseKPIs            `json:"expenses"`
	Health          BusinessHealth         `json:"health"`
	Recommendations []HealthRecommendation `json:"recommendations"`
	Period          Period                 `json:"period"`
}
