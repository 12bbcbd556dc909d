package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardStats is the administrator dashboard. Every breakdown leaves out
// cancelled sales; TotalRevenue counts validated sales only.
type DashboardStats struct {
	TotalSales     int64           `json:"total_sales"`
	TotalRevenue   int64           `json:"total_revenue"`
	PendingCount   int64           `json:"pending_count"`
	ValidatedCount int64           `json:"validated_count"`
	CancelledCount int64           `json:"cancelled_count"`
	AverageBasket  decimal.Decimal `json:"average_basket"`
	ByDay          []DayStat       `json:"by_day"`
	ByProduct      []BreakdownStat `json:"by_product"`
	ByAgent        []BreakdownStat `json:"by_agent"`
	ByGrade        []BreakdownStat `json:"by_grade"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

// DayStat is one calendar day of the trailing window, formatted YYYY-MM-DD
type DayStat struct {
	Date    string `json:"date"`
	Count   int64  `json:"count"`
	Revenue int64  `json:"revenue"`
}

// BreakdownStat groups sales under Key (product label, agent name or grade).
// For products Count is the number of units sold.
type BreakdownStat struct {
	Key     string `json:"key"`
	Count   int64  `json:"count"`
	Revenue int64  `json:"revenue"`
}

// SalePoint is the raw input of the by-day series
type SalePoint struct {
	CreatedAt   time.Time
	TotalAmount int64
}
