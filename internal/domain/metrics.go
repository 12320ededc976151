package domain

import "github.com/shopspring/decimal"

// ============================================================
// Backend 2 payloads
// ============================================================

// FinancialMetrics holds revenue totals per order status.
type FinancialMetrics struct {
	ApprovedRevenue  decimal.Decimal `json:"approved_revenue"`
	PendingRevenue   decimal.Decimal `json:"pending_revenue"`
	CancelledRevenue decimal.Decimal `json:"cancelled_revenue"`
}

// OperationalMetrics holds order counts per order status.
type OperationalMetrics struct {
	ApprovedOrders  int64 `json:"approved_orders"`
	PendingOrders   int64 `json:"pending_orders"`
	CancelledOrders int64 `json:"cancelled_orders"`
}

// MetricsSnapshot is the aggregate returned by GET /api/metrics.
// It is replaced wholesale on every successful load.
type MetricsSnapshot struct {
	FinancialMetrics   FinancialMetrics   `json:"financial_metrics"`
	OperationalMetrics OperationalMetrics `json:"operational_metrics"`
}

// TimeSeriesPoint is one calendar day of the daily series.
type TimeSeriesPoint struct {
	Date             string          `json:"date"`
	ApprovedRevenue  decimal.Decimal `json:"approved_revenue"`
	PendingRevenue   decimal.Decimal `json:"pending_revenue"`
	CancelledRevenue decimal.Decimal `json:"cancelled_revenue"`
	ApprovedOrders   int64           `json:"approved_orders"`
	PendingOrders    int64           `json:"pending_orders"`
	CancelledOrders  int64           `json:"cancelled_orders"`
}

// TimeSeries is ordered chronologically; the order is the chart x-axis.
type TimeSeries []TimeSeriesPoint
