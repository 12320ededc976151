package service

import (
	"strconv"

	"github.com/boddenberg/orders-dashboard-go/internal/domain"

	"github.com/shopspring/decimal"
)

// CurrencyUnit is the currency every revenue amount is expressed in.
const CurrencyUnit = "BRL"

type modeLabels struct {
	title     string
	format    domain.ValueFormat
	unit      string
	approved  string
	pending   string
	cancelled string
}

var projectionLabels = map[domain.ViewMode]modeLabels{
	domain.ViewRevenue: {
		title:     "Evolução Diária de Receita",
		format:    domain.FormatCurrency,
		unit:      CurrencyUnit,
		approved:  "Receita Aprovada",
		pending:   "Receita Pendente",
		cancelled: "Receita Cancelada",
	},
	domain.ViewOrders: {
		title:     "Evolução Diária de Pedidos",
		format:    domain.FormatInteger,
		approved:  "Pedidos Aprovados",
		pending:   "Pedidos Pendentes",
		cancelled: "Pedidos Cancelados",
	},
}

// Project reshapes series for mode. It never mutates series and the output
// depends only on its inputs. Unknown modes project as revenue.
func Project(series domain.TimeSeries, mode domain.ViewMode) domain.ProjectedSeries {
	labels, ok := projectionLabels[mode]
	if !ok {
		mode = domain.ViewRevenue
		labels = projectionLabels[mode]
	}

	out := domain.ProjectedSeries{
		Mode:   mode,
		Title:  labels.title,
		Format: labels.format,
		Unit:   labels.unit,
		Labels: make([]string, 0, len(series)),
		Empty:  len(series) == 0,
	}

	approved := make([]domain.ProjectedValue, 0, len(series))
	pending := make([]domain.ProjectedValue, 0, len(series))
	cancelled := make([]domain.ProjectedValue, 0, len(series))

	for _, p := range series {
		out.Labels = append(out.Labels, p.Date)
		if mode == domain.ViewOrders {
			approved = append(approved, countValue(p.ApprovedOrders))
			pending = append(pending, countValue(p.PendingOrders))
			cancelled = append(cancelled, countValue(p.CancelledOrders))
			continue
		}
		approved = append(approved, currencyValue(p.ApprovedRevenue))
		pending = append(pending, currencyValue(p.PendingRevenue))
		cancelled = append(cancelled, currencyValue(p.CancelledRevenue))
	}

	out.Datasets = []domain.Dataset{
		{Key: "approved", Label: labels.approved, Values: approved},
		{Key: "pending", Label: labels.pending, Values: pending},
		{Key: "cancelled", Label: labels.cancelled, Values: cancelled},
	}
	return out
}

// ProjectCards derives the six headline cards of a snapshot. A nil snapshot
// has no cards.
func ProjectCards(s *domain.MetricsSnapshot) []domain.MetricCard {
	if s == nil {
		return nil
	}
	fin, ops := s.FinancialMetrics, s.OperationalMetrics
	return []domain.MetricCard{
		currencyCard("approved_revenue", "Receita Aprovada", fin.ApprovedRevenue),
		currencyCard("pending_revenue", "Receita Pendente", fin.PendingRevenue),
		currencyCard("cancelled_revenue", "Receita Cancelada", fin.CancelledRevenue),
		countCard("approved_orders", "Pedidos Aprovados", ops.ApprovedOrders),
		countCard("pending_orders", "Pedidos Pendentes", ops.PendingOrders),
		countCard("cancelled_orders", "Pedidos Cancelados", ops.CancelledOrders),
	}
}

// FormatCurrency renders an amount as "R$ 1234.50".
func FormatCurrency(d decimal.Decimal) string {
	return "R$ " + d.StringFixed(2)
}

func currencyValue(d decimal.Decimal) domain.ProjectedValue {
	return domain.ProjectedValue{Value: d.Round(2).InexactFloat64(), Display: FormatCurrency(d)}
}

func countValue(n int64) domain.ProjectedValue {
	return domain.ProjectedValue{Value: float64(n), Display: strconv.FormatInt(n, 10)}
}

func currencyCard(key, label string, d decimal.Decimal) domain.MetricCard {
	v := currencyValue(d)
	return domain.MetricCard{
		Key: key, Section: "financial", Label: label,
		Value: v.Value, Display: v.Display, Format: domain.FormatCurrency,
	}
}

func countCard(key, label string, n int64) domain.MetricCard {
	v := countValue(n)
	return domain.MetricCard{
		Key: key, Section: "operational", Label: label,
		Value: v.Value, Display: v.Display, Format: domain.FormatInteger,
	}
}
