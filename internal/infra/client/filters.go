package client

import (
	"net/url"

	"github.com/boddenberg/orders-dashboard-go/internal/domain"
)

// Query parameter names understood by Backend 2.
const (
	ParamStartDate     = "start_date"
	ParamEndDate       = "end_date"
	ParamPaymentMethod = "payment_method"
)

// EncodeFilters turns a FilterSet into query parameters. Unset fields are
// omitted entirely, never sent as empty strings.
func EncodeFilters(f domain.FilterSet) url.Values {
	v := url.Values{}
	if !f.StartDate.IsZero() {
		v.Set(ParamStartDate, f.StartDate.String())
	}
	if !f.EndDate.IsZero() {
		v.Set(ParamEndDate, f.EndDate.String())
	}
	if f.PaymentMethod != "" {
		v.Set(ParamPaymentMethod, string(f.PaymentMethod))
	}
	return v
}

func withQuery(base string, v url.Values) string {
	if len(v) == 0 {
		return base
	}
	return base + "?" + v.Encode()
}
