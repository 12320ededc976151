package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date layout used on the wire.
const DateLayout = "2006-01-02"

// Date is a calendar date. The zero value means "unset".
type Date struct {
	time.Time
}

// ParseDate parses an ISO calendar date. An empty string yields the unset Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, &ErrValidation{Field: "date", Message: fmt.Sprintf("expected YYYY-MM-DD, got %q", s)}
	}
	return Date{Time: t}, nil
}

// NewDate builds a Date from its calendar components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// PaymentMethod is one of the payment methods Backend 2 can filter on.
// The empty value means "unset".
type PaymentMethod string

const (
	PaymentCreditCard PaymentMethod = "credit_card"
	PaymentBoleto     PaymentMethod = "boleto"
	PaymentPix        PaymentMethod = "pix"
)

// PaymentMethods lists the accepted values in display order.
var PaymentMethods = []PaymentMethod{PaymentCreditCard, PaymentBoleto, PaymentPix}

// ParsePaymentMethod validates s. An empty string yields the unset method.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	for _, pm := range PaymentMethods {
		if string(pm) == s {
			return pm, nil
		}
	}
	return "", &ErrValidation{Field: "payment_method", Message: fmt.Sprintf("unknown payment method %q", s)}
}

// FilterSet constrains both Backend 2 queries. Unset fields are omitted from the request.
type FilterSet struct {
	StartDate     Date          `json:"start_date"`
	EndDate       Date          `json:"end_date"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty"`
}

// IsEmpty reports whether every field is unset.
func (f FilterSet) IsEmpty() bool {
	return f.StartDate.IsZero() && f.EndDate.IsZero() && f.PaymentMethod == ""
}

// Equal compares two filter sets field by field.
func (f FilterSet) Equal(o FilterSet) bool {
	return f.StartDate.Equal(o.StartDate.Time) &&
		f.EndDate.Equal(o.EndDate.Time) &&
		f.PaymentMethod == o.PaymentMethod
}

// ParseFilterSet builds a FilterSet from raw form values, validating each one.
func ParseFilterSet(start, end, payment string) (FilterSet, error) {
	var fs FilterSet
	var err error
	if fs.StartDate, err = ParseDate(start); err != nil {
		return FilterSet{}, &ErrValidation{Field: "start_date", Message: err.(*ErrValidation).Message}
	}
	if fs.EndDate, err = ParseDate(end); err != nil {
		return FilterSet{}, &ErrValidation{Field: "end_date", Message: err.(*ErrValidation).Message}
	}
	if fs.PaymentMethod, err = ParsePaymentMethod(payment); err != nil {
		return FilterSet{}, err
	}
	return fs, nil
}
