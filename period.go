package fxledger

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Period is the calendar month a lot or a sale belongs to.
type Period struct {
	Year  int        `validate:"min=1900,max=9999"`
	Month time.Month `validate:"min=1,max=12"`
}

// NewPeriod returns the period for a given year and month.
func NewPeriod(year int, month time.Month) Period { return Period{Year: year, Month: month} }

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period { return Period{Year: t.Year(), Month: t.Month()} }

// ParsePeriod parses "2025-03" or the permissive "2025-3".
func ParsePeriod(s string) (Period, error) {
	y, m, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Period{}, fmt.Errorf("invalid period %q want format YYYY-MM", s)
	}
	year, err := strconv.Atoi(y)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q: bad year: %w", s, err)
	}
	month, err := strconv.Atoi(m)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q: bad month: %w", s, err)
	}
	p := Period{Year: year, Month: time.Month(month)}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// Validate reports a *ValidationError when the period is malformed.
func (p Period) Validate() error {
	if err := validate.Struct(p); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return &ValidationError{
				Field:  "period",
				Reason: fmt.Sprintf("malformed period %04d-%02d: %s must satisfy %s=%s", p.Year, int(p.Month), strings.ToLower(fe.Field()), fe.Tag(), fe.Param()),
			}
		}
		return &ValidationError{Field: "period", Reason: err.Error()}
	}
	return nil
}

// IsZero reports whether p is the zero period.
func (p Period) IsZero() bool { return p == Period{} }

// Compare returns -1, 0 or +1 depending on whether p is before, equal or after q.
func (p Period) Compare(q Period) int {
	switch {
	case p.Year < q.Year:
		return -1
	case p.Year > q.Year:
		return 1
	case p.Month < q.Month:
		return -1
	case p.Month > q.Month:
		return 1
	}
	return 0
}

// Before reports whether p is strictly before q.
func (p Period) Before(q Period) bool { return p.Compare(q) < 0 }

func (p Period) String() string { return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month)) }

func (p Period) MarshalJSON() ([]byte, error) { return json.Marshal(p.String()) }

// UnmarshalJSON does not validate: historical records are loaded as they are.
func (p *Period) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	y, m, ok := strings.Cut(s, "-")
	if !ok {
		return fmt.Errorf("invalid period %q want format YYYY-MM", s)
	}
	year, err := strconv.Atoi(y)
	if err != nil {
		return fmt.Errorf("invalid period %q: %w", s, err)
	}
	month, err := strconv.Atoi(m)
	if err != nil {
		return fmt.Errorf("invalid period %q: %w", s, err)
	}
	*p = Period{Year: year, Month: time.Month(month)}
	return nil
}
