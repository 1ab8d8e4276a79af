package model

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// Confident wraps a single extracted value with the confidence the producing
// oracle (or the reconciliation engine) assigned to it. A nil Value means the
// field was not present on the document.
type Confident[T any] struct {
	Value      *T      `json:"value"`
	Confidence float64 `json:"confidence"`
}

// NewConfident wraps v with the given confidence.
func NewConfident[T any](v T, confidence float64) Confident[T] {
	return Confident[T]{Value: &v, Confidence: confidence}
}

// Absent returns a null value with the given confidence.
func Absent[T any](confidence float64) Confident[T] {
	return Confident[T]{Confidence: confidence}
}

// IsAbsent reports whether no value was extracted.
func (c Confident[T]) IsAbsent() bool {
	return c.Value == nil
}

// Get returns the wrapped value, or the zero value when absent.
func (c Confident[T]) Get() T {
	if c.Value == nil {
		var zero T
		return zero
	}
	return *c.Value
}

// WithConfidence returns a copy carrying the same value at a new confidence.
func (c Confident[T]) WithConfidence(confidence float64) Confident[T] {
	c.Confidence = confidence
	return c
}

// dateLayout is the calendar-date wire format used by all extraction oracles.
const dateLayout = "2006-01-02"

// Date is a calendar date without a time component. Equality is exact
// calendar-date identity.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a Date from its components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, eris.Wrapf(err, "model: parse date %q", s)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// Equal reports exact calendar-date identity.
func (d Date) Equal(other Date) bool {
	return d == other
}

func (d Date) String() string {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format(dateLayout)
}

// MarshalJSON encodes the date as a YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a YYYY-MM-DD string.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return eris.Wrap(err, "model: date must be a string")
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
