package audit

import (
	"fmt"
	"time"
)

// DateLayout is the format of fix-request dates.
const DateLayout = "2006-01-02"

// FormatError reports a fix-request date that is not YYYY-MM-DD.
type FormatError struct {
	Value string
	Err   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("audit: fix date %q is not %s: %v", e.Value, DateLayout, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// CorrectFixDate returns today's date when value lies after today, and value
// unchanged otherwise. Dates are compared by calendar day.
func CorrectFixDate(value string, today time.Time) (string, error) {
	d, err := time.Parse(DateLayout, value)
	if err != nil {
		return "", &FormatError{Value: value, Err: err}
	}
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	if d.After(day) {
		return day.Format(DateLayout), nil
	}
	return value, nil
}
