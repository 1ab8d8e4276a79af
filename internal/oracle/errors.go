package oracle

import "fmt"

// ValidationError reports an oracle payload that does not conform to the
// expected schema (missing required field, out-of-range confidence, split
// that does not sum). It is surfaced immediately and never retried by the
// core.
type ValidationError struct {
	Oracle string
	Field  string
	Msg    string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: invalid payload: field %s: %s", e.Oracle, e.Field, e.Msg)
	}
	return fmt.Sprintf("%s: invalid payload: %s", e.Oracle, e.Msg)
}

func invalidf(oracle, field, format string, args ...any) *ValidationError {
	return &ValidationError{Oracle: oracle, Field: field, Msg: fmt.Sprintf(format, args...)}
}
