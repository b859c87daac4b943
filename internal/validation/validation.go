package validation

import (
	"strings"
	"time"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func PositiveInt(field string, val int, v Violations) {
	if val <= 0 {
		v[field] = "must_be_positive"
	}
}

func NonNegativeFloat(field string, val float64, v Violations) {
	if val < 0 {
		v[field] = "must_not_be_negative"
	}
}

// RequiredNumber flags numeric fields that were absent from the payload.
func RequiredNumber(field string, val *float64, v Violations) {
	if val == nil {
		v[field] = "required"
	}
}

// ISODate parses a required YYYY-MM-DD string. The zero time is returned
// alongside a violation when the value is missing or malformed.
func ISODate(field, value string, v Violations) time.Time {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		v[field] = "invalid_date"
		return time.Time{}
	}
	return t
}

// String renders violations as "field: reason" pairs for error messages.
func (v Violations) String() string {
	parts := make([]string, 0, len(v))
	for field, reason := range v {
		parts = append(parts, field+": "+reason)
	}
	return strings.Join(parts, "; ")
}
