// Package validation evaluates declarative field rules and collects every violation.
package validation

import (
	"slices"
	"strings"
	"sync"
	"time"

	"oficina/internal/domain"

	"github.com/go-playground/validator/v10"
)

// DateLayouts are the accepted ISO-8601 forms for date fields
var DateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// Rule binds one field value to a validator tag and the message reported when it fails
type Rule struct {
	Field   string
	Value   any
	Tag     string
	Message string
}

var (
	once   sync.Once
	engine *validator.Validate
)

func validate() *validator.Validate {
	once.Do(func() {
		engine = validator.New(validator.WithRequiredStructEnabled())
		_ = engine.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
			_, err := ParseDate(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
	})
	return engine
}

// Assert is a rule for conditions no tag expresses: it fails when ok is false
func Assert(field string, ok bool, message string) Rule {
	return Rule{Field: field, Value: ok, Tag: "eq=true", Message: message}
}

// Without drops the rules of the named fields
func Without(rules []Rule, fields ...string) []Rule {
	kept := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if !slices.Contains(fields, r.Field) {
			kept = append(kept, r)
		}
	}
	return kept
}

// Check evaluates every rule in order and returns the messages of the failed ones.
// It never stops at the first failure.
func Check(rules ...Rule) []string {
	var msgs []string
	for _, r := range rules {
		if err := validate().Var(r.Value, r.Tag); err != nil {
			msgs = append(msgs, r.Message)
		}
	}
	return msgs
}

// Validate runs Check and wraps the violations in a *domain.ValidationError, or returns nil
func Validate(rules ...Rule) error {
	if msgs := Check(rules...); len(msgs) > 0 {
		return domain.NewValidationError(msgs...)
	}
	return nil
}

// ParseDate parses s with the first matching layout of DateLayouts
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var err error
	for _, layout := range DateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// IsDateOnly reports whether s carries a calendar date without a time part
func IsDateOnly(s string) bool {
	_, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	return err == nil
}
