package validate

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/samber/lo"
)

// Code classifies a validation failure.
type Code string

const (
	RequiredField     Code = "REQUIRED_FIELD"
	MinLength         Code = "MIN_LENGTH"
	MaxLength         Code = "MAX_LENGTH"
	InvalidContent    Code = "INVALID_CONTENT"
	InvalidCharacters Code = "INVALID_CHARACTERS"
	InvalidSelection  Code = "INVALID_SELECTION"
	InvalidURL        Code = "INVALID_URL"
	OutOfRange        Code = "OUT_OF_RANGE"
)

// repeatLimit is the run length of one identical character that marks input as junk.
const repeatLimit = 10

// ValidationError describes one rejected field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    Code   `json:"code"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Errors is a list of validation failures usable as an error value.
type Errors []ValidationError

func (e Errors) Error() string {
	msgs := lo.Map(e, func(v ValidationError, _ int) string { return v.Error() })
	return "invalid input: " + strings.Join(msgs, "; ")
}

// Has reports whether any error for field carries code.
func (e Errors) Has(field string, code Code) bool {
	return lo.ContainsBy(e, func(v ValidationError) bool {
		return v.Field == field && v.Code == code
	})
}

// Err returns nil for an empty list so callers can write `if err := errs.Err(); err != nil`.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Charset decides whether a rune is allowed in a field.
type Charset func(r rune) bool

// NameCharset allows letters, digits, spaces and a little punctuation common in names.
func NameCharset(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
		return true
	}
	return strings.ContainsRune("-_.,&'!", r)
}

// Rule is the set of checks applied to one field.
type Rule struct {
	Field     string
	Label     string
	Required  bool
	Min       int
	Max       int
	Charset   Charset
	Options   []string
	NoRepeats bool
}

func (r Rule) label() string {
	if r.Label != "" {
		return r.Label
	}
	return r.Field
}

// Check applies rule to value. An empty required value yields exactly one
// REQUIRED_FIELD error and nothing else.
func Check(rule Rule, value string) Errors {
	value = strings.TrimSpace(value)
	if value == "" {
		if rule.Required {
			return Errors{{Field: rule.Field, Message: rule.label() + " is required", Code: RequiredField}}
		}
		return nil
	}

	var errs Errors
	n := utf8.RuneCountInString(value)
	if rule.Min > 0 && n < rule.Min {
		errs = append(errs, ValidationError{
			Field:   rule.Field,
			Message: fmt.Sprintf("%s must be at least %d characters", rule.label(), rule.Min),
			Code:    MinLength,
		})
	}
	if rule.Max > 0 && n > rule.Max {
		errs = append(errs, ValidationError{
			Field:   rule.Field,
			Message: fmt.Sprintf("%s must be at most %d characters", rule.label(), rule.Max),
			Code:    MaxLength,
		})
	}
	if rule.NoRepeats && hasRepeatedRun(value, repeatLimit) {
		errs = append(errs, ValidationError{
			Field:   rule.Field,
			Message: rule.label() + " contains repeated characters",
			Code:    InvalidContent,
		})
	}
	if rule.Charset != nil {
		if bad, ok := lo.Find([]rune(value), func(r rune) bool { return !rule.Charset(r) }); ok {
			errs = append(errs, ValidationError{
				Field:   rule.Field,
				Message: fmt.Sprintf("%s contains invalid character %q", rule.label(), bad),
				Code:    InvalidCharacters,
			})
		}
	}
	if len(rule.Options) > 0 && !lo.ContainsBy(rule.Options, func(o string) bool { return strings.EqualFold(o, value) }) {
		errs = append(errs, ValidationError{
			Field:   rule.Field,
			Message: fmt.Sprintf("%s must be one of: %s", rule.label(), strings.Join(rule.Options, ", ")),
			Code:    InvalidSelection,
		})
	}
	return errs
}

// CheckRange validates an integer field.
func CheckRange(field string, value, min, max int) Errors {
	if value < min || value > max {
		return Errors{{
			Field:   field,
			Message: fmt.Sprintf("%s must be between %d and %d", field, min, max),
			Code:    OutOfRange,
		}}
	}
	return nil
}

// CheckURL requires an absolute http(s) URL with a host.
func CheckURL(field, raw string) Errors {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Errors{{Field: field, Message: field + " is required", Code: RequiredField}}
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Errors{{Field: field, Message: field + " must be an http or https URL", Code: InvalidURL}}
	}
	return nil
}

func hasRepeatedRun(s string, limit int) bool {
	var prev rune
	run := 0
	for _, r := range s {
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run >= limit {
			return true
		}
	}
	return false
}
