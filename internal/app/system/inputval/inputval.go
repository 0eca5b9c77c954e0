// Package inputval provides request input validation using waffle/pantry/validate.
//
// Define an input struct with validate tags, decode the request into it, and call
// Validate to get user-friendly error messages. Messages use the struct's
// "label" tag, so handlers can return res.First() directly as the 400 body.
//
// Validation stops at the first failing rule per struct. Note that "required"
// does not reject a numeric zero; pair it with a rule such as "userid" when
// zero is not a valid value.
//
// Example:
//
//	type CheckInInput struct {
//	    UserID    int64  `json:"user_id" validate:"required,userid" label:"User ID"`
//	    FirstName string `json:"first_name" validate:"required,max=100" label:"First name"`
//	    Code      string `json:"code" validate:"required,otpcode" label:"Code"`
//	}
//
//	if res := inputval.Validate(in); res.HasErrors() {
//	    jsonutil.BadRequest(w, res.First())
//	    return
//	}
package inputval

import (
	"reflect"
	"strings"
	"sync"

	"github.com/dalemusser/strataattend/internal/app/system/daykey"
	"github.com/dalemusser/strataattend/internal/app/system/otp"
	"github.com/dalemusser/waffle/pantry/validate"
)

// Result holds validation results with user-friendly messages.
type Result struct {
	Errors []FieldError
}

// FieldError represents a validation error for a single field.
// Field is the JSON name, Label the human name from the label tag.
type FieldError struct {
	Field   string
	Label   string
	Message string
}

// HasErrors returns true if there are any validation errors.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// First returns the first error message, or empty string if no errors.
func (r *Result) First() string {
	if len(r.Errors) > 0 {
		return r.Errors[0].Message
	}
	return ""
}

// All returns all error messages joined with "; ".
// Mostly useful in logs and tests.
func (r *Result) All() string {
	if len(r.Errors) == 0 {
		return ""
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// rules are the service-specific checks registered next to pantry/validate's
// built-ins. Each entry also carries its error message suffix.
var rules = []struct {
	name string
	ok   func(any) bool
	msg  string
}{
	{"otpcode", func(v any) bool { s, ok := v.(string); return ok && otp.ValidFormat(s) }, "must be 6 digits."},
	{"daykey", func(v any) bool { s, ok := v.(string); return ok && IsValidDayKey(s) }, "must be a date in YYYY-MM-DD format."},
	{"userid", func(v any) bool { n, ok := v.(int64); return ok && n > 0 }, "must be a positive number."},
}

var validator = sync.OnceValue(func() *validate.Validator {
	v := validate.New(validate.WithStopOnFirstError())
	for _, r := range rules {
		v.RegisterRuleFunc(r.name, r.ok, r.name)
	}
	return v
})

// Validate validates a struct and returns a Result with user-friendly errors.
//
// Rules from pantry/validate (required, min, max, oneof, ...) are available along with:
//   - otpcode: six-digit one-time code
//   - daykey: YYYY-MM-DD calendar date
//   - userid: positive int64
func Validate(s any) *Result {
	result := &Result{}

	err := validator().Struct(s)
	if err == nil {
		return result
	}

	labels := getFieldLabels(s)
	if errs, ok := err.(validate.Errors); ok {
		for _, e := range errs {
			label := labels[e.Field]
			if label == "" {
				label = e.Field
			}
			result.Errors = append(result.Errors, FieldError{
				Field:   e.Field,
				Label:   label,
				Message: formatMessage(label, e.Rule, e.Param),
			})
		}
	}
	return result
}

// getFieldLabels extracts the "label" tag from struct fields, keyed by json name.
// Fields without a label fall back to their json name in messages.
func getFieldLabels(s any) map[string]string {
	labels := make(map[string]string)

	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return labels
	}

	typ := val.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		fieldName := field.Name
		if jsonTag := field.Tag.Get("json"); jsonTag != "" {
			if name, _, _ := strings.Cut(jsonTag, ","); name != "" && name != "-" {
				fieldName = name
			}
		}
		if label := field.Tag.Get("label"); label != "" {
			labels[fieldName] = label
		}
	}
	return labels
}

func formatMessage(label, rule, param string) string {
	switch rule {
	case "required":
		return label + " is required."
	case "oneof", "enum":
		return label + " must be one of: " + strings.ReplaceAll(param, " ", ", ") + "."
	case "min":
		return label + " must be at least " + param + " characters."
	case "max":
		return label + " must be at most " + param + " characters."
	}
	for _, r := range rules {
		if r.name == rule {
			return label + " " + r.msg
		}
	}
	return label + " is invalid."
}

// IsValidDayKey reports whether s is a real calendar date in YYYY-MM-DD form.
func IsValidDayKey(s string) bool {
	_, err := daykey.New(nil).Parse(s)
	return err == nil
}
