// Package validation checks form input against declarative per-field rules.
package validation

import (
	"errors"
	"net/mail"
	"sort"
	"strings"
	"unicode/utf8"
)

// ErrValidationFailed matches every *Error.
var ErrValidationFailed = errors.New("validation failed")

// FieldErrors maps a field name to the message of its first violated rule.
type FieldErrors map[string]string

// Values is the raw form input keyed by field name. Missing fields read as "".
type Values map[string]string

// Rule inspects one field. It returns a message when violated and "" otherwise.
type Rule func(value string, form Values) string

type Field struct {
	Name  string
	Rules []Rule
}

// Schema is an ordered list of fields; fields are checked independently.
type Schema []Field

type Error struct {
	Fields FieldErrors
}

func (e *Error) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *Error) Is(target error) bool { return target == ErrValidationFailed }

// Check evaluates every field and returns the violations, or nil.
func (s Schema) Check(form Values) FieldErrors {
	var out FieldErrors
	for _, f := range s {
		value := form[f.Name]
		for _, rule := range f.Rules {
			if msg := rule(value, form); msg != "" {
				if out == nil {
					out = FieldErrors{}
				}
				out[f.Name] = msg
				break
			}
		}
	}
	return out
}

// Validate is Check returning an *Error when anything failed.
func (s Schema) Validate(form Values) error {
	if fe := s.Check(form); len(fe) > 0 {
		return &Error{Fields: fe}
	}
	return nil
}

func Required(msg string) Rule {
	return func(value string, _ Values) string {
		if strings.TrimSpace(value) == "" {
			return msg
		}
		return ""
	}
}

// Email accepts an empty value; pair it with Required when the field is mandatory.
func Email(msg string) Rule {
	return func(value string, _ Values) string {
		if value == "" || IsEmail(value) {
			return ""
		}
		return msg
	}
}

// MinLength counts runes. An empty value fails, so an optional field must not use it.
func MinLength(n int, msg string) Rule {
	return func(value string, _ Values) string {
		if utf8.RuneCountInString(value) < n {
			return msg
		}
		return ""
	}
}

// RequiredWhen applies Required only while cond holds for the other field's value.
func RequiredWhen(other string, cond func(string) bool, msg string) Rule {
	required := Required(msg)
	return func(value string, form Values) string {
		if !cond(form[other]) {
			return ""
		}
		return required(value, form)
	}
}

// Matches requires the value to equal the other field's value.
func Matches(other, msg string) Rule {
	return func(value string, form Values) string {
		if value != form[other] {
			return msg
		}
		return ""
	}
}

func NotEmpty(v string) bool { return v != "" }

// IsEmail reports whether v is a bare address such as "a@b.com".
func IsEmail(v string) bool {
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v || addr.Name != "" {
		return false
	}
	at := strings.LastIndexByte(v, '@')
	return at > 0 && strings.Contains(v[at+1:], ".")
}
