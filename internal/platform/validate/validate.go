// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package validate checks request payloads of the auth endpoints and
canonicalises login identifiers.

Rules are chained on a Validator and every failure is collected, so a client
sees all bad fields of a payload at once. Err folds them into a single
VALIDATION_ERROR. Storage code never validates; it receives normalised input.
*/
package validate

import (
	"fmt"
	"net/mail"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/taibuivan/healthid/internal/platform/apperr"
)

var (
	// e164 is '+', a country code that does not start with 0, then the subscriber number.
	e164 = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)

	// personalNumber is a 12-digit identity number (YYYYMMDDNNNN) born in 19xx or 20xx.
	personalNumber = regexp.MustCompile(`^(?:19|20)[0-9]{10}$`)

	// ErrInvalidJSON is returned when the request body cannot be decoded.
	ErrInvalidJSON = apperr.ValidationError("Invalid JSON payload")
)

// Validator accumulates field errors for one payload. It is not safe for
// concurrent use.
type Validator struct {
	errs []apperr.FieldError
}

// # Generic Rules

// Required fails if the trimmed value is empty.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.add(field, "This field is required")
	}
	return v
}

// MaxLen fails if the value has more than max characters.
func (v *Validator) MaxLen(field, value string, max int) *Validator {
	if utf8.RuneCountInString(value) > max {
		v.add(field, fmt.Sprintf("Maximum %d characters", max))
	}
	return v
}

// Range fails if value is outside [min, max].
func (v *Validator) Range(field string, value, min, max int) *Validator {
	if value < min || value > max {
		v.add(field, fmt.Sprintf("Must be between %d and %d", min, max))
	}
	return v
}

// OneOf fails if value is not one of allowed.
func (v *Validator) OneOf(field, value string, allowed ...string) *Validator {
	if !slices.Contains(allowed, value) {
		v.add(field, fmt.Sprintf("Must be one of: %s", strings.Join(allowed, ", ")))
	}
	return v
}

// # Identifier Rules

// Email fails unless value is a bare address. Display names ("Anna <a@b.se>") are rejected.
func (v *Validator) Email(field, value string) *Validator {
	address, err := mail.ParseAddress(value)
	if err != nil || address.Address != strings.TrimSpace(value) {
		v.add(field, "Must be a valid email address")
	}
	return v
}

// Phone fails unless value is an E.164 number.
func (v *Validator) Phone(field, value string) *Validator {
	if !e164.MatchString(value) {
		v.add(field, "Must be a phone number in international format (+46...)")
	}
	return v
}

// PersonalNumber fails unless value is a 12-digit personal identity number.
func (v *Validator) PersonalNumber(field, value string) *Validator {
	if !personalNumber.MatchString(value) {
		v.add(field, "Must be a 12-digit personal identity number")
	}
	return v
}

// Numeric fails unless value is a non-empty run of ASCII digits.
func (v *Validator) Numeric(field, value string) *Validator {
	valid := value != ""
	for i := 0; valid && i < len(value); i++ {
		valid = value[i] >= '0' && value[i] <= '9'
	}
	if !valid {
		v.add(field, "Must contain digits only")
	}
	return v
}

// UUID fails unless value parses as a UUID. Refresh tokens and auto-start
// tokens are both UUIDs on the wire.
func (v *Validator) UUID(field, value string) *Validator {
	if _, err := uuid.Parse(value); err != nil || len(value) != 36 {
		v.add(field, "Must be a valid UUID")
	}
	return v
}

// Err returns nil when every rule passed, otherwise a VALIDATION_ERROR
// carrying each failure in order.
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return apperr.ValidationError("Validation failed", v.errs...)
}

func (v *Validator) add(field, message string) {
	v.errs = append(v.errs, apperr.FieldError{Field: field, Message: message})
}
