// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/healthid/internal/platform/apperr"
	"github.com/taibuivan/healthid/internal/platform/validate"
)

/*
TestValidator_Rules runs each rule against one accepted and one rejected value.
*/
func TestValidator_Rules(t *testing.T) {
	tests := []struct {
		name  string
		rule  func(v *validate.Validator) *validate.Validator
		valid bool
	}{
		{"required", func(v *validate.Validator) *validate.Validator { return v.Required("f", "Anna") }, true},
		{"required_blank", func(v *validate.Validator) *validate.Validator { return v.Required("f", "   ") }, false},
		{"max_len_runes", func(v *validate.Validator) *validate.Validator { return v.MaxLen("f", "åäö", 3) }, true},
		{"max_len_over", func(v *validate.Validator) *validate.Validator { return v.MaxLen("f", "abcd", 3) }, false},
		{"range", func(v *validate.Validator) *validate.Validator { return v.Range("f", 6, 4, 10) }, true},
		{"range_below", func(v *validate.Validator) *validate.Validator { return v.Range("f", 3, 4, 10) }, false},
		{"one_of", func(v *validate.Validator) *validate.Validator { return v.OneOf("f", "EMAIL", "EMAIL", "PHONE") }, true},
		{"one_of_miss", func(v *validate.Validator) *validate.Validator { return v.OneOf("f", "BANKID", "EMAIL", "PHONE") }, false},
		{"email", func(v *validate.Validator) *validate.Validator { return v.Email("f", "anna@healthid.app") }, true},
		{"email_display_name", func(v *validate.Validator) *validate.Validator { return v.Email("f", "Anna <anna@healthid.app>") }, false},
		{"email_garbage", func(v *validate.Validator) *validate.Validator { return v.Email("f", "not-an-email") }, false},
		{"phone", func(v *validate.Validator) *validate.Validator { return v.Phone("f", "+46701234567") }, true},
		{"phone_national", func(v *validate.Validator) *validate.Validator { return v.Phone("f", "0701234567") }, false},
		{"personal_number", func(v *validate.Validator) *validate.Validator { return v.PersonalNumber("f", "199001011234") }, true},
		{"personal_number_short", func(v *validate.Validator) *validate.Validator { return v.PersonalNumber("f", "9001011234") }, false},
		{"numeric", func(v *validate.Validator) *validate.Validator { return v.Numeric("f", "0012345") }, true},
		{"numeric_letters", func(v *validate.Validator) *validate.Validator { return v.Numeric("f", "12345a") }, false},
		{"numeric_empty", func(v *validate.Validator) *validate.Validator { return v.Numeric("f", "") }, false},
		{"uuid", func(v *validate.Validator) *validate.Validator { return v.UUID("f", "0192f3a4-5b6c-7d8e-9f01-23456789abcd") }, true},
		{"uuid_braced", func(v *validate.Validator) *validate.Validator { return v.UUID("f", "{0192f3a4-5b6c-7d8e-9f01-23456789abcd}") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule(&validate.Validator{}).Err()
			if tt.valid {
				assert.NoError(t, err)
				return
			}

			appErr := apperr.As(err)
			require.NotNil(t, appErr)
			assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
			require.Len(t, appErr.Details, 1)
			assert.Equal(t, "f", appErr.Details[0].Field)
		})
	}
}

/*
TestValidator_Accumulates keeps every failure of a chain in order.
*/
func TestValidator_Accumulates(t *testing.T) {
	err := (&validate.Validator{}).
		Required("type", "").
		MaxLen("token", strings.Repeat("x", 65), 64).
		Email("value", "not-an-email").
		Err()

	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	require.Len(t, appErr.Details, 3)
	assert.Equal(t, []string{"type", "token", "value"}, []string{
		appErr.Details[0].Field, appErr.Details[1].Field, appErr.Details[2].Field,
	})
}

/*
TestNormalize checks identifier canonicalisation.
*/
func TestNormalize(t *testing.T) {
	assert.Equal(t, "a@b.com", validate.NormalizeEmail("  A@B.com "))
	assert.Equal(t, "anna@healthid.app", validate.NormalizeEmail("Ａｎｎａ@healthid.app"))
	assert.Equal(t, "+46701234567", validate.NormalizePhone("+46 70-123 45 67"))
	assert.Equal(t, "+46701234567", validate.NormalizePhone("0046 (70) 1234567"))
	assert.Equal(t, "199001011234", validate.NormalizePersonalNumber("19900101-1234"))
}
