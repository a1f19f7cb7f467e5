// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeEmail returns the canonical form of an e-mail identifier.
//
// Addresses are compared case-insensitively after NFKC normalisation, so
// "A@B.com" and "a@b.com" bind to the same account.
func NormalizeEmail(value string) string {
	trimmed := strings.TrimSpace(value)
	return cases.Fold().String(norm.NFKC.String(trimmed))
}

// NormalizePhone strips the visual separators users tend to type
// (spaces, dashes, dots, parentheses) and converts a leading "00" to "+".
func NormalizePhone(value string) string {
	compact := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '(', ')', '\u00a0':
			return -1
		}
		return r
	}, norm.NFKC.String(strings.TrimSpace(value)))

	if strings.HasPrefix(compact, "00") {
		compact = "+" + compact[2:]
	}
	return compact
}

// NormalizePersonalNumber removes the optional separator in "YYYYMMDD-NNNN".
func NormalizePersonalNumber(value string) string {
	return strings.ReplaceAll(strings.TrimSpace(value), "-", "")
}
