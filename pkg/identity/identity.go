// Package identity validates and normalizes national identity documents used
// on imported sale rows. Validators are pure functions: they return whether
// the raw input is valid plus its canonical (digits-only) form.
package identity

import "strings"

// Result is the outcome of a document validation.
type Result struct {
	Valid     bool
	Canonical string
}

// Validator is the boundary contract consumed by the import pipeline.
type Validator func(raw string) Result

// digits strips everything but 0-9.
func digits(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allSame(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

// ValidatePersonalID checks an 11-digit personal document (CPF-style
// check digits) and returns its canonical digits-only form.
func ValidatePersonalID(raw string) Result {
	doc := digits(raw)
	if len(doc) != 11 || allSame(doc) {
		return Result{Valid: false, Canonical: doc}
	}

	for _, pos := range []int{9, 10} {
		sum := 0
		weight := pos + 1
		for i := 0; i < pos; i++ {
			sum += int(doc[i]-'0') * (weight - i)
		}
		check := (sum * 10) % 11
		if check == 10 {
			check = 0
		}
		if check != int(doc[pos]-'0') {
			return Result{Valid: false, Canonical: doc}
		}
	}

	return Result{Valid: true, Canonical: doc}
}

var orgWeightsFirst = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
var orgWeightsSecond = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}

// ValidateOrgID checks a 14-digit organization document (CNPJ-style
// check digits) and returns its canonical digits-only form.
func ValidateOrgID(raw string) Result {
	doc := digits(raw)
	if len(doc) != 14 || allSame(doc) {
		return Result{Valid: false, Canonical: doc}
	}

	for pos, weights := range map[int][]int{12: orgWeightsFirst, 13: orgWeightsSecond} {
		sum := 0
		for i, w := range weights {
			sum += int(doc[i]-'0') * w
		}
		check := sum % 11
		if check < 2 {
			check = 0
		} else {
			check = 11 - check
		}
		if check != int(doc[pos]-'0') {
			return Result{Valid: false, Canonical: doc}
		}
	}

	return Result{Valid: true, Canonical: doc}
}
