package sge

import "strings"

// ValidCPF checks the Brazilian CPF checksum: two weighted-sum check
// digits mod 11, where a remainder of 10 or 11 maps to 0. A CPF made
// of a single repeated digit carries valid check digits but is a
// known placeholder, so it is rejected too.
func ValidCPF(document string) bool {
	digits := OnlyDigits(document)
	if len(digits) != 11 {
		return false
	}

	repeated := true
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			repeated = false
			break
		}
	}
	if repeated {
		return false
	}

	if cpfCheckDigit(digits, 9) != int(digits[9]-'0') {
		return false
	}
	return cpfCheckDigit(digits, 10) == int(digits[10]-'0')
}

// cpfCheckDigit computes the check digit over the first n digits,
// weighting from n+1 down to 2.
func cpfCheckDigit(digits string, n int) int {
	sum := 0
	for i := 0; i < n; i++ {
		sum += int(digits[i]-'0') * (n + 1 - i)
	}
	check := 11 - (sum % 11)
	if check >= 10 {
		check = 0
	}
	return check
}

// OnlyDigits strips every non-digit character from a document string
func OnlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatCPF renders an 11-digit CPF as 000.000.000-00. Inputs that
// are not 11 digits come back unchanged.
func FormatCPF(document string) string {
	digits := OnlyDigits(document)
	if len(digits) != 11 {
		return document
	}
	return digits[0:3] + "." + digits[3:6] + "." + digits[6:9] + "-" + digits[9:11]
}
