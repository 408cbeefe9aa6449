package validator

import (
	"regexp"
	"strings"
)

var (
	// RgxMobileNumber accepts international format with optional leading plus.
	RgxMobileNumber = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

	// RgxCardNumber matches exactly 16 digits, no separators.
	RgxCardNumber = regexp.MustCompile(`^[0-9]{16}$`)

	// RgxCardCVV matches exactly 3 digits.
	RgxCardCVV = regexp.MustCompile(`^[0-9]{3}$`)

	// RgxCardExpiry matches MM/YY with a valid month.
	RgxCardExpiry = regexp.MustCompile(`^(0[1-9]|1[0-2])/[0-9]{2}$`)

	RgxNationalID = regexp.MustCompile(`^[0-9]{8,12}$`)
)

func NotBlank(value string) bool {
	return strings.TrimSpace(value) != ""
}

func Matches(value string, rx *regexp.Regexp) bool {
	return rx.MatchString(value)
}
