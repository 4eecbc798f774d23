// Package utils
package utils

import (
	"regexp"
	"strings"
)

var accountRe = regexp.MustCompile("^G[A-Z2-7]{55}$")

// IsValidAccount reports whether v looks like a Stellar account address (G..., 56 chars).
func IsValidAccount(v string) bool {
	return accountRe.MatchString(v)
}

// CleanUpAccount trims whitespace and upper-cases an account address.
func CleanUpAccount(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
