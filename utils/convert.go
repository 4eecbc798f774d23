// Package utils
package utils

import (
	"strconv"
)

// StrToBool parses data, returning fallback when it is empty or malformed.
func StrToBool(data string, fallback bool) bool {
	b, err := strconv.ParseBool(data)
	if err != nil {
		return fallback
	}
	return b
}
