// Package utils
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrToBool(t *testing.T) {
	assert.True(t, StrToBool("true", false))
	assert.False(t, StrToBool("0", true))
	assert.True(t, StrToBool("", true))
}

func TestIsValidAccount(t *testing.T) {
	assert.True(t, IsValidAccount("GBNZILSTVQZ4R7IKQDGHYGY2QXL5QOFJYQMXPKWRRM5PAV7Y4M67AQUA"))
	assert.False(t, IsValidAccount("0x4f36A53DC32272b97Ae5FF511387E2741D727bdb"))
	assert.False(t, IsValidAccount("GBNZILSTVQZ4R7IKQDGHYGY2QXL5QOFJYQMXPKWRRM5PAV7Y4M67AQU"))
	assert.True(t, IsValidAccount(CleanUpAccount(" gbnzilstvqz4r7ikqdghygy2qxl5qofjyqmxpkwrrm5pav7y4m67aqua ")))
}
