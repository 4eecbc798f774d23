// Package types
package types

import (
	"errors"
)

var ErrProposalNotFound = errors.New("proposal not found")
var ErrVoteNotFound = errors.New("vote not found")
