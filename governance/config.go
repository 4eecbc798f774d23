// Package governance reconciles votes cast as claimable balances with the stored vote set
// and keeps proposal totals up to date.
package governance

import (
	"time"

	"github.com/aquagov/governance-backend/types"
)

const (
	DefaultUnlockOffset    = time.Hour
	DefaultUnlockTolerance = time.Second
	DefaultOperationsLimit = 50
	DefaultWorkers         = 4
	DefaultCloseLead       = 5 * time.Second
	DefaultExpiredTime     = 30 * 24 * time.Hour
)

type Config struct {
	// Assets accepted as votes, matched on code and issuer. Empty means
	// types.DefaultVoteAssets.
	Assets []types.Asset

	StrictUnlockCheck bool
	UnlockOffset      time.Duration
	UnlockTolerance   time.Duration

	OperationsLimit int
	Workers         int

	// CloseLead closes voting slightly before the end time so the freeze pass is not late.
	CloseLead   time.Duration
	ExpiredTime time.Duration
}

func (c Config) withDefaults() Config {
	if len(c.Assets) == 0 {
		c.Assets = types.DefaultVoteAssets()
	}
	if c.UnlockOffset == 0 {
		c.UnlockOffset = DefaultUnlockOffset
	}
	if c.UnlockTolerance == 0 {
		c.UnlockTolerance = DefaultUnlockTolerance
	}
	if c.OperationsLimit <= 0 {
		c.OperationsLimit = DefaultOperationsLimit
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.CloseLead == 0 {
		c.CloseLead = DefaultCloseLead
	}
	if c.ExpiredTime <= 0 {
		c.ExpiredTime = DefaultExpiredTime
	}
	return c
}
