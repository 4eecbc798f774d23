package governance

import (
	"fmt"
	"strconv"
	"time"

	"github.com/aquagov/governance-backend/types"
)

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseUnlockTime parses an unlock predicate value, either an integer epoch or an ISO-8601
// timestamp. Values without a zone are UTC.
func ParseUnlockTime(s string) (time.Time, error) {
	if epoch, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(epoch, 0).UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid unlock time %q", s)
}

// checkUnlock requires every unlock predicate of the balance to sit within the tolerance of
// the proposal end plus the unlock offset.
func (p *Parser) checkUnlock(balance *types.ClaimableBalance, proposal *types.Proposal) error {
	expected := proposal.EndAt.Add(p.cfg.UnlockOffset)
	found := 0
	for _, c := range balance.Claimants {
		raw, ok := c.UnlockTime()
		if !ok {
			continue
		}
		found++
		unlock, err := ParseUnlockTime(raw)
		if err != nil {
			return err
		}
		diff := unlock.Sub(expected)
		if diff < 0 {
			diff = -diff
		}
		if diff > p.cfg.UnlockTolerance {
			return fmt.Errorf("unlock time %s is %v away from %s", raw, diff, expected.Format(time.RFC3339))
		}
	}
	if found == 0 {
		return fmt.Errorf("balance %s has no unlock predicate", balance.ID)
	}
	return nil
}
