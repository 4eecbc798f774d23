package governance

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aquagov/governance-backend/types"
)

var ErrUngroupable = errors.New("cannot generate vote key")

const keySeparator = "|"

// GenerateVoteKey derives the grouping key of a balance and the account that cast it.
//
// The account issuer is the destination of a claimant carrying a "not before" predicate.
// Unlock values are sorted, and the smallest such destination wins, so the result does not
// depend on the order Horizon returns claimants in.
func GenerateVoteKey(balance *types.ClaimableBalance, proposalID uint64, choice types.VoteChoice) (key string, accountIssuer string, err error) {
	var unlocks []string
	for _, c := range balance.Claimants {
		unlock, ok := c.UnlockTime()
		if !ok || c.Destination == "" {
			continue
		}
		if accountIssuer == "" || c.Destination < accountIssuer {
			accountIssuer = c.Destination
		}
		unlocks = append(unlocks, unlock)
	}
	if len(unlocks) == 0 {
		return "", "", fmt.Errorf("%w: balance %s has no unlock predicate", ErrUngroupable, balance.ID)
	}
	sort.Strings(unlocks)

	key = strings.Join([]string{
		strconv.FormatUint(proposalID, 10),
		string(choice),
		accountIssuer,
		assetCode(balance.Asset),
		strings.Join(unlocks, ","),
	}, keySeparator)
	return key, accountIssuer, nil
}

func assetCode(asset string) string {
	if i := strings.IndexByte(asset, ':'); i >= 0 {
		return asset[:i]
	}
	return asset
}
