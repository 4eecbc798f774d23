package horizon

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/aquagov/governance-backend/types"
)

type BalanceQuery struct {
	Claimant string
	// Asset filters by CODE:ISSUER or native when set.
	Asset  string
	Cursor string
}

type balancesPage struct {
	Embedded struct {
		Records []*types.ClaimableBalance `json:"records"`
	} `json:"_embedded"`
}

// ClaimableBalances lists balances claimable by q.Claimant in ascending order.
func (c *Client) ClaimableBalances(q BalanceQuery) *BalancePager {
	fetch := func(ctx context.Context, cursor string, limit int) ([]*types.ClaimableBalance, error) {
		query := url.Values{}
		query.Set("claimant", q.Claimant)
		query.Set("order", "asc")
		query.Set("limit", strconv.Itoa(limit))
		if q.Asset != "" {
			query.Set("asset", q.Asset)
		}
		if cursor != "" {
			query.Set("cursor", cursor)
		}
		var page balancesPage
		if err := c.getJSON(ctx, "/claimable_balances", query, &page); err != nil {
			return nil, fmt.Errorf("list claimable balances for %s: %w", q.Claimant, err)
		}
		for i, b := range page.Embedded.Records {
			if err := validateBalance(b); err != nil {
				return nil, fmt.Errorf("list claimable balances for %s: record %d: %w", q.Claimant, i, err)
			}
		}
		return page.Embedded.Records, nil
	}
	return NewBalancePager(fetch, c.pageSize, q.Cursor)
}

func validateBalance(b *types.ClaimableBalance) error {
	if b == nil {
		return fmt.Errorf("%w: null record", ErrMalformed)
	}
	if b.ID == "" {
		return fmt.Errorf("%w: balance without id", ErrMalformed)
	}
	if b.Asset == "" {
		return fmt.Errorf("%w: balance %s without asset", ErrMalformed, b.ID)
	}
	if b.Amount.IsNegative() {
		return fmt.Errorf("%w: balance %s has negative amount", ErrMalformed, b.ID)
	}
	return nil
}
