package horizon

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/aquagov/governance-backend/types"
)

type operationsPage struct {
	Embedded struct {
		Records []*types.Operation `json:"records"`
	} `json:"_embedded"`
}

// BalanceOperations returns up to limit operations of a balance, oldest first.
// A balance Horizon no longer knows yields ErrNotFound.
func (c *Client) BalanceOperations(ctx context.Context, balanceID string, limit int) ([]*types.Operation, error) {
	if limit <= 0 {
		limit = DefaultOperationsLimit
	}
	query := url.Values{}
	query.Set("order", "asc")
	query.Set("limit", strconv.Itoa(limit))
	var page operationsPage
	path := "/claimable_balances/" + url.PathEscape(balanceID) + "/operations"
	if err := c.getJSON(ctx, path, query, &page); err != nil {
		return nil, fmt.Errorf("list operations for balance %s: %w", balanceID, err)
	}
	return page.Embedded.Records, nil
}
