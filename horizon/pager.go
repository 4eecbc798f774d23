package horizon

import (
	"context"
	"fmt"

	"github.com/aquagov/governance-backend/types"
)

// PageFunc fetches one page of balances starting after cursor.
type PageFunc func(ctx context.Context, cursor string, limit int) ([]*types.ClaimableBalance, error)

// BalancePager walks a paginated balance listing lazily, one page at a time.
//
// The listing ends on a page shorter than the page size or on an empty page; Horizon has
// returned full pages followed by an empty one, so both are handled.
type BalancePager struct {
	fetch  PageFunc
	limit  int
	cursor string

	page  []*types.ClaimableBalance
	pos   int
	last  bool
	pages int

	current *types.ClaimableBalance
	err     error
}

func NewBalancePager(fetch PageFunc, limit int, startCursor string) *BalancePager {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return &BalancePager{
		fetch:  fetch,
		limit:  limit,
		cursor: startCursor,
	}
}

// Next advances to the next balance, fetching a new page when the current one is drained.
func (p *BalancePager) Next(ctx context.Context) bool {
	if p.err != nil {
		return false
	}
	for p.pos >= len(p.page) {
		if p.last {
			return false
		}
		if err := ctx.Err(); err != nil {
			p.err = err
			return false
		}
		records, err := p.fetch(ctx, p.cursor, p.limit)
		if err != nil {
			p.err = err
			return false
		}
		p.pages++
		p.page, p.pos = records, 0
		if len(records) < p.limit {
			p.last = true
		} else if tail := records[len(records)-1].PagingToken; tail == "" || tail == p.cursor {
			p.err = fmt.Errorf("%w: page %d does not advance the cursor", ErrMalformed, p.pages)
			return false
		}
	}
	p.current = p.page[p.pos]
	p.pos++
	if p.current.PagingToken != "" {
		p.cursor = p.current.PagingToken
	}
	return true
}

func (p *BalancePager) Balance() *types.ClaimableBalance {
	return p.current
}

func (p *BalancePager) Err() error {
	return p.err
}

// Cursor is the paging token of the last returned balance. A pager started from it
// resumes right after that balance.
func (p *BalancePager) Cursor() string {
	return p.cursor
}

func (p *BalancePager) Pages() int {
	return p.pages
}

// All drains the pager.
func (p *BalancePager) All(ctx context.Context) ([]*types.ClaimableBalance, error) {
	var balances []*types.ClaimableBalance
	for p.Next(ctx) {
		balances = append(balances, p.Balance())
	}
	return balances, p.Err()
}
