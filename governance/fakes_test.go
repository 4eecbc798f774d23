package governance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/aquagov/governance-backend/db"
	"github.com/aquagov/governance-backend/horizon"
	"github.com/aquagov/governance-backend/types"
)

const (
	aquaIssuer    = "GBNZILSTVQZ4R7IKQDGHYGY2QXL5QOFJYQMXPKWRRM5PAV7Y4M67AQUA"
	iceIssuer     = "GAXSGZ2JM3LNWOO4WRGADISNMWO4HQLG4QBGUZRKH5ZHL3EQBGX73ICE"
	forIssuer     = "GDVOTEFORXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXX"
	againstIssuer = "GDVOTEAGAINSTXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXX"
	abstainIssuer = "GDVOTEABSTAINXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXX"
	alice         = "GALICEXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXX"
	bob           = "GBOBXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXX"
)

var (
	aquaAsset   = types.Asset{Code: "AQUA", Issuer: aquaIssuer}
	proposalEnd = time.Date(2022, 3, 1, 12, 0, 0, 0, time.UTC)
	unlockAt    = proposalEnd.Add(time.Hour).Format(time.RFC3339)
	modifiedAt  = time.Date(2022, 2, 20, 8, 0, 0, 0, time.UTC)
)

func testConfig() Config {
	return Config{
		Assets:            []types.Asset{aquaAsset},
		StrictUnlockCheck: true,
		Workers:           2,
	}
}

func testProposal(id uint64) *types.Proposal {
	return &types.Proposal{
		ID:                id,
		Title:             fmt.Sprintf("proposal %d", id),
		StartAt:           proposalEnd.Add(-7 * 24 * time.Hour),
		EndAt:             proposalEnd,
		Status:            types.ProposalVoting,
		VoteForIssuer:     forIssuer,
		VoteAgainstIssuer: againstIssuer,
	}
}

// voteBalance builds an AQUA balance claimable by the issuer and, after the unlock time,
// by the voter.
func voteBalance(id, amount, issuer, voter string) *types.ClaimableBalance {
	modified := modifiedAt
	return &types.ClaimableBalance{
		ID:               id,
		Asset:            aquaAsset.String(),
		Amount:           decimal.RequireFromString(amount),
		Sponsor:          voter,
		LastModifiedTime: &modified,
		PagingToken:      "pt-" + id,
		Claimants: []types.Claimant{
			{Destination: issuer, Predicate: types.Predicate{Unconditional: true}},
			{Destination: voter, Predicate: types.Predicate{Not: &types.NotPredicate{AbsBefore: unlockAt}}},
		},
		Links: types.BalanceLinks{
			Transactions: types.Link{
				Href:      "https://horizon.stellar.org/claimable_balances/" + id + "/transactions{?cursor,limit,order}",
				Templated: true,
			},
		},
	}
}

// fakeLedger serves balances per claimant in pages, and operation histories per balance.
type fakeLedger struct {
	mu       sync.Mutex
	pageSize int
	balances map[string][]*types.ClaimableBalance
	ops      map[string][]*types.Operation
	opsErr   map[string]error
	scanErr  map[string]error
	opsCalls int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		pageSize: 2,
		balances: make(map[string][]*types.ClaimableBalance),
		ops:      make(map[string][]*types.Operation),
		opsErr:   make(map[string]error),
		scanErr:  make(map[string]error),
	}
}

func (f *fakeLedger) set(claimant string, balances ...*types.ClaimableBalance) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[claimant] = balances
}

func (f *fakeLedger) created(balanceID, amount string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops[balanceID] = []*types.Operation{
		{ID: "1", Type: types.OpCreateClaimableBalance, CreatedAt: at, Amount: decimal.RequireFromString(amount)},
		{ID: "2", Type: "claim_claimable_balance", CreatedAt: at.Add(time.Hour)},
	}
}

func (f *fakeLedger) ClaimableBalances(q horizon.BalanceQuery) *horizon.BalancePager {
	fetch := func(ctx context.Context, cursor string, limit int) ([]*types.ClaimableBalance, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if err := f.scanErr[q.Claimant]; err != nil {
			return nil, err
		}
		all := f.balances[q.Claimant]
		start := 0
		if cursor != "" {
			for i, b := range all {
				if b.PagingToken == cursor {
					start = i + 1
				}
			}
		}
		end := start + limit
		if end > len(all) {
			end = len(all)
		}
		page := make([]*types.ClaimableBalance, 0, end-start)
		for _, b := range all[start:end] {
			c := *b
			page = append(page, &c)
		}
		return page, nil
	}
	return horizon.NewBalancePager(fetch, f.pageSize, "")
}

func (f *fakeLedger) BalanceOperations(ctx context.Context, balanceID string, limit int) ([]*types.Operation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opsCalls++
	if err := f.opsErr[balanceID]; err != nil {
		return nil, err
	}
	ops, ok := f.ops[balanceID]
	if !ok {
		return nil, fmt.Errorf("list operations for balance %s: %w", balanceID, horizon.ErrNotFound)
	}
	return ops, nil
}

type fakeSupply struct {
	aqua    float64
	ice     float64
	aquaErr error
	iceErr  error
}

func (f *fakeSupply) AquaCirculating(ctx context.Context) (float64, error) {
	return f.aqua, f.aquaErr
}

func (f *fakeSupply) IceCirculating(ctx context.Context) (float64, error) {
	return f.ice, f.iceErr
}

var errFeedDown = errors.New("feed returned 503")

func newTestDB(t *testing.T, proposals ...*types.Proposal) db.Client {
	c, err := db.NewClient(db.Config{DbAdapter: db.Memory})
	require.NoError(t, err)
	for _, p := range proposals {
		require.NoError(t, c.UpsertProposal(context.Background(), p))
	}
	return c
}

func activeVotes(t *testing.T, c db.Client, proposalID uint64) []*types.Vote {
	votes, _, err := c.Votes(context.Background(), types.VotesFilter{ProposalID: proposalID, ActiveOnly: true})
	require.NoError(t, err)
	return votes
}

func allVotes(t *testing.T, c db.Client, proposalID uint64) []*types.Vote {
	votes, _, err := c.Votes(context.Background(), types.VotesFilter{ProposalID: proposalID})
	require.NoError(t, err)
	return votes
}

func voteByBalance(votes []*types.Vote, balanceID string) *types.Vote {
	for _, v := range votes {
		if v.ClaimableBalanceID == balanceID {
			return v
		}
	}
	return nil
}
