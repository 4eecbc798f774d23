package db

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquagov/governance-backend/types"
)

func newTestMemory(t *testing.T) Client {
	c, err := NewClient(Config{DbAdapter: Memory})
	require.NoError(t, err)
	return c
}

func TestMemory_Votes(t *testing.T) {
	runVoteRepositoryTests(t, newTestMemory(t))
}

func TestMemory_Proposals(t *testing.T) {
	runProposalRepositoryTests(t, newTestMemory(t))
}

func TestMemory_ApplyVoteChangesIsAtomic(t *testing.T) {
	ctx := context.Background()
	c := newTestMemory(t)
	existing := fakeVote(1, "k", 0, 10)
	require.NoError(t, c.BulkCreateVotes(ctx, []*types.Vote{existing}))

	existing.Amount = decimal.NewFromInt(99)
	missing := fakeVote(1, "k", 1, 5)
	missing.ID = "does-not-exist"
	candidate := fakeVote(1, "k", 2, 1)
	err := c.ApplyVoteChanges(ctx, 1, &types.VoteChanges{
		Create: []*types.Vote{candidate},
		Update: []*types.Vote{existing, missing},
	})
	assert.ErrorIs(t, err, types.ErrVoteNotFound)
	assert.Empty(t, candidate.ID, "a rolled back create leaves the caller's vote without id")

	votes, total, err := c.Votes(ctx, types.VotesFilter{ProposalID: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total, "create rolled back")
	assert.True(t, votes[0].Amount.Equal(decimal.NewFromInt(10)), "update rolled back")
}

func TestMemory_CreatedVotesGetIDOnCommit(t *testing.T) {
	ctx := context.Background()
	c := newTestMemory(t)

	created := fakeVote(1, "k", 0, 10)
	require.NoError(t, c.ApplyVoteChanges(ctx, 1, &types.VoteChanges{Create: []*types.Vote{created}}))
	require.NotEmpty(t, created.ID)
	stored, err := c.FindActiveVoteByBalanceID(ctx, created.ClaimableBalanceID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, stored.ID)

	// Same id twice in one batch fails without touching either vote.
	a, b := fakeVote(1, "k", 1, 5), fakeVote(1, "k", 2, 5)
	a.ID, b.ID = "dup", "dup"
	again := fakeVote(1, "k", 3, 5)
	err = c.BulkCreateVotes(ctx, []*types.Vote{again, a, b})
	assert.Error(t, err)
	assert.Empty(t, again.ID)
	_, total, err := c.Votes(ctx, types.VotesFilter{ProposalID: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestNewClient_InvalidAdapter(t *testing.T) {
	_, err := NewClient(Config{DbAdapter: "postgres"})
	assert.Error(t, err)
}
