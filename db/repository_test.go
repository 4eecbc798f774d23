package db

import (
	"context"
	"testing"
	"time"

	"github.com/bxcodec/faker/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquagov/governance-backend/types"
)

func fakeVote(proposalID uint64, key string, index int, amount int64) *types.Vote {
	return &types.Vote{
		ProposalID:         proposalID,
		Key:                key,
		GroupIndex:         index,
		ClaimableBalanceID: faker.UUIDDigit(),
		VoteChoice:         types.VoteFor,
		Amount:             decimal.NewFromInt(amount),
		OriginalAmount:     decimal.NewFromInt(amount),
		AccountIssuer:      "GCPQ5BKNMHNWYMJ6GMQOXQXCKEZRYYTF6RYKEJKKJYUIZLHT7NOZ5KX6",
		AssetCode:          "AQUA",
		TransactionLink:    "https://horizon.stellar.org/transactions/" + faker.UUIDDigit(),
		CreatedAt:          time.Date(2021, 11, 1, 0, 0, index, 0, time.UTC),
	}
}

// runVoteRepositoryTests exercises the vote contract shared by every adapter.
func runVoteRepositoryTests(t *testing.T, c Client) {
	ctx := context.Background()

	a := fakeVote(7, "7|vote_for|GA|AQUA|1", 0, 300)
	b := fakeVote(7, "7|vote_for|GA|AQUA|1", 1, 100)
	other := fakeVote(8, "8|vote_for|GA|AQUA|1", 0, 50)
	require.NoError(t, c.BulkCreateVotes(ctx, []*types.Vote{a, b, other}))
	assert.NotEmpty(t, a.ID)

	votes, total, err := c.Votes(ctx, types.VotesFilter{ProposalID: 7})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, votes, 2)
	assert.True(t, votes[0].Amount.Equal(decimal.NewFromInt(100)), "newest first")

	found, err := c.FindVote(ctx, 7, types.VoteSlot{Key: a.Key, GroupIndex: 0})
	require.NoError(t, err)
	assert.Equal(t, a.ID, found.ID)
	assert.True(t, found.OriginalAmount.Equal(decimal.NewFromInt(300)))

	byBalance, err := c.FindActiveVoteByBalanceID(ctx, b.ClaimableBalanceID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, byBalance.ID)

	// Mutating a returned row must not leak into storage.
	found.Amount = decimal.NewFromInt(1)
	again, err := c.FindVote(ctx, 7, types.VoteSlot{Key: a.Key, GroupIndex: 0})
	require.NoError(t, err)
	assert.True(t, again.Amount.Equal(decimal.NewFromInt(300)))

	voted := decimal.RequireFromString("250.1234567")
	a.Amount = decimal.RequireFromString("250.1234567")
	a.VotedAmount = &voted
	b.Retired = true
	require.NoError(t, c.ApplyVoteChanges(ctx, 7, &types.VoteChanges{
		Update: []*types.Vote{a},
		Retire: []*types.Vote{b},
	}))

	updated, err := c.FindVote(ctx, 7, types.VoteSlot{Key: a.Key, GroupIndex: 0})
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(voted))
	require.NotNil(t, updated.VotedAmount)
	assert.True(t, updated.VotedAmount.Equal(voted))
	assert.True(t, updated.OriginalAmount.Equal(decimal.NewFromInt(300)))

	_, err = c.FindVote(ctx, 7, types.VoteSlot{Key: b.Key, GroupIndex: 1})
	assert.ErrorIs(t, err, types.ErrVoteNotFound)
	_, err = c.FindActiveVoteByBalanceID(ctx, b.ClaimableBalanceID)
	assert.ErrorIs(t, err, types.ErrVoteNotFound)

	active, total, err := c.Votes(ctx, types.VotesFilter{ProposalID: 7, ActiveOnly: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, active, 1)

	page, total, err := c.Votes(ctx, types.VotesFilter{ProposalID: 7, Pagination: &types.Pagination{Skip: 1, Limit: 1}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, page, 1)

	err = c.BulkUpdateVotes(ctx, []*types.Vote{a}, []string{"bogus"})
	assert.Error(t, err)
}

func runProposalRepositoryTests(t *testing.T, c Client) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	voting := &types.Proposal{
		ID:                1,
		Title:             faker.Sentence(),
		StartAt:           now.Add(-time.Hour),
		EndAt:             now.Add(time.Hour),
		Status:            types.ProposalVoting,
		VoteForIssuer:     "GA",
		VoteAgainstIssuer: "GB",
	}
	ended := &types.Proposal{
		ID:      2,
		StartAt: now.Add(-48 * time.Hour),
		EndAt:   now.Add(-time.Hour),
		Status:  types.ProposalVoting,
	}
	stale := &types.Proposal{
		ID:            3,
		Status:        types.ProposalDiscussion,
		LastUpdatedAt: now.Add(-60 * 24 * time.Hour),
	}
	for _, p := range []*types.Proposal{voting, ended, stale} {
		require.NoError(t, c.UpsertProposal(ctx, p))
	}

	got, err := c.Proposal(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, voting.Title, got.Title)
	_, err = c.Proposal(ctx, 99)
	assert.ErrorIs(t, err, types.ErrProposalNotFound)

	active, err := c.Proposals(ctx, types.ProposalsFilter{Statuses: []types.ProposalStatus{types.ProposalVoting}, ActiveAt: now})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.EqualValues(t, 1, active[0].ID)

	due, err := c.Proposals(ctx, types.ProposalsFilter{Statuses: []types.ProposalStatus{types.ProposalVoting}, EndBefore: now})
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.EqualValues(t, 2, due[0].ID)

	expired, err := c.Proposals(ctx, types.ProposalsFilter{Statuses: []types.ProposalStatus{types.ProposalDiscussion}, LastUpdatedBefore: now.Add(-30 * 24 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, expired, 1)

	ok, err := c.UpdateProposalStatus(ctx, 2, types.ProposalVoting, types.ProposalVoted)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = c.UpdateProposalStatus(ctx, 2, types.ProposalVoting, types.ProposalVoted)
	require.NoError(t, err)
	assert.False(t, ok, "already moved")
	_, err = c.UpdateProposalStatus(ctx, 2, types.ProposalVoted, types.ProposalVoting)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	aqua := 1000.5
	require.NoError(t, c.UpdateProposalResults(ctx, 1, &types.ProposalResults{
		VoteForResult:         decimal.RequireFromString("100.0000001"),
		VoteAgainstResult:     decimal.NewFromInt(30),
		AquaCirculatingSupply: &aqua,
		UpdatedAt:             now,
	}))
	require.NoError(t, c.UpdateProposalResults(ctx, 1, &types.ProposalResults{
		VoteForResult: decimal.RequireFromString("100.0000001"),
		UpdatedAt:     now,
	}))
	got, err = c.Proposal(ctx, 1)
	require.NoError(t, err)
	assert.True(t, got.VoteForResult.Equal(decimal.RequireFromString("100.0000001")))
	assert.True(t, got.VoteAgainstResult.IsZero())
	assert.Equal(t, aqua, got.AquaCirculatingSupply, "nil supply leaves the stored value")
	assert.Equal(t, voting.LastUpdatedAt.Unix(), got.LastUpdatedAt.Unix(), "results never touch lastUpdatedAt")

	assert.ErrorIs(t, c.UpdateProposalResults(ctx, 99, &types.ProposalResults{}), types.ErrProposalNotFound)
}
