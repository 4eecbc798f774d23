// Package db
package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/aquagov/governance-backend/types"
)

type Adapter string

const (
	MGO    Adapter = "mgo"
	Memory Adapter = "memory"
)

type Config struct {
	DbAdapter       Adapter
	DbName          string
	URL             string
	MinConn         int
	MaxConn         int
	FlushDB         bool
	UseTransactions bool

	Logger *zap.Logger
}

type IVote interface {
	Votes(ctx context.Context, filter types.VotesFilter) ([]*types.Vote, uint64, error)
	// FindVote returns the active vote holding the (key, group index) slot.
	FindVote(ctx context.Context, proposalID uint64, slot types.VoteSlot) (*types.Vote, error)
	FindActiveVoteByBalanceID(ctx context.Context, balanceID string) (*types.Vote, error)
	BulkCreateVotes(ctx context.Context, votes []*types.Vote) error
	BulkUpdateVotes(ctx context.Context, votes []*types.Vote, fields []string) error
	// ApplyVoteChanges writes the outcome of one reconciliation pass as a single unit.
	ApplyVoteChanges(ctx context.Context, proposalID uint64, changes *types.VoteChanges) error
}

type IProposal interface {
	Proposal(ctx context.Context, id uint64) (*types.Proposal, error)
	Proposals(ctx context.Context, filter types.ProposalsFilter) ([]*types.Proposal, error)
	UpsertProposal(ctx context.Context, proposal *types.Proposal) error
	// UpdateProposalStatus moves a proposal from one status to the next. It reports false
	// when the proposal is no longer in the from status.
	UpdateProposalStatus(ctx context.Context, id uint64, from, to types.ProposalStatus) (bool, error)
	// UpdateProposalResults writes the denormalised totals only. It never touches
	// lastUpdatedAt, so it cannot re-trigger lifecycle or scheduling decisions.
	UpdateProposalResults(ctx context.Context, id uint64, results *types.ProposalResults) error
}

type Client interface {
	Ping(ctx context.Context) error
	dropDatabase(ctx context.Context) error

	IVote
	IProposal
}

var ErrInvalidTransition = errors.New("invalid proposal status transition")

func NewClient(cfg Config) (Client, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	switch cfg.DbAdapter {
	case MGO:
		return newMongoDB(cfg)
	case Memory:
		return newMemoryDB(cfg), nil
	default:
		return nil, errors.New("invalid db config")
	}
}

// assignVoteIDs hands committed IDs back to the caller's votes.
func assignVoteIDs(votes []*types.Vote, ids []string) {
	for i, id := range ids {
		votes[i].ID = id
	}
}

func newVoteID() string {
	return primitive.NewObjectID().Hex()
}
