package governance

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aquagov/governance-backend/db"
	"github.com/aquagov/governance-backend/types"
)

// SupplySource provides the circulating supply snapshots stored next to the totals.
type SupplySource interface {
	AquaCirculating(ctx context.Context) (float64, error)
	IceCirculating(ctx context.Context) (float64, error)
}

type Aggregator struct {
	db     db.Client
	supply SupplySource
	logger *zap.Logger
	now    func() time.Time
}

func NewAggregator(dbClient db.Client, supply SupplySource, lgr *zap.Logger) *Aggregator {
	if lgr == nil {
		lgr = zap.NewNop()
	}
	return &Aggregator{
		db:     dbClient,
		supply: supply,
		logger: lgr,
		now:    time.Now,
	}
}

// Tally sums the current amount of every active vote per choice.
func Tally(votes []*types.Vote) (forTotal, againstTotal, abstainTotal decimal.Decimal) {
	for _, v := range votes {
		if v.Retired {
			continue
		}
		switch v.VoteChoice {
		case types.VoteFor:
			forTotal = forTotal.Add(v.Amount)
		case types.VoteAgainst:
			againstTotal = againstTotal.Add(v.Amount)
		case types.VoteAbstain:
			abstainTotal = abstainTotal.Add(v.Amount)
		}
	}
	return forTotal, againstTotal, abstainTotal
}

// UpdateResults recomputes the totals of a proposal. Each supply feed is optional: a failed
// feed keeps the figure already stored.
func (a *Aggregator) UpdateResults(ctx context.Context, proposalID uint64) (*types.ProposalResults, error) {
	lgr := a.logger.With(zap.Uint64("proposal", proposalID))
	votes, _, err := a.db.Votes(ctx, types.VotesFilter{ProposalID: proposalID, ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("load votes of proposal %d: %w", proposalID, err)
	}

	results := &types.ProposalResults{UpdatedAt: a.now().UTC()}
	results.VoteForResult, results.VoteAgainstResult, results.VoteAbstainResult = Tally(votes)

	if a.supply != nil {
		if aqua, err := a.supply.AquaCirculating(ctx); err != nil {
			lgr.Warn("Cannot fetch AQUA circulating supply", zap.Error(err))
		} else {
			results.AquaCirculatingSupply = &aqua
		}
		if ice, err := a.supply.IceCirculating(ctx); err != nil {
			lgr.Warn("Cannot fetch ICE circulating supply", zap.Error(err))
		} else {
			results.IceCirculatingSupply = &ice
		}
	}

	if err := a.db.UpdateProposalResults(ctx, proposalID, results); err != nil {
		return nil, fmt.Errorf("save results of proposal %d: %w", proposalID, err)
	}
	lgr.Info("Updated proposal results",
		zap.String("for", results.VoteForResult.String()),
		zap.String("against", results.VoteAgainstResult.String()),
		zap.String("abstain", results.VoteAbstainResult.String()))
	return results, nil
}
