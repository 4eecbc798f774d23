// Package db
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/aquagov/governance-backend/types"
)

func proposalsQuery(filter types.ProposalsFilter) bson.M {
	query := bson.M{}
	if len(filter.Statuses) > 0 {
		query["proposalStatus"] = bson.M{"$in": filter.Statuses}
	}
	if !filter.ActiveAt.IsZero() {
		query["startAt"] = bson.M{"$lte": filter.ActiveAt}
		query["endAt"] = bson.M{"$gte": filter.ActiveAt}
	}
	if !filter.EndBefore.IsZero() {
		if end, ok := query["endAt"].(bson.M); ok {
			end["$lte"] = filter.EndBefore
		} else {
			query["endAt"] = bson.M{"$lte": filter.EndBefore}
		}
	}
	if !filter.LastUpdatedBefore.IsZero() {
		query["lastUpdatedAt"] = bson.M{"$lt": filter.LastUpdatedBefore}
	}
	return query
}

func (m *mongoDB) Proposal(ctx context.Context, id uint64) (*types.Proposal, error) {
	var result types.Proposal
	err := m.wrapper.C(cProposals).FindOne(ctx, bson.M{"id": id}).Decode(&result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, types.ErrProposalNotFound
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (m *mongoDB) Proposals(ctx context.Context, filter types.ProposalsFilter) ([]*types.Proposal, error) {
	cursor, err := m.wrapper.C(cProposals).Find(ctx, proposalsQuery(filter), m.wrapper.FindSetSort("id"))
	if err != nil {
		return nil, fmt.Errorf("failed to get proposals: %w", err)
	}
	defer func() {
		if err := cursor.Close(ctx); err != nil {
			m.logger.Warn("Error when close cursor", zap.Error(err))
		}
	}()
	var proposals []*types.Proposal
	for cursor.Next(ctx) {
		proposal := &types.Proposal{}
		if err := cursor.Decode(proposal); err != nil {
			return nil, err
		}
		proposals = append(proposals, proposal)
	}
	return proposals, cursor.Err()
}

func (m *mongoDB) UpsertProposal(ctx context.Context, proposal *types.Proposal) error {
	if proposal.LastUpdatedAt.IsZero() {
		proposal.LastUpdatedAt = time.Now().UTC()
	}
	if _, err := m.wrapper.C(cProposals).Upsert(ctx, bson.M{"id": proposal.ID}, proposal); err != nil {
		return fmt.Errorf("failed to upsert proposal %d: %w", proposal.ID, err)
	}
	return nil
}

func (m *mongoDB) UpdateProposalStatus(ctx context.Context, id uint64, from, to types.ProposalStatus) (bool, error) {
	if !from.CanTransition(to) {
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	res, err := m.wrapper.C(cProposals).Update(ctx,
		bson.M{"id": id, "proposalStatus": from},
		bson.M{"$set": bson.M{"proposalStatus": to, "lastUpdatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to update proposal %d status: %w", id, err)
	}
	return res.MatchedCount == 1, nil
}

func (m *mongoDB) UpdateProposalResults(ctx context.Context, id uint64, results *types.ProposalResults) error {
	set := bson.M{
		"voteForResult":     results.VoteForResult,
		"voteAgainstResult": results.VoteAgainstResult,
		"voteAbstainResult": results.VoteAbstainResult,
		"resultsUpdatedAt":  results.UpdatedAt,
	}
	if results.AquaCirculatingSupply != nil {
		set["aquaCirculatingSupply"] = *results.AquaCirculatingSupply
	}
	if results.IceCirculatingSupply != nil {
		set["iceCirculatingSupply"] = *results.IceCirculatingSupply
	}
	res, err := m.wrapper.C(cProposals).Update(ctx, bson.M{"id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update proposal %d results: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return types.ErrProposalNotFound
	}
	return nil
}
