// Package db
package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/aquagov/governance-backend/types"
)

func votesQuery(filter types.VotesFilter) bson.M {
	query := bson.M{}
	if filter.ProposalID != 0 {
		query["proposalId"] = filter.ProposalID
	}
	if filter.ClaimableBalanceID != "" {
		query["claimableBalanceId"] = filter.ClaimableBalanceID
	}
	if filter.VoteChoice != "" {
		query["voteChoice"] = filter.VoteChoice
	}
	if filter.ActiveOnly {
		query["retired"] = false
	}
	return query
}

func (m *mongoDB) Votes(ctx context.Context, filter types.VotesFilter) ([]*types.Vote, uint64, error) {
	query := votesQuery(filter)
	opts := []*options.FindOptions{
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}),
	}
	if filter.Pagination != nil {
		filter.Pagination.Sanitize()
		opts = append(opts,
			options.Find().SetSkip(int64(filter.Pagination.Skip)),
			options.Find().SetLimit(int64(filter.Pagination.Limit)),
		)
	}

	cursor, err := m.wrapper.C(cVotes).Find(ctx, query, opts...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get votes: %w", err)
	}
	defer func() {
		if err := cursor.Close(ctx); err != nil {
			m.logger.Warn("Error when close cursor", zap.Error(err))
		}
	}()

	var votes []*types.Vote
	for cursor.Next(ctx) {
		vote := &types.Vote{}
		if err := cursor.Decode(vote); err != nil {
			return nil, 0, err
		}
		votes = append(votes, vote)
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, err
	}

	total := uint64(len(votes))
	if filter.Pagination != nil {
		count, err := m.wrapper.C(cVotes).Count(ctx, query)
		if err != nil {
			return nil, 0, err
		}
		total = uint64(count)
	}
	return votes, total, nil
}

func (m *mongoDB) findOneVote(ctx context.Context, query bson.M) (*types.Vote, error) {
	var vote types.Vote
	err := m.wrapper.C(cVotes).FindOne(ctx, query, m.wrapper.FindOneSetSort("-createdAt")).Decode(&vote)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, types.ErrVoteNotFound
	}
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

func (m *mongoDB) FindVote(ctx context.Context, proposalID uint64, slot types.VoteSlot) (*types.Vote, error) {
	return m.findOneVote(ctx, bson.M{
		"proposalId": proposalID,
		"key":        slot.Key,
		"groupIndex": slot.GroupIndex,
		"retired":    false,
	})
}

func (m *mongoDB) FindActiveVoteByBalanceID(ctx context.Context, balanceID string) (*types.Vote, error) {
	return m.findOneVote(ctx, bson.M{
		"claimableBalanceId": balanceID,
		"retired":            false,
	})
}

func (m *mongoDB) BulkCreateVotes(ctx context.Context, votes []*types.Vote) error {
	ids, err := m.insertVotes(ctx, votes)
	if err != nil {
		return err
	}
	assignVoteIDs(votes, ids)
	return nil
}

// insertVotes writes copies of votes and returns their IDs in order.
func (m *mongoDB) insertVotes(ctx context.Context, votes []*types.Vote) ([]string, error) {
	if len(votes) == 0 {
		return nil, nil
	}
	ids := make([]string, len(votes))
	models := make([]mongo.WriteModel, len(votes))
	for i, v := range votes {
		doc := *v
		if doc.ID == "" {
			doc.ID = newVoteID()
		}
		ids[i] = doc.ID
		models[i] = mongo.NewInsertOneModel().SetDocument(&doc)
	}
	if _, err := m.wrapper.C(cVotes).BulkWrite(ctx, models); err != nil {
		return nil, fmt.Errorf("failed to create votes: %w", err)
	}
	return ids, nil
}

func (m *mongoDB) BulkUpdateVotes(ctx context.Context, votes []*types.Vote, fields []string) error {
	if len(votes) == 0 || len(fields) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, len(votes))
	for i, v := range votes {
		if v.ID == "" {
			return fmt.Errorf("update vote without id: %s/%d", v.Key, v.GroupIndex)
		}
		set, err := voteSetDoc(v, fields)
		if err != nil {
			return err
		}
		models[i] = mongo.NewUpdateOneModel().SetFilter(bson.M{"_id": v.ID}).SetUpdate(bson.M{"$set": set})
	}
	res, err := m.wrapper.C(cVotes).BulkWrite(ctx, models)
	if err != nil {
		return fmt.Errorf("failed to update votes: %w", err)
	}
	if res.MatchedCount != int64(len(votes)) {
		return fmt.Errorf("failed to update votes: matched %d of %d", res.MatchedCount, len(votes))
	}
	return nil
}

func (m *mongoDB) ApplyVoteChanges(ctx context.Context, proposalID uint64, changes *types.VoteChanges) error {
	if changes == nil || changes.Empty() {
		return nil
	}
	lgr := m.logger.With(zap.Uint64("proposal", proposalID))
	var created []string
	err := m.inTransaction(ctx, func(ctx context.Context) error {
		ids, err := m.insertVotes(ctx, changes.Create)
		if err != nil {
			return err
		}
		created = ids
		if err := m.BulkUpdateVotes(ctx, changes.Update, types.UpdateFields); err != nil {
			return err
		}
		return m.BulkUpdateVotes(ctx, changes.Retire, []string{types.FieldRetired})
	})
	if err != nil {
		lgr.Warn("Cannot apply vote changes", zap.Error(err))
		return err
	}
	assignVoteIDs(changes.Create, created)
	lgr.Debug("Applied vote changes",
		zap.Int("created", len(changes.Create)),
		zap.Int("updated", len(changes.Update)),
		zap.Int("retired", len(changes.Retire)))
	return nil
}
