package governance

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/aquagov/governance-backend/types"
)

// CloseEndedVoting freezes and closes proposals whose voting window has ended. The freeze
// pass runs before the status changes, so a failed pass is retried on the next call.
func (s *Service) CloseEndedVoting(ctx context.Context) ([]uint64, error) {
	proposals, err := s.db.Proposals(ctx, types.ProposalsFilter{
		Statuses:  []types.ProposalStatus{types.ProposalVoting},
		EndBefore: s.now().Add(s.cfg.CloseLead),
	})
	if err != nil {
		return nil, err
	}

	var closed []uint64
	var errs []error
	for _, p := range proposals {
		lgr := s.logger.With(zap.Uint64("proposal", p.ID))
		if _, err := s.ReconcileProposal(ctx, p.ID, true); err != nil {
			if !errors.Is(err, ErrProposalBusy) {
				errs = append(errs, fmt.Errorf("freeze proposal %d: %w", p.ID, err))
			}
			lgr.Warn("Freeze pass failed, voting stays open", zap.Error(err))
			continue
		}
		ok, err := s.db.UpdateProposalStatus(ctx, p.ID, types.ProposalVoting, types.ProposalVoted)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			lgr.Info("Voting closed")
			closed = append(closed, p.ID)
		}
	}
	return closed, errors.Join(errs...)
}

// ExpireDiscussions expires proposals left in discussion for longer than the expiry time.
func (s *Service) ExpireDiscussions(ctx context.Context) ([]uint64, error) {
	proposals, err := s.db.Proposals(ctx, types.ProposalsFilter{
		Statuses:          []types.ProposalStatus{types.ProposalDiscussion},
		LastUpdatedBefore: s.now().Add(-s.cfg.ExpiredTime),
	})
	if err != nil {
		return nil, err
	}
	var expired []uint64
	var errs []error
	for _, p := range proposals {
		ok, err := s.db.UpdateProposalStatus(ctx, p.ID, types.ProposalDiscussion, types.ProposalExpired)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			expired = append(expired, p.ID)
		}
	}
	if len(expired) > 0 {
		s.logger.Info("Expired discussions", zap.Any("proposals", expired))
	}
	return expired, errors.Join(errs...)
}

// RunLifecycle applies every time based status transition once.
func (s *Service) RunLifecycle(ctx context.Context) error {
	_, closeErr := s.CloseEndedVoting(ctx)
	_, expireErr := s.ExpireDiscussions(ctx)
	return errors.Join(closeErr, expireErr)
}
