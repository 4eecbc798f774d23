package api

import (
	"errors"
	"strconv"

	"github.com/labstack/echo"
	"go.uber.org/zap"

	"github.com/aquagov/governance-backend/cache"
	"github.com/aquagov/governance-backend/governance"
	"github.com/aquagov/governance-backend/horizon"
	"github.com/aquagov/governance-backend/types"
)

func (s *Server) Proposal(c echo.Context) error {
	lgr := s.logger.With(zap.String("method", "Proposal"))
	id, err := proposalIDParam(c)
	if err != nil {
		return Invalid.Build(c)
	}
	proposal, err := s.dbClient.Proposal(c.Request().Context(), id)
	if errors.Is(err, types.ErrProposalNotFound) {
		return NotFound.Build(c)
	}
	if err != nil {
		lgr.Warn("Cannot get proposal", zap.Uint64("proposal", id), zap.Error(err))
		return InternalServer.Build(c)
	}
	return OK.SetData(proposal).Build(c)
}

// ProposalVotes lists votes of a proposal. Only active votes unless active=false, optionally
// filtered by choice.
func (s *Server) ProposalVotes(c echo.Context) error {
	lgr := s.logger.With(zap.String("method", "ProposalVotes"))
	id, err := proposalIDParam(c)
	if err != nil {
		return Invalid.Build(c)
	}
	activeOnly, err := boolQuery(c, "active", true)
	if err != nil {
		return Invalid.Build(c)
	}
	filter := types.VotesFilter{ProposalID: id, ActiveOnly: activeOnly}
	if choice := types.VoteChoice(c.QueryParam("choice")); choice != "" {
		if !choice.IsValid() {
			return Invalid.Build(c)
		}
		filter.VoteChoice = choice
	}
	pagination, page, limit := getPagingOption(c)
	if pagination == nil {
		pagination = &types.Pagination{}
		pagination.Sanitize()
		page, limit = 1, pagination.Limit
	}
	filter.Pagination = pagination

	votes, total, err := s.dbClient.Votes(c.Request().Context(), filter)
	if err != nil {
		lgr.Warn("Cannot get votes", zap.Uint64("proposal", id), zap.Error(err))
		return InternalServer.Build(c)
	}
	if votes == nil {
		votes = []*types.Vote{}
	}
	return OK.SetData(PagingResponse{
		Page:  page,
		Limit: limit,
		Total: total,
		Data:  votes,
	}).Build(c)
}

func (s *Server) ProposalVoteBySlot(c echo.Context) error {
	id, err := proposalIDParam(c)
	if err != nil {
		return Invalid.Build(c)
	}
	key := c.QueryParam("key")
	index, err := strconv.Atoi(c.QueryParam("index"))
	if key == "" || err != nil || index < 0 {
		return Invalid.Build(c)
	}
	vote, err := s.dbClient.FindVote(c.Request().Context(), id, types.VoteSlot{Key: key, GroupIndex: index})
	if errors.Is(err, types.ErrVoteNotFound) {
		return NotFound.Build(c)
	}
	if err != nil {
		s.logger.Warn("Cannot find vote by slot", zap.Uint64("proposal", id), zap.Error(err))
		return InternalServer.Build(c)
	}
	return OK.SetData(vote).Build(c)
}

func (s *Server) ReconcileReport(c echo.Context) error {
	id, err := proposalIDParam(c)
	if err != nil {
		return Invalid.Build(c)
	}
	report, err := s.governance.LastReport(c.Request().Context(), id)
	if errors.Is(err, cache.ErrNotFound) {
		return NotFound.Build(c)
	}
	if err != nil {
		s.logger.Warn("Cannot get reconcile report", zap.Uint64("proposal", id), zap.Error(err))
		return InternalServer.Build(c)
	}
	return OK.SetData(report).Build(c)
}

// ReconcileProposal runs one pass immediately. freeze=true also snapshots voted amounts.
func (s *Server) ReconcileProposal(c echo.Context) error {
	lgr := s.logger.With(zap.String("method", "ReconcileProposal"))
	if !s.authorized(c.Request().Header.Get("Authorization")) {
		lgr.Warn("Cannot authorization request")
		return Unauthorized.Build(c)
	}
	id, err := proposalIDParam(c)
	if err != nil {
		return Invalid.Build(c)
	}
	freeze, err := boolQuery(c, "freeze", false)
	if err != nil {
		return Invalid.Build(c)
	}

	proposal, err := s.dbClient.Proposal(c.Request().Context(), id)
	if errors.Is(err, types.ErrProposalNotFound) {
		return NotFound.Build(c)
	}
	if err != nil {
		lgr.Warn("Cannot get proposal", zap.Uint64("proposal", id), zap.Error(err))
		return InternalServer.Build(c)
	}
	if !proposal.Reconcilable() {
		return NotVoting.Build(c)
	}

	report, err := s.governance.ReconcileProposal(c.Request().Context(), id, freeze)
	switch {
	case err == nil:
		return OK.SetData(report).Build(c)
	case errors.Is(err, types.ErrProposalNotFound):
		return NotFound.Build(c)
	case errors.Is(err, governance.ErrProposalBusy), errors.Is(err, governance.ErrLeaseLost):
		return Busy.Build(c)
	case errors.Is(err, horizon.ErrUnavailable):
		lgr.Warn("Ledger unavailable", zap.Uint64("proposal", id), zap.Error(err))
		return Unavailable.Build(c)
	default:
		lgr.Error("Reconcile failed", zap.Uint64("proposal", id), zap.Error(err))
		return InternalServer.Build(c)
	}
}
