package api

import (
	"errors"

	"github.com/labstack/echo"
	"go.uber.org/zap"

	"github.com/aquagov/governance-backend/types"
)

// VoteByBalance returns the active vote currently backed by a claimable balance.
func (s *Server) VoteByBalance(c echo.Context) error {
	balanceID := c.Param("balanceID")
	if balanceID == "" {
		return Invalid.Build(c)
	}
	vote, err := s.dbClient.FindActiveVoteByBalanceID(c.Request().Context(), balanceID)
	if errors.Is(err, types.ErrVoteNotFound) {
		return NotFound.Build(c)
	}
	if err != nil {
		s.logger.Warn("Cannot find vote by balance", zap.String("balance", balanceID), zap.Error(err))
		return InternalServer.Build(c)
	}
	return OK.SetData(vote).Build(c)
}
