package api

import (
	"context"

	"go.uber.org/zap"

	"github.com/aquagov/governance-backend/cache"
	"github.com/aquagov/governance-backend/db"
	"github.com/aquagov/governance-backend/types"
)

// Governance is the reconciliation side the API triggers and reports on.
type Governance interface {
	ReconcileProposal(ctx context.Context, proposalID uint64, freeze bool) (*types.ReconcileReport, error)
	LastReport(ctx context.Context, proposalID uint64) (*types.ReconcileReport, error)
}

type Server struct {
	authorizationSecret string

	dbClient    db.Client
	cacheClient cache.Client
	governance  Governance

	logger *zap.Logger
}

func NewServer() *Server {
	return &Server{logger: zap.NewNop()}
}

// SetSecret sets the Authorization value required by private routes. An empty secret
// rejects every private call.
func (s *Server) SetSecret(secret string) *Server {
	s.authorizationSecret = secret
	return s
}

func (s *Server) SetLogger(logger *zap.Logger) *Server {
	s.logger = logger
	return s
}

func (s *Server) SetStorage(db db.Client) *Server {
	s.dbClient = db
	return s
}

func (s *Server) SetCache(cache cache.Client) *Server {
	s.cacheClient = cache
	return s
}

func (s *Server) SetGovernance(governance Governance) *Server {
	s.governance = governance
	return s
}

func (s *Server) authorized(r string) bool {
	return s.authorizationSecret != "" && r == s.authorizationSecret
}
