package governance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aquagov/governance-backend/cache"
	"github.com/aquagov/governance-backend/db"
	"github.com/aquagov/governance-backend/metrics"
	"github.com/aquagov/governance-backend/types"
)

type Deps struct {
	DB     db.Client
	Ledger Ledger
	Supply SupplySource
	// Cache is optional. It shares proposal locks across processes and keeps the last report.
	Cache   cache.Client
	Metrics *metrics.Provider
	Logger  *zap.Logger
}

// Service is the entry point used by the scheduler and the API.
type Service struct {
	cfg        Config
	db         db.Client
	cache      cache.Client
	reconciler *Reconciler
	aggregator *Aggregator
	locker     *Locker
	metrics    *metrics.Provider
	logger     *zap.Logger
	now        func() time.Time
}

func NewService(cfg Config, deps Deps) *Service {
	cfg = cfg.withDefaults()
	lgr := deps.Logger
	if lgr == nil {
		lgr = zap.NewNop()
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.New(nil)
	}
	var shared cache.ILock
	if deps.Cache != nil {
		shared = deps.Cache
	}
	return &Service{
		cfg:        cfg,
		db:         deps.DB,
		cache:      deps.Cache,
		reconciler: NewReconciler(cfg, deps.DB, deps.Ledger, m, lgr.With(zap.String("component", "reconciler"))),
		aggregator: NewAggregator(deps.DB, deps.Supply, lgr.With(zap.String("component", "aggregator"))),
		locker:     NewLocker(shared, lgr),
		metrics:    m,
		logger:     lgr,
		now:        time.Now,
	}
}

// ReconcileProposal reconciles the votes of one proposal, then refreshes its totals. Totals
// are only written after the votes were saved.
func (s *Service) ReconcileProposal(ctx context.Context, proposalID uint64, freeze bool) (*types.ReconcileReport, error) {
	passCtx, unlock, err := s.locker.TryLock(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	ctx = passCtx

	report, err := s.reconciler.ReconcileProposal(ctx, proposalID, freeze)
	if err != nil {
		return nil, passError(ctx, err)
	}
	if _, err := s.aggregator.UpdateResults(ctx, proposalID); err != nil {
		err = passError(ctx, err)
		s.metrics.IncFailure("tally")
		return report, err
	}
	s.metrics.ObserveReport(report)
	if s.cache != nil {
		if err := s.cache.UpdateReconcileReport(ctx, report); err != nil {
			s.logger.Warn("Cannot cache reconcile report", zap.Uint64("proposal", proposalID), zap.Error(err))
		}
	}
	return report, nil
}

// passError marks errors of a pass whose lease was lost mid-way.
func passError(ctx context.Context, err error) error {
	if errors.Is(context.Cause(ctx), ErrLeaseLost) && !errors.Is(err, ErrLeaseLost) {
		return fmt.Errorf("%w: %v", ErrLeaseLost, err)
	}
	return err
}

// EligibleProposals lists proposals in their voting window and closed proposals.
func (s *Service) EligibleProposals(ctx context.Context) ([]*types.Proposal, error) {
	active, err := s.ActiveProposals(ctx)
	if err != nil {
		return nil, err
	}
	voted, err := s.db.Proposals(ctx, types.ProposalsFilter{Statuses: []types.ProposalStatus{types.ProposalVoted}})
	if err != nil {
		return nil, err
	}
	return append(active, voted...), nil
}

func (s *Service) ActiveProposals(ctx context.Context) ([]*types.Proposal, error) {
	return s.db.Proposals(ctx, types.ProposalsFilter{
		Statuses: []types.ProposalStatus{types.ProposalVoting},
		ActiveAt: s.now(),
	})
}

func (s *Service) ReconcileAllEligible(ctx context.Context) (*types.BatchReport, error) {
	proposals, err := s.EligibleProposals(ctx)
	if err != nil {
		return nil, err
	}
	return s.ReconcileBatch(ctx, proposals), nil
}

func (s *Service) ReconcileActive(ctx context.Context) (*types.BatchReport, error) {
	proposals, err := s.ActiveProposals(ctx)
	if err != nil {
		return nil, err
	}
	return s.ReconcileBatch(ctx, proposals), nil
}

// ReconcileBatch runs proposals on a bounded pool. One proposal failing never stops the others.
func (s *Service) ReconcileBatch(ctx context.Context, proposals []*types.Proposal) *types.BatchReport {
	batch := &types.BatchReport{Proposals: len(proposals), Errors: make(map[uint64]string)}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for _, p := range proposals {
		proposalID := p.ID
		g.Go(func() error {
			report, err := s.ReconcileProposal(ctx, proposalID, false)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, ErrProposalBusy):
				batch.Busy++
			case err != nil:
				batch.Failed++
				batch.Errors[proposalID] = err.Error()
				s.logger.Warn("Proposal reconciliation failed", zap.Uint64("proposal", proposalID), zap.Error(err))
			default:
				batch.Succeeded++
				batch.Reports = append(batch.Reports, report)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(batch.Reports, func(i, j int) bool { return batch.Reports[i].ProposalID < batch.Reports[j].ProposalID })
	s.logger.Info("Reconciled proposals",
		zap.Int("proposals", batch.Proposals),
		zap.Int("succeeded", batch.Succeeded),
		zap.Int("failed", batch.Failed),
		zap.Int("busy", batch.Busy))
	return batch
}

// LastReport returns the cached report of the last successful pass.
func (s *Service) LastReport(ctx context.Context, proposalID uint64) (*types.ReconcileReport, error) {
	if s.cache == nil {
		return nil, cache.ErrNotFound
	}
	return s.cache.ReconcileReport(ctx, proposalID)
}
