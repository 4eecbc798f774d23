package governance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/aquagov/governance-backend/db"
	"github.com/aquagov/governance-backend/horizon"
	"github.com/aquagov/governance-backend/metrics"
	"github.com/aquagov/governance-backend/types"
)

var ErrNoOrigin = errors.New("cannot determine vote origin")

// Ledger is the read side of Horizon used by reconciliation.
type Ledger interface {
	ClaimableBalances(q horizon.BalanceQuery) *horizon.BalancePager
	BalanceOperations(ctx context.Context, balanceID string, limit int) ([]*types.Operation, error)
}

type Reconciler struct {
	cfg     Config
	db      db.Client
	ledger  Ledger
	parser  *Parser
	metrics *metrics.Provider
	logger  *zap.Logger
	now     func() time.Time
}

func NewReconciler(cfg Config, dbClient db.Client, ledger Ledger, m *metrics.Provider, lgr *zap.Logger) *Reconciler {
	cfg = cfg.withDefaults()
	if m == nil {
		m = metrics.New(nil)
	}
	if lgr == nil {
		lgr = zap.NewNop()
	}
	return &Reconciler{
		cfg:     cfg,
		db:      dbClient,
		ledger:  ledger,
		parser:  NewParser(cfg),
		metrics: m,
		logger:  lgr,
		now:     time.Now,
	}
}

type rawBalance struct {
	choice  types.VoteChoice
	balance *types.ClaimableBalance
}

// pass holds the state of one reconciliation of one proposal.
type pass struct {
	proposal *types.Proposal
	freeze   bool
	report   *types.ReconcileReport
	logger   *zap.Logger

	bySlot    map[types.VoteSlot]*types.Vote
	byBalance map[string]*types.Vote
	used      map[string]bool
	changes   *types.VoteChanges
}

// ReconcileProposal brings the stored votes of a proposal in line with the ledger. Callers
// must make sure only one pass per proposal runs at a time.
func (r *Reconciler) ReconcileProposal(ctx context.Context, proposalID uint64, freeze bool) (*types.ReconcileReport, error) {
	startedAt := r.now()
	lgr := r.logger.With(zap.Uint64("proposal", proposalID), zap.Bool("freeze", freeze))

	proposal, err := r.db.Proposal(ctx, proposalID)
	if err != nil {
		return nil, fmt.Errorf("load proposal %d: %w", proposalID, err)
	}
	existing, _, err := r.db.Votes(ctx, types.VotesFilter{ProposalID: proposalID})
	if err != nil {
		return nil, fmt.Errorf("load votes of proposal %d: %w", proposalID, err)
	}

	p := &pass{
		proposal:  proposal,
		freeze:    freeze,
		report:    &types.ReconcileReport{ProposalID: proposalID, Freeze: freeze, StartedAt: startedAt},
		logger:    lgr,
		bySlot:    make(map[types.VoteSlot]*types.Vote),
		byBalance: make(map[string]*types.Vote),
		used:      make(map[string]bool),
		changes:   &types.VoteChanges{},
	}
	for _, v := range existing {
		if v.Retired {
			continue
		}
		p.bySlot[v.Slot()] = v
		if _, ok := p.byBalance[v.ClaimableBalanceID]; !ok {
			p.byBalance[v.ClaimableBalanceID] = v
		}
	}

	// Grouping needs every balance of every choice, so the whole scan finishes first.
	raws, err := r.scan(ctx, p)
	if err != nil {
		r.metrics.IncFailure("ledger")
		return nil, err
	}

	keys, groups := r.group(p, raws)
	for _, key := range keys {
		group := groups[key]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Balance.Amount.GreaterThan(group[j].Balance.Amount)
		})
		for index, c := range group {
			if err := r.assign(ctx, p, c, index); err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				p.report.Skipped++
				lgr.Warn("Balance skipped", zap.String("balance", c.Balance.ID), zap.Error(err))
			}
		}
	}

	for _, v := range existing {
		if v.Retired || p.used[v.ID] {
			continue
		}
		retired := *v
		retired.Retired = true
		p.changes.Retire = append(p.changes.Retire, &retired)
	}

	// A pass that outlived its lease must not write.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.db.ApplyVoteChanges(ctx, proposalID, p.changes); err != nil {
		r.metrics.IncFailure("storage")
		return nil, fmt.Errorf("save votes of proposal %d: %w", proposalID, err)
	}

	report := p.report
	report.Created = len(p.changes.Create)
	report.Updated = len(p.changes.Update)
	report.Retired = len(p.changes.Retire)
	report.Duration = r.now().Sub(startedAt)
	lgr.Info("Reconciled proposal votes",
		zap.Int("balances", report.Balances),
		zap.Int("groups", report.Groups),
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("unchanged", report.Unchanged),
		zap.Int("retired", report.Retired),
		zap.Int("skipped", report.Skipped),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// scan loads the balances of every choice. A balance listed under several issuers is kept
// under the first one only.
func (r *Reconciler) scan(ctx context.Context, p *pass) ([]rawBalance, error) {
	start := time.Now()
	seen := make(map[string]types.VoteChoice)
	var raws []rawBalance
	for _, ci := range p.proposal.Issuers() {
		if ci.Issuer == "" {
			p.logger.Warn("Proposal has no issuer for choice", zap.String("choice", string(ci.Choice)))
			continue
		}
		pager := r.ledger.ClaimableBalances(horizon.BalanceQuery{Claimant: ci.Issuer})
		for pager.Next(ctx) {
			b := pager.Balance()
			if first, ok := seen[b.ID]; ok {
				p.report.Skipped++
				p.logger.Warn("Balance listed under several choices",
					zap.String("balance", b.ID),
					zap.String("kept", string(first)),
					zap.String("dropped", string(ci.Choice)))
				continue
			}
			seen[b.ID] = ci.Choice
			raws = append(raws, rawBalance{choice: ci.Choice, balance: b})
		}
		if err := pager.Err(); err != nil {
			return nil, fmt.Errorf("scan %s balances of proposal %d: %w", ci.Choice, p.proposal.ID, err)
		}
	}
	elapsed := time.Since(start)
	r.metrics.RecordScanTime(elapsed)
	p.report.Balances = len(raws)
	p.logger.Debug("Scanned ledger", zap.Int("balances", len(raws)),
		zap.Duration("TimeConsumed", elapsed), zap.String("Avg", r.metrics.GetScanTime()))
	return raws, nil
}

// group classifies balances and buckets them by key. Keys are returned in first-seen order.
func (r *Reconciler) group(p *pass, raws []rawBalance) ([]string, map[string][]*Candidate) {
	var keys []string
	groups := make(map[string][]*Candidate)
	for _, raw := range raws {
		c, err := r.parser.Classify(raw.balance, p.proposal, raw.choice)
		if err != nil {
			p.report.Skipped++
			p.logger.Warn("Balance is not a vote", zap.String("balance", raw.balance.ID), zap.Error(err))
			continue
		}
		if _, ok := groups[c.Key]; !ok {
			keys = append(keys, c.Key)
		}
		groups[c.Key] = append(groups[c.Key], c)
	}
	p.report.Groups = len(groups)
	return keys, groups
}

// assign binds one ranked candidate to a stored row: the active vote in its slot, else the
// active vote already backed by the same balance, else a new row.
func (r *Reconciler) assign(ctx context.Context, p *pass, c *Candidate, index int) error {
	slot := types.VoteSlot{Key: c.Key, GroupIndex: index}
	existing := p.bySlot[slot]
	if existing == nil || p.used[existing.ID] {
		existing = nil
		if v := p.byBalance[c.Balance.ID]; v != nil && !p.used[v.ID] && v.VoteChoice == c.Choice {
			existing = v
		}
	}

	if existing != nil {
		p.used[existing.ID] = true
		updated := r.parser.UpdatedVote(existing, c, index, p.freeze)
		if voteChanged(existing, updated) {
			p.changes.Update = append(p.changes.Update, updated)
		} else {
			p.report.Unchanged++
		}
		return nil
	}

	origin, err := r.origin(ctx, c)
	if err != nil {
		return err
	}
	p.changes.Create = append(p.changes.Create, r.parser.NewVote(p.proposal.ID, c, index, origin, p.freeze))
	return nil
}

// origin finds the creation operation of a balance. Balances Horizon no longer knows fall
// back to their current amount and last modification time.
func (r *Reconciler) origin(ctx context.Context, c *Candidate) (Origin, error) {
	ops, err := r.ledger.BalanceOperations(ctx, c.Balance.ID, r.cfg.OperationsLimit)
	switch {
	case errors.Is(err, horizon.ErrNotFound):
	case err != nil:
		return Origin{}, fmt.Errorf("load operations of balance %s: %w", c.Balance.ID, err)
	default:
		for _, op := range ops {
			if op.Type != types.OpCreateClaimableBalance || op.CreatedAt.IsZero() {
				continue
			}
			amount := op.Amount
			if amount.IsZero() {
				amount = c.Balance.Amount
			}
			return Origin{Amount: amount, CreatedAt: op.CreatedAt}, nil
		}
	}

	if c.Balance.LastModifiedTime == nil || c.Balance.LastModifiedTime.IsZero() {
		return Origin{}, fmt.Errorf("%w: balance %s", ErrNoOrigin, c.Balance.ID)
	}
	return Origin{Amount: c.Balance.Amount, CreatedAt: *c.Balance.LastModifiedTime}, nil
}
