package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aquagov/governance-backend/types"
)

// memoryDB keeps proposals and votes in process. Values are copied on the way in and out,
// so callers can never mutate stored rows behind the repository's back.
type memoryDB struct {
	logger *zap.Logger

	mu        sync.RWMutex
	votes     map[string]*types.Vote
	proposals map[uint64]*types.Proposal
}

func newMemoryDB(cfg Config) *memoryDB {
	return &memoryDB{
		logger:    cfg.Logger,
		votes:     make(map[string]*types.Vote),
		proposals: make(map[uint64]*types.Proposal),
	}
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

func cloneVote(v *types.Vote) *types.Vote {
	c := *v
	c.VotedAmount = cloneDecimal(v.VotedAmount)
	return &c
}

func cloneProposal(p *types.Proposal) *types.Proposal {
	c := *p
	return &c
}

func (m *memoryDB) Ping(ctx context.Context) error {
	return nil
}

func (m *memoryDB) dropDatabase(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.votes = make(map[string]*types.Vote)
	m.proposals = make(map[uint64]*types.Proposal)
	return nil
}

func matchVote(v *types.Vote, filter types.VotesFilter) bool {
	if filter.ProposalID != 0 && v.ProposalID != filter.ProposalID {
		return false
	}
	if filter.ClaimableBalanceID != "" && v.ClaimableBalanceID != filter.ClaimableBalanceID {
		return false
	}
	if filter.VoteChoice != "" && v.VoteChoice != filter.VoteChoice {
		return false
	}
	if filter.ActiveOnly && v.Retired {
		return false
	}
	return true
}

// sortVotes orders newest first, then by id.
func sortVotes(votes []*types.Vote) {
	sort.SliceStable(votes, func(i, j int) bool {
		if !votes[i].CreatedAt.Equal(votes[j].CreatedAt) {
			return votes[i].CreatedAt.After(votes[j].CreatedAt)
		}
		return votes[i].ID < votes[j].ID
	})
}

func (m *memoryDB) Votes(ctx context.Context, filter types.VotesFilter) ([]*types.Vote, uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var votes []*types.Vote
	for _, v := range m.votes {
		if matchVote(v, filter) {
			votes = append(votes, cloneVote(v))
		}
	}
	sortVotes(votes)
	total := uint64(len(votes))
	if filter.Pagination != nil {
		filter.Pagination.Sanitize()
		start := filter.Pagination.Skip
		if start > len(votes) {
			start = len(votes)
		}
		end := start + filter.Pagination.Limit
		if end > len(votes) {
			end = len(votes)
		}
		votes = votes[start:end]
	}
	return votes, total, nil
}

func (m *memoryDB) findOneVote(match func(v *types.Vote) bool) (*types.Vote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var found []*types.Vote
	for _, v := range m.votes {
		if match(v) {
			found = append(found, v)
		}
	}
	if len(found) == 0 {
		return nil, types.ErrVoteNotFound
	}
	sortVotes(found)
	return cloneVote(found[0]), nil
}

func (m *memoryDB) FindVote(ctx context.Context, proposalID uint64, slot types.VoteSlot) (*types.Vote, error) {
	return m.findOneVote(func(v *types.Vote) bool {
		return !v.Retired && v.ProposalID == proposalID && v.Slot() == slot
	})
}

func (m *memoryDB) FindActiveVoteByBalanceID(ctx context.Context, balanceID string) (*types.Vote, error) {
	return m.findOneVote(func(v *types.Vote) bool {
		return !v.Retired && v.ClaimableBalanceID == balanceID
	})
}

func (m *memoryDB) BulkCreateVotes(ctx context.Context, votes []*types.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids, err := m.createVotes(votes)
	if err != nil {
		return err
	}
	assignVoteIDs(votes, ids)
	return nil
}

// createVotes stores copies and returns their IDs. The caller's votes are not touched.
func (m *memoryDB) createVotes(votes []*types.Vote) ([]string, error) {
	clones := make([]*types.Vote, 0, len(votes))
	seen := make(map[string]struct{}, len(votes))
	for _, v := range votes {
		clone := cloneVote(v)
		if clone.ID == "" {
			clone.ID = newVoteID()
		}
		_, stored := m.votes[clone.ID]
		_, batched := seen[clone.ID]
		if stored || batched {
			return nil, fmt.Errorf("failed to create votes: duplicate id %s", clone.ID)
		}
		seen[clone.ID] = struct{}{}
		clones = append(clones, clone)
	}
	ids := make([]string, len(clones))
	for i, clone := range clones {
		m.votes[clone.ID] = clone
		ids[i] = clone.ID
	}
	return ids, nil
}

func (m *memoryDB) BulkUpdateVotes(ctx context.Context, votes []*types.Vote, fields []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateVotes(votes, fields)
}

func (m *memoryDB) updateVotes(votes []*types.Vote, fields []string) error {
	for _, v := range votes {
		if _, ok := m.votes[v.ID]; !ok {
			return fmt.Errorf("failed to update votes: %w: %s", types.ErrVoteNotFound, v.ID)
		}
	}
	for _, v := range votes {
		if err := copyVoteFields(m.votes[v.ID], v, fields); err != nil {
			return err
		}
	}
	return nil
}

// ApplyVoteChanges stages every write on a copy and swaps it in only when all succeed.
func (m *memoryDB) ApplyVoteChanges(ctx context.Context, proposalID uint64, changes *types.VoteChanges) error {
	if changes == nil || changes.Empty() {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	committed := m.votes
	staged := make(map[string]*types.Vote, len(committed)+len(changes.Create))
	for id, v := range committed {
		staged[id] = cloneVote(v)
	}
	m.votes = staged

	created, err := m.createVotes(changes.Create)
	if err == nil {
		err = m.updateVotes(changes.Update, types.UpdateFields)
	}
	if err == nil {
		err = m.updateVotes(changes.Retire, []string{types.FieldRetired})
	}
	if err != nil {
		m.votes = committed
		m.logger.Warn("Cannot apply vote changes", zap.Uint64("proposal", proposalID), zap.Error(err))
		return err
	}
	assignVoteIDs(changes.Create, created)
	return nil
}

func (m *memoryDB) Proposal(ctx context.Context, id uint64) (*types.Proposal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.proposals[id]
	if !ok {
		return nil, types.ErrProposalNotFound
	}
	return cloneProposal(p), nil
}

func matchProposal(p *types.Proposal, filter types.ProposalsFilter) bool {
	if len(filter.Statuses) > 0 {
		found := false
		for _, s := range filter.Statuses {
			if p.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !filter.ActiveAt.IsZero() && (p.StartAt.After(filter.ActiveAt) || p.EndAt.Before(filter.ActiveAt)) {
		return false
	}
	if !filter.EndBefore.IsZero() && p.EndAt.After(filter.EndBefore) {
		return false
	}
	if !filter.LastUpdatedBefore.IsZero() && !p.LastUpdatedAt.Before(filter.LastUpdatedBefore) {
		return false
	}
	return true
}

func (m *memoryDB) Proposals(ctx context.Context, filter types.ProposalsFilter) ([]*types.Proposal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var proposals []*types.Proposal
	for _, p := range m.proposals {
		if matchProposal(p, filter) {
			proposals = append(proposals, cloneProposal(p))
		}
	}
	sort.Slice(proposals, func(i, j int) bool { return proposals[i].ID < proposals[j].ID })
	return proposals, nil
}

func (m *memoryDB) UpsertProposal(ctx context.Context, proposal *types.Proposal) error {
	if proposal.LastUpdatedAt.IsZero() {
		proposal.LastUpdatedAt = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proposals[proposal.ID] = cloneProposal(proposal)
	return nil
}

func (m *memoryDB) UpdateProposalStatus(ctx context.Context, id uint64, from, to types.ProposalStatus) (bool, error) {
	if !from.CanTransition(to) {
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	p.LastUpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *memoryDB) UpdateProposalResults(ctx context.Context, id uint64, results *types.ProposalResults) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[id]
	if !ok {
		return types.ErrProposalNotFound
	}
	p.VoteForResult = results.VoteForResult
	p.VoteAgainstResult = results.VoteAgainstResult
	p.VoteAbstainResult = results.VoteAbstainResult
	p.ResultsUpdatedAt = results.UpdatedAt
	if results.AquaCirculatingSupply != nil {
		p.AquaCirculatingSupply = *results.AquaCirculatingSupply
	}
	if results.IceCirculatingSupply != nil {
		p.IceCirculatingSupply = *results.IceCirculatingSupply
	}
	return nil
}
