package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aquagov/governance-backend/types"
)

type lease struct {
	token   string
	expires time.Time
}

// Memory serves single process deployments and tests.
type Memory struct {
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	locks   map[uint64]lease
	reports map[uint64]types.ReconcileReport
	status  *types.ServerStatus
}

func newMemory(cfg Config) *Memory {
	return &Memory{
		cfg:     cfg,
		logger:  cfg.Logger.With(zap.String("cache", "memory")),
		now:     time.Now,
		locks:   make(map[uint64]lease),
		reports: make(map[uint64]types.ReconcileReport),
	}
}

func (m *Memory) Ping(ctx context.Context) error {
	return nil
}

func (m *Memory) LockProposal(ctx context.Context, proposalID uint64) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if l, ok := m.locks[proposalID]; ok && now.Before(l.expires) {
		return "", false, nil
	}
	token, err := newLockToken()
	if err != nil {
		return "", false, err
	}
	m.locks[proposalID] = lease{token: token, expires: now.Add(m.cfg.LockTTL)}
	return token, true, nil
}

func (m *Memory) UnlockProposal(ctx context.Context, proposalID uint64, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.locks[proposalID]; ok && l.token == token {
		delete(m.locks, proposalID)
		return nil
	}
	m.logger.Warn("Proposal lock expired before release", zap.Uint64("proposal", proposalID))
	return nil
}

func (m *Memory) RenewProposal(ctx context.Context, proposalID uint64, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	l, ok := m.locks[proposalID]
	if !ok || l.token != token || !now.Before(l.expires) {
		return false, nil
	}
	l.expires = now.Add(m.cfg.LockTTL)
	m.locks[proposalID] = l
	return true, nil
}

func (m *Memory) LockTTL() time.Duration {
	return m.cfg.LockTTL
}

func (m *Memory) UpdateReconcileReport(ctx context.Context, report *types.ReconcileReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[report.ProposalID] = *report
	return nil
}

func (m *Memory) ReconcileReport(ctx context.Context, proposalID uint64) (*types.ReconcileReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	report, ok := m.reports[proposalID]
	if !ok {
		return nil, ErrNotFound
	}
	return &report, nil
}

func (m *Memory) ServerStatus(ctx context.Context) (*types.ServerStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == nil {
		return nil, ErrNotFound
	}
	status := *m.status
	return &status, nil
}

func (m *Memory) UpdateServerStatus(ctx context.Context, serverStatus *types.ServerStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := *serverStatus
	m.status = &status
	return nil
}
