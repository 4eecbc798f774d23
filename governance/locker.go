package governance

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aquagov/governance-backend/cache"
)

var (
	ErrProposalBusy = errors.New("proposal is being reconciled")
	ErrLeaseLost    = errors.New("proposal lease lost during reconciliation")
)

const unlockTimeout = 5 * time.Second

// Locker keeps one reconciliation per proposal. The in-process set covers goroutines of
// this process; the optional cache lease covers other processes.
type Locker struct {
	mu     sync.Mutex
	held   map[uint64]struct{}
	shared cache.ILock
	ttl    time.Duration
	logger *zap.Logger
}

func NewLocker(shared cache.ILock, lgr *zap.Logger) *Locker {
	if lgr == nil {
		lgr = zap.NewNop()
	}
	ttl := cache.DefaultLockTTL
	if shared != nil && shared.LockTTL() > 0 {
		ttl = shared.LockTTL()
	}
	return &Locker{
		held:   make(map[uint64]struct{}),
		shared: shared,
		ttl:    ttl,
		logger: lgr,
	}
}

// passTimeout keeps a pass inside one lease period even if renewals stall.
func (l *Locker) passTimeout() time.Duration {
	return l.ttl - l.ttl/10
}

// TryLock returns ErrProposalBusy instead of waiting when the proposal is held. The
// returned context bounds the pass: it times out before the lease TTL and is cancelled
// with ErrLeaseLost when the shared lease cannot be renewed. unlock must always be called.
func (l *Locker) TryLock(ctx context.Context, proposalID uint64) (passCtx context.Context, unlock func(), err error) {
	l.mu.Lock()
	if _, ok := l.held[proposalID]; ok {
		l.mu.Unlock()
		return nil, nil, ErrProposalBusy
	}
	l.held[proposalID] = struct{}{}
	l.mu.Unlock()

	release := func() {
		l.mu.Lock()
		delete(l.held, proposalID)
		l.mu.Unlock()
	}

	var token string
	if l.shared != nil {
		var ok bool
		token, ok, err = l.shared.LockProposal(ctx, proposalID)
		if err != nil {
			release()
			return nil, nil, err
		}
		if !ok {
			release()
			return nil, nil, ErrProposalBusy
		}
	}

	leaseCtx, lose := context.WithCancelCause(ctx)
	passCtx, cancelPass := context.WithTimeout(leaseCtx, l.passTimeout())

	stop := make(chan struct{})
	stopped := make(chan struct{})
	if l.shared != nil {
		go l.keepAlive(proposalID, token, lose, stop, stopped)
	} else {
		close(stopped)
	}

	var once sync.Once
	return passCtx, func() {
		once.Do(func() {
			close(stop)
			<-stopped
			cancelPass()
			lose(nil)
			if l.shared != nil {
				// The caller's context may already be done.
				unlockCtx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
				defer cancel()
				if err := l.shared.UnlockProposal(unlockCtx, proposalID, token); err != nil {
					l.logger.Warn("Cannot release proposal lock", zap.Uint64("proposal", proposalID), zap.Error(err))
				}
			}
			release()
		})
	}, nil
}

// keepAlive renews the lease every third of its TTL until stop is closed. The lease stays
// held while the pass unwinds, so it runs until unlock even after the pass is cancelled.
func (l *Locker) keepAlive(proposalID uint64, token string, lose context.CancelCauseFunc, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	interval := l.ttl / 3
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			renewed, err := l.shared.RenewProposal(ctx, proposalID, token)
			cancel()
			if err != nil || !renewed {
				l.logger.Error("Proposal lease lost, aborting pass", zap.Uint64("proposal", proposalID), zap.Error(err))
				lose(ErrLeaseLost)
				return
			}
		}
	}
}
