// Package cache
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/aquagov/governance-backend/types"
)

const (
	KeyProposalLock   = "#proposal#%d#lock"
	KeyProposalReport = "#proposal#%d#report"

	KeyServerStatus = "#server#status"
)

// unlockScript deletes the lock only while it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the lock only while it still holds our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

type Redis struct {
	cfg    Config
	client *redis.Client

	logger *zap.Logger
}

func (c *Redis) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Redis) LockProposal(ctx context.Context, proposalID uint64) (string, bool, error) {
	token, err := newLockToken()
	if err != nil {
		return "", false, err
	}
	ok, err := c.client.SetNX(ctx, fmt.Sprintf(KeyProposalLock, proposalID), token, c.cfg.LockTTL).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (c *Redis) UnlockProposal(ctx context.Context, proposalID uint64, token string) error {
	deleted, err := unlockScript.Run(ctx, c.client, []string{fmt.Sprintf(KeyProposalLock, proposalID)}, token).Int()
	if err != nil {
		return err
	}
	if deleted == 0 {
		c.logger.Warn("Proposal lock expired before release", zap.Uint64("proposal", proposalID))
	}
	return nil
}

func (c *Redis) RenewProposal(ctx context.Context, proposalID uint64, token string) (bool, error) {
	key := fmt.Sprintf(KeyProposalLock, proposalID)
	renewed, err := renewScript.Run(ctx, c.client, []string{key}, token, c.cfg.LockTTL.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return renewed == 1, nil
}

func (c *Redis) LockTTL() time.Duration {
	return c.cfg.LockTTL
}

func (c *Redis) UpdateReconcileReport(ctx context.Context, report *types.ReconcileReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, fmt.Sprintf(KeyProposalReport, report.ProposalID), string(data), c.cfg.ReportTTL).Err()
}

func (c *Redis) ReconcileReport(ctx context.Context, proposalID uint64) (*types.ReconcileReport, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf(KeyProposalReport, proposalID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var report types.ReconcileReport
	if err := json.Unmarshal([]byte(data), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Redis) ServerStatus(ctx context.Context) (*types.ServerStatus, error) {
	data, err := c.client.Get(ctx, KeyServerStatus).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var status types.ServerStatus
	if err := json.Unmarshal([]byte(data), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Redis) UpdateServerStatus(ctx context.Context, serverStatus *types.ServerStatus) error {
	data, err := json.Marshal(serverStatus)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, KeyServerStatus, string(data), 0).Err()
}
