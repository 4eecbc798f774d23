// Package cache
package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/aquagov/governance-backend/types"
)

type Adapter string

const (
	RedisAdapter  Adapter = "redis"
	MemoryAdapter Adapter = "memory"
)

const (
	DefaultLockTTL   = 10 * time.Minute
	DefaultReportTTL = 7 * 24 * time.Hour
)

var ErrNotFound = errors.New("cache: key not found")

type Config struct {
	Adapter  Adapter
	URL      string
	DB       int
	Password string

	IsFlush bool

	LockTTL   time.Duration
	ReportTTL time.Duration

	Logger *zap.Logger
}

// ILock is a lease per proposal shared by every process using the same cache.
type ILock interface {
	// LockProposal reports false when another holder owns the lease. The returned token
	// must be passed to UnlockProposal.
	LockProposal(ctx context.Context, proposalID uint64) (token string, ok bool, err error)
	UnlockProposal(ctx context.Context, proposalID uint64, token string) error
	// RenewProposal extends the lease by LockTTL while it still holds token. It reports
	// false when the lease expired or was taken by another holder.
	RenewProposal(ctx context.Context, proposalID uint64, token string) (bool, error)
	LockTTL() time.Duration
}

type IReport interface {
	UpdateReconcileReport(ctx context.Context, report *types.ReconcileReport) error
	ReconcileReport(ctx context.Context, proposalID uint64) (*types.ReconcileReport, error)
}

type Client interface {
	Ping(ctx context.Context) error

	ILock
	IReport

	ServerStatus(ctx context.Context) (*types.ServerStatus, error)
	UpdateServerStatus(ctx context.Context, serverStatus *types.ServerStatus) error
}

func New(cfg Config) (Client, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultLockTTL
	}
	if cfg.ReportTTL <= 0 {
		cfg.ReportTTL = DefaultReportTTL
	}
	switch cfg.Adapter {
	case RedisAdapter:
		return newRedis(cfg)
	case MemoryAdapter:
		return newMemory(cfg), nil
	}
	return nil, errors.New("invalid cache config")
}

func newRedis(cfg Config) (*Redis, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.URL,
		DB:       cfg.DB,
		Password: cfg.Password,
	})

	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		return nil, err
	}
	if cfg.IsFlush {
		msg, err := redisClient.FlushDB(context.Background()).Result()
		if err != nil {
			return nil, err
		}
		if msg != "OK" {
			return nil, errors.New("cannot flush cache: " + msg)
		}
	}

	return &Redis{
		cfg:    cfg,
		client: redisClient,
		logger: cfg.Logger.With(zap.String("cache", "redis")),
	}, nil
}

func newLockToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
