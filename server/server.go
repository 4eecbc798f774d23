/*
 *  Copyright 2018 KardiaChain
 *  This file is part of the go-kardia library.
 *
 *  The go-kardia library is free software: you can redistribute it and/or modify
 *  it under the terms of the GNU Lesser General Public License as published by
 *  the Free Software Foundation, either version 3 of the License, or
 *  (at your option) any later version.
 *
 *  The go-kardia library is distributed in the hope that it will be useful,
 *  but WITHOUT ANY WARRANTY; without even the implied warranty of
 *  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 *  GNU Lesser General Public License for more details.
 *
 *  You should have received a copy of the GNU Lesser General Public License
 *  along with the go-kardia library. If not, see <http://www.gnu.org/licenses/>.
 */
// Package server
package server

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/aquagov/governance-backend/api"
	"github.com/aquagov/governance-backend/cache"
	"github.com/aquagov/governance-backend/cfg"
	"github.com/aquagov/governance-backend/db"
	"github.com/aquagov/governance-backend/external"
	"github.com/aquagov/governance-backend/governance"
	"github.com/aquagov/governance-backend/horizon"
	"github.com/aquagov/governance-backend/metrics"
)

// Server holds the clients shared by the binaries. It is wired once from the service config.
type Server struct {
	Logger *zap.Logger

	DB         db.Client
	Cache      cache.Client
	Governance *governance.Service

	metrics *metrics.Provider
	secret  string
}

// New connects storage and cache and builds the governance service. An empty storage
// driver falls back to the in-memory store; an empty cache engine disables the cache.
func New(serviceCfg cfg.GovernanceConfig, logger *zap.Logger, reg prometheus.Registerer) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("Create new server instance",
		zap.String("horizon", serviceCfg.HorizonURL),
		zap.String("storage", serviceCfg.StorageDriver),
		zap.String("cache", serviceCfg.CacheEngine))

	storageAdapter := db.Adapter(serviceCfg.StorageDriver)
	if storageAdapter == "" {
		logger.Warn("No storage driver set, votes are kept in memory")
		storageAdapter = db.Memory
	}
	dbClient, err := db.NewClient(db.Config{
		DbAdapter:       storageAdapter,
		DbName:          serviceCfg.StorageDB,
		URL:             serviceCfg.StorageURI,
		MinConn:         serviceCfg.StorageMinConn,
		MaxConn:         serviceCfg.StorageMaxConn,
		FlushDB:         serviceCfg.StorageIsFlush,
		UseTransactions: serviceCfg.StorageUseTransactions,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create storage client: %w", err)
	}

	var cacheClient cache.Client
	if serviceCfg.CacheEngine != "" {
		cacheClient, err = cache.New(cache.Config{
			Adapter:  cache.Adapter(serviceCfg.CacheEngine),
			URL:      serviceCfg.CacheURL,
			DB:       serviceCfg.CacheDB,
			Password: serviceCfg.CachePassword,
			IsFlush:  serviceCfg.CacheIsFlush,
			LockTTL:  serviceCfg.LockTTL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("cannot create cache client: %w", err)
		}
	}

	ledger, err := horizon.NewClient(horizon.Config{
		URL:        serviceCfg.HorizonURL,
		PageSize:   serviceCfg.HorizonPageSize,
		Timeout:    serviceCfg.HorizonTimeout,
		MaxRetries: serviceCfg.HorizonMaxRetries,
		Logger:     logger.With(zap.String("client", "horizon")),
	})
	if err != nil {
		return nil, err
	}
	supply := external.NewSupplyFeed(external.SupplyConfig{
		AquaCirculatingURL: serviceCfg.AquaCirculatingURL,
		IceCirculatingURL:  serviceCfg.IceCirculatingURL,
		Timeout:            serviceCfg.SupplyTimeout,
		Logger:             logger.With(zap.String("client", "supply")),
	})

	m := metrics.New(reg)
	deps := governance.Deps{
		DB:      dbClient,
		Ledger:  ledger,
		Supply:  supply,
		Metrics: m,
		Logger:  logger,
	}
	if cacheClient != nil {
		deps.Cache = cacheClient
	}

	return &Server{
		Logger:     logger,
		DB:         dbClient,
		Cache:      cacheClient,
		Governance: governance.NewService(serviceCfg.Reconcile(), deps),
		metrics:    m,
		secret:     serviceCfg.HttpRequestSecret,
	}, nil
}

func (s *Server) Metrics() *metrics.Provider {
	return s.metrics
}

// APIServer builds the REST handlers on top of the shared clients.
func (s *Server) APIServer() *api.Server {
	srv := api.NewServer().
		SetSecret(s.secret).
		SetLogger(s.Logger.With(zap.String("service", "api"))).
		SetStorage(s.DB).
		SetGovernance(s.Governance)
	if s.Cache != nil {
		srv.SetCache(s.Cache)
	}
	return srv
}
