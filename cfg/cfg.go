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
// Package cfg
package cfg

import (
	"os"
	"strconv"
	"time"

	"github.com/aquagov/governance-backend/governance"
	"github.com/aquagov/governance-backend/types"
	"github.com/aquagov/governance-backend/utils"
)

const ServerVersion = "1.0.0"

const (
	ModeDev        = "dev"
	ModeProduction = "prod"
)

const (
	DefaultHorizonURL         = "https://horizon.stellar.org"
	DefaultAquaCirculatingURL = "https://cmc.aqua.network/api/coins/?q=circulating"
	DefaultIceCirculatingURL  = "https://ice-distributor.aqua.network/api/ice-supply/"

	AquaAssetCode      = types.AquaAssetCode
	AquaAssetIssuer    = types.AquaAssetIssuer
	GovernIceAssetCode = types.GovernIceAssetCode
	GdIceAssetCode     = types.GdIceAssetCode
	IceAssetIssuer     = types.IceAssetIssuer
)

type GovernanceConfig struct {
	ServerMode        string
	Port              string
	HttpRequestSecret string
	SentryDSN         string
	MetricsPort       string

	LogLevel string

	HorizonURL             string
	HorizonTimeout         time.Duration
	HorizonMaxRetries      int
	HorizonPageSize        int
	HorizonOperationsLimit int

	GovernanceAssets  []types.Asset
	StrictUnlockCheck bool
	UnlockOffset      time.Duration
	UnlockTolerance   time.Duration

	AquaCirculatingURL string
	IceCirculatingURL  string
	SupplyTimeout      time.Duration

	CacheEngine   string
	CacheURL      string
	CacheDB       int
	CachePassword string
	CacheIsFlush  bool
	LockTTL       time.Duration

	StorageDriver          string
	StorageURI             string
	StorageDB              string
	StorageMinConn         int
	StorageMaxConn         int
	StorageIsFlush         bool
	StorageUseTransactions bool

	ReconcileWorkers  int
	ActiveInterval    time.Duration
	VotedInterval     time.Duration
	LifecycleInterval time.Duration
	ExpiredTime       time.Duration
}

func New() (GovernanceConfig, error) {
	horizonURL := os.Getenv("HORIZON_URL")
	if horizonURL == "" {
		horizonURL = DefaultHorizonURL
	}
	horizonTimeout, err := time.ParseDuration(os.Getenv("HORIZON_TIMEOUT"))
	if err != nil {
		horizonTimeout = 30 * time.Second
	}
	horizonMaxRetries, err := strconv.Atoi(os.Getenv("HORIZON_MAX_RETRIES"))
	if err != nil {
		horizonMaxRetries = 3
	}
	horizonPageSize, err := strconv.Atoi(os.Getenv("HORIZON_PAGE_SIZE"))
	if err != nil || horizonPageSize <= 0 {
		horizonPageSize = 200
	}
	horizonOperationsLimit, err := strconv.Atoi(os.Getenv("HORIZON_OPERATIONS_LIMIT"))
	if err != nil || horizonOperationsLimit <= 0 {
		horizonOperationsLimit = 50
	}

	assets, err := loadGovernanceAssets(os.Getenv("GOVERNANCE_ASSETS_FILE"), os.Getenv("GOVERNANCE_ASSETS"))
	if err != nil {
		return GovernanceConfig{}, err
	}

	strictUnlockCheck := utils.StrToBool(os.Getenv("STRICT_UNLOCK_CHECK"), true)
	unlockOffset, err := time.ParseDuration(os.Getenv("UNLOCK_OFFSET"))
	if err != nil {
		unlockOffset = time.Hour
	}
	unlockTolerance, err := time.ParseDuration(os.Getenv("UNLOCK_TOLERANCE"))
	if err != nil {
		unlockTolerance = time.Second
	}

	aquaCirculatingURL := os.Getenv("AQUA_CIRCULATING_URL")
	if aquaCirculatingURL == "" {
		aquaCirculatingURL = DefaultAquaCirculatingURL
	}
	iceCirculatingURL := os.Getenv("ICE_CIRCULATING_URL")
	if iceCirculatingURL == "" {
		iceCirculatingURL = DefaultIceCirculatingURL
	}
	supplyTimeout, err := time.ParseDuration(os.Getenv("SUPPLY_TIMEOUT"))
	if err != nil {
		supplyTimeout = 10 * time.Second
	}

	cacheDBStr := os.Getenv("CACHE_DB")
	cacheDB, err := strconv.Atoi(cacheDBStr)
	if err != nil {
		cacheDB = 0
	}
	cacheIsFlush := utils.StrToBool(os.Getenv("CACHE_IS_FLUSH"), false)
	lockTTL, err := time.ParseDuration(os.Getenv("LOCK_TTL"))
	if err != nil {
		lockTTL = 10 * time.Minute
	}

	storageMinConn, err := strconv.Atoi(os.Getenv("STORAGE_MIN_CONN"))
	if err != nil {
		storageMinConn = 8
	}
	storageMaxConn, err := strconv.Atoi(os.Getenv("STORAGE_MAX_CONN"))
	if err != nil {
		storageMaxConn = 32
	}
	storageIsFlush := utils.StrToBool(os.Getenv("STORAGE_IS_FLUSH"), false)
	storageUseTransactions := utils.StrToBool(os.Getenv("STORAGE_USE_TRANSACTIONS"), true)

	reconcileWorkers, err := strconv.Atoi(os.Getenv("RECONCILE_WORKERS"))
	if err != nil || reconcileWorkers <= 0 {
		reconcileWorkers = 4
	}
	activeInterval, err := time.ParseDuration(os.Getenv("ACTIVE_INTERVAL"))
	if err != nil {
		activeInterval = 5 * time.Minute
	}
	votedInterval, err := time.ParseDuration(os.Getenv("VOTED_INTERVAL"))
	if err != nil {
		votedInterval = time.Hour
	}
	lifecycleInterval, err := time.ParseDuration(os.Getenv("LIFECYCLE_INTERVAL"))
	if err != nil {
		lifecycleInterval = 30 * time.Second
	}
	expiredTime, err := time.ParseDuration(os.Getenv("EXPIRED_TIME"))
	if err != nil {
		expiredTime = 30 * 24 * time.Hour
	}

	cfg := GovernanceConfig{
		ServerMode:        os.Getenv("SERVER_MODE"),
		Port:              os.Getenv("PORT"),
		HttpRequestSecret: os.Getenv("HTTP_REQUEST_SECRET"),
		SentryDSN:         os.Getenv("SENTRY_DSN"),
		MetricsPort:       os.Getenv("METRICS_PORT"),
		LogLevel:          os.Getenv("LOG_LEVEL"),

		HorizonURL:             horizonURL,
		HorizonTimeout:         horizonTimeout,
		HorizonMaxRetries:      horizonMaxRetries,
		HorizonPageSize:        horizonPageSize,
		HorizonOperationsLimit: horizonOperationsLimit,

		GovernanceAssets:  assets,
		StrictUnlockCheck: strictUnlockCheck,
		UnlockOffset:      unlockOffset,
		UnlockTolerance:   unlockTolerance,

		AquaCirculatingURL: aquaCirculatingURL,
		IceCirculatingURL:  iceCirculatingURL,
		SupplyTimeout:      supplyTimeout,

		CacheEngine:   os.Getenv("CACHE_ENGINE"),
		CacheURL:      os.Getenv("CACHE_URI"),
		CacheDB:       cacheDB,
		CachePassword: os.Getenv("CACHE_PASSWORD"),
		CacheIsFlush:  cacheIsFlush,
		LockTTL:       lockTTL,

		StorageDriver:          os.Getenv("STORAGE_DRIVER"),
		StorageURI:             os.Getenv("STORAGE_URI"),
		StorageDB:              os.Getenv("STORAGE_DB"),
		StorageMinConn:         storageMinConn,
		StorageMaxConn:         storageMaxConn,
		StorageIsFlush:         storageIsFlush,
		StorageUseTransactions: storageUseTransactions,

		ReconcileWorkers:  reconcileWorkers,
		ActiveInterval:    activeInterval,
		VotedInterval:     votedInterval,
		LifecycleInterval: lifecycleInterval,
		ExpiredTime:       expiredTime,
	}

	return cfg, nil
}

// Reconcile projects the settings the governance service needs.
func (c GovernanceConfig) Reconcile() governance.Config {
	return governance.Config{
		Assets:            c.GovernanceAssets,
		StrictUnlockCheck: c.StrictUnlockCheck,
		UnlockOffset:      c.UnlockOffset,
		UnlockTolerance:   c.UnlockTolerance,
		OperationsLimit:   c.HorizonOperationsLimit,
		Workers:           c.ReconcileWorkers,
		ExpiredTime:       c.ExpiredTime,
	}
}
