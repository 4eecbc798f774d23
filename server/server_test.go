package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquagov/governance-backend/api"
	"github.com/aquagov/governance-backend/cfg"
	"github.com/aquagov/governance-backend/types"
)

func testConfig() cfg.GovernanceConfig {
	return cfg.GovernanceConfig{
		HorizonURL:        cfg.DefaultHorizonURL,
		GovernanceAssets:  []types.Asset{{Code: cfg.AquaAssetCode, Issuer: cfg.AquaAssetIssuer}},
		StrictUnlockCheck: true,
		ReconcileWorkers:  2,
		CacheEngine:       "memory",
		HttpRequestSecret: "secret",
	}
}

func TestNew_InMemory(t *testing.T) {
	srv, err := New(testConfig(), nil, prometheus.NewRegistry())
	require.NoError(t, err)
	require.NotNil(t, srv.Governance)
	require.NotNil(t, srv.Cache)
	assert.NoError(t, srv.DB.Ping(context.Background()))

	e := api.NewEcho(srv.APIServer())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/proposals/1/reconcile", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNew_NoCache(t *testing.T) {
	c := testConfig()
	c.CacheEngine = ""
	srv, err := New(c, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, srv.Cache)
}

func TestNew_Errors(t *testing.T) {
	c := testConfig()
	c.CacheEngine = "memcached"
	_, err := New(c, nil, nil)
	assert.Error(t, err)

	c = testConfig()
	c.StorageDriver = "postgres"
	_, err = New(c, nil, nil)
	assert.Error(t, err)

	c = testConfig()
	c.HorizonURL = ""
	_, err = New(c, nil, nil)
	assert.Error(t, err)
}
