package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"go.uber.org/zap"
	"gotest.tools/assert"
)

// setupMGO starts a throwaway MongoDB container. Tests are skipped when docker is missing.
func setupMGO(t *testing.T) *mongoDB {
	if testing.Short() {
		t.Skip("skipping mongo integration test in short mode")
	}
	lgr, err := zap.NewDevelopment()
	assert.NilError(t, err)

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("could not connect to docker: %v", err)
	}
	if _, err := pool.Client.Info(); err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	res, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mongo",
		Tag:        "4.4",
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Skipf("could not start mongo: %v", err)
	}
	t.Cleanup(func() {
		_ = pool.Purge(res)
	})
	assert.NilError(t, res.Expire(120))

	var mgo *mongoDB
	pool.MaxWait = time.Minute
	err = pool.Retry(func() error {
		cfg := Config{
			DbAdapter: MGO,
			URL:       fmt.Sprintf("mongodb://localhost:%s", res.GetPort("27017/tcp")),
			DbName:    "governance",
			MinConn:   1,
			MaxConn:   4,
			// Standalone mongod has no transactions.
			UseTransactions: false,
			Logger:          lgr,
		}
		var err error
		mgo, err = newMongoDB(cfg)
		if err != nil {
			return err
		}
		return mgo.Ping(context.Background())
	})
	assert.NilError(t, err)
	return mgo
}

func TestMGO_Votes(t *testing.T) {
	mgo := setupMGO(t)
	runVoteRepositoryTests(t, mgo)
	assert.NilError(t, mgo.dropDatabase(context.Background()))
}

func TestMGO_Proposals(t *testing.T) {
	mgo := setupMGO(t)
	runProposalRepositoryTests(t, mgo)
}
