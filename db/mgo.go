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
// Package db
package db

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const (
	cVotes     = "Votes"
	cProposals = "Proposals"
)

type mongoDB struct {
	logger          *zap.Logger
	wrapper         *MgoWrapper
	client          *mongo.Client
	useTransactions bool
}

func newMongoDB(cfg Config) (*mongoDB, error) {
	ctx := context.Background()
	dbClient := &mongoDB{
		logger:          cfg.Logger,
		wrapper:         &MgoWrapper{},
		useTransactions: cfg.UseTransactions,
	}
	mgoOptions := options.Client()
	mgoOptions.ApplyURI(cfg.URL)
	mgoOptions.SetMinPoolSize(uint64(cfg.MinConn))
	mgoOptions.SetMaxPoolSize(uint64(cfg.MaxConn))
	mgoOptions.SetRegistry(newRegistry())
	mgoClient, err := mongo.NewClient(mgoOptions)
	if err != nil {
		return nil, err
	}

	if err := mgoClient.Connect(ctx); err != nil {
		return nil, err
	}
	dbClient.client = mgoClient
	dbClient.wrapper.Database(mgoClient.Database(cfg.DbName))

	if cfg.FlushDB {
		cfg.Logger.Info("Start flush database")
		if err := dbClient.wrapper.DropDatabase(ctx); err != nil {
			return nil, err
		}
	}
	if err := createIndexes(ctx, dbClient); err != nil {
		cfg.Logger.Warn("Cannot create indexes", zap.Error(err))
	}

	return dbClient, nil
}

func createIndexes(ctx context.Context, dbClient *mongoDB) error {
	type CIndex struct {
		c     string
		model []mongo.IndexModel
	}

	indexes := []CIndex{
		{c: cProposals, model: []mongo.IndexModel{{Keys: bson.M{"id": -1}, Options: options.Index().SetUnique(true)}}},
		{c: cProposals, model: []mongo.IndexModel{{Keys: bson.D{{Key: "proposalStatus", Value: 1}, {Key: "endAt", Value: 1}}}}},
		// Slot lookups. Uniqueness among active votes is kept by the reconciler, not the index,
		// because one pass may move two rows across each other's slots.
		{c: cVotes, model: []mongo.IndexModel{{Keys: bson.D{{Key: "proposalId", Value: 1}, {Key: "key", Value: 1}, {Key: "groupIndex", Value: 1}}}}},
		{c: cVotes, model: []mongo.IndexModel{{Keys: bson.D{{Key: "claimableBalanceId", Value: 1}, {Key: "retired", Value: 1}}}}},
		{c: cVotes, model: []mongo.IndexModel{{Keys: bson.D{{Key: "proposalId", Value: 1}, {Key: "createdAt", Value: -1}}}}},
	}
	for _, cIdx := range indexes {
		if err := dbClient.wrapper.C(cIdx.c).EnsureIndex(ctx, cIdx.model); err != nil {
			return err
		}
	}
	return nil
}

func (m *mongoDB) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *mongoDB) dropDatabase(ctx context.Context) error {
	return m.wrapper.DropDatabase(ctx)
}

// inTransaction runs fn inside a multi-document transaction when transactions are enabled.
// Standalone servers do not support them, so it can be switched off.
func (m *mongoDB) inTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !m.useTransactions {
		return fn(ctx)
	}
	return m.client.UseSession(ctx, func(sc mongo.SessionContext) error {
		_, err := sc.WithTransaction(sc, func(txCtx mongo.SessionContext) (interface{}, error) {
			return nil, fn(txCtx)
		})
		return err
	})
}
