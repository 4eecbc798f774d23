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
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MgoWrapper binds a database and one collection. C returns a new wrapper so concurrent
// reconciliation workers never share collection state.
type MgoWrapper struct {
	DB  *mongo.Database
	col *mongo.Collection
}

func (w *MgoWrapper) Database(db *mongo.Database) {
	w.DB = db
}

func (w *MgoWrapper) C(name string) *MgoWrapper {
	return &MgoWrapper{DB: w.DB, col: w.DB.Collection(name)}
}

func (w *MgoWrapper) EnsureIndex(ctx context.Context, model []mongo.IndexModel) error {
	var err error
	opts := options.CreateIndexes().SetMaxTime(5 * time.Second)
	if len(model) == 1 {
		_, err = w.col.Indexes().CreateOne(ctx, model[0], opts)
	} else if len(model) > 1 {
		_, err = w.col.Indexes().CreateMany(ctx, model, opts)
	}
	return err
}

func (w *MgoWrapper) Update(ctx context.Context, filter interface{}, update interface{},
	opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return w.col.UpdateOne(ctx, filter, update, opts...)
}

func (w *MgoWrapper) Upsert(ctx context.Context, filter interface{}, update interface{},
	opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	opts = append(opts, options.Update().SetUpsert(true))
	return w.col.UpdateOne(ctx, filter, bson.M{"$set": update}, opts...)
}

func (w *MgoWrapper) Find(ctx context.Context, filter interface{},
	opts ...*options.FindOptions) (*mongo.Cursor, error) {
	return w.col.Find(ctx, filter, opts...)
}

func (w *MgoWrapper) FindOne(ctx context.Context, filter interface{},
	opts ...*options.FindOneOptions) *mongo.SingleResult {
	return w.col.FindOne(ctx, filter, opts...)
}

func (w *MgoWrapper) BulkWrite(ctx context.Context, models []mongo.WriteModel,
	opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error) {
	opts = append(opts, options.BulkWrite().SetOrdered(true))
	return w.col.BulkWrite(ctx, models, opts...)
}

func (w *MgoWrapper) Count(ctx context.Context, filter interface{},
	opts ...*options.CountOptions) (int64, error) {
	return w.col.CountDocuments(ctx, filter, opts...)
}

func (w *MgoWrapper) FindSetSort(data string) *options.FindOptions {
	if data[0:1] == "-" {
		return options.Find().SetSort(bson.D{{Key: data[1:], Value: -1}})
	}
	return options.Find().SetSort(bson.D{{Key: data, Value: 1}})
}

func (w *MgoWrapper) FindOneSetSort(data string) *options.FindOneOptions {
	if data[0:1] == "-" {
		return options.FindOne().SetSort(bson.D{{Key: data[1:], Value: -1}})
	}
	return options.FindOne().SetSort(bson.D{{Key: data, Value: 1}})
}

func (w *MgoWrapper) DropDatabase(ctx context.Context) error {
	return w.DB.Drop(ctx)
}
