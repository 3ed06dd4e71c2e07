/*
 * Cherry - An OpenFlow Controller
 *
 * Copyright (C) 2015 Samjung Data Service, Inc. All rights reserved.
 * Kitae Kim <superkkt@sds.co.kr>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation; either version 2 of the License, or
 * any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License along
 * with this program; if not, write to the Free Software Foundation, Inc.,
 * 51 Franklin Street, Fifth Floor, Boston, MA 02110-1301 USA.
 */

package database

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/superkkt/netstate/document"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoTimeout = 10 * time.Second

// Mongo stores each switch document in a MongoDB collection and mutates it
// using the field update operators.
type Mongo struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewMongo(ctx context.Context) (*Mongo, error) {
	ctxConn, cancelConn := context.WithTimeout(ctx, mongoTimeout)
	defer cancelConn()

	opts := options.Client().ApplyURI(viper.GetString("mongo.uri")).SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	client, err := mongo.Connect(ctxConn, opts)
	if err != nil {
		return nil, err
	}

	ctxPing, cancelPing := context.WithTimeout(ctx, mongoTimeout)
	defer cancelPing()

	if err := client.Ping(ctxPing, nil); err != nil {
		_ = client.Disconnect(ctxConn)
		return nil, err
	}

	collection := client.Database(viper.GetString("mongo.database")).Collection(viper.GetString("mongo.collection"))
	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := collection.Indexes().CreateOne(ctxPing, index); err != nil {
		_ = client.Disconnect(ctxConn)
		return nil, errors.Wrap(err, "creating the switch name index")
	}

	return &Mongo{
		client:     client,
		collection: collection,
	}, nil
}

func (r *Mongo) NewID() DocumentID {
	return DocumentID(primitive.NewObjectID().Hex())
}

// Dump returns all the documents sorted by switch name.
func (r *Mongo) Dump(ctx context.Context) ([]Document, error) {
	cursor, err := r.collection.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	var rows []bson.M
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	result := make([]Document, 0, len(rows))
	for _, row := range rows {
		oid, ok := row["_id"].(primitive.ObjectID)
		if !ok {
			return nil, fmt.Errorf("document ID is not an object ID: %v", row["_id"])
		}
		delete(row, "_id")
		record, err := decodeRecord(fromBSON(row))
		if err != nil {
			return nil, errors.Wrapf(err, "decoding document %v", oid.Hex())
		}
		result = append(result, Document{ID: DocumentID(oid.Hex()), Record: record})
	}

	return result, nil
}

// Apply submits the mutations as a bulk write. The mutations of a document
// depend on their order, so the write is ordered and resumed after a failed
// mutation until every mutation has been attempted. The failures are returned
// as a *BulkError.
func (r *Mongo) Apply(ctx context.Context, mutations []Mutation) error {
	models, failed := writeModels(mutations)
	if len(models) == 0 {
		if len(failed) > 0 {
			return &BulkError{Errors: failed, Attempted: len(mutations)}
		}
		return nil
	}

	opts := options.BulkWrite().SetOrdered(true)
	for start := 0; start < len(models); {
		result, err := r.collection.BulkWrite(ctx, models[start:], opts)
		if err == nil {
			logger.Debugf("bulk write: inserted=%v, modified=%v, deleted=%v", result.InsertedCount, result.ModifiedCount, result.DeletedCount)
			break
		}

		var e mongo.BulkWriteException
		if !errors.As(err, &e) || len(e.WriteErrors) == 0 {
			// Not a per-mutation failure, e.g., a connection error.
			return err
		}
		w := e.WriteErrors[0]
		failed = append(failed, fmt.Errorf("mutation #%v: %v", start+w.Index, w.Message))
		start += w.Index + 1
	}
	if len(failed) > 0 {
		return &BulkError{Errors: failed, Attempted: len(mutations)}
	}

	return nil
}

// writeModels converts the mutations into the bulk write models. A mutation
// that cannot be expressed is returned as an error instead of a model.
func writeModels(mutations []Mutation) (models []mongo.WriteModel, failed []error) {
	for _, v := range mutations {
		m, err := writeModel(v)
		if err != nil {
			failed = append(failed, fmt.Errorf("%v: %v", v, err))
			continue
		}
		models = append(models, m)
	}

	return models, failed
}

func writeModel(m Mutation) (mongo.WriteModel, error) {
	oid, err := primitive.ObjectIDFromHex(string(m.ID))
	if err != nil {
		return nil, err
	}
	filter := bson.M{"_id": oid}

	switch m.Op {
	case OpInsert:
		tree, err := document.NormalizeMap(m.Value)
		if err != nil {
			return nil, err
		}
		doc := bson.M{"_id": oid}
		for k, v := range tree {
			doc[k] = toBSON(v)
		}
		return mongo.NewInsertOneModel().SetDocument(doc), nil

	case OpDelete:
		return mongo.NewDeleteOneModel().SetFilter(filter), nil

	case OpSet, OpUnset, OpAppend:
		field, err := fieldPath(m.Path)
		if err != nil {
			return nil, err
		}
		var update bson.M
		switch m.Op {
		case OpSet:
			update = bson.M{"$set": bson.M{field: toBSON(m.Value)}}
		case OpUnset:
			update = bson.M{"$unset": bson.M{field: ""}}
		default:
			update = bson.M{"$push": bson.M{field: toBSON(m.Value)}}
		}
		return mongo.NewUpdateOneModel().SetFilter(filter).SetUpdate(update), nil

	case OpPull:
		if _, ok := m.Path.Last().(document.Index); !ok {
			return nil, errors.New("pulling a list element without an index")
		}
		field, err := fieldPath(m.Path.Parent())
		if err != nil {
			return nil, err
		}
		// List elements are only removed from the end of a list, from the
		// highest index, so that removing the last element is same as
		// removing the element at the index.
		return mongo.NewUpdateOneModel().SetFilter(filter).SetUpdate(bson.M{"$pop": bson.M{field: 1}}), nil

	default:
		return nil, fmt.Errorf("unexpected mutation operation: %v", m.Op)
	}
}

// toBSON returns a copy of a tree whose integers above the int64 range, which
// BSON cannot hold, are replaced with Decimal128 values.
func toBSON(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, e := range t {
			m[k] = toBSON(e)
		}
		return m
	case []interface{}:
		l := make([]interface{}, len(t))
		for i, e := range t {
			l[i] = toBSON(e)
		}
		return l
	case uint64:
		if t <= math.MaxInt64 {
			return int64(t)
		}
		d, ok := primitive.ParseDecimal128FromBigInt(new(big.Int).SetUint64(t), 0)
		if !ok {
			return v
		}
		return d
	default:
		return v
	}
}

// fromBSON reverts toBSON on a decoded document.
func fromBSON(v interface{}) interface{} {
	switch t := v.(type) {
	case primitive.M:
		for k, e := range t {
			t[k] = fromBSON(e)
		}
		return t
	case map[string]interface{}:
		for k, e := range t {
			t[k] = fromBSON(e)
		}
		return t
	case primitive.A:
		for i, e := range t {
			t[i] = fromBSON(e)
		}
		return t
	case []interface{}:
		for i, e := range t {
			t[i] = fromBSON(e)
		}
		return t
	case primitive.Decimal128:
		i, exp, err := t.BigInt()
		if err != nil || exp != 0 || !i.IsUint64() {
			return v
		}
		return i.Uint64()
	default:
		return v
	}
}

// fieldPath returns the dot notation of p, e.g., connectedHosts.s1-eth1.ipv4.0
func fieldPath(p document.Path) (string, error) {
	if len(p) == 0 {
		return "", errors.New("empty field path")
	}
	for _, v := range p {
		k, ok := v.(document.Key)
		if !ok {
			continue
		}
		if len(k) == 0 || strings.Contains(string(k), ".") || strings.HasPrefix(string(k), "$") {
			return "", fmt.Errorf("invalid field name: %q", string(k))
		}
	}

	return p.String(), nil
}

// Drop removes all the documents.
func (r *Mongo) Drop(ctx context.Context) error {
	_, err := r.collection.DeleteMany(ctx, bson.D{})
	return err
}

func (r *Mongo) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *Mongo) String() string {
	return "mongo"
}
