package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BSON dates carry millisecond precision.
const mongoPrecision = time.Millisecond

// MongoGateway serves collections from a MongoDB database. Documents use
// _id as their key; every other field name is stored as given.
type MongoGateway struct {
	db   *mongo.Database
	feed Feed
}

func NewMongo(db *mongo.Database, feed Feed) *MongoGateway {
	if feed == nil {
		feed = NewLocalFeed()
	}
	return &MongoGateway{db: db, feed: feed}
}

func (g *MongoGateway) Changes() Feed { return g.feed }

func mongoField(name string) string {
	if name == idColumn {
		return "_id"
	}
	return name
}

func (g *MongoGateway) Find(ctx context.Context, q Query, dest any) error {
	if err := q.Validate(); err != nil {
		return err
	}

	conds := bson.A{}
	for _, f := range q.Filters {
		cond, err := mongoCondition(f)
		if err != nil {
			return err
		}
		conds = append(conds, cond)
	}

	opts := options.Find()
	if q.OrderBy != "" {
		order := mongoField(q.OrderBy)
		dir, cmp := 1, "$gt"
		if q.Descending {
			dir, cmp = -1, "$lt"
		}
		if q.After != nil {
			after := normalizeTime(q.After.Value, mongoPrecision)
			conds = append(conds, bson.M{"$or": bson.A{
				bson.M{order: bson.M{cmp: after}},
				bson.M{order: after, "_id": bson.M{cmp: q.After.ID}},
			}})
		}
		opts.SetSort(bson.D{{Key: order, Value: dir}, {Key: "_id", Value: dir}})
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	filter := bson.M{}
	if len(conds) > 0 {
		filter = bson.M{"$and": conds}
	}

	cur, err := g.db.Collection(q.Collection).Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("query %s: %w", q.Collection, err)
	}
	if err := cur.All(ctx, dest); err != nil {
		return fmt.Errorf("query %s: %w", q.Collection, err)
	}
	normalizeTimes(dest, mongoPrecision)
	return nil
}

func mongoCondition(f Filter) (bson.M, error) {
	key := mongoField(f.Field)
	value := f.Value
	if t, ok := value.(time.Time); ok {
		value = normalizeTime(t, mongoPrecision)
	}

	switch f.Op {
	case OpEq, OpArrayContains:
		// A scalar equality match on an array field is a membership test.
		return bson.M{key: value}, nil
	case OpGt:
		return bson.M{key: bson.M{"$gt": value}}, nil
	case OpGte:
		return bson.M{key: bson.M{"$gte": value}}, nil
	case OpLt:
		return bson.M{key: bson.M{"$lt": value}}, nil
	case OpLte:
		return bson.M{key: bson.M{"$lte": value}}, nil
	}
	return nil, fmt.Errorf("%w: operator %q", ErrInvalidQuery, f.Op)
}

func (g *MongoGateway) Get(ctx context.Context, collection, id string, dest any) error {
	err := g.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(dest)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	normalizeTimes(dest, mongoPrecision)
	return nil
}

// Create inserts doc, which must be a pointer to a model.
func (g *MongoGateway) Create(ctx context.Context, collection string, doc Document) error {
	normalizeTimes(doc, mongoPrecision)
	if _, err := g.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("create %s: %w", collection, err)
	}
	g.feed.Publish(ctx, collection)
	return nil
}

func (g *MongoGateway) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return g.update(ctx, collection, bson.M{"_id": id}, false, fields, nil)
}

func (g *MongoGateway) UpdateIf(ctx context.Context, collection, id string, version int64, fields map[string]any) error {
	fields = copyFields(fields)
	fields["version"] = version + 1
	return g.update(ctx, collection, bson.M{"_id": id, "version": version}, true, fields, nil)
}

func (g *MongoGateway) Increment(ctx context.Context, collection, id, field string, delta int, fields map[string]any) error {
	if err := validateField(field); err != nil {
		return err
	}
	return g.update(ctx, collection, bson.M{"_id": id}, false, fields, bson.M{field: delta})
}

func (g *MongoGateway) update(ctx context.Context, collection string, filter bson.M, conditional bool, fields map[string]any, inc bson.M) error {
	fields = copyFields(fields)
	set := bson.M{}
	for k, v := range fields {
		if err := validateField(k); err != nil {
			return err
		}
		set[mongoField(k)] = v
	}
	normalizeFields(set, mongoPrecision)

	change := bson.M{}
	if len(set) > 0 {
		change["$set"] = set
	}
	if len(inc) > 0 {
		change["$inc"] = inc
	}

	coll := g.db.Collection(collection)
	res, err := coll.UpdateOne(ctx, filter, change)
	if err != nil {
		return fmt.Errorf("update %s/%v: %w", collection, filter["_id"], err)
	}
	if res.MatchedCount == 0 {
		if !conditional {
			return ErrNotFound
		}
		n, err := coll.CountDocuments(ctx, bson.M{"_id": filter["_id"]})
		if err != nil {
			return fmt.Errorf("update %s/%v: %w", collection, filter["_id"], err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrConflict
	}

	g.feed.Publish(ctx, collection)
	return nil
}

func (g *MongoGateway) Delete(ctx context.Context, collection, id string) error {
	res, err := g.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	g.feed.Publish(ctx, collection)
	return nil
}

func (g *MongoGateway) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.db.Client().Disconnect(ctx)
}
