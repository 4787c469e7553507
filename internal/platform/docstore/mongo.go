package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Mongo stores each collection as a MongoDB collection with the domain key
// as _id.
type Mongo struct {
	db *mongo.Database
}

// NewMongo creates a Mongo backend over db.
func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{db: db}
}

// ConnectMongo dials uri, pings the primary and returns the named database.
func ConnectMongo(ctx context.Context, uri, database string, timeout time.Duration) (*mongo.Database, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri).SetConnectTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client.Database(database), nil
}

func (m *Mongo) Name() string { return "mongo" }

func (m *Mongo) Ping(ctx context.Context) error {
	return m.db.Client().Ping(ctx, nil)
}

func (m *Mongo) Get(ctx context.Context, collection, key string) (json.RawMessage, error) {
	var doc bson.M
	err := m.db.Collection(collection).FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, key, err)
	}
	return fromBSON(doc)
}

func (m *Mongo) Insert(ctx context.Context, collection, key string, doc json.RawMessage) error {
	d, err := toBSON(key, doc)
	if err != nil {
		return err
	}
	_, err = m.db.Collection(collection).InsertOne(ctx, d)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("insert %s/%s: %w", collection, key, err)
	}
	return nil
}

func (m *Mongo) Put(ctx context.Context, collection, key string, doc json.RawMessage) error {
	d, err := toBSON(key, doc)
	if err != nil {
		return err
	}
	_, err = m.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": key}, d, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, key, err)
	}
	return nil
}

func (m *Mongo) Delete(ctx context.Context, collection, key string) error {
	res, err := m.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, key, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) Find(ctx context.Context, collection string, filter Filter) ([]json.RawMessage, error) {
	query := bson.M{}
	for k, v := range filter {
		query[k] = v
	}
	cur, err := m.db.Collection(collection).Find(ctx, query, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}
	out := make([]json.RawMessage, 0, len(docs))
	for _, d := range docs {
		raw, err := fromBSON(d)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

func (m *Mongo) Truncate(ctx context.Context, collection string) error {
	if _, err := m.db.Collection(collection).DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("truncate %s: %w", collection, err)
	}
	return nil
}

// toBSON converts a JSON document to a BSON map keyed by _id.
func toBSON(key string, doc json.RawMessage) (bson.M, error) {
	var d bson.M
	if err := bson.UnmarshalExtJSON(doc, false, &d); err != nil {
		return nil, fmt.Errorf("convert %s to bson: %w", key, err)
	}
	d["_id"] = key
	return d, nil
}

// fromBSON drops _id and renders the document as relaxed extended JSON,
// which for the JSON-originated values stored here is plain JSON.
func fromBSON(d bson.M) (json.RawMessage, error) {
	delete(d, "_id")
	raw, err := bson.MarshalExtJSON(d, false, false)
	if err != nil {
		return nil, fmt.Errorf("convert bson to json: %w", err)
	}
	return raw, nil
}
