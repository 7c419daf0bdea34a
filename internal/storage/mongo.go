package storage

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStorage keeps each collection as a MongoDB collection. Document ids
// become _id; indexed fields get a secondary index.
type MongoStorage struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoStorage(ctx context.Context, uri, database string) (*MongoStorage, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("error connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("error pinging mongo: %w", err)
	}
	return &MongoStorage{client: client, db: client.Database(database)}, nil
}

func (s *MongoStorage) Collection(ctx context.Context, name string, indexed ...string) (Collection, error) {
	coll := s.db.Collection(name)
	if len(indexed) > 0 {
		models := make([]mongo.IndexModel, 0, len(indexed))
		for _, field := range indexed {
			models = append(models, mongo.IndexModel{Keys: bson.D{{Key: field, Value: 1}}})
		}
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return nil, fmt.Errorf("error creating indexes on %s: %w", name, err)
		}
	}
	return &mongoCollection{coll: coll}, nil
}

func (s *MongoStorage) Close() error {
	return s.client.Disconnect(context.Background())
}

type mongoCollection struct {
	coll *mongo.Collection
}

// toBSON converts a JSON document into BSON with id as _id.
func toBSON(id string, doc []byte) (bson.D, error) {
	var d bson.D
	if err := bson.UnmarshalExtJSON(doc, false, &d); err != nil {
		return nil, fmt.Errorf("error converting document %s: %w", id, err)
	}
	out := bson.D{{Key: FieldID, Value: id}}
	for _, e := range d {
		if e.Key != FieldID {
			out = append(out, e)
		}
	}
	return out, nil
}

func fromBSON(raw bson.Raw) ([]byte, error) {
	doc, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, fmt.Errorf("error converting document: %w", err)
	}
	return doc, nil
}

func mongoFilter(filter Filter) bson.M {
	if filter.Field == "" {
		return bson.M{}
	}
	return bson.M{filter.Field: bson.M{"$in": filter.Values}}
}

func (c *mongoCollection) InsertOne(ctx context.Context, id string, doc []byte) error {
	d, err := toBSON(id, doc)
	if err != nil {
		return err
	}
	if _, err := c.coll.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("error inserting document: %w", err)
	}
	return nil
}

func (c *mongoCollection) FindOne(ctx context.Context, id string) ([]byte, error) {
	raw, err := c.coll.FindOne(ctx, bson.M{FieldID: id}).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying document: %w", err)
	}
	return fromBSON(raw)
}

func (c *mongoCollection) FindMany(ctx context.Context, filter Filter) ([][]byte, error) {
	if filter.matchesNothing() {
		return nil, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: FieldID, Value: 1}})
	cursor, err := c.coll.Find(ctx, mongoFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("error querying documents: %w", err)
	}
	defer cursor.Close(ctx)

	var docs [][]byte
	for cursor.Next(ctx) {
		doc, err := fromBSON(cursor.Current)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}
	return docs, nil
}

func (c *mongoCollection) UpdateOne(ctx context.Context, id string, doc []byte) error {
	d, err := toBSON(id, doc)
	if err != nil {
		return err
	}
	res, err := c.coll.ReplaceOne(ctx, bson.M{FieldID: id}, d)
	if err != nil {
		return fmt.Errorf("error updating document: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *mongoCollection) DeleteOne(ctx context.Context, id string) (int64, error) {
	res, err := c.coll.DeleteOne(ctx, bson.M{FieldID: id})
	if err != nil {
		return 0, fmt.Errorf("error deleting document: %w", err)
	}
	return res.DeletedCount, nil
}

func (c *mongoCollection) DeleteMany(ctx context.Context, filter Filter) (int64, error) {
	if filter.matchesNothing() {
		return 0, nil
	}
	res, err := c.coll.DeleteMany(ctx, mongoFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("error deleting documents: %w", err)
	}
	return res.DeletedCount, nil
}
