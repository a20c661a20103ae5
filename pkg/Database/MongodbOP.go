package Database

import (
	"context"
	"fmt"

	"RangeSSE/pkg/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultCollection holds one document per record.
const DefaultCollection = "id_keyword_ops"

type recordDoc struct {
	ID      int64  `bson:"id"`
	Keyword int64  `bson:"k"`
	Op      string `bson:"op"`
}

// MongoDBSetup connects to uri and returns the handle of dbName.
func MongoDBSetup(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", uri, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping %s: %w", uri, err)
	}
	return client.Database(dbName), nil
}

// LoadRecords reads every record of collection in insertion order.
func LoadRecords(ctx context.Context, db *mongo.Database, collection string) ([]utils.Record, error) {
	opts := options.Find().SetNoCursorTimeout(true).SetBatchSize(1000).SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := db.Collection(collection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	var records []utils.Record
	for cur.Next(ctx) {
		var doc recordDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", collection, err)
		}
		r, err := doc.record()
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, cur.Err()
}

func (d recordDoc) record() (utils.Record, error) {
	if d.ID < 0 || d.Keyword < 0 {
		return utils.Record{}, fmt.Errorf("%w: negative id or keyword in %+v", utils.ErrMalformedEncoding, d)
	}
	op, err := ParseOperation(d.Op)
	if err != nil {
		return utils.Record{}, err
	}
	return utils.Record{ID: uint64(d.ID), Keyword: uint64(d.Keyword), Op: op}, nil
}

// SeedRecords inserts records into collection, one document each.
func SeedRecords(ctx context.Context, db *mongo.Database, collection string, records []utils.Record) error {
	if len(records) == 0 {
		return nil
	}
	docs := make([]interface{}, len(records))
	for i, r := range records {
		docs[i] = recordDoc{ID: int64(r.ID), Keyword: int64(r.Keyword), Op: r.Op.String()}
	}
	if _, err := db.Collection(collection).InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert into %s: %w", collection, err)
	}
	return nil
}
