package readmodel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Shivanand-hulikatti/ticketing-projections/internal/model"
)

// Collection names in the read-model database.
const (
	EventMetricsCollection      = "event_metrics"
	DailyMetricsCollection      = "daily_metrics"
	DailySalesCollection        = "daily_sales_reports"
	AttendanceCollection        = "attendance_history"
	ProcessedMessagesCollection = "processed_messages"
)

// document stores the record fields at the top level next to the key.
type document[T any] struct {
	ID     string `bson:"_id"`
	Record T      `bson:",inline"`
}

// MongoCollection is a Collection over one MongoDB collection, keyed by _id.
type MongoCollection[T any] struct {
	coll *mongo.Collection
}

// NewMongoCollection wraps coll.
func NewMongoCollection[T any](coll *mongo.Collection) *MongoCollection[T] {
	return &MongoCollection[T]{coll: coll}
}

// Get loads the document stored under key.
func (c *MongoCollection[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var doc document[T]
	err := c.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return doc.Record, false, nil
	}
	if err != nil {
		return doc.Record, false, fmt.Errorf("find %s/%s: %w", c.coll.Name(), key, err)
	}
	return doc.Record, true, nil
}

// Put upserts record under key.
func (c *MongoCollection[T]) Put(ctx context.Context, key string, record T) error {
	_, err := c.coll.ReplaceOne(ctx,
		bson.M{"_id": key},
		document[T]{ID: key, Record: record},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("replace %s/%s: %w", c.coll.Name(), key, err)
	}
	return nil
}

// NewMongoStore returns a Store over the read-model database.
func NewMongoStore(db *mongo.Database) Store {
	return Store{
		EventMetrics: NewMongoCollection[model.EventMetrics](db.Collection(EventMetricsCollection)),
		DailyMetrics: NewMongoCollection[model.DailyMetrics](db.Collection(DailyMetricsCollection)),
		DailySales:   NewMongoCollection[model.DailySalesReport](db.Collection(DailySalesCollection)),
		Attendance:   NewMongoCollection[model.AttendanceHistory](db.Collection(AttendanceCollection)),
	}
}

// MongoDeduper records processed message ids with an expiry. A TTL index
// removes them after the retention window.
type MongoDeduper struct {
	coll      *mongo.Collection
	retention time.Duration
	now       func() time.Time
}

// NewMongoDeduper wraps the processed-messages collection of db.
func NewMongoDeduper(db *mongo.Database, retention time.Duration) *MongoDeduper {
	return &MongoDeduper{
		coll:      db.Collection(ProcessedMessagesCollection),
		retention: retention,
		now:       time.Now,
	}
}

// EnsureIndexes creates the TTL index on expires_at.
func (d *MongoDeduper) EnsureIndexes(ctx context.Context) error {
	_, err := d.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"expires_at": 1},
		Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expires_at"),
	})
	return err
}

// Seen reports whether key was marked.
func (d *MongoDeduper) Seen(ctx context.Context, key string) (bool, error) {
	n, err := d.coll.CountDocuments(ctx, bson.M{"_id": key}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("dedup lookup %s: %w", key, err)
	}
	return n > 0, nil
}

// Mark records key; the TTL index expires it after the retention window.
func (d *MongoDeduper) Mark(ctx context.Context, key string) error {
	now := d.now().UTC()
	_, err := d.coll.InsertOne(ctx, bson.M{
		"_id":          key,
		"processed_at": now,
		"expires_at":   now.Add(d.retention),
	})
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("dedup mark %s: %w", key, err)
	}
	return nil
}
