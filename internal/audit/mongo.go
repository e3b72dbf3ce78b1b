package audit

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Shivanand-hulikatti/ticketing-projections/internal/model"
)

// CollectionName is the audit log collection in the read-model database.
const CollectionName = "audit_log"

// Mongo writes audit entries to MongoDB.
type Mongo struct {
	coll *mongo.Collection
}

// NewMongo wraps the audit collection of db.
func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{coll: db.Collection(CollectionName)}
}

// EnsureIndexes creates the (entity_id, timestamp) lookup index.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "entity_id", Value: 1}, {Key: "timestamp", Value: -1}},
		Options: options.Index().SetName("entity_timestamp"),
	})
	return err
}

// Append inserts entry.
func (m *Mongo) Append(ctx context.Context, entry model.AuditLogEntry) error {
	if _, err := m.coll.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ForEntity returns up to limit entries for entityID, newest first.
func (m *Mongo) ForEntity(ctx context.Context, entityID string, limit int) ([]model.AuditLogEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := m.coll.Find(ctx, bson.M{"entity_id": entityID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find audit entries: %w", err)
	}
	var out []model.AuditLogEntry
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode audit entries: %w", err)
	}
	return out, nil
}
