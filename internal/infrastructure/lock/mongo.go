package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName holds one document per held lock
const CollectionName = "awb_locks"

type lockDocument struct {
	Key       string    `bson:"_id"`
	Owner     string    `bson:"owner"`
	LockedAt  time.Time `bson:"lockedAt"`
	ExpiresAt time.Time `bson:"expiresAt"`
}

// MongoLocker makes the generation guard hold across service instances
type MongoLocker struct {
	collection *mongo.Collection
	owner      string
}

// NewMongoLocker creates a locker on the awb_locks collection
func NewMongoLocker(db *mongo.Database) *MongoLocker {
	return &MongoLocker{
		collection: db.Collection(CollectionName),
		owner:      uuid.New().String(),
	}
}

// EnsureIndexes creates the TTL index that removes abandoned locks
func (l *MongoLocker) EnsureIndexes(ctx context.Context) error {
	_, err := l.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_ttl"),
	})
	if err != nil {
		return fmt.Errorf("failed to create lock indexes: %w", err)
	}
	return nil
}

// TryAcquire upserts the lock document when it is absent or expired.
// A live document makes the upsert collide on _id, which means the lock is held.
func (l *MongoLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()

	filter := bson.M{
		"_id":       key,
		"expiresAt": bson.M{"$lte": now},
	}
	update := bson.M{
		"$set": bson.M{
			"owner":     l.owner,
			"lockedAt":  now,
			"expiresAt": now.Add(ttl),
		},
	}

	_, err := l.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	return true, nil
}

// Release deletes the lock when this locker still owns it
func (l *MongoLocker) Release(ctx context.Context, key string) error {
	_, err := l.collection.DeleteOne(ctx, bson.M{"_id": key, "owner": l.owner})
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	return nil
}
