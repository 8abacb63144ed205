// Package mongodb persists orders and their outbox events in MongoDB.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Upcasted/optimus-courier/internal/domain"
	"github.com/Upcasted/optimus-courier/internal/infrastructure/eventmap"
	"github.com/Upcasted/optimus-courier/pkg/cloudevents"
	pkgmongo "github.com/Upcasted/optimus-courier/pkg/mongodb"
)

// OrderCollectionName is the collection holding order snapshots
const OrderCollectionName = "orders"

// OrderRepository implements domain.OrderRepository. AWB writes and their events share a transaction.
type OrderRepository struct {
	collection   *mongo.Collection
	db           *mongo.Database
	outboxRepo   *OutboxRepository
	eventFactory *cloudevents.EventFactory
}

// NewOrderRepository creates an order repository writing events to outboxRepo
func NewOrderRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory, outboxRepo *OutboxRepository) *OrderRepository {
	return &OrderRepository{
		collection:   db.Collection(OrderCollectionName),
		db:           db,
		outboxRepo:   outboxRepo,
		eventFactory: eventFactory,
	}
}

// EnsureIndexes creates the order and outbox indexes
func (r *OrderRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "number", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "_optimus_awb_number", Value: 1}}, Options: options.Index().SetSparse(true)},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}
	return r.outboxRepo.EnsureIndexes(ctx)
}

// FindByID returns nil, nil when the order does not exist
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	var order domain.Order
	err := r.collection.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return &order, nil
}

// Save writes the AWB metadata and status of the order together with its pending domain events
func (r *OrderRepository) Save(ctx context.Context, order *domain.Order) error {
	return r.write(ctx, order, bson.M{
		"_optimus_awb_number": order.AWBNumber,
		"status":              order.Status,
	})
}

// SaveStatus writes only the status of the order with its pending domain events.
// The stored AWB metadata is left as it is.
func (r *OrderRepository) SaveStatus(ctx context.Context, order *domain.Order) error {
	return r.write(ctx, order, bson.M{"status": order.Status})
}

func (r *OrderRepository) write(ctx context.Context, order *domain.Order, set bson.M) error {
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = time.Now().UTC()
	}
	set["updatedAt"] = order.UpdatedAt

	err := pkgmongo.WithTransaction(ctx, r.db.Client(), func(sessCtx mongo.SessionContext) error {
		result, err := r.collection.UpdateOne(sessCtx, bson.M{"_id": order.ID}, bson.M{"$set": set})
		if err != nil {
			return fmt.Errorf("failed to save order: %w", err)
		}
		if result.MatchedCount == 0 {
			return domain.ErrOrderNotFound
		}

		outboxEvents, err := eventmap.ToOutboxEvents(sessCtx, r.eventFactory, order)
		if err != nil {
			return err
		}
		return r.outboxRepo.SaveAll(sessCtx, outboxEvents)
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	order.ClearDomainEvents()
	return nil
}

// Upsert stores a shop snapshot. A snapshot without AWB metadata keeps the stored one.
func (r *OrderRepository) Upsert(ctx context.Context, order *domain.Order) error {
	now := time.Now().UTC()
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = now
	}
	createdAt := order.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	set := bson.M{
		"number":    order.Number,
		"status":    order.Status,
		"shipping":  order.Shipping,
		"billing":   order.Billing,
		"items":     order.Items,
		"updatedAt": order.UpdatedAt,
	}
	if order.HasAWB() {
		set["_optimus_awb_number"] = order.AWBNumber
	}

	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"createdAt": createdAt},
	}

	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": order.ID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert order: %w", err)
	}
	return nil
}
