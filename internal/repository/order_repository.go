package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/artshop/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoOrderRepository struct {
	collection *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) OrderRepository {
	return &mongoOrderRepository{
		collection: db.Collection("orders"),
	}
}

func (m *mongoOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	_, err := m.collection.InsertOne(ctx, order)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (m *mongoOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

func (m *mongoOrderRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return m.find(ctx, bson.M{"userId": userID}, opts)
}

func (m *mongoOrderRepository) List(ctx context.Context, limit int64) ([]*domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return m.find(ctx, bson.M{}, opts)
}

func (m *mongoOrderRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Order, error) {
	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := make([]*domain.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, nil
}

func (m *mongoOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	filter := bson.M{"_id": order.ID, "revision": order.Revision}
	update := bson.M{
		"$set": bson.M{
			"status":         order.Status,
			"trackingNumber": order.TrackingNumber,
			"paymentKey":     order.PaymentKey,
			"updatedAt":      order.UpdatedAt,
		},
		"$inc": bson.M{"revision": 1},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	if result.MatchedCount == 0 {
		n, err := m.collection.CountDocuments(ctx, bson.M{"_id": order.ID})
		if err != nil {
			return fmt.Errorf("failed to check order: %w", err)
		}
		if n == 0 {
			return ErrOrderNotFound
		}
		return ErrRevisionConflict
	}

	order.Revision++
	return nil
}

func (m *mongoOrderRepository) Totals(ctx context.Context) (int64, int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "lineItems", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$size", Value: "$items"}}}}},
			{Key: "revenue", Value: bson.D{{Key: "$sum", Value: "$total"}}},
		}}},
	}

	cursor, err := m.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to aggregate orders: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		LineItems int64 `bson:"lineItems"`
		Revenue   int64 `bson:"revenue"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, 0, fmt.Errorf("failed to decode order totals: %w", err)
	}
	if len(rows) == 0 {
		return 0, 0, nil
	}
	return rows[0].LineItems, rows[0].Revenue, nil
}

func (m *mongoOrderRepository) CountByArtwork(ctx context.Context, ids []int64) (map[int64]int64, error) {
	result := make(map[int64]int64, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	// Each order counts once per artwork however many lines carry it.
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "items.artwork_id", Value: bson.D{{Key: "$in", Value: ids}}}}}},
		{{Key: "$project", Value: bson.D{
			{Key: "artworks", Value: bson.D{{Key: "$setIntersection", Value: bson.A{"$items.artwork_id", ids}}}},
		}}},
		{{Key: "$unwind", Value: "$artworks"}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$artworks"},
			{Key: "orders", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := m.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate artwork sales: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ArtworkID int64 `bson:"_id"`
		Orders    int64 `bson:"orders"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode artwork sales: %w", err)
	}
	for _, row := range rows {
		result[row.ArtworkID] = row.Orders
	}
	return result, nil
}
