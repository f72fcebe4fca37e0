package repository

import (
	"context"
	"fmt"

	"github.com/fjod/artshop/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoEventRepository struct {
	collection *mongo.Collection
}

func NewEventRepository(db *mongo.Database) EventRepository {
	return &mongoEventRepository{
		collection: db.Collection("order_status_events"),
	}
}

func (m *mongoEventRepository) Append(ctx context.Context, event *domain.StatusEvent) error {
	_, err := m.collection.InsertOne(ctx, event)
	if err != nil {
		return fmt.Errorf("failed to append status event: %w", err)
	}
	return nil
}

// GetUnpublished returns unpublished events oldest first.
func (m *mongoEventRepository) GetUnpublished(ctx context.Context, limit int64) ([]*domain.StatusEvent, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: 1}}).
		SetLimit(limit)

	cursor, err := m.collection.Find(ctx, bson.M{"published": false}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query status events: %w", err)
	}
	defer cursor.Close(ctx)

	events := make([]*domain.StatusEvent, 0)
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode status events: %w", err)
	}
	return events, nil
}

func (m *mongoEventRepository) MarkPublished(ctx context.Context, id string) error {
	_, err := m.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"published": true}})
	if err != nil {
		return fmt.Errorf("failed to mark status event as published: %w", err)
	}
	return nil
}
