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

type mongoArtworkRepository struct {
	collection *mongo.Collection
}

func NewArtworkRepository(db *mongo.Database) ArtworkRepository {
	return &mongoArtworkRepository{
		collection: db.Collection("artworks"),
	}
}

func (m *mongoArtworkRepository) GetByID(ctx context.Context, id int64) (*domain.Artwork, error) {
	var artwork domain.Artwork
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&artwork)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrArtworkNotFound
		}
		return nil, fmt.Errorf("failed to get artwork: %w", err)
	}
	return &artwork, nil
}

func (m *mongoArtworkRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Artwork, error) {
	result := make(map[int64]*domain.Artwork, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	cursor, err := m.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to query artworks: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var artwork domain.Artwork
		if err := cursor.Decode(&artwork); err != nil {
			return nil, fmt.Errorf("failed to decode artwork: %w", err)
		}
		result[artwork.ID] = &artwork
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate artworks: %w", err)
	}
	return result, nil
}

func (m *mongoArtworkRepository) List(ctx context.Context, filter ArtworkFilter) ([]*domain.Artwork, error) {
	query := bson.M{}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.AvailableOnly {
		query["available"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := m.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query artworks: %w", err)
	}
	defer cursor.Close(ctx)

	artworks := make([]*domain.Artwork, 0)
	if err := cursor.All(ctx, &artworks); err != nil {
		return nil, fmt.Errorf("failed to decode artworks: %w", err)
	}
	return artworks, nil
}

func (m *mongoArtworkRepository) MostViewed(ctx context.Context, limit int64) ([]*domain.Artwork, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "views", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(limit)

	cursor, err := m.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query popular artworks: %w", err)
	}
	defer cursor.Close(ctx)

	artworks := make([]*domain.Artwork, 0, limit)
	if err := cursor.All(ctx, &artworks); err != nil {
		return nil, fmt.Errorf("failed to decode artworks: %w", err)
	}
	return artworks, nil
}

func (m *mongoArtworkRepository) Count(ctx context.Context) (int64, error) {
	n, err := m.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count artworks: %w", err)
	}
	return n, nil
}
