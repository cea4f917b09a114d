package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// cartDocument is the stored shape. Prices are kept as decimal strings so no precision is lost.
type cartDocument struct {
	CustomerID string         `bson:"customer_id"`
	Lines      []lineDocument `bson:"lines"`
	CreatedAt  time.Time      `bson:"created_at"`
	UpdatedAt  time.Time      `bson:"updated_at"`
}

type lineDocument struct {
	ProductID    string `bson:"product_id"`
	ProductName  string `bson:"product_name"`
	ProductImage string `bson:"product_image,omitempty"`
	UnitPrice    string `bson:"unit_price"`
	Quantity     int    `bson:"quantity"`
	Size         string `bson:"size,omitempty"`
	Color        string `bson:"color,omitempty"`
}

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("carts"),
	}
}

func (m *MongoRepository) GetCart(ctx context.Context, customerID string) ([]domain.CartLine, error) {
	var doc cartDocument
	err := m.collection.FindOne(ctx, bson.M{"customer_id": customerID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	lines := make([]domain.CartLine, 0, len(doc.Lines))
	for _, l := range doc.Lines {
		price, err := decimal.NewFromString(l.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("cart %s has invalid price for %s: %w", customerID, l.ProductID, err)
		}
		lines = append(lines, domain.CartLine{
			ProductID:    l.ProductID,
			ProductName:  l.ProductName,
			ProductImage: l.ProductImage,
			UnitPrice:    price,
			Quantity:     l.Quantity,
			Variant:      domain.Variant{Size: l.Size, Color: l.Color},
		})
	}
	return lines, nil
}

// SaveCart replaces the stored lines with lines, creating the document when needed.
func (m *MongoRepository) SaveCart(ctx context.Context, customerID string, lines []domain.CartLine) error {
	now := time.Now().UTC()
	docs := make([]lineDocument, 0, len(lines))
	for _, l := range lines {
		docs = append(docs, lineDocument{
			ProductID:    l.ProductID,
			ProductName:  l.ProductName,
			ProductImage: l.ProductImage,
			UnitPrice:    l.UnitPrice.String(),
			Quantity:     l.Quantity,
			Size:         l.Variant.Size,
			Color:        l.Variant.Color,
		})
	}

	update := bson.M{
		"$set":         bson.M{"lines": docs, "updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, bson.M{"customer_id": customerID}, update, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

func (m *MongoRepository) DeleteCart(ctx context.Context, customerID string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"customer_id": customerID})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "customer_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60),
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
