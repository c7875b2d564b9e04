package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/looprex/checkout/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const cartTTL = 90 * 24 * time.Hour

// cartDocument is the stored shape of a cart. Prices are kept as Decimal128
// so that amounts survive the round trip exactly.
type cartDocument struct {
	UserID    int64          `bson:"user_id"`
	Items     []itemDocument `bson:"items"`
	CreatedAt time.Time      `bson:"created_at"`
	UpdatedAt time.Time      `bson:"updated_at"`
}

type itemDocument struct {
	ProductID    int64                `bson:"product_id"`
	ProductName  string               `bson:"product_name,omitempty"`
	ProductPhoto string               `bson:"product_photo,omitempty"`
	UnitPrice    primitive.Decimal128 `bson:"unit_price"`
	Quantity     int                  `bson:"quantity"`
	Stock        int                  `bson:"stock"`
	AddedAt      time.Time            `bson:"added_at"`
}

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("carts"),
	}
}

func (m *MongoRepository) GetCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	var doc cartDocument
	err := m.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	cart, err := doc.toDomain()
	if err != nil {
		return nil, fmt.Errorf("failed to decode cart %d: %w", userID, err)
	}
	return cart, nil
}

func (m *MongoRepository) UpsertCart(ctx context.Context, cart *domain.Cart) error {
	now := time.Now().UTC()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	if cart.UpdatedAt.IsZero() {
		cart.UpdatedAt = now
	}

	doc, err := newCartDocument(cart)
	if err != nil {
		return fmt.Errorf("failed to encode cart %d: %w", cart.UserID, err)
	}

	filter := bson.M{"user_id": cart.UserID}
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

func (m *MongoRepository) DeleteCart(ctx context.Context, userID int64) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (m *MongoRepository) DeleteCartIfUnchangedSince(ctx context.Context, userID int64, since time.Time) (bool, error) {
	filter := bson.M{
		"user_id":    userID,
		"updated_at": bson.M{"$lte": since.UTC()},
	}
	result, err := m.collection.DeleteOne(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to delete cart: %w", err)
	}
	return result.DeletedCount > 0, nil
}

// CreateIndexes enforces one cart per user and expires carts that were not
// touched for cartTTL.
func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(cartTTL.Seconds())),
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func newCartDocument(cart *domain.Cart) (cartDocument, error) {
	doc := cartDocument{
		UserID:    cart.UserID,
		Items:     make([]itemDocument, 0, len(cart.Items)),
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
	}
	for _, item := range cart.Items {
		price, err := primitive.ParseDecimal128(item.UnitPrice.String())
		if err != nil {
			return cartDocument{}, fmt.Errorf("product %d price %s: %w", item.ProductID, item.UnitPrice, err)
		}
		doc.Items = append(doc.Items, itemDocument{
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			ProductPhoto: item.ProductPhoto,
			UnitPrice:    price,
			Quantity:     item.Quantity,
			Stock:        item.Stock,
			AddedAt:      item.AddedAt,
		})
	}
	return doc, nil
}

func (d cartDocument) toDomain() (*domain.Cart, error) {
	cart := &domain.Cart{
		UserID:    d.UserID,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for _, item := range d.Items {
		price, err := decimal.NewFromString(item.UnitPrice.String())
		if err != nil {
			return nil, fmt.Errorf("product %d price: %w", item.ProductID, err)
		}
		cart.Items = append(cart.Items, domain.LineItem{
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			ProductPhoto: item.ProductPhoto,
			UnitPrice:    price,
			Quantity:     item.Quantity,
			Stock:        item.Stock,
			AddedAt:      item.AddedAt,
		})
	}
	return cart, nil
}
