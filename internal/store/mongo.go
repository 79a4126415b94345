package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dharmasatrya/flightbooking/internal/models"
)

const (
	linesCollection    = "cart_lines"
	bookingsCollection = "bookings"
)

type MongoStore struct {
	client   *mongo.Client
	lines    *mongo.Collection
	bookings *mongo.Collection
}

// ConnectMongo dials uri, pings the server and ensures the cart index.
func ConnectMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	s := NewMongoStore(client, client.Database(database))
	_, err = s.lines.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: 1}},
	})
	if err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create cart index: %w", err)
	}
	return s, nil
}

func NewMongoStore(client *mongo.Client, db *mongo.Database) *MongoStore {
	return &MongoStore{
		client:   client,
		lines:    db.Collection(linesCollection),
		bookings: db.Collection(bookingsCollection),
	}
}

func (s *MongoStore) InsertLine(ctx context.Context, line models.CartLine) error {
	_, err := s.lines.InsertOne(ctx, line)
	return err
}

func (s *MongoStore) ListLines(ctx context.Context, userID string) ([]models.CartLine, error) {
	cur, err := s.lines.Find(ctx, bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	lines := make([]models.CartLine, 0)
	if err := cur.All(ctx, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *MongoStore) GetLine(ctx context.Context, userID, id string) (models.CartLine, error) {
	var line models.CartLine
	err := s.lines.FindOne(ctx, bson.M{"_id": id, "userId": userID}).Decode(&line)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.CartLine{}, ErrNotFound
	}
	return line, err
}

func (s *MongoStore) ReplaceLine(ctx context.Context, line models.CartLine) error {
	res, err := s.lines.ReplaceOne(ctx, bson.M{"_id": line.BookingID, "userId": line.UserID}, line)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteLine(ctx context.Context, userID, id string) error {
	res, err := s.lines.DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) ConfirmLines(ctx context.Context, userID, checkoutID string, ids []string, at time.Time) (int, error) {
	res, err := s.lines.UpdateMany(ctx,
		bson.M{
			"_id":    bson.M{"$in": ids},
			"userId": userID,
			"status": models.CartStatusPending,
		},
		bson.M{"$set": bson.M{
			"status":     models.CartStatusConfirmed,
			"checkoutId": checkoutID,
			"updatedAt":  at,
		}},
	)
	if err != nil {
		return 0, err
	}
	return int(res.ModifiedCount), nil
}

func (s *MongoStore) ReleaseLines(ctx context.Context, userID, checkoutID string, at time.Time) (int, error) {
	res, err := s.lines.UpdateMany(ctx,
		bson.M{
			"userId":     userID,
			"checkoutId": checkoutID,
			"status":     models.CartStatusConfirmed,
		},
		bson.M{
			"$set":   bson.M{"status": models.CartStatusPending, "updatedAt": at},
			"$unset": bson.M{"checkoutId": ""},
		},
	)
	if err != nil {
		return 0, err
	}
	return int(res.ModifiedCount), nil
}

func (s *MongoStore) InsertBooking(ctx context.Context, booking models.Booking) error {
	_, err := s.bookings.InsertOne(ctx, booking)
	return err
}

func (s *MongoStore) GetBooking(ctx context.Context, id string) (models.Booking, error) {
	var booking models.Booking
	err := s.bookings.FindOne(ctx, bson.M{"_id": id}).Decode(&booking)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Booking{}, ErrNotFound
	}
	return booking, err
}

func (s *MongoStore) DeleteBooking(ctx context.Context, id string) error {
	_, err := s.bookings.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
