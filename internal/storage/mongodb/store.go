// Package mongodb implements storage.Store on top of the official MongoDB driver.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bekicr/universal-clinic/internal/storage"
)

const (
	usersCollection        = "users"
	doctorsCollection      = "doctors"
	appointmentsCollection = "appointments"
)

// Store is a storage.Store backed by a single Mongo database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

var _ storage.Store = (*Store)(nil)

// Connect dials uri and pings the server before returning.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Store{client: client, db: client.Database(database), now: time.Now}, nil
}

// EnsureIndexes creates the unique and lookup indexes the API relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		doctorsCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "name", Value: 1}}},
		},
		appointmentsCollection: {
			{Keys: bson.D{{Key: "patientId", Value: 1}, {Key: "appointmentDate", Value: -1}}},
			{Keys: bson.D{{Key: "doctorId", Value: 1}, {Key: "appointmentDate", Value: -1}}},
		},
	}
	for name, models := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}
	return nil
}

// Drop removes the database. Only used by integration tests.
func (s *Store) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return storage.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return storage.ErrAlreadyExists
	default:
		return err
	}
}
