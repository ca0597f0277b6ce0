package mongostore

import (
	"context"

	"github.com/ParcelDesk/ParcelDesk/internal/apperr"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	trackingsCollection = "trackings"
	usersCollection     = "users"
)

type Storage struct {
	client *mongo.Client
	db     *mongo.Database
}

func New(uri, dbName string) (*Storage, error) {
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connect mongo")
	}
	if err := client.Ping(context.Background(), nil); err != nil {
		return nil, errors.Wrap(err, "ping mongo")
	}

	s := &Storage{client: client, db: client.Database(dbName)}
	if err := s.ensureIndexes(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Storage) Close() {
	if s.client != nil {
		_ = s.client.Disconnect(context.Background())
	}
}

func (s *Storage) Ping(ctx context.Context) error {
	return errors.Wrap(s.client.Ping(ctx, nil), "ping mongo")
}

func (s *Storage) ensureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(trackingsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "trackingId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return errors.Wrap(err, "ensure trackingId index")
	}

	_, err = s.db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return errors.Wrap(err, "ensure username index")
	}
	return nil
}

// storeErr переводит ошибки драйвера в таксономию apperr.
// NotFound здесь не решается: отсутствие документа каждый метод трактует сам.
func storeErr(err error, msg string) error {
	if mongo.IsDuplicateKeyError(err) {
		return apperr.Conflict("%s: duplicate key", msg)
	}
	return apperr.Store(err, msg)
}
