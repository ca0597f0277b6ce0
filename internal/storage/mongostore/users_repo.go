package mongostore

import (
	"context"

	"github.com/ParcelDesk/ParcelDesk/internal/apperr"
	"github.com/ParcelDesk/ParcelDesk/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func (s *Storage) users() *mongo.Collection {
	return s.db.Collection(usersCollection)
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.users().FindOne(ctx, bson.M{"username": username}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.NotFound("user %q not found", username)
	}
	if err != nil {
		return nil, storeErr(err, "find user")
	}
	return &u, nil
}

func (s *Storage) InsertUser(ctx context.Context, u *models.User) error {
	res, err := s.users().InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Conflict("user %q already exists", u.Username)
		}
		return storeErr(err, "insert user")
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return nil
}

func (s *Storage) CountUsers(ctx context.Context) (int64, error) {
	n, err := s.users().CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, storeErr(err, "count users")
	}
	return n, nil
}
