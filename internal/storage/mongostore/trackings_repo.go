package mongostore

import (
	"context"

	"github.com/ParcelDesk/ParcelDesk/internal/apperr"
	"github.com/ParcelDesk/ParcelDesk/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Storage) trackings() *mongo.Collection {
	return s.db.Collection(trackingsCollection)
}

func (s *Storage) GetByTrackingID(ctx context.Context, trackingID string) (*models.TrackingRecord, error) {
	var rec models.TrackingRecord
	err := s.trackings().FindOne(ctx, bson.M{"trackingId": trackingID}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.NotFound("tracking %q not found", trackingID)
	}
	if err != nil {
		return nil, storeErr(err, "find tracking")
	}
	return &rec, nil
}

func (s *Storage) GetByID(ctx context.Context, id primitive.ObjectID) (*models.TrackingRecord, error) {
	var rec models.TrackingRecord
	err := s.trackings().FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.NotFound("tracking %s not found", id.Hex())
	}
	if err != nil {
		return nil, storeErr(err, "find tracking by id")
	}
	return &rec, nil
}

func (s *Storage) InsertTracking(ctx context.Context, rec *models.TrackingRecord) error {
	res, err := s.trackings().InsertOne(ctx, rec)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Conflict("tracking %q already exists", rec.TrackingID)
		}
		return storeErr(err, "insert tracking")
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		rec.ID = oid
	}
	return nil
}

// SaveTracking заменяет документ целиком по суррогатному _id.
func (s *Storage) SaveTracking(ctx context.Context, rec *models.TrackingRecord) error {
	res, err := s.trackings().ReplaceOne(ctx, bson.M{"_id": rec.ID}, rec)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Conflict("tracking %q already exists", rec.TrackingID)
		}
		return storeErr(err, "save tracking")
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("tracking %q not found", rec.TrackingID)
	}
	return nil
}

func (s *Storage) DeleteTracking(ctx context.Context, trackingID string) error {
	res, err := s.trackings().DeleteOne(ctx, bson.M{"trackingId": trackingID})
	if err != nil {
		return storeErr(err, "delete tracking")
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("tracking %q not found", trackingID)
	}
	return nil
}

// ListTrackings отдаёт все записи, свежие по lastUpdated сверху.
func (s *Storage) ListTrackings(ctx context.Context) ([]*models.TrackingRecord, error) {
	cur, err := s.trackings().Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "lastUpdated", Value: -1}}))
	if err != nil {
		return nil, storeErr(err, "list trackings")
	}
	defer cur.Close(ctx)

	out := []*models.TrackingRecord{}
	for cur.Next(ctx) {
		var rec models.TrackingRecord
		if err := cur.Decode(&rec); err != nil {
			return nil, storeErr(err, "decode tracking")
		}
		out = append(out, &rec)
	}
	if cur.Err() != nil {
		return nil, storeErr(cur.Err(), "list trackings cursor")
	}
	return out, nil
}

// CountByTrackingID считает записи с данным trackingId, кроме excludeID.
// Используется для проверки конфликта при переименовании.
func (s *Storage) CountByTrackingID(ctx context.Context, trackingID string, excludeID primitive.ObjectID) (int64, error) {
	n, err := s.trackings().CountDocuments(ctx, bson.M{
		"trackingId": trackingID,
		"_id":        bson.M{"$ne": excludeID},
	})
	if err != nil {
		return 0, storeErr(err, "count trackings")
	}
	return n, nil
}
