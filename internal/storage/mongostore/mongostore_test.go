package mongostore

import (
	"context"
	"testing"
	"time"

	"github.com/ParcelDesk/ParcelDesk/internal/apperr"
	"github.com/ParcelDesk/ParcelDesk/internal/models"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func startMongo(t *testing.T) *Storage {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
	}
	mongoC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mongoC.Terminate(ctx) })

	host, err := mongoC.Host(ctx)
	require.NoError(t, err)
	port, err := mongoC.MappedPort(ctx, "27017/tcp")
	require.NoError(t, err)

	st, err := New("mongodb://"+host+":"+port.Port(), "parceldesk_test")
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return st
}

func TestMongoStore_TrackingsFlow(t *testing.T) {
	st := startMongo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	rec := &models.TrackingRecord{
		TrackingID:  "PD-1001",
		Status:      "In transit",
		Sender:      "Alice",
		Recipient:   "Bob",
		Weight:      2.5,
		History:     []models.HistoryEvent{},
		LastUpdated: now,
		CreatedAt:   now,
	}
	require.NoError(t, st.InsertTracking(ctx, rec))
	require.False(t, rec.ID.IsZero())

	// дубль trackingId → Conflict (уникальный индекс)
	err := st.InsertTracking(ctx, &models.TrackingRecord{TrackingID: "PD-1001", LastUpdated: now, CreatedAt: now})
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	got, err := st.GetByTrackingID(ctx, "PD-1001")
	require.NoError(t, err)
	require.Equal(t, "In transit", got.Status)
	require.Equal(t, rec.ID, got.ID)

	byID, err := st.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, "PD-1001", byID.TrackingID)

	_, err = st.GetByTrackingID(ctx, "PD-missing")
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	// полная замена документа: новое событие истории и статус
	got.Status = "Delivered"
	got.History = append(got.History, models.HistoryEvent{
		ID:          "ev-1",
		Timestamp:   now,
		Location:    "Berlin",
		Description: "Delivered to recipient",
	})
	got.LastUpdated = now.Add(time.Minute)
	require.NoError(t, st.SaveTracking(ctx, got))

	reread, err := st.GetByTrackingID(ctx, "PD-1001")
	require.NoError(t, err)
	require.Equal(t, "Delivered", reread.Status)
	require.Len(t, reread.History, 1)
	require.Equal(t, "Berlin", reread.History[0].Location)

	n, err := st.CountByTrackingID(ctx, "PD-1001", primitive.NewObjectID())
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = st.CountByTrackingID(ctx, "PD-1001", got.ID)
	require.NoError(t, err)
	require.Zero(t, n)

	// вторая запись и порядок списка по lastUpdated (свежие первыми)
	rec2 := &models.TrackingRecord{
		TrackingID:  "PD-1002",
		History:     []models.HistoryEvent{},
		LastUpdated: now.Add(2 * time.Minute),
		CreatedAt:   now,
	}
	require.NoError(t, st.InsertTracking(ctx, rec2))

	list, err := st.ListTrackings(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "PD-1002", list[0].TrackingID)
	require.Equal(t, "PD-1001", list[1].TrackingID)

	// удаление записи уносит историю вместе с документом
	require.NoError(t, st.DeleteTracking(ctx, "PD-1001"))
	_, err = st.GetByTrackingID(ctx, "PD-1001")
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	err = st.DeleteTracking(ctx, "PD-1001")
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestMongoStore_SaveMissing(t *testing.T) {
	st := startMongo(t)
	ctx := context.Background()

	err := st.SaveTracking(ctx, &models.TrackingRecord{
		ID:         primitive.NewObjectID(),
		TrackingID: "PD-ghost",
	})
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestMongoStore_UsersFlow(t *testing.T) {
	st := startMongo(t)
	ctx := context.Background()

	n, err := st.CountUsers(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	u := &models.User{
		Username:     "admin",
		PasswordHash: "$2a$10$fake",
		Role:         models.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, st.InsertUser(ctx, u))
	require.False(t, u.ID.IsZero())

	err = st.InsertUser(ctx, &models.User{Username: "admin"})
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	got, err := st.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, got.Role)

	_, err = st.GetUserByUsername(ctx, "nobody")
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	n, err = st.CountUsers(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}
