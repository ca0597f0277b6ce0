package trackings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ParcelDesk/ParcelDesk/internal/apperr"
	"github.com/ParcelDesk/ParcelDesk/internal/broker/messages"
	"github.com/ParcelDesk/ParcelDesk/internal/cache"
	"github.com/ParcelDesk/ParcelDesk/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Repository interface {
	GetByTrackingID(ctx context.Context, trackingID string) (*models.TrackingRecord, error)
	InsertTracking(ctx context.Context, rec *models.TrackingRecord) error
	SaveTracking(ctx context.Context, rec *models.TrackingRecord) error
	DeleteTracking(ctx context.Context, trackingID string) error
	ListTrackings(ctx context.Context) ([]*models.TrackingRecord, error)
	CountByTrackingID(ctx context.Context, trackingID string, excludeID primitive.ObjectID) (int64, error)
}

type Producer interface {
	PublishTrackingChanged(ctx context.Context, msg messages.TrackingChanged) error
}

type Service struct {
	repo       Repository
	cache      cache.BytesCache
	producer   Producer
	currentTTL time.Duration
	now        func() time.Time
}

func New(repo Repository, c cache.BytesCache, p Producer, currentTTL time.Duration) *Service {
	return &Service{
		repo:       repo,
		cache:      c,
		producer:   p,
		currentTTL: currentTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) CreateTracking(ctx context.Context, in models.TrackingCreateInput) (*models.TrackingRecord, error) {
	if in.TrackingID == "" {
		return nil, apperr.Validation("trackingId is required")
	}
	if in.Weight < 0 {
		return nil, apperr.Validation("weight must be non-negative")
	}
	lineColor := in.StatusLineColor
	if lineColor == "" {
		lineColor = models.DefaultStatusLineColor
	}
	dotColor := in.StatusDotColor
	if dotColor == "" {
		dotColor = models.DefaultStatusDotColor
	}

	now := s.now()
	rec := &models.TrackingRecord{
		TrackingID:      in.TrackingID,
		Status:          in.Status,
		StatusLineColor: lineColor,
		StatusDotColor:  dotColor,
		IsBlinking:      in.IsBlinking,
		Sender:          in.Sender,
		Recipient:       in.Recipient,
		Contents:        in.Contents,
		ServiceType:     in.ServiceType,
		Address:         in.Address,
		SpecialHandling: in.SpecialHandling,
		Weight:          in.Weight,
		History:         []models.HistoryEvent{},
		LastUpdated:     now,
		CreatedAt:       now,
	}
	if err := s.repo.InsertTracking(ctx, rec); err != nil {
		return nil, err
	}
	s.afterChange(ctx, rec.TrackingID, messages.ActionCreated)
	return rec, nil
}

// GetTracking — публичный lookup; текущее состояние кэшируется как JSON целиком.
func (s *Service) GetTracking(ctx context.Context, trackingID string) (*models.TrackingRecord, error) {
	if trackingID == "" {
		return nil, apperr.Validation("trackingId is required")
	}

	if s.cache != nil && s.currentTTL > 0 {
		if b, ok, err := s.cache.Get(ctx, currentKey(trackingID)); err == nil && ok {
			var rec models.TrackingRecord
			if json.Unmarshal(b, &rec) == nil {
				return &rec, nil
			}
		}
	}

	rec, err := s.repo.GetByTrackingID(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil && s.currentTTL > 0 {
		if b, err := json.Marshal(rec); err == nil {
			_ = s.cache.Set(ctx, currentKey(trackingID), b, s.currentTTL)
		}
	}
	return rec, nil
}

func (s *Service) ListTrackings(ctx context.Context) ([]*models.TrackingRecord, error) {
	return s.repo.ListTrackings(ctx)
}

func (s *Service) DeleteTracking(ctx context.Context, trackingID string) error {
	if trackingID == "" {
		return apperr.Validation("trackingId is required")
	}
	// История встроена в документ, каскад происходит сам собой.
	if err := s.repo.DeleteTracking(ctx, trackingID); err != nil {
		return err
	}
	s.afterChange(ctx, trackingID, messages.ActionDeleted)
	return nil
}

// EvictCached выбрасывает закэшированное состояние записи.
// Вызывается и после локальных мутаций, и consumer-ом из change feed.
func (s *Service) EvictCached(ctx context.Context, trackingID string) {
	if s.cache == nil || trackingID == "" {
		return
	}
	if err := s.cache.Del(ctx, currentKey(trackingID)); err != nil {
		slog.Warn("cache evict failed", "trackingId", trackingID, "err", err)
	}
}

// afterChange — побочные эффекты успешной мутации: инвалидация кэша
// и событие в change feed. Оба — лучшее усилие, мутацию не откатывают.
func (s *Service) afterChange(ctx context.Context, trackingID, action string) {
	s.EvictCached(ctx, trackingID)
	if s.producer != nil {
		err := s.producer.PublishTrackingChanged(ctx, messages.TrackingChanged{
			TrackingID: trackingID,
			Action:     action,
			ChangedAt:  s.now(),
		})
		if err != nil {
			slog.Warn("publish tracking changed failed", "trackingId", trackingID, "action", action, "err", err)
		}
	}
}

func currentKey(trackingID string) string {
	return fmt.Sprintf("tracking:%s:current", trackingID)
}
