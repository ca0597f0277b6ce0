package trackings

import (
	"context"
	"sort"

	"github.com/ParcelDesk/ParcelDesk/internal/apperr"
	"github.com/ParcelDesk/ParcelDesk/internal/broker/messages"
	"github.com/ParcelDesk/ParcelDesk/internal/models"
	"github.com/ParcelDesk/ParcelDesk/internal/timeparse"
	"github.com/google/uuid"
)

type HistoryAddInput struct {
	Description string `json:"description"`
	Location    string `json:"location"`
	Date        string `json:"date"`
	Time        string `json:"time"`
}

// Частичный payload: nil-поля отсутствовали в запросе.
type HistoryUpdateInput struct {
	Description *string `json:"description"`
	Location    *string `json:"location"`
	Date        string  `json:"date"`
	Time        string  `json:"time"`
}

// AddHistory добавляет событие со свежим id. Момент — текущее время,
// если вызывающий не передал дату/время (недостающая половина — из "сейчас").
func (s *Service) AddHistory(ctx context.Context, trackingID string, in HistoryAddInput) (*models.TrackingRecord, error) {
	if in.Description == "" {
		return nil, apperr.Validation("description is required")
	}

	rec, err := s.repo.GetByTrackingID(ctx, trackingID)
	if err != nil {
		return nil, err
	}

	ts := s.now()
	if in.Date != "" || in.Time != "" {
		ts, err = timeparse.ResolveUTC(s.now(), in.Date, in.Time)
		if err != nil {
			return nil, err
		}
	}

	rec.History = append(rec.History, models.HistoryEvent{
		ID:          uuid.NewString(),
		Timestamp:   ts,
		Location:    in.Location,
		Description: in.Description,
	})
	sortHistory(rec.History)

	rec.LastUpdated = s.now()
	if err := s.repo.SaveTracking(ctx, rec); err != nil {
		return nil, err
	}
	s.afterChange(ctx, rec.TrackingID, messages.ActionUpdated)
	return rec, nil
}

// UpdateHistory правит событие по id. В отличие от merge записи, здесь
// fail-fast: сначала валидируется дата/время, и только потом применяются поля.
func (s *Service) UpdateHistory(ctx context.Context, trackingID, historyID string, in HistoryUpdateInput) (*models.HistoryEvent, error) {
	rec, err := s.repo.GetByTrackingID(ctx, trackingID)
	if err != nil {
		return nil, err
	}

	idx := findHistory(rec.History, historyID)
	if idx < 0 {
		return nil, apperr.NotFound("history event %q not found", historyID)
	}
	ev := &rec.History[idx]

	newTS := ev.Timestamp
	if in.Date != "" || in.Time != "" {
		// недостающая половина — из собственного момента события,
		// а не из expectedDelivery родительской записи
		newTS, err = timeparse.ResolveUTC(ev.Timestamp, in.Date, in.Time)
		if err != nil {
			return nil, err
		}
	}
	if in.Description != nil && *in.Description == "" {
		return nil, apperr.Validation("description must not be empty")
	}

	ev.Timestamp = newTS
	if in.Description != nil {
		ev.Description = *in.Description
	}
	if in.Location != nil {
		ev.Location = *in.Location
	}
	// правка времени может поменять порядок событий
	sortHistory(rec.History)

	rec.LastUpdated = s.now()
	if err := s.repo.SaveTracking(ctx, rec); err != nil {
		return nil, err
	}
	s.afterChange(ctx, rec.TrackingID, messages.ActionUpdated)

	idx = findHistory(rec.History, historyID)
	out := rec.History[idx]
	return &out, nil
}

func (s *Service) DeleteHistory(ctx context.Context, trackingID, historyID string) (*models.TrackingRecord, error) {
	rec, err := s.repo.GetByTrackingID(ctx, trackingID)
	if err != nil {
		return nil, err
	}

	idx := findHistory(rec.History, historyID)
	if idx < 0 {
		return nil, apperr.NotFound("history event %q not found", historyID)
	}

	rec.History = append(rec.History[:idx], rec.History[idx+1:]...)
	// сортировка здесь ничего не меняет, но инвариант держим явно
	sortHistory(rec.History)

	rec.LastUpdated = s.now()
	if err := s.repo.SaveTracking(ctx, rec); err != nil {
		return nil, err
	}
	s.afterChange(ctx, rec.TrackingID, messages.ActionUpdated)
	return rec, nil
}

func findHistory(history []models.HistoryEvent, id string) int {
	for i := range history {
		if history[i].ID == id {
			return i
		}
	}
	return -1
}

func sortHistory(history []models.HistoryEvent) {
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Timestamp.Before(history[j].Timestamp)
	})
}
