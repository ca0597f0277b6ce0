package trackings

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/ParcelDesk/ParcelDesk/internal/apperr"
	"github.com/ParcelDesk/ParcelDesk/internal/broker/messages"
	"github.com/ParcelDesk/ParcelDesk/internal/models"
	"github.com/ParcelDesk/ParcelDesk/internal/timeparse"
)

// UpdateTracking применяет частичный payload к существующей записи.
// Политика частичного успеха: кривой date/time пропускает только своё поле,
// остальные поля всё равно применяются. Конфликт trackingId отменяет всё.
func (s *Service) UpdateTracking(ctx context.Context, trackingID string, payload map[string]any) (*models.TrackingRecord, error) {
	rec, err := s.repo.GetByTrackingID(ctx, trackingID)
	if err != nil {
		return nil, err
	}

	oldTrackingID := rec.TrackingID
	if raw, ok := payload["trackingId"]; ok {
		if err := s.renameTracking(ctx, rec, raw); err != nil {
			return nil, err
		}
	}

	s.mergeFields(rec, payload)

	rec.LastUpdated = s.now()
	if err := s.repo.SaveTracking(ctx, rec); err != nil {
		return nil, err
	}
	if oldTrackingID != rec.TrackingID {
		// кэш старого идентификатора иначе переживёт переименование
		s.EvictCached(ctx, oldTrackingID)
	}
	s.afterChange(ctx, rec.TrackingID, messages.ActionUpdated)
	return rec, nil
}

func (s *Service) renameTracking(ctx context.Context, rec *models.TrackingRecord, raw any) error {
	newID, ok := raw.(string)
	if !ok || newID == "" {
		return apperr.Validation("trackingId must be a non-empty string")
	}
	if newID == rec.TrackingID {
		return nil
	}
	n, err := s.repo.CountByTrackingID(ctx, newID, rec.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflict("tracking %q already exists", newID)
	}
	rec.TrackingID = newID
	return nil
}

// mergeFields — явная таблица полей вместо динамического присваивания.
// Структурные поля (_id, history, createdAt) сюда не попадают никогда.
func (s *Service) mergeFields(rec *models.TrackingRecord, payload map[string]any) {
	for key, raw := range payload {
		switch key {
		case "status":
			assignString(&rec.Status, raw)
		case "statusLineColor":
			assignString(&rec.StatusLineColor, raw)
		case "statusDotColor":
			assignString(&rec.StatusDotColor, raw)
		case "sender":
			assignString(&rec.Sender, raw)
		case "recipient":
			assignString(&rec.Recipient, raw)
		case "contents":
			assignString(&rec.Contents, raw)
		case "serviceType":
			assignString(&rec.ServiceType, raw)
		case "address":
			assignString(&rec.Address, raw)
		case "specialHandling":
			assignString(&rec.SpecialHandling, raw)
		case "isBlinking":
			// не-булево значение оставляет прежний флаг, а не сбрасывает в false
			if b, ok := raw.(bool); ok {
				rec.IsBlinking = b
			}
		case "weight":
			rec.Weight = coerceWeight(raw)
		case "deliveryEmail":
			// поле давно выпилено, но старые клиенты его ещё шлют
		case "trackingId", "expectedDeliveryDate", "expectedDeliveryTime":
			// обрабатываются отдельными путями
		default:
			// неизвестные ключи молча игнорируются
		}
	}

	dateStr, hasDate := stringValue(payload["expectedDeliveryDate"])
	timeStr, hasTime := stringValue(payload["expectedDeliveryTime"])
	if hasDate || hasTime {
		existing := s.now()
		if rec.ExpectedDelivery != nil {
			existing = *rec.ExpectedDelivery
		}
		ts, err := timeparse.ResolveUTC(existing, dateStr, timeStr)
		if err != nil {
			// поле пропускаем, остальной merge продолжается
			slog.Warn("skip expectedDelivery update",
				"trackingId", rec.TrackingID, "date", dateStr, "time", timeStr, "err", err)
		} else {
			rec.ExpectedDelivery = &ts
		}
	}
}

func assignString(dst *string, raw any) {
	if v, ok := raw.(string); ok {
		*dst = v
	}
}

func stringValue(raw any) (string, bool) {
	if raw == nil {
		return "", false
	}
	v, ok := raw.(string)
	return v, ok
}

// coerceWeight: число — как есть, числовая строка — парсится,
// всё остальное (включая отсутствие смысла) становится нулём.
func coerceWeight(raw any) float64 {
	switch v := raw.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		return 0
	default:
		return 0
	}
}
