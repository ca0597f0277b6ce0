package trackings_api

import (
	"context"
	"net/http"
	"time"

	"github.com/ParcelDesk/ParcelDesk/internal/api/httpjson"
	"github.com/ParcelDesk/ParcelDesk/internal/apperr"
	"github.com/ParcelDesk/ParcelDesk/internal/models"
	"github.com/ParcelDesk/ParcelDesk/internal/services/trackings"
	"github.com/go-chi/chi/v5"
)

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type TrackingsAPI struct {
	svc *trackings.Service

	limiter     RateLimiter
	publicLimit int64
	limitWindow time.Duration
}

func New(svc *trackings.Service, limiter RateLimiter, publicLimit int64, limitWindow time.Duration) *TrackingsAPI {
	if publicLimit <= 0 {
		publicLimit = 60
	}
	if limitWindow <= 0 {
		limitWindow = time.Minute
	}
	return &TrackingsAPI{
		svc:         svc,
		limiter:     limiter,
		publicLimit: publicLimit,
		limitWindow: limitWindow,
	}
}

// PublicRoutes — незащищённый lookup для страницы отслеживания.
func (a *TrackingsAPI) PublicRoutes(r chi.Router) {
	r.With(a.rateLimit).Get("/track/{trackingId}", a.getTracking)
}

// AdminRoutes монтируется под JWT-мидлварью с ролью admin.
func (a *TrackingsAPI) AdminRoutes(r chi.Router) {
	r.Get("/trackings", a.listTrackings)
	r.Post("/trackings", a.createTracking)
	r.Get("/trackings/{trackingId}", a.getTracking)
	r.Put("/trackings/{trackingId}", a.updateTracking)
	r.Delete("/trackings/{trackingId}", a.deleteTracking)

	r.Post("/trackings/{trackingId}/history", a.addHistory)
	r.Put("/trackings/{trackingId}/history/{historyId}", a.updateHistory)
	r.Delete("/trackings/{trackingId}/history/{historyId}", a.deleteHistory)
}

func (a *TrackingsAPI) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.limiter != nil {
			key := "rl:track:" + r.RemoteAddr
			ok, _, err := a.limiter.Allow(r.Context(), key, a.publicLimit, a.limitWindow)
			// редис лежит — пропускаем, лимитер не должен ронять lookup
			if err == nil && !ok {
				httpjson.Write(w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (a *TrackingsAPI) getTracking(w http.ResponseWriter, r *http.Request) {
	rec, err := a.svc.GetTracking(r.Context(), chi.URLParam(r, "trackingId"))
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, rec)
}

func (a *TrackingsAPI) listTrackings(w http.ResponseWriter, r *http.Request) {
	recs, err := a.svc.ListTrackings(r.Context())
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, recs)
}

func (a *TrackingsAPI) createTracking(w http.ResponseWriter, r *http.Request) {
	var in models.TrackingCreateInput
	if err := httpjson.Decode(r, &in); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	rec, err := a.svc.CreateTracking(r.Context(), in)
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, rec)
}

func (a *TrackingsAPI) updateTracking(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := httpjson.Decode(r, &payload); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	if payload == nil {
		httpjson.Error(w, r, apperr.Validation("request body must be a JSON object"))
		return
	}
	rec, err := a.svc.UpdateTracking(r.Context(), chi.URLParam(r, "trackingId"), payload)
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, rec)
}

func (a *TrackingsAPI) deleteTracking(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.DeleteTracking(r.Context(), chi.URLParam(r, "trackingId")); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (a *TrackingsAPI) addHistory(w http.ResponseWriter, r *http.Request) {
	var in trackings.HistoryAddInput
	if err := httpjson.Decode(r, &in); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	rec, err := a.svc.AddHistory(r.Context(), chi.URLParam(r, "trackingId"), in)
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, rec)
}

func (a *TrackingsAPI) updateHistory(w http.ResponseWriter, r *http.Request) {
	var in trackings.HistoryUpdateInput
	if err := httpjson.Decode(r, &in); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	ev, err := a.svc.UpdateHistory(r.Context(), chi.URLParam(r, "trackingId"), chi.URLParam(r, "historyId"), in)
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, ev)
}

func (a *TrackingsAPI) deleteHistory(w http.ResponseWriter, r *http.Request) {
	rec, err := a.svc.DeleteHistory(r.Context(), chi.URLParam(r, "trackingId"), chi.URLParam(r, "historyId"))
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, rec)
}
