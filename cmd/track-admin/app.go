package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	authapi "github.com/ParcelDesk/ParcelDesk/internal/api/auth_api"
	trackingsapi "github.com/ParcelDesk/ParcelDesk/internal/api/trackings_api"
	"github.com/ParcelDesk/ParcelDesk/internal/broker/messages"
	"github.com/ParcelDesk/ParcelDesk/internal/services/trackings"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type trackAdminOpts struct {
	httpAddr    string
	swaggerPath string

	topic         string
	consumerGroup string

	// проверка живости стораджа для /readyz
	ready func(ctx context.Context) error

	onListen func(httpAddr string)
}

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

func runTrackAdmin(ctx context.Context, opts trackAdminOpts, svc *trackings.Service, api *trackingsapi.TrackingsAPI, authAPI *authapi.AuthAPI, consumer kafkaConsumer) error {
	if opts.swaggerPath == "" {
		return fmt.Errorf("swaggerPath env var is required")
	}
	if _, err := os.Stat(opts.swaggerPath); os.IsNotExist(err) {
		return fmt.Errorf("swagger file not found: %s", opts.swaggerPath)
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}

	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if opts.ready != nil {
			if err := opts.ready(r.Context()); err != nil {
				http.Error(w, "storage is not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, opts.swaggerPath)
	})
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger.json"),
	))

	r.Route("/api", func(r chi.Router) {
		api.PublicRoutes(r)
		authAPI.Routes(r)
		r.Route("/admin", func(r chi.Router) {
			r.Use(authAPI.RequireAdmin)
			api.AdminRoutes(r)
		})
	})

	srv := &http.Server{Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	// консьюмер собственного фида изменений: другие инстансы сбрасывают кэш
	if consumer != nil {
		go func() {
			slog.Info("kafka consumer started", "topic", opts.topic, "group", opts.consumerGroup)
			_ = consumer.Consume(ctx, func(_key, value []byte) error {
				var m messages.TrackingChanged
				if err := json.Unmarshal(value, &m); err != nil {
					return err
				}
				svc.EvictCached(ctx, m.TrackingID)
				return nil
			})
		}()
	}

	slog.Info("HTTP server listening", "addr", lis.Addr().String())

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- srv.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-httpErr:
		return err
	}
}
