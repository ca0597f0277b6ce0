package auth_api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ParcelDesk/ParcelDesk/internal/api/httpjson"
	"github.com/ParcelDesk/ParcelDesk/internal/apperr"
	"github.com/ParcelDesk/ParcelDesk/internal/models"
	"github.com/ParcelDesk/ParcelDesk/internal/services/auth"
	"github.com/go-chi/chi/v5"
)

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type AuthAPI struct {
	svc *auth.Service

	limiter    RateLimiter
	loginLimit int64
	limitWindow time.Duration
}

func New(svc *auth.Service, limiter RateLimiter, loginLimit int64, limitWindow time.Duration) *AuthAPI {
	if loginLimit <= 0 {
		loginLimit = 10
	}
	if limitWindow <= 0 {
		limitWindow = time.Minute
	}
	return &AuthAPI{svc: svc, limiter: limiter, loginLimit: loginLimit, limitWindow: limitWindow}
}

func (a *AuthAPI) Routes(r chi.Router) {
	r.Post("/auth/login", a.login)
	// регистрацию новых аккаунтов может делать только существующий админ
	r.With(a.RequireAdmin).Post("/auth/register", a.register)
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *AuthAPI) login(w http.ResponseWriter, r *http.Request) {
	if a.limiter != nil {
		key := "rl:login:" + r.RemoteAddr
		ok, _, err := a.limiter.Allow(r.Context(), key, a.loginLimit, a.limitWindow)
		if err == nil && !ok {
			httpjson.Write(w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
			return
		}
	}

	var in credentials
	if err := httpjson.Decode(r, &in); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	token, err := a.svc.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]string{"token": token})
}

func (a *AuthAPI) register(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := httpjson.Decode(r, &in); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	u, err := a.svc.Register(r.Context(), in.Username, in.Password)
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, u)
}

type ctxKey int

const identityKey ctxKey = 0

// RequireAdmin проверяет bearer-токен и пускает дальше только админа.
func (a *AuthAPI) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			httpjson.Error(w, r, apperr.Auth("missing credentials"))
			return
		}
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			httpjson.Error(w, r, apperr.Auth("invalid authorization header"))
			return
		}

		id, err := a.svc.Verify(tokenString)
		if err != nil {
			httpjson.Error(w, r, err)
			return
		}
		if id.Role != models.RoleAdmin {
			httpjson.Error(w, r, apperr.Forbidden("admin role required"))
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
	})
}

// IdentityFrom достаёт личность, положенную RequireAdmin.
func IdentityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(auth.Identity)
	return id, ok
}
