package auth_api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ParcelDesk/ParcelDesk/internal/apperr"
	"github.com/ParcelDesk/ParcelDesk/internal/models"
	"github.com/ParcelDesk/ParcelDesk/internal/services/auth"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "test-secret"

type memUserRepo struct {
	users map[string]*models.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[string]*models.User{}}
}

func (r *memUserRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u, ok := r.users[username]
	if !ok {
		return nil, apperr.NotFound("user %q not found", username)
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) InsertUser(ctx context.Context, u *models.User) error {
	if _, ok := r.users[u.Username]; ok {
		return apperr.Conflict("user %q already exists", u.Username)
	}
	u.ID = primitive.NewObjectID()
	r.users[u.Username] = u
	return nil
}

func (r *memUserRepo) CountUsers(ctx context.Context) (int64, error) {
	return int64(len(r.users)), nil
}

func newRouter(t *testing.T) (*chi.Mux, *auth.Service) {
	t.Helper()

	svc := auth.New(newMemUserRepo(), testSecret, time.Hour)
	_, err := svc.Register(context.Background(), "admin", "admin-password")
	require.NoError(t, err)

	api := New(svc, nil, 10, time.Minute)
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		api.Routes(r)
		r.Route("/admin", func(r chi.Router) {
			r.Use(api.RequireAdmin)
			r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
				id, ok := IdentityFrom(r.Context())
				require.True(t, ok)
				w.Write([]byte(id.Username))
			})
		})
	})
	return r, svc
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestLogin(t *testing.T) {
	r, _ := newRouter(t)

	w := postJSON(t, r, "/api/auth/login", credentials{Username: "admin", Password: "admin-password"})
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body["token"])
}

func TestLogin_BadPassword(t *testing.T) {
	r, _ := newRouter(t)

	w := postJSON(t, r, "/api/auth/login", credentials{Username: "admin", Password: "nope"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdmin(t *testing.T) {
	r, svc := newRouter(t)

	token, err := svc.Login(context.Background(), "admin", "admin-password")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "admin", w.Body.String())
}

func TestRequireAdmin_MissingHeader(t *testing.T) {
	r, _ := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdmin_BadScheme(t *testing.T) {
	r, _ := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/ping", nil)
	req.Header.Set("Authorization", "Basic abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdmin_WrongRole(t *testing.T) {
	r, _ := newRouter(t)

	// токен с чужой ролью, подписанный тем же секретом
	claims := auth.Claims{
		Role: "viewer",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "viewer",
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwt.NewNumericDate(time.Now().UTC().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRegister_RequiresAdminToken(t *testing.T) {
	r, svc := newRouter(t)

	w := postJSON(t, r, "/api/auth/register", credentials{Username: "second", Password: "password-2"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := svc.Login(context.Background(), "admin", "admin-password")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(credentials{Username: "second", Password: "password-2"}))
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
}
