package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/ParcelDesk/ParcelDesk/internal/apperr"
	"github.com/ParcelDesk/ParcelDesk/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	pkgerrors "github.com/pkg/errors"
)

type UserRepository interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	InsertUser(ctx context.Context, u *models.User) error
	CountUsers(ctx context.Context) (int64, error)
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Identity — результат проверки bearer-токена.
type Identity struct {
	Username string
	Role     string
}

type Service struct {
	repo     UserRepository
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

func New(repo UserRepository, secret string, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{
		repo:     repo,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Register(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" {
		return nil, apperr.Validation("username is required")
	}
	if len(password) < 8 {
		return nil, apperr.Validation("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "hash password")
	}

	u := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		CreatedAt:    s.now(),
	}
	if err := s.repo.InsertUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login проверяет пару логин/пароль и выдаёт подписанный HS256 токен.
// Неизвестный логин и неверный пароль неотличимы снаружи.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", apperr.Validation("username and password are required")
	}

	u, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return "", apperr.Auth("invalid credentials")
		}
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", apperr.Auth("invalid credentials")
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", pkgerrors.Wrap(err, "sign token")
	}
	return signed, nil
}

// Verify различает отсутствующий, протухший и просто невалидный токен.
func (s *Service) Verify(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, apperr.Auth("missing credentials")
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, pkgerrors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if pkgerrors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, apperr.Auth("token expired")
		}
		return Identity{}, apperr.Auth("invalid token")
	}
	if !token.Valid || claims.Subject == "" {
		return Identity{}, apperr.Auth("invalid token")
	}
	return Identity{Username: claims.Subject, Role: claims.Role}, nil
}

// EnsureAdmin создаёт стартовый админский аккаунт, если пользователей ещё нет.
// Вызывается один раз при старте приложения.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	n, err := s.repo.CountUsers(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := s.Register(ctx, username, password); err != nil {
		return err
	}
	slog.Info("seeded initial admin account", "username", username)
	return nil
}
