package httpapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/thusharu-arosh-gunapala/POS-System/internal/domain"
	"github.com/thusharu-arosh-gunapala/POS-System/internal/store"
	"github.com/thusharu-arosh-gunapala/POS-System/internal/xid"
)

var (
	errInvalidCredentials = errors.New("invalid credentials")
	errInvalidToken       = errors.New("invalid token")
)

// AuthManager verifies credentials against the user store and issues signed
// access tokens.
type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	users    store.Repository
}

func NewAuthManager(secret string, tokenTTL time.Duration, users store.Repository) (*AuthManager, error) {
	if len(secret) < 32 {
		return nil, errors.New("auth secret must be at least 32 bytes")
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		users:    users,
	}, nil
}

type accessClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func (m *AuthManager) Login(ctx context.Context, username string, password string) (*domain.LoginResponse, error) {
	if username == "" || password == "" {
		return nil, errInvalidCredentials
	}

	account, err := m.findActiveUser(ctx, username)
	if err != nil {
		// Burn a comparison on misses so both outcomes cost the same.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"), []byte(password))
		return nil, errInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}

	expiresAt := time.Now().UTC().Add(m.tokenTTL)
	claims := accessClaims{
		Username: account.Username,
		Role:     account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, err
	}

	return &domain.LoginResponse{
		AccessToken: token,
		Role:        account.Role,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (m *AuthManager) findActiveUser(ctx context.Context, username string) (*domain.UserAccount, error) {
	users, err := m.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Username == username && users[i].Active {
			return &users[i], nil
		}
	}
	return nil, store.ErrNotFound
}

// ParseToken validates a bearer token and returns the actor it names.
func (m *AuthManager) ParseToken(tokenString string) (*domain.Actor, error) {
	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}
	if claims.Subject == "" || claims.Role == "" {
		return nil, errInvalidToken
	}
	return &domain.Actor{
		UserID:   claims.Subject,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}

func (m *AuthManager) CreateCashier(ctx context.Context, username string, password string) (*domain.CashierUser, error) {
	if len(username) < 3 {
		return nil, fmt.Errorf("%w: username must be at least 3 characters", store.ErrValidation)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", store.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	account := domain.UserAccount{
		ID:        xid.New("usr"),
		Username:  username,
		Password:  string(hash),
		Role:      domain.RoleCashier,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.users.CreateUser(ctx, account); err != nil {
		return nil, err
	}

	return &domain.CashierUser{
		Username:  account.Username,
		Role:      account.Role,
		Active:    account.Active,
		CreatedAt: account.CreatedAt,
	}, nil
}

func (m *AuthManager) ListCashiers(ctx context.Context) ([]domain.CashierUser, error) {
	users, err := m.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	cashiers := make([]domain.CashierUser, 0, len(users))
	for _, u := range users {
		cashiers = append(cashiers, domain.CashierUser{
			Username:  u.Username,
			Role:      u.Role,
			Active:    u.Active,
			CreatedAt: u.CreatedAt,
		})
	}
	return cashiers, nil
}
