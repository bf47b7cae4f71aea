package httpapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"dairyledger/internal/domain"
	"dairyledger/internal/store"
)

type AuthManager struct {
	secret    []byte
	tokenTTL  time.Duration
	userStore UserStore
}

type UserStore interface {
	CreateApprovedUser(ctx context.Context, user domain.ApprovedUser) error
	GetApprovedUser(ctx context.Context, key string) (*domain.ApprovedUser, error)
	ListApprovedUsers(ctx context.Context) ([]domain.ApprovedUser, error)
	DeleteApprovedUser(ctx context.Context, key string) error
}

type ledgerClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, userStore UserStore) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}

	return &AuthManager{
		secret:    []byte(secret),
		tokenTTL:  tokenTTL,
		userStore: userStore,
	}
}

func roleFor(user domain.ApprovedUser) string {
	if user.IsAdmin {
		return domain.RoleAdmin
	}
	return domain.RoleOperator
}

// Login checks the credentials against the approved-user store. The lookup
// key is a hash of the normalized email, so the store never needs to be
// scanned and unknown emails cost the same as wrong passwords.
func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return domain.LoginResponse{}, errors.New("invalid credentials")
	}

	user, err := a.userStore.GetApprovedUser(ctx, domain.UserKey(email))
	if err != nil {
		return domain.LoginResponse{}, errors.New("invalid credentials")
	}
	if !verifyPassword(user.PasswordHash, req.Password) {
		return domain.LoginResponse{}, errors.New("invalid credentials")
	}

	role := roleFor(*user)
	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(user.Email, role, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		Role:        role,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &ledgerClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{Email: sub, Role: claims.Role}, nil
}

func (a *AuthManager) sign(email, role string, expiresAt time.Time) (string, error) {
	claims := ledgerClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "dairyledger",
		},
		Role: role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// GrantAccess approves a new user. Caller must already be authorized as
// admin; this only validates and stores.
func (a *AuthManager) GrantAccess(ctx context.Context, req domain.ApprovedUserCreateRequest) (domain.ApprovedUser, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") || strings.ContainsAny(email, " \t\r\n") {
		return domain.ApprovedUser{}, fmt.Errorf("a valid email address is required")
	}
	if strings.TrimSpace(req.Password) == "" || len(req.Password) < 6 {
		return domain.ApprovedUser{}, fmt.Errorf("password must be at least 6 characters")
	}

	key := domain.UserKey(email)
	if _, err := a.userStore.GetApprovedUser(ctx, key); err == nil {
		return domain.ApprovedUser{}, fmt.Errorf("user already approved")
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.ApprovedUser{}, err
	}

	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		return domain.ApprovedUser{}, fmt.Errorf("failed to hash password")
	}

	user := domain.ApprovedUser{
		Key:          key,
		Email:        email,
		PasswordHash: passwordHash,
		IsAdmin:      req.IsAdmin,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.userStore.CreateApprovedUser(ctx, user); err != nil {
		return domain.ApprovedUser{}, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (a *AuthManager) ListApprovedUsers(ctx context.Context) ([]domain.ApprovedUser, error) {
	return a.userStore.ListApprovedUsers(ctx)
}

// RevokeAccess deletes an approved user by email or by key, whichever the
// caller has at hand.
func (a *AuthManager) RevokeAccess(ctx context.Context, emailOrKey string) error {
	key := strings.TrimSpace(emailOrKey)
	if strings.Contains(key, "@") {
		key = domain.UserKey(key)
	}
	return a.userStore.DeleteApprovedUser(ctx, key)
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
