package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"blockify-backend/internal/auth"
	"blockify-backend/internal/models"

	"github.com/go-redis/redis/v8"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	denylistPrefix = "denylist:"
	userCacheTTL   = time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user is disabled")
	ErrDenylistDisabled   = errors.New("token denylist is not configured")
)

// IdentityService turns bearer tokens into principals. Users are cached in Redis and
// revoked tokens are kept on a Redis denylist until they would have expired.
type IdentityService struct {
	db     *gorm.DB
	redis  *redis.Client
	tokens *auth.TokenManager
}

// NewIdentityService accepts a nil redis client; caching and revocation are then skipped.
func NewIdentityService(db *gorm.DB, redisClient *redis.Client, tokens *auth.TokenManager) *IdentityService {
	return &IdentityService{db: db, redis: redisClient, tokens: tokens}
}

func (s *IdentityService) Login(ctx context.Context, username, password string) (string, models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", models.User{}, ErrInvalidCredentials
		}
		return "", models.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", models.User{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", models.User{}, ErrUserInactive
	}

	token, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		return "", models.User{}, err
	}
	return token, user, nil
}

// Logout denylists the token for the rest of its lifetime.
func (s *IdentityService) Logout(ctx context.Context, tokenString string) error {
	if s.redis == nil {
		return ErrDenylistDisabled
	}

	ttl := auth.TokenTTL
	if claims, err := s.tokens.Validate(tokenString); err == nil && claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}
	return s.redis.Set(ctx, denylistPrefix+tokenString, 1, ttl).Err()
}

// Authenticate resolves a token to the principal of an active user. The role comes
// from the stored user, not from the token.
func (s *IdentityService) Authenticate(ctx context.Context, tokenString string) (auth.Principal, error) {
	revoked, err := s.isDenylisted(ctx, tokenString)
	if err != nil {
		return auth.Principal{}, fmt.Errorf("check token status: %w", err)
	}
	if revoked {
		return auth.Principal{}, ErrTokenRevoked
	}

	claims, err := s.tokens.Validate(tokenString)
	if err != nil {
		return auth.Principal{}, ErrInvalidToken
	}

	user, err := s.FindUserByID(ctx, claims.UserID)
	if err != nil {
		return auth.Principal{}, err
	}
	if !user.IsActive {
		return auth.Principal{}, ErrUserInactive
	}
	return auth.Principal{UserID: user.ID, Username: user.Username, Role: user.Role}, nil
}

func (s *IdentityService) FindUserByID(ctx context.Context, userID uint) (models.User, error) {
	cacheKey := fmt.Sprintf("user:%d", userID)
	if s.redis != nil {
		if val, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var user models.User
			if err := json.Unmarshal([]byte(val), &user); err == nil {
				return user, nil
			}
		}
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(user); err == nil {
			s.redis.Set(ctx, cacheKey, data, userCacheTTL)
		}
	}
	return user, nil
}

// EnsureAdmin creates the admin account when it does not exist yet.
func (s *IdentityService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	var existing models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	if password == "" {
		return false, errors.New("admin password is not configured")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}
	admin := models.User{
		Username: username,
		Password: string(hashed),
		Role:     models.RoleAdmin,
		IsActive: true,
	}
	if err := s.db.WithContext(ctx).Create(&admin).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (s *IdentityService) isDenylisted(ctx context.Context, tokenString string) (bool, error) {
	if s.redis == nil {
		return false, nil
	}
	val, err := s.redis.Get(ctx, denylistPrefix+tokenString).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return val != "", nil
}
