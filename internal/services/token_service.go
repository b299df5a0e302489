package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"

	"github.com/tbourn/go-mdt-backend/internal/auth"
	"github.com/tbourn/go-mdt-backend/internal/domain"
	"github.com/tbourn/go-mdt-backend/internal/repo"
)

// DefaultTokenCacheTTL is how long a verified bot token is trusted without
// consulting the database.
const DefaultTokenCacheTTL = 5 * time.Minute

// TokenService mints, verifies and revokes bot API tokens. Verified tokens
// are memoized by hash for the cache TTL.
type TokenService struct {
	DB    *gorm.DB
	cache *cache.Cache
}

// NewTokenService returns a TokenService whose verification memo lives for
// ttl (DefaultTokenCacheTTL when <= 0).
func NewTokenService(db *gorm.DB, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenCacheTTL
	}
	return &TokenService{DB: db, cache: cache.New(ttl, 2*ttl)}
}

// Create stores a new token named name and returns its plaintext, which is
// not recoverable afterwards.
func (s *TokenService) Create(ctx context.Context, actor auth.Principal, name string) (string, *domain.APIToken, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil, invalid("name is required")
	}
	plain, hash, err := auth.NewBotToken()
	if err != nil {
		return "", nil, err
	}
	t := &domain.APIToken{Name: name, TokenHash: hash, CreatedBy: actor.OfficerID}
	if err := repo.CreateToken(ctx, s.DB, t); err != nil {
		return "", nil, err
	}
	return plain, t, nil
}

// List returns every token, newest first.
func (s *TokenService) List(ctx context.Context) ([]domain.APIToken, error) {
	return repo.ListTokens(ctx, s.DB)
}

// Revoke disables a token immediately, including on the memo.
func (s *TokenService) Revoke(ctx context.Context, id uint) error {
	t, err := repo.GetRecord[domain.APIToken](ctx, s.DB, id)
	if err != nil {
		return mapNotFound(err)
	}
	if err := repo.RevokeToken(ctx, s.DB, id, time.Now().UTC()); err != nil {
		return mapNotFound(err)
	}
	s.cache.Delete(t.TokenHash)
	return nil
}

// Verify returns the active token matching plain or ErrTokenInvalid.
func (s *TokenService) Verify(ctx context.Context, plain string) (*domain.APIToken, error) {
	plain = strings.TrimSpace(plain)
	if !strings.HasPrefix(plain, auth.BotTokenPrefix) {
		return nil, ErrTokenInvalid
	}
	hash := auth.HashBotToken(plain)
	if v, ok := s.cache.Get(hash); ok {
		return v.(*domain.APIToken), nil
	}

	t, err := repo.GetActiveTokenByHash(ctx, s.DB, hash)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	now := time.Now().UTC()
	_ = repo.TouchToken(ctx, s.DB, t.ID, now)
	t.LastUsedAt = &now
	s.cache.Set(hash, t, cache.DefaultExpiration)
	return t, nil
}
