package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agentstore-payments/internal/core/domain"
	"agentstore-payments/internal/core/ports"
	"agentstore-payments/pkg/apperror"

	"github.com/rs/zerolog"
)

// EntitlementServiceImpl implements ports.EntitlementService: it exchanges an
// opaque entitlement token for a short-lived agent-access JWT, with a Redis
// fast path in front of the database.
type EntitlementServiceImpl struct {
	entRepo  ports.EntitlementRepository
	cache    ports.EntitlementCache
	tokens   ports.TokenService
	cacheTTL time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

// NewEntitlementService creates a new EntitlementServiceImpl.
func NewEntitlementService(
	entRepo ports.EntitlementRepository,
	cache ports.EntitlementCache,
	tokens ports.TokenService,
	cacheTTL time.Duration,
	log zerolog.Logger,
) *EntitlementServiceImpl {
	return &EntitlementServiceImpl{
		entRepo:  entRepo,
		cache:    cache,
		tokens:   tokens,
		cacheTTL: cacheTTL,
		log:      log,
		now:      time.Now,
	}
}

// ValidateToken resolves the entitlement behind an opaque token and, when it
// still grants access, issues an access JWT for agent invocation.
func (s *EntitlementServiceImpl) ValidateToken(ctx context.Context, token string) (*ports.AccessGrant, error) {
	entitlement := s.fromCache(ctx, token)
	if entitlement == nil {
		var err error
		entitlement, err = s.entRepo.GetByToken(ctx, token)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("lookup entitlement: %w", err))
		}
		if entitlement == nil {
			return nil, apperror.ErrNotFound("entitlement")
		}
		s.toCache(ctx, token, entitlement)
	}

	if !entitlement.IsUsable(s.now()) {
		return nil, apperror.ErrEntitlementRevoked()
	}

	accessToken, expiresAt, err := s.tokens.Generate(entitlement)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("issue access token: %w", err))
	}

	return &ports.AccessGrant{
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
		Entitlement: entitlement,
	}, nil
}

// fromCache is best-effort: any cache trouble falls through to the database.
func (s *EntitlementServiceImpl) fromCache(ctx context.Context, token string) *domain.Entitlement {
	raw, err := s.cache.Get(ctx, token)
	if err != nil {
		s.log.Warn().Err(err).Msg("entitlement cache read failed")
		return nil
	}
	if raw == nil {
		return nil
	}
	var e domain.Entitlement
	if err := json.Unmarshal(raw, &e); err != nil {
		s.log.Warn().Err(err).Msg("corrupt entitlement cache entry")
		return nil
	}
	return &e
}

func (s *EntitlementServiceImpl) toCache(ctx context.Context, token string, e *domain.Entitlement) {
	raw, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, token, raw, s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Msg("entitlement cache write failed")
	}
}
