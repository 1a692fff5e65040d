package service

import (
	"fmt"
	"time"

	"agentstore-payments/internal/core/domain"
	"agentstore-payments/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTTokenService implements ports.TokenService using HS256 JWT.
type JWTTokenService struct {
	secret []byte
	expiry time.Duration
	issuer string
}

// NewJWTTokenService creates a new JWT token service.
func NewJWTTokenService(secret string, expiry time.Duration, issuer string) *JWTTokenService {
	return &JWTTokenService{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
	}
}

// Generate creates a signed agent-access JWT from a validated entitlement.
func (s *JWTTokenService) Generate(e *domain.Entitlement) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiry)

	claims := jwt.MapClaims{
		"sub":      e.ID.String(),
		"agent_id": e.AgentID.String(),
		"wallet":   e.WalletAddress,
		"iat":      now.Unix(),
		"exp":      expiresAt.Unix(),
		"iss":      s.issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Validate parses and validates an access JWT, returning the claims.
func (s *JWTTokenService) Validate(tokenString string) (*ports.AccessClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, fmt.Errorf("missing subject claim")
	}
	entitlementID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("invalid entitlement ID in token: %w", err)
	}

	agentRaw, ok := claims["agent_id"].(string)
	if !ok {
		return nil, fmt.Errorf("missing agent claim")
	}
	agentID, err := uuid.Parse(agentRaw)
	if err != nil {
		return nil, fmt.Errorf("invalid agent ID in token: %w", err)
	}

	wallet, _ := claims["wallet"].(string)

	return &ports.AccessClaims{
		EntitlementID: entitlementID,
		AgentID:       agentID,
		WalletAddress: wallet,
	}, nil
}
