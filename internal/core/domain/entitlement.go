package domain

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ConfirmationStatus tracks how settled an on-chain payment is.
type ConfirmationStatus string

const (
	// StatusPreconfirmed means the relay has committed to inclusion but the
	// transaction has not yet reached the confirmation depth threshold.
	StatusPreconfirmed ConfirmationStatus = "preconfirmed"
	StatusConfirmed    ConfirmationStatus = "confirmed"
	StatusRevoked      ConfirmationStatus = "revoked"
)

// Entitlement grants a wallet access to a paid agent.
// At most one active entitlement exists per (agent, wallet) pair.
type Entitlement struct {
	ID             uuid.UUID          `json:"id"`
	Token          string             `json:"token"` // opaque, 256-bit entropy
	AgentID        uuid.UUID          `json:"agent_id"`
	WalletAddress  string             `json:"wallet_address"` // lower-cased canonical form
	PricingModel   PricingModel       `json:"pricing_model"`
	AmountPaid     string             `json:"amount_paid"` // decimal string in Currency units
	Currency       string             `json:"currency"`
	Status         ConfirmationStatus `json:"status"`
	Active         bool               `json:"active"`
	ExpiresAt      *time.Time         `json:"expires_at,omitempty"`
	VerifyDeadline *time.Time         `json:"verify_deadline,omitempty"` // set only while preconfirmed
	CreatedAt      time.Time          `json:"created_at"`
}

// IsUsable reports whether the entitlement currently grants access.
func (e *Entitlement) IsUsable(now time.Time) bool {
	if !e.Active || e.Status == StatusRevoked {
		return false
	}
	if e.ExpiresAt != nil && now.After(*e.ExpiresAt) {
		return false
	}
	return true
}

// DeadlinePassed reports whether a preconfirmed entitlement has outlived its
// verification window and should be swept.
func (e *Entitlement) DeadlinePassed(now time.Time) bool {
	return e.Status == StatusPreconfirmed &&
		e.VerifyDeadline != nil &&
		now.After(*e.VerifyDeadline)
}

// NewEntitlementToken returns an unguessable opaque token (32 random bytes,
// hex-encoded).
func NewEntitlementToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// NormalizeAddress lower-cases a wallet address into its canonical form.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
