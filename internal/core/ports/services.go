package ports

import (
	"context"
	"math/big"
	"time"

	"agentstore-payments/internal/core/domain"

	"github.com/google/uuid"
)

// PriceFeed is the upstream fiat/crypto spot-price source.
type PriceFeed interface {
	// SpotPrice returns the current USD price of the chain's native currency.
	// A non-positive or missing upstream value is an error.
	SpotPrice(ctx context.Context) (float64, error)
}

// PriceOracle converts fiat prices into on-chain amounts.
type PriceOracle interface {
	// GetPrice returns the current USD price of the chain's native currency.
	GetPrice(ctx context.Context) (float64, error)
	// UsdToWei converts a USD amount into wei at the current rate.
	UsdToWei(ctx context.Context, usd float64) (*big.Int, error)
}

// VerifyParams are the expected payment parameters for one transaction.
type VerifyParams struct {
	TxHash         string
	ExpectedFrom   string
	ExpectedTo     string
	ExpectedAmount *big.Int // wei
	SlippageBps    int64    // one-sided tolerance relaxing the minimum only
}

// ChainVerifier validates on-chain payments against expectations.
type ChainVerifier interface {
	Verify(ctx context.Context, p VerifyParams) domain.VerificationResult
	// Reverify re-checks only execution success and confirmation depth.
	// Errors yield preconfirmed, never revoked: a transient RPC failure during
	// a background sweep must not revoke a legitimate purchase.
	Reverify(ctx context.Context, txHash string) domain.ConfirmationStatus
}

// PaymentTerms describe what the facilitator should collect.
type PaymentTerms struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	PayTo    string `json:"pay_to"`
	Network  string `json:"network"`
}

// SettlementRequest is the body forwarded to the facilitator's /verify and
// /settle endpoints.
type SettlementRequest struct {
	Authorization   domain.TransferAuthorization `json:"authorization"`
	PaymentRequired PaymentTerms                 `json:"payment_required"`
	Payer           string                       `json:"payer"`
	FeeSplit        domain.FeeSplit              `json:"fee_split"`
}

// FacilitatorVerdict is the facilitator's answer to /verify.
type FacilitatorVerdict struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// SettlementProof is the facilitator's answer to /settle.
type SettlementProof struct {
	TxHash        string `json:"tx_hash"`
	Status        string `json:"status"` // "confirmed" or "preconfirmed"
	Confirmations uint64 `json:"confirmations"`
	Network       string `json:"network,omitempty"`
}

// FacilitatorClient talks to the external gasless-settlement service.
type FacilitatorClient interface {
	Verify(ctx context.Context, req SettlementRequest) (*FacilitatorVerdict, error)
	Settle(ctx context.Context, req SettlementRequest) (*SettlementProof, error)
}

// NonceStore tracks consumed transfer-authorization nonces for replay
// prevention on the gasless path.
type NonceStore interface {
	// CheckAndSet atomically checks if a nonce exists, sets it if not.
	// Returns true if the nonce is new (valid), false if already used.
	CheckAndSet(ctx context.Context, payer string, nonce string, ttl time.Duration) (bool, error)
	// Release frees a burned nonce so the authorization can be retried.
	// Called only when no settlement happened.
	Release(ctx context.Context, payer string, nonce string) error
}

// EntitlementCache is a fast-path cache for entitlement token validation.
type EntitlementCache interface {
	Get(ctx context.Context, token string) ([]byte, error) // cached entitlement JSON or nil
	Set(ctx context.Context, token string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, token string) error
}

// AccessClaims are the parsed claims of an agent-access JWT.
type AccessClaims struct {
	EntitlementID uuid.UUID
	AgentID       uuid.UUID
	WalletAddress string
}

// TokenService issues and validates short-lived agent-access JWTs exchanged
// for opaque entitlement tokens.
type TokenService interface {
	Generate(e *domain.Entitlement) (string, time.Time, error)
	Validate(tokenString string) (*AccessClaims, error)
}

// --- Service Ports (Business Logic) ---

// PurchaseRequest holds validated input for a tx-hash purchase.
type PurchaseRequest struct {
	AgentID       uuid.UUID
	WalletAddress string
	TxHash        string
}

// PurchaseResult is the outcome of a successful purchase.
type PurchaseResult struct {
	Entitlement *domain.Entitlement
	Transaction *domain.Transaction
	FeeSplit    domain.FeeSplit
}

// PurchaseService reconciles a claimed on-chain payment into an entitlement.
type PurchaseService interface {
	Purchase(ctx context.Context, req PurchaseRequest) (*PurchaseResult, error)
}

// SettleRequest holds validated input for the gasless settlement path.
type SettleRequest struct {
	AgentID       uuid.UUID
	WalletAddress string
	Authorization domain.TransferAuthorization
}

// SettleResult is the outcome of a successful gasless settlement.
type SettleResult struct {
	Entitlement *domain.Entitlement
	Transaction *domain.Transaction
	FeeSplit    domain.FeeSplit
	Proof       *SettlementProof
}

// SettlementService forwards signed transfer authorizations to the
// facilitator and records the resulting proof.
type SettlementService interface {
	Settle(ctx context.Context, req SettleRequest) (*SettleResult, error)
}

// AccessGrant is the result of exchanging an entitlement token.
type AccessGrant struct {
	AccessToken string
	ExpiresAt   time.Time
	Entitlement *domain.Entitlement
}

// EntitlementService validates opaque entitlement tokens and issues access JWTs.
type EntitlementService interface {
	ValidateToken(ctx context.Context, token string) (*AccessGrant, error)
}

// SweepStats summarizes one background re-confirmation pass.
type SweepStats struct {
	Checked  int
	Promoted int
	Revoked  int
	Expired  int
}

// ReverifyService re-checks preconfirmed entitlements against the chain.
type ReverifyService interface {
	Sweep(ctx context.Context) (SweepStats, error)
}
