package ports

import (
	"context"

	"agentstore-payments/internal/core/domain"

	"github.com/google/uuid"
)

// AgentRepository is the read-side view of the agent registry owned by the
// CRUD layer, plus the sale-counter side effect.
type AgentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Agent, error)
	IncrementDownloads(ctx context.Context, id uuid.UUID) error
}

// PublisherRepository resolves payout configuration for a publisher.
type PublisherRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Publisher, error)
}

// EntitlementRepository defines persistence operations for entitlements.
type EntitlementRepository interface {
	Create(ctx context.Context, e *domain.Entitlement) error
	GetByToken(ctx context.Context, token string) (*domain.Entitlement, error)
	// FindActive returns the active entitlement for (agent, wallet), or nil.
	FindActive(ctx context.Context, agentID uuid.UUID, walletAddress string) (*domain.Entitlement, error)
	// ListPreconfirmed returns entitlements awaiting confirmation, oldest first.
	ListPreconfirmed(ctx context.Context, limit int) ([]domain.Entitlement, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ConfirmationStatus, active bool) error
	// Delete removes an entitlement. Used as the compensating action when the
	// backing transaction record turns out to be a replay.
	Delete(ctx context.Context, id uuid.UUID) error
}

// TransactionRepository defines persistence for on-chain payment records.
type TransactionRepository interface {
	// Create inserts a transaction record. Returns domain.ErrTxHashExists when
	// tx_hash is already claimed by an earlier purchase.
	Create(ctx context.Context, t *domain.Transaction) error
	GetByHash(ctx context.Context, txHash string) (*domain.Transaction, error)
	GetByEntitlementID(ctx context.Context, entitlementID uuid.UUID) (*domain.Transaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus, confirmations uint64) error
}
