package postgres

import (
	"context"
	"errors"
	"fmt"

	"agentstore-payments/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const transactionColumns = `id, tx_hash, entitlement_id, agent_id, from_address, to_address, amount, currency, platform_fee, publisher_amount, status, block_number, confirmations, created_at`

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a transaction record. The unique index on tx_hash is the
// replay-protection mechanism: a violation surfaces as
// domain.ErrTxHashExists so the caller can compensate.
func (r *TransactionRepo) Create(ctx context.Context, t *domain.Transaction) error {
	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.pool.Exec(ctx, query,
		t.ID, t.TxHash, t.EntitlementID, t.AgentID,
		t.FromAddress, t.ToAddress, t.Amount, t.Currency,
		t.PlatformFee, t.PublisherAmount, t.Status,
		t.BlockNumber, t.Confirmations, t.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrTxHashExists
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByHash fetches a transaction by its chain hash.
func (r *TransactionRepo) GetByHash(ctx context.Context, txHash string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE tx_hash = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, txHash), "get transaction by hash")
}

// GetByEntitlementID fetches the transaction backing an entitlement.
func (r *TransactionRepo) GetByEntitlementID(ctx context.Context, entitlementID uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE entitlement_id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, entitlementID), "get transaction by entitlement")
}

// UpdateStatus sets a transaction's settlement status and confirmation count.
func (r *TransactionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus, confirmations uint64) error {
	query := `UPDATE transactions SET status = $2, confirmations = $3 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, status, confirmations)
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update transaction status: transaction %s not found", id)
	}
	return nil
}

func (r *TransactionRepo) scanOne(row pgx.Row, op string) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := row.Scan(
		&t.ID, &t.TxHash, &t.EntitlementID, &t.AgentID,
		&t.FromAddress, &t.ToAddress, &t.Amount, &t.Currency,
		&t.PlatformFee, &t.PublisherAmount, &t.Status,
		&t.BlockNumber, &t.Confirmations, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}
