package postgres

import (
	"context"
	"errors"
	"fmt"

	"agentstore-payments/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const entitlementColumns = `id, token, agent_id, wallet_address, pricing_model, amount_paid, currency, status, active, expires_at, verify_deadline, created_at`

// EntitlementRepo implements ports.EntitlementRepository.
type EntitlementRepo struct {
	pool Pool
}

// NewEntitlementRepo creates a new EntitlementRepo.
func NewEntitlementRepo(pool Pool) *EntitlementRepo {
	return &EntitlementRepo{pool: pool}
}

// Create inserts a new entitlement.
func (r *EntitlementRepo) Create(ctx context.Context, e *domain.Entitlement) error {
	query := `INSERT INTO entitlements (` + entitlementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		e.ID, e.Token, e.AgentID, e.WalletAddress, e.PricingModel,
		e.AmountPaid, e.Currency, e.Status, e.Active,
		e.ExpiresAt, e.VerifyDeadline, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert entitlement: %w", err)
	}
	return nil
}

// GetByToken fetches an entitlement by its opaque token.
func (r *EntitlementRepo) GetByToken(ctx context.Context, token string) (*domain.Entitlement, error) {
	query := `SELECT ` + entitlementColumns + ` FROM entitlements WHERE token = $1`

	e := &domain.Entitlement{}
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&e.ID, &e.Token, &e.AgentID, &e.WalletAddress, &e.PricingModel,
		&e.AmountPaid, &e.Currency, &e.Status, &e.Active,
		&e.ExpiresAt, &e.VerifyDeadline, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get entitlement by token: %w", err)
	}
	return e, nil
}

// FindActive returns the active entitlement for (agent, wallet), or nil.
func (r *EntitlementRepo) FindActive(ctx context.Context, agentID uuid.UUID, walletAddress string) (*domain.Entitlement, error) {
	query := `SELECT ` + entitlementColumns + ` FROM entitlements
		WHERE agent_id = $1 AND wallet_address = $2 AND active = true
		LIMIT 1`

	e := &domain.Entitlement{}
	err := r.pool.QueryRow(ctx, query, agentID, walletAddress).Scan(
		&e.ID, &e.Token, &e.AgentID, &e.WalletAddress, &e.PricingModel,
		&e.AmountPaid, &e.Currency, &e.Status, &e.Active,
		&e.ExpiresAt, &e.VerifyDeadline, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active entitlement: %w", err)
	}
	return e, nil
}

// ListPreconfirmed returns entitlements awaiting confirmation, oldest first.
func (r *EntitlementRepo) ListPreconfirmed(ctx context.Context, limit int) ([]domain.Entitlement, error) {
	query := `SELECT ` + entitlementColumns + ` FROM entitlements
		WHERE status = $1 AND active = true
		ORDER BY created_at ASC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, domain.StatusPreconfirmed, limit)
	if err != nil {
		return nil, fmt.Errorf("list preconfirmed entitlements: %w", err)
	}
	defer rows.Close()

	var out []domain.Entitlement
	for rows.Next() {
		var e domain.Entitlement
		if err := rows.Scan(
			&e.ID, &e.Token, &e.AgentID, &e.WalletAddress, &e.PricingModel,
			&e.AmountPaid, &e.Currency, &e.Status, &e.Active,
			&e.ExpiresAt, &e.VerifyDeadline, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan entitlement: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entitlements: %w", err)
	}
	return out, nil
}

// UpdateStatus sets an entitlement's confirmation status and active flag. The
// verification deadline is cleared once the entitlement leaves preconfirmed.
func (r *EntitlementRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ConfirmationStatus, active bool) error {
	query := `UPDATE entitlements
		SET status = $2, active = $3,
		    verify_deadline = CASE WHEN $2 = 'preconfirmed' THEN verify_deadline ELSE NULL END
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, status, active)
	if err != nil {
		return fmt.Errorf("update entitlement status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update entitlement status: entitlement %s not found", id)
	}
	return nil
}

// Delete removes an entitlement. Used as the compensating action when the
// backing transaction record turns out to be a replay.
func (r *EntitlementRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM entitlements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete entitlement: %w", err)
	}
	return nil
}
