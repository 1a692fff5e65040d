package postgres

import (
	"context"
	"errors"
	"fmt"

	"agentstore-payments/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PublisherRepo implements ports.PublisherRepository.
type PublisherRepo struct {
	pool Pool
}

// NewPublisherRepo creates a new PublisherRepo.
func NewPublisherRepo(pool Pool) *PublisherRepo {
	return &PublisherRepo{pool: pool}
}

// GetByID fetches a publisher by its UUID.
func (r *PublisherRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Publisher, error) {
	query := `SELECT id, name, payout_address, verified, created_at
		FROM publishers WHERE id = $1`

	p := &domain.Publisher{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.PayoutAddress, &p.Verified, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get publisher by id: %w", err)
	}
	return p, nil
}
