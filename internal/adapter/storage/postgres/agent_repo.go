package postgres

import (
	"context"
	"errors"
	"fmt"

	"agentstore-payments/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AgentRepo implements ports.AgentRepository over the registry's agents table.
type AgentRepo struct {
	pool Pool
}

// NewAgentRepo creates a new AgentRepo.
func NewAgentRepo(pool Pool) *AgentRepo {
	return &AgentRepo{pool: pool}
}

// GetByID fetches an agent by its UUID.
func (r *AgentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Agent, error) {
	query := `SELECT id, name, publisher_id, pricing_model, price_usd, published, downloads, created_at
		FROM agents WHERE id = $1`

	a := &domain.Agent{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.Name, &a.PublisherID, &a.PricingModel,
		&a.PriceUSD, &a.Published, &a.Downloads, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get agent by id: %w", err)
	}
	return a, nil
}

// IncrementDownloads bumps the agent's sale counter.
func (r *AgentRepo) IncrementDownloads(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE agents SET downloads = downloads + 1 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("increment downloads: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("increment downloads: agent %s not found", id)
	}
	return nil
}
