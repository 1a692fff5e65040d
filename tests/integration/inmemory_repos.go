package integration

import (
	"context"
	"fmt"
	"sync"

	"agentstore-payments/internal/core/domain"

	"github.com/google/uuid"
)

// --- In-Memory Agent Repo ---

type inMemoryAgentRepo struct {
	mu     sync.RWMutex
	agents map[uuid.UUID]*domain.Agent
}

func newInMemoryAgentRepo() *inMemoryAgentRepo {
	return &inMemoryAgentRepo{agents: make(map[uuid.UUID]*domain.Agent)}
}

func (r *inMemoryAgentRepo) add(a *domain.Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a.ID] = a
}

func (r *inMemoryAgentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (r *inMemoryAgentRepo) IncrementDownloads(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[id]
	if !ok {
		return fmt.Errorf("agent not found")
	}
	a.Downloads++
	return nil
}

// --- In-Memory Publisher Repo ---

type inMemoryPublisherRepo struct {
	mu         sync.RWMutex
	publishers map[uuid.UUID]*domain.Publisher
}

func newInMemoryPublisherRepo() *inMemoryPublisherRepo {
	return &inMemoryPublisherRepo{publishers: make(map[uuid.UUID]*domain.Publisher)}
}

func (r *inMemoryPublisherRepo) add(p *domain.Publisher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publishers[p.ID] = p
}

func (r *inMemoryPublisherRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Publisher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.publishers[id]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

// --- In-Memory Entitlement Repo ---

type inMemoryEntitlementRepo struct {
	mu           sync.RWMutex
	entitlements map[uuid.UUID]*domain.Entitlement
}

func newInMemoryEntitlementRepo() *inMemoryEntitlementRepo {
	return &inMemoryEntitlementRepo{entitlements: make(map[uuid.UUID]*domain.Entitlement)}
}

func (r *inMemoryEntitlementRepo) Create(ctx context.Context, e *domain.Entitlement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *e
	r.entitlements[e.ID] = &copied
	return nil
}

func (r *inMemoryEntitlementRepo) GetByToken(ctx context.Context, token string) (*domain.Entitlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entitlements {
		if e.Token == token {
			copied := *e
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *inMemoryEntitlementRepo) FindActive(ctx context.Context, agentID uuid.UUID, walletAddress string) (*domain.Entitlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entitlements {
		if e.AgentID == agentID && e.WalletAddress == walletAddress && e.Active {
			copied := *e
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *inMemoryEntitlementRepo) ListPreconfirmed(ctx context.Context, limit int) ([]domain.Entitlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Entitlement
	for _, e := range r.entitlements {
		if e.Status == domain.StatusPreconfirmed && e.Active {
			out = append(out, *e)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (r *inMemoryEntitlementRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ConfirmationStatus, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entitlements[id]
	if !ok {
		return fmt.Errorf("entitlement not found")
	}
	e.Status = status
	e.Active = active
	if status != domain.StatusPreconfirmed {
		e.VerifyDeadline = nil
	}
	return nil
}

func (r *inMemoryEntitlementRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entitlements[id]; !ok {
		return fmt.Errorf("entitlement not found")
	}
	delete(r.entitlements, id)
	return nil
}

func (r *inMemoryEntitlementRepo) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entitlements)
}

// --- In-Memory Transaction Repo ---

type inMemoryTransactionRepo struct {
	mu           sync.RWMutex
	transactions map[uuid.UUID]*domain.Transaction
}

func newInMemoryTransactionRepo() *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{transactions: make(map[uuid.UUID]*domain.Transaction)}
}

func (r *inMemoryTransactionRepo) Create(ctx context.Context, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.transactions {
		if existing.TxHash == t.TxHash {
			return domain.ErrTxHashExists
		}
	}
	copied := *t
	r.transactions[t.ID] = &copied
	return nil
}

func (r *inMemoryTransactionRepo) GetByHash(ctx context.Context, txHash string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.transactions {
		if t.TxHash == txHash {
			copied := *t
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *inMemoryTransactionRepo) GetByEntitlementID(ctx context.Context, entitlementID uuid.UUID) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.transactions {
		if t.EntitlementID == entitlementID {
			copied := *t
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *inMemoryTransactionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus, confirmations uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transactions[id]
	if !ok {
		return fmt.Errorf("transaction not found")
	}
	t.Status = status
	t.Confirmations = confirmations
	return nil
}
