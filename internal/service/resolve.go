package service

import (
	"context"
	"fmt"
	"time"

	"agentstore-payments/internal/core/domain"
	"agentstore-payments/internal/core/ports"
	"agentstore-payments/pkg/apperror"

	"github.com/google/uuid"
)

// resolvePaidAgent loads a published agent that requires payment, failing with
// the narrowest applicable error.
func resolvePaidAgent(ctx context.Context, repo ports.AgentRepository, agentID uuid.UUID) (*domain.Agent, error) {
	agent, err := repo.GetByID(ctx, agentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup agent: %w", err))
	}
	if agent == nil || !agent.Published {
		return nil, apperror.ErrNotFound("agent")
	}
	if !agent.RequiresPayment() {
		return nil, apperror.ErrAgentNotPaid()
	}
	return agent, nil
}

// resolvePayout loads the agent's publisher and requires a configured payout
// address.
func resolvePayout(ctx context.Context, repo ports.PublisherRepository, publisherID uuid.UUID) (*domain.Publisher, error) {
	publisher, err := repo.GetByID(ctx, publisherID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup publisher: %w", err))
	}
	if publisher == nil {
		return nil, apperror.ErrNotFound("publisher")
	}
	if !publisher.HasPayoutAddress() {
		return nil, apperror.ErrPayoutNotConfigured()
	}
	return publisher, nil
}

// newEntitlement assembles an entitlement with a fresh opaque token. A
// verification deadline is attached only while the payment is preconfirmed;
// subscriptions get a one-month expiry.
func newEntitlement(agent *domain.Agent, wallet, amount, currency string, status domain.ConfirmationStatus, deadlineWindow time.Duration, now time.Time) (*domain.Entitlement, error) {
	token, err := domain.NewEntitlementToken()
	if err != nil {
		return nil, err
	}
	e := &domain.Entitlement{
		ID:            uuid.New(),
		Token:         token,
		AgentID:       agent.ID,
		WalletAddress: wallet,
		PricingModel:  agent.PricingModel,
		AmountPaid:    amount,
		Currency:      currency,
		Status:        status,
		Active:        true,
		CreatedAt:     now,
	}
	if agent.PricingModel == domain.PricingSubscription {
		exp := now.AddDate(0, 1, 0)
		e.ExpiresAt = &exp
	}
	if status == domain.StatusPreconfirmed {
		deadline := now.Add(deadlineWindow)
		e.VerifyDeadline = &deadline
	}
	return e, nil
}
