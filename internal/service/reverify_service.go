package service

import (
	"context"
	"fmt"
	"time"

	"agentstore-payments/internal/core/domain"
	"agentstore-payments/internal/core/ports"

	"github.com/rs/zerolog"
)

// ReverifyServiceImpl implements ports.ReverifyService. It periodically walks
// preconfirmed entitlements and settles their fate against the chain:
// promote once the confirmation depth is reached, revoke on explicit on-chain
// failure, revoke after the verification deadline lapses, otherwise leave for
// the next pass.
type ReverifyServiceImpl struct {
	entRepo          ports.EntitlementRepository
	txRepo           ports.TransactionRepository
	verifier         ports.ChainVerifier
	cache            ports.EntitlementCache
	batchSize        int
	minConfirmations uint64
	log              zerolog.Logger
	now              func() time.Time
}

// NewReverifyService creates a new ReverifyServiceImpl.
func NewReverifyService(
	entRepo ports.EntitlementRepository,
	txRepo ports.TransactionRepository,
	verifier ports.ChainVerifier,
	cache ports.EntitlementCache,
	batchSize int,
	minConfirmations uint64,
	log zerolog.Logger,
) *ReverifyServiceImpl {
	return &ReverifyServiceImpl{
		entRepo:          entRepo,
		txRepo:           txRepo,
		verifier:         verifier,
		cache:            cache,
		batchSize:        batchSize,
		minConfirmations: minConfirmations,
		log:              log,
		now:              time.Now,
	}
}

// Sweep processes one batch of preconfirmed entitlements. Individual failures
// are logged and skipped so one bad record never stalls the sweep.
func (s *ReverifyServiceImpl) Sweep(ctx context.Context) (ports.SweepStats, error) {
	var stats ports.SweepStats

	entitlements, err := s.entRepo.ListPreconfirmed(ctx, s.batchSize)
	if err != nil {
		return stats, fmt.Errorf("list preconfirmed entitlements: %w", err)
	}

	now := s.now()
	for i := range entitlements {
		e := &entitlements[i]
		stats.Checked++

		tx, err := s.txRepo.GetByEntitlementID(ctx, e.ID)
		if err != nil {
			s.log.Error().Err(err).Str("entitlement_id", e.ID.String()).
				Msg("lookup transaction for sweep")
			continue
		}
		if tx == nil {
			// Entitlement without a backing transaction: the compensating
			// delete lost a race or crashed. Revoke once the deadline lapses.
			if e.DeadlinePassed(now) {
				s.revoke(ctx, e, nil, &stats.Expired)
			}
			continue
		}

		switch s.verifier.Reverify(ctx, tx.TxHash) {
		case domain.StatusConfirmed:
			s.promote(ctx, e, tx, &stats.Promoted)
		case domain.StatusRevoked:
			s.revoke(ctx, e, tx, &stats.Revoked)
		default:
			if e.DeadlinePassed(now) {
				s.revoke(ctx, e, tx, &stats.Expired)
			}
		}
	}

	s.log.Info().
		Int("checked", stats.Checked).
		Int("promoted", stats.Promoted).
		Int("revoked", stats.Revoked).
		Int("expired", stats.Expired).
		Msg("reverification sweep done")
	return stats, nil
}

func (s *ReverifyServiceImpl) promote(ctx context.Context, e *domain.Entitlement, tx *domain.Transaction, counter *int) {
	if err := s.entRepo.UpdateStatus(ctx, e.ID, domain.StatusConfirmed, true); err != nil {
		s.log.Error().Err(err).Str("entitlement_id", e.ID.String()).Msg("promote entitlement")
		return
	}
	if err := s.txRepo.UpdateStatus(ctx, tx.ID, domain.TxStatusConfirmed, s.minConfirmations); err != nil {
		s.log.Error().Err(err).Str("tx_hash", tx.TxHash).Msg("promote transaction")
	}
	s.invalidate(ctx, e)
	*counter++
	s.log.Info().Str("entitlement_id", e.ID.String()).Str("tx_hash", tx.TxHash).
		Msg("entitlement confirmed")
}

func (s *ReverifyServiceImpl) revoke(ctx context.Context, e *domain.Entitlement, tx *domain.Transaction, counter *int) {
	if err := s.entRepo.UpdateStatus(ctx, e.ID, domain.StatusRevoked, false); err != nil {
		s.log.Error().Err(err).Str("entitlement_id", e.ID.String()).Msg("revoke entitlement")
		return
	}
	s.invalidate(ctx, e)
	*counter++
	evt := s.log.Warn().Str("entitlement_id", e.ID.String())
	if tx != nil {
		evt = evt.Str("tx_hash", tx.TxHash)
	}
	evt.Msg("entitlement revoked")
}

func (s *ReverifyServiceImpl) invalidate(ctx context.Context, e *domain.Entitlement) {
	if err := s.cache.Invalidate(ctx, e.Token); err != nil {
		s.log.Warn().Err(err).Str("entitlement_id", e.ID.String()).
			Msg("invalidate entitlement cache")
	}
}
