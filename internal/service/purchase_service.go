package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agentstore-payments/internal/core/domain"
	"agentstore-payments/internal/core/ports"
	"agentstore-payments/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const nativeCurrency = "ETH"

// PurchaseConfig carries the platform-level purchase parameters.
type PurchaseConfig struct {
	PlatformFeePercent int
	PlatformAddress    string
	SlippageBps        int64
	VerifyDeadline     time.Duration
}

// PurchaseServiceImpl implements ports.PurchaseService: it reconciles a
// claimed on-chain payment into an entitlement plus a transaction record.
type PurchaseServiceImpl struct {
	agentRepo ports.AgentRepository
	pubRepo   ports.PublisherRepository
	entRepo   ports.EntitlementRepository
	txRepo    ports.TransactionRepository
	oracle    ports.PriceOracle
	verifier  ports.ChainVerifier
	cfg       PurchaseConfig
	log       zerolog.Logger
	now       func() time.Time
}

// NewPurchaseService creates a new PurchaseServiceImpl.
func NewPurchaseService(
	agentRepo ports.AgentRepository,
	pubRepo ports.PublisherRepository,
	entRepo ports.EntitlementRepository,
	txRepo ports.TransactionRepository,
	oracle ports.PriceOracle,
	verifier ports.ChainVerifier,
	cfg PurchaseConfig,
	log zerolog.Logger,
) *PurchaseServiceImpl {
	return &PurchaseServiceImpl{
		agentRepo: agentRepo,
		pubRepo:   pubRepo,
		entRepo:   entRepo,
		txRepo:    txRepo,
		oracle:    oracle,
		verifier:  verifier,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// Purchase verifies the claimed payment and, on success, persists an
// entitlement and its backing transaction record. Replay protection is the
// tx_hash uniqueness constraint: on a conflict the just-created entitlement is
// deleted as a compensating action and the purchase rejected.
func (s *PurchaseServiceImpl) Purchase(ctx context.Context, req ports.PurchaseRequest) (*ports.PurchaseResult, error) {
	wallet := domain.NormalizeAddress(req.WalletAddress)
	txHash := strings.ToLower(strings.TrimSpace(req.TxHash))

	agent, err := resolvePaidAgent(ctx, s.agentRepo, req.AgentID)
	if err != nil {
		return nil, err
	}

	// The idempotent guard runs before any verifier call: a wallet that
	// already holds access never burns an RPC round trip.
	existing, err := s.entRepo.FindActive(ctx, agent.ID, wallet)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup active entitlement: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrEntitlementExists()
	}

	publisher, err := resolvePayout(ctx, s.pubRepo, agent.PublisherID)
	if err != nil {
		return nil, err
	}

	expectedWei, err := s.oracle.UsdToWei(ctx, agent.PriceUSD)
	if err != nil {
		return nil, err
	}

	result := s.verifier.Verify(ctx, ports.VerifyParams{
		TxHash:         txHash,
		ExpectedFrom:   wallet,
		ExpectedTo:     publisher.PayoutAddress,
		ExpectedAmount: expectedWei,
		SlippageBps:    s.cfg.SlippageBps,
	})
	if !result.Valid {
		s.log.Info().Str("tx_hash", txHash).Str("agent_id", agent.ID.String()).
			Str("reason", result.Error).Msg("payment verification failed")
		return nil, apperror.ErrPaymentInvalid(result.Error)
	}

	paidWei := expectedWei
	if result.Details != nil && result.Details.Value != nil {
		paidWei = result.Details.Value
	}
	amount := FormatUnits(paidWei, nativeDecimals)

	split, err := Split(amount, s.cfg.PlatformFeePercent, nativeDecimals)
	if err != nil {
		return nil, err
	}
	split.PlatformAddress = domain.NormalizeAddress(s.cfg.PlatformAddress)
	split.PublisherAddress = domain.NormalizeAddress(publisher.PayoutAddress)

	entitlement, err := newEntitlement(agent, wallet, amount, nativeCurrency, result.Status, s.cfg.VerifyDeadline, s.now())
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate entitlement token: %w", err))
	}
	if err := s.entRepo.Create(ctx, entitlement); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create entitlement: %w", err))
	}

	tx := s.buildTransaction(entitlement, agent.ID, txHash, amount, split, result)
	if err := s.txRepo.Create(ctx, tx); err != nil {
		if errors.Is(err, domain.ErrTxHashExists) {
			// Compensating delete: the hash was already claimed, so the
			// entitlement created a moment ago must not survive.
			if delErr := s.entRepo.Delete(ctx, entitlement.ID); delErr != nil {
				s.log.Error().Err(delErr).Str("entitlement_id", entitlement.ID.String()).
					Msg("failed to delete entitlement after tx hash conflict")
			}
			return nil, apperror.ErrTransactionReplay()
		}
		return nil, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}

	// Side effect to the registry, not core state: a failure here must not
	// fail a purchase that already settled.
	if err := s.agentRepo.IncrementDownloads(ctx, agent.ID); err != nil {
		s.log.Warn().Err(err).Str("agent_id", agent.ID.String()).
			Msg("failed to increment download count")
	}

	s.log.Info().
		Str("agent_id", agent.ID.String()).
		Str("wallet", wallet).
		Str("tx_hash", txHash).
		Str("status", string(result.Status)).
		Str("amount", amount).
		Msg("purchase reconciled")

	return &ports.PurchaseResult{
		Entitlement: entitlement,
		Transaction: tx,
		FeeSplit:    split,
	}, nil
}

func (s *PurchaseServiceImpl) buildTransaction(e *domain.Entitlement, agentID uuid.UUID, txHash, amount string, split domain.FeeSplit, result domain.VerificationResult) *domain.Transaction {
	tx := &domain.Transaction{
		ID:              uuid.New(),
		TxHash:          txHash,
		EntitlementID:   e.ID,
		AgentID:         agentID,
		Amount:          amount,
		Currency:        nativeCurrency,
		PlatformFee:     split.PlatformAmount,
		PublisherAmount: split.PublisherAmount,
		Status:          domain.TxStatusPending,
		CreatedAt:       s.now(),
	}
	if result.Status == domain.StatusConfirmed {
		tx.Status = domain.TxStatusConfirmed
	}
	if result.Details != nil {
		tx.FromAddress = domain.NormalizeAddress(result.Details.From)
		tx.ToAddress = domain.NormalizeAddress(result.Details.To)
		block := result.Details.BlockNumber
		tx.BlockNumber = &block
		tx.Confirmations = result.Details.Confirmations
	}
	return tx
}
