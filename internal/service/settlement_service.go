package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"agentstore-payments/internal/core/domain"
	"agentstore-payments/internal/core/ports"
	"agentstore-payments/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// stableDecimals is the minor-unit precision of the settlement stablecoin.
const stableDecimals = 6

// SettlementConfig carries the gasless-path parameters.
type SettlementConfig struct {
	PlatformFeePercent int
	PlatformAddress    string
	Network            string
	Currency           string
	VerifyDeadline     time.Duration
}

// SettlementServiceImpl implements ports.SettlementService. It never touches
// the chain itself: a pre-signed transfer authorization is forwarded to the
// facilitator, which checks the signature and relays the transfer on-chain.
type SettlementServiceImpl struct {
	agentRepo   ports.AgentRepository
	pubRepo     ports.PublisherRepository
	entRepo     ports.EntitlementRepository
	txRepo      ports.TransactionRepository
	facilitator ports.FacilitatorClient // nil when no endpoint is configured
	nonces      ports.NonceStore
	cfg         SettlementConfig
	log         zerolog.Logger
	now         func() time.Time
}

// NewSettlementService creates a new SettlementServiceImpl. Pass a nil
// facilitator when the gasless path is disabled; every call then fails closed.
func NewSettlementService(
	agentRepo ports.AgentRepository,
	pubRepo ports.PublisherRepository,
	entRepo ports.EntitlementRepository,
	txRepo ports.TransactionRepository,
	facilitator ports.FacilitatorClient,
	nonces ports.NonceStore,
	cfg SettlementConfig,
	log zerolog.Logger,
) *SettlementServiceImpl {
	return &SettlementServiceImpl{
		agentRepo:   agentRepo,
		pubRepo:     pubRepo,
		entRepo:     entRepo,
		txRepo:      txRepo,
		facilitator: facilitator,
		nonces:      nonces,
		cfg:         cfg,
		log:         log,
		now:         time.Now,
	}
}

// Settle validates and forwards a signed transfer authorization, then records
// the entitlement under the facilitator's settlement proof. There is no local
// fallback: an unconfigured facilitator refuses the whole path.
func (s *SettlementServiceImpl) Settle(ctx context.Context, req ports.SettleRequest) (*ports.SettleResult, error) {
	if s.facilitator == nil {
		return nil, apperror.ErrFacilitatorNotConfigured()
	}

	now := s.now()
	auth := req.Authorization
	if auth.Expired(now) {
		return nil, apperror.ErrAuthorizationExpired()
	}
	if auth.NotYetValid(now) {
		return nil, apperror.Validation("authorization not yet valid")
	}

	wallet := domain.NormalizeAddress(req.WalletAddress)
	payer := domain.NormalizeAddress(auth.From)
	if payer != wallet {
		return nil, apperror.Validation("authorization signer does not match wallet address")
	}

	agent, err := resolvePaidAgent(ctx, s.agentRepo, req.AgentID)
	if err != nil {
		return nil, err
	}

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

	// Stablecoin settlement is USD-pegged: the agent price converts 1:1.
	amount := strconv.FormatFloat(agent.PriceUSD, 'f', stableDecimals, 64)
	split, err := Split(amount, s.cfg.PlatformFeePercent, stableDecimals)
	if err != nil {
		return nil, err
	}
	split.PlatformAddress = domain.NormalizeAddress(s.cfg.PlatformAddress)
	split.PublisherAddress = domain.NormalizeAddress(publisher.PayoutAddress)

	// Burn the nonce before calling out. A replayed authorization must be
	// rejected even if the facilitator would accept it again.
	ttl := time.Until(time.Unix(auth.ValidBefore, 0)) + time.Hour
	fresh, err := s.nonces.CheckAndSet(ctx, payer, auth.Nonce, ttl)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("nonce check: %w", err))
	}
	if !fresh {
		return nil, apperror.ErrAuthorizationReplay()
	}

	fReq := ports.SettlementRequest{
		Authorization: auth,
		PaymentRequired: ports.PaymentTerms{
			Amount:   amount,
			Currency: s.cfg.Currency,
			PayTo:    domain.NormalizeAddress(publisher.PayoutAddress),
			Network:  s.cfg.Network,
		},
		Payer:    payer,
		FeeSplit: split,
	}

	verdict, err := s.facilitator.Verify(ctx, fReq)
	if err != nil {
		s.releaseNonce(ctx, payer, auth.Nonce)
		return nil, apperror.ErrFacilitatorVerify(err)
	}
	if !verdict.Valid {
		s.releaseNonce(ctx, payer, auth.Nonce)
		return nil, apperror.ErrFacilitatorVerify(fmt.Errorf("authorization rejected: %s", verdict.Reason))
	}

	proof, err := s.facilitator.Settle(ctx, fReq)
	if err != nil {
		s.releaseNonce(ctx, payer, auth.Nonce)
		return nil, apperror.ErrFacilitatorSettle(err)
	}

	status := domain.StatusPreconfirmed
	if proof.Status == string(domain.StatusConfirmed) {
		status = domain.StatusConfirmed
	}

	entitlement, err := newEntitlement(agent, wallet, amount, s.cfg.Currency, status, s.cfg.VerifyDeadline, s.now())
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate entitlement token: %w", err))
	}
	if err := s.entRepo.Create(ctx, entitlement); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create entitlement: %w", err))
	}

	tx := &domain.Transaction{
		ID:              uuid.New(),
		TxHash:          strings.ToLower(proof.TxHash),
		EntitlementID:   entitlement.ID,
		AgentID:         agent.ID,
		FromAddress:     payer,
		ToAddress:       domain.NormalizeAddress(publisher.PayoutAddress),
		Amount:          amount,
		Currency:        s.cfg.Currency,
		PlatformFee:     split.PlatformAmount,
		PublisherAmount: split.PublisherAmount,
		Status:          domain.TxStatusPending,
		Confirmations:   proof.Confirmations,
		CreatedAt:       s.now(),
	}
	if status == domain.StatusConfirmed {
		tx.Status = domain.TxStatusConfirmed
	}
	if err := s.txRepo.Create(ctx, tx); err != nil {
		if errors.Is(err, domain.ErrTxHashExists) {
			if delErr := s.entRepo.Delete(ctx, entitlement.ID); delErr != nil {
				s.log.Error().Err(delErr).Str("entitlement_id", entitlement.ID.String()).
					Msg("failed to delete entitlement after tx hash conflict")
			}
			return nil, apperror.ErrTransactionReplay()
		}
		return nil, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}

	if err := s.agentRepo.IncrementDownloads(ctx, agent.ID); err != nil {
		s.log.Warn().Err(err).Str("agent_id", agent.ID.String()).
			Msg("failed to increment download count")
	}

	s.log.Info().
		Str("agent_id", agent.ID.String()).
		Str("payer", payer).
		Str("tx_hash", tx.TxHash).
		Str("status", string(status)).
		Msg("gasless settlement completed")

	return &ports.SettleResult{
		Entitlement: entitlement,
		Transaction: tx,
		FeeSplit:    split,
		Proof:       proof,
	}, nil
}

// releaseNonce frees a burned nonce after an upstream failure. Nothing moved
// on-chain, so the payer keeps the authorization instead of having to re-sign.
func (s *SettlementServiceImpl) releaseNonce(ctx context.Context, payer, nonce string) {
	if err := s.nonces.Release(ctx, payer, nonce); err != nil {
		s.log.Warn().Err(err).Str("payer", payer).Msg("failed to release authorization nonce")
	}
}

