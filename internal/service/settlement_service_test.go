package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"agentstore-payments/internal/core/domain"
	"agentstore-payments/internal/core/ports"
	"agentstore-payments/internal/core/ports/mocks"
	"agentstore-payments/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type settleFixture struct {
	agentRepo   *mocks.MockAgentRepository
	pubRepo     *mocks.MockPublisherRepository
	entRepo     *mocks.MockEntitlementRepository
	txRepo      *mocks.MockTransactionRepository
	facilitator *mocks.MockFacilitatorClient
	nonces      *mocks.MockNonceStore
	svc         *SettlementServiceImpl
	agent       *domain.Agent
	publisher   *domain.Publisher
}

func newSettleFixture(t *testing.T) *settleFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &settleFixture{
		agentRepo:   mocks.NewMockAgentRepository(ctrl),
		pubRepo:     mocks.NewMockPublisherRepository(ctrl),
		entRepo:     mocks.NewMockEntitlementRepository(ctrl),
		txRepo:      mocks.NewMockTransactionRepository(ctrl),
		facilitator: mocks.NewMockFacilitatorClient(ctrl),
		nonces:      mocks.NewMockNonceStore(ctrl),
	}
	f.svc = NewSettlementService(
		f.agentRepo, f.pubRepo, f.entRepo, f.txRepo, f.facilitator, f.nonces,
		SettlementConfig{
			PlatformFeePercent: 20,
			PlatformAddress:    "0x3333333333333333333333333333333333333333",
			Network:            "base",
			Currency:           "USDC",
			VerifyDeadline:     5 * time.Minute,
		},
		zerolog.Nop(),
	)

	pubID := uuid.New()
	f.agent = &domain.Agent{
		ID:           uuid.New(),
		PublisherID:  pubID,
		PricingModel: domain.PricingOneTime,
		PriceUSD:     10.0,
		Published:    true,
	}
	f.publisher = &domain.Publisher{ID: pubID, PayoutAddress: testPayout}
	return f
}

func (f *settleFixture) request() ports.SettleRequest {
	return ports.SettleRequest{
		AgentID:       f.agent.ID,
		WalletAddress: testWallet,
		Authorization: domain.TransferAuthorization{
			From:        testWallet,
			To:          testPayout,
			Value:       "10000000",
			ValidAfter:  0,
			ValidBefore: time.Now().Add(10 * time.Minute).Unix(),
			Nonce:       "0x0101",
			Signature:   "0xsigned",
		},
	}
}

func (f *settleFixture) expectResolution() {
	f.agentRepo.EXPECT().GetByID(gomock.Any(), f.agent.ID).Return(f.agent, nil)
	f.entRepo.EXPECT().FindActive(gomock.Any(), f.agent.ID, testWallet).Return(nil, nil)
	f.pubRepo.EXPECT().GetByID(gomock.Any(), f.publisher.ID).Return(f.publisher, nil)
}

func TestSettlementService_Settle_Success(t *testing.T) {
	f := newSettleFixture(t)
	f.expectResolution()
	f.nonces.EXPECT().CheckAndSet(gomock.Any(), testWallet, "0x0101", gomock.Any()).Return(true, nil)

	var captured ports.SettlementRequest
	f.facilitator.EXPECT().Verify(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req ports.SettlementRequest) (*ports.FacilitatorVerdict, error) {
			captured = req
			return &ports.FacilitatorVerdict{Valid: true}, nil
		})
	f.facilitator.EXPECT().Settle(gomock.Any(), gomock.Any()).
		Return(&ports.SettlementProof{TxHash: "0xDEAD", Status: "confirmed", Confirmations: 2, Network: "base"}, nil)
	f.entRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	f.txRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	f.agentRepo.EXPECT().IncrementDownloads(gomock.Any(), f.agent.ID).Return(nil)

	res, err := f.svc.Settle(context.Background(), f.request())
	require.NoError(t, err)

	assert.Equal(t, "10.000000", captured.PaymentRequired.Amount)
	assert.Equal(t, "USDC", captured.PaymentRequired.Currency)
	assert.Equal(t, testPayout, captured.PaymentRequired.PayTo)
	assert.Equal(t, "base", captured.PaymentRequired.Network)
	assert.Equal(t, "2.000000", captured.FeeSplit.PlatformAmount)
	assert.Equal(t, "8.000000", captured.FeeSplit.PublisherAmount)

	assert.Equal(t, domain.StatusConfirmed, res.Entitlement.Status)
	assert.Nil(t, res.Entitlement.VerifyDeadline)
	assert.Equal(t, "0xdead", res.Transaction.TxHash, "proof hash is stored lower-cased")
	assert.Equal(t, domain.TxStatusConfirmed, res.Transaction.Status)
}

func TestSettlementService_Settle_PreconfirmedProof(t *testing.T) {
	f := newSettleFixture(t)
	f.expectResolution()
	f.nonces.EXPECT().CheckAndSet(gomock.Any(), testWallet, "0x0101", gomock.Any()).Return(true, nil)
	f.facilitator.EXPECT().Verify(gomock.Any(), gomock.Any()).
		Return(&ports.FacilitatorVerdict{Valid: true}, nil)
	f.facilitator.EXPECT().Settle(gomock.Any(), gomock.Any()).
		Return(&ports.SettlementProof{TxHash: "0xbeef", Status: "preconfirmed"}, nil)
	f.entRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	f.txRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	f.agentRepo.EXPECT().IncrementDownloads(gomock.Any(), f.agent.ID).Return(nil)

	res, err := f.svc.Settle(context.Background(), f.request())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPreconfirmed, res.Entitlement.Status)
	assert.NotNil(t, res.Entitlement.VerifyDeadline)
	assert.Equal(t, domain.TxStatusPending, res.Transaction.Status)
}

func TestSettlementService_Settle_NotConfigured(t *testing.T) {
	f := newSettleFixture(t)
	f.svc.facilitator = nil

	_, err := f.svc.Settle(context.Background(), f.request())
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 503, appErr.HTTPStatus, "no insecure local fallback exists")
}

func TestSettlementService_Settle_ExpiredAuthorization(t *testing.T) {
	f := newSettleFixture(t)
	req := f.request()
	req.Authorization.ValidBefore = time.Now().Add(-time.Minute).Unix()

	_, err := f.svc.Settle(context.Background(), req)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VAL_002", appErr.Code)
}

func TestSettlementService_Settle_PayerMismatch(t *testing.T) {
	f := newSettleFixture(t)
	req := f.request()
	req.Authorization.From = "0x9999999999999999999999999999999999999999"

	_, err := f.svc.Settle(context.Background(), req)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.HTTPStatus)
}

func TestSettlementService_Settle_NonceReplay(t *testing.T) {
	f := newSettleFixture(t)
	f.expectResolution()
	f.nonces.EXPECT().CheckAndSet(gomock.Any(), testWallet, "0x0101", gomock.Any()).Return(false, nil)
	// the facilitator must never see a replayed authorization

	_, err := f.svc.Settle(context.Background(), f.request())
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "PAY_005", appErr.Code)
}

func TestSettlementService_Settle_VerifyRejected(t *testing.T) {
	f := newSettleFixture(t)
	f.expectResolution()
	f.nonces.EXPECT().CheckAndSet(gomock.Any(), testWallet, "0x0101", gomock.Any()).Return(true, nil)
	f.facilitator.EXPECT().Verify(gomock.Any(), gomock.Any()).
		Return(&ports.FacilitatorVerdict{Valid: false, Reason: "bad signature"}, nil)
	// no Settle call, no entitlement; the nonce is handed back
	f.nonces.EXPECT().Release(gomock.Any(), testWallet, "0x0101").Return(nil)

	_, err := f.svc.Settle(context.Background(), f.request())
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "UPS_002", appErr.Code)
	assert.Equal(t, 502, appErr.HTTPStatus)
}

func TestSettlementService_Settle_VerifyErrorReleasesNonce(t *testing.T) {
	f := newSettleFixture(t)
	f.expectResolution()
	f.nonces.EXPECT().CheckAndSet(gomock.Any(), testWallet, "0x0101", gomock.Any()).Return(true, nil)
	f.facilitator.EXPECT().Verify(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("facilitator unreachable"))
	// a transient upstream failure must not consume the authorization
	f.nonces.EXPECT().Release(gomock.Any(), testWallet, "0x0101").Return(nil)

	_, err := f.svc.Settle(context.Background(), f.request())
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "UPS_002", appErr.Code)
}

func TestSettlementService_Settle_SettleFailed(t *testing.T) {
	f := newSettleFixture(t)
	f.expectResolution()
	f.nonces.EXPECT().CheckAndSet(gomock.Any(), testWallet, "0x0101", gomock.Any()).Return(true, nil)
	f.facilitator.EXPECT().Verify(gomock.Any(), gomock.Any()).
		Return(&ports.FacilitatorVerdict{Valid: true}, nil)
	f.facilitator.EXPECT().Settle(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("relay timeout"))
	f.nonces.EXPECT().Release(gomock.Any(), testWallet, "0x0101").Return(nil)

	_, err := f.svc.Settle(context.Background(), f.request())
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "UPS_003", appErr.Code, "settle failures are distinct from verify rejections")
}

func TestSettlementService_Settle_ReplayCompensation(t *testing.T) {
	f := newSettleFixture(t)
	f.expectResolution()
	f.nonces.EXPECT().CheckAndSet(gomock.Any(), testWallet, "0x0101", gomock.Any()).Return(true, nil)
	f.facilitator.EXPECT().Verify(gomock.Any(), gomock.Any()).
		Return(&ports.FacilitatorVerdict{Valid: true}, nil)
	f.facilitator.EXPECT().Settle(gomock.Any(), gomock.Any()).
		Return(&ports.SettlementProof{TxHash: "0xdead", Status: "confirmed"}, nil)
	f.entRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	f.txRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(domain.ErrTxHashExists)
	f.entRepo.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil)

	_, err := f.svc.Settle(context.Background(), f.request())
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 409, appErr.HTTPStatus)
}
