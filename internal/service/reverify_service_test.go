package service

import (
	"context"
	"testing"
	"time"

	"agentstore-payments/internal/core/domain"
	"agentstore-payments/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type sweepFixture struct {
	entRepo  *mocks.MockEntitlementRepository
	txRepo   *mocks.MockTransactionRepository
	verifier *mocks.MockChainVerifier
	cache    *mocks.MockEntitlementCache
	svc      *ReverifyServiceImpl
}

func newSweepFixture(t *testing.T) *sweepFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &sweepFixture{
		entRepo:  mocks.NewMockEntitlementRepository(ctrl),
		txRepo:   mocks.NewMockTransactionRepository(ctrl),
		verifier: mocks.NewMockChainVerifier(ctrl),
		cache:    mocks.NewMockEntitlementCache(ctrl),
	}
	f.svc = NewReverifyService(f.entRepo, f.txRepo, f.verifier, f.cache, 100, 2, zerolog.Nop())
	return f
}

func preconfirmedEntitlement(deadline time.Time) domain.Entitlement {
	return domain.Entitlement{
		ID:             uuid.New(),
		Token:          "cafe01",
		AgentID:        uuid.New(),
		Status:         domain.StatusPreconfirmed,
		Active:         true,
		VerifyDeadline: &deadline,
	}
}

func backingTx(entitlementID uuid.UUID) *domain.Transaction {
	return &domain.Transaction{
		ID:            uuid.New(),
		TxHash:        "0xfeed",
		EntitlementID: entitlementID,
		Status:        domain.TxStatusPending,
	}
}

func TestReverifyService_Sweep_Promotes(t *testing.T) {
	f := newSweepFixture(t)
	e := preconfirmedEntitlement(time.Now().Add(4 * time.Minute))
	tx := backingTx(e.ID)

	f.entRepo.EXPECT().ListPreconfirmed(gomock.Any(), 100).Return([]domain.Entitlement{e}, nil)
	f.txRepo.EXPECT().GetByEntitlementID(gomock.Any(), e.ID).Return(tx, nil)
	f.verifier.EXPECT().Reverify(gomock.Any(), tx.TxHash).Return(domain.StatusConfirmed)
	f.entRepo.EXPECT().UpdateStatus(gomock.Any(), e.ID, domain.StatusConfirmed, true).Return(nil)
	f.txRepo.EXPECT().UpdateStatus(gomock.Any(), tx.ID, domain.TxStatusConfirmed, uint64(2)).Return(nil)
	f.cache.EXPECT().Invalidate(gomock.Any(), e.Token).Return(nil)

	stats, err := f.svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Checked)
	assert.Equal(t, 1, stats.Promoted)
	assert.Zero(t, stats.Revoked)
}

func TestReverifyService_Sweep_RevokesOnChainFailure(t *testing.T) {
	f := newSweepFixture(t)
	e := preconfirmedEntitlement(time.Now().Add(4 * time.Minute))
	tx := backingTx(e.ID)

	f.entRepo.EXPECT().ListPreconfirmed(gomock.Any(), 100).Return([]domain.Entitlement{e}, nil)
	f.txRepo.EXPECT().GetByEntitlementID(gomock.Any(), e.ID).Return(tx, nil)
	f.verifier.EXPECT().Reverify(gomock.Any(), tx.TxHash).Return(domain.StatusRevoked)
	f.entRepo.EXPECT().UpdateStatus(gomock.Any(), e.ID, domain.StatusRevoked, false).Return(nil)
	f.cache.EXPECT().Invalidate(gomock.Any(), e.Token).Return(nil)

	stats, err := f.svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Revoked)
}

func TestReverifyService_Sweep_LeavesWithinDeadline(t *testing.T) {
	f := newSweepFixture(t)
	e := preconfirmedEntitlement(time.Now().Add(4 * time.Minute))
	tx := backingTx(e.ID)

	f.entRepo.EXPECT().ListPreconfirmed(gomock.Any(), 100).Return([]domain.Entitlement{e}, nil)
	f.txRepo.EXPECT().GetByEntitlementID(gomock.Any(), e.ID).Return(tx, nil)
	f.verifier.EXPECT().Reverify(gomock.Any(), tx.TxHash).Return(domain.StatusPreconfirmed)
	// no UpdateStatus: still within the window

	stats, err := f.svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Checked)
	assert.Zero(t, stats.Promoted)
	assert.Zero(t, stats.Revoked)
	assert.Zero(t, stats.Expired)
}

func TestReverifyService_Sweep_ExpiresPastDeadline(t *testing.T) {
	f := newSweepFixture(t)
	e := preconfirmedEntitlement(time.Now().Add(-time.Minute))
	tx := backingTx(e.ID)

	f.entRepo.EXPECT().ListPreconfirmed(gomock.Any(), 100).Return([]domain.Entitlement{e}, nil)
	f.txRepo.EXPECT().GetByEntitlementID(gomock.Any(), e.ID).Return(tx, nil)
	f.verifier.EXPECT().Reverify(gomock.Any(), tx.TxHash).Return(domain.StatusPreconfirmed)
	f.entRepo.EXPECT().UpdateStatus(gomock.Any(), e.ID, domain.StatusRevoked, false).Return(nil)
	f.cache.EXPECT().Invalidate(gomock.Any(), e.Token).Return(nil)

	stats, err := f.svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Expired)
}

func TestReverifyService_Sweep_SkipsBrokenRecords(t *testing.T) {
	f := newSweepFixture(t)
	broken := preconfirmedEntitlement(time.Now().Add(4 * time.Minute))
	healthy := preconfirmedEntitlement(time.Now().Add(4 * time.Minute))
	tx := backingTx(healthy.ID)

	f.entRepo.EXPECT().ListPreconfirmed(gomock.Any(), 100).
		Return([]domain.Entitlement{broken, healthy}, nil)
	f.txRepo.EXPECT().GetByEntitlementID(gomock.Any(), broken.ID).Return(nil, nil)
	f.txRepo.EXPECT().GetByEntitlementID(gomock.Any(), healthy.ID).Return(tx, nil)
	f.verifier.EXPECT().Reverify(gomock.Any(), tx.TxHash).Return(domain.StatusConfirmed)
	f.entRepo.EXPECT().UpdateStatus(gomock.Any(), healthy.ID, domain.StatusConfirmed, true).Return(nil)
	f.txRepo.EXPECT().UpdateStatus(gomock.Any(), tx.ID, domain.TxStatusConfirmed, uint64(2)).Return(nil)
	f.cache.EXPECT().Invalidate(gomock.Any(), healthy.Token).Return(nil)

	stats, err := f.svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Checked)
	assert.Equal(t, 1, stats.Promoted)
}
