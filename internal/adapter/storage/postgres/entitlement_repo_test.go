package postgres

import (
	"context"
	"testing"
	"time"

	"agentstore-payments/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEntitlement() *domain.Entitlement {
	deadline := time.Now().UTC().Add(5 * time.Minute).Truncate(time.Microsecond)
	return &domain.Entitlement{
		ID:             uuid.New(),
		Token:          "f00dcafe",
		AgentID:        uuid.New(),
		WalletAddress:  "0x1111111111111111111111111111111111111111",
		PricingModel:   domain.PricingOneTime,
		AmountPaid:     "0.004000000000000000",
		Currency:       "ETH",
		Status:         domain.StatusPreconfirmed,
		Active:         true,
		VerifyDeadline: &deadline,
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
}

func entitlementCols() []string {
	return []string{"id", "token", "agent_id", "wallet_address", "pricing_model", "amount_paid", "currency", "status", "active", "expires_at", "verify_deadline", "created_at"}
}

func entitlementRow(e *domain.Entitlement) *pgxmock.Rows {
	return pgxmock.NewRows(entitlementCols()).AddRow(
		e.ID, e.Token, e.AgentID, e.WalletAddress, e.PricingModel,
		e.AmountPaid, e.Currency, e.Status, e.Active,
		e.ExpiresAt, e.VerifyDeadline, e.CreatedAt,
	)
}

func TestEntitlementRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEntitlementRepo(mock)
	e := newTestEntitlement()

	mock.ExpectExec("INSERT INTO entitlements").
		WithArgs(e.ID, e.Token, e.AgentID, e.WalletAddress, e.PricingModel,
			e.AmountPaid, e.Currency, e.Status, e.Active,
			e.ExpiresAt, e.VerifyDeadline, e.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), e)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntitlementRepo_GetByToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEntitlementRepo(mock)
	e := newTestEntitlement()

	mock.ExpectQuery("SELECT .+ FROM entitlements WHERE token").
		WithArgs(e.Token).
		WillReturnRows(entitlementRow(e))

	got, err := repo.GetByToken(context.Background(), e.Token)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, e.Status, got.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntitlementRepo_GetByToken_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEntitlementRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM entitlements WHERE token").
		WithArgs("unknown").
		WillReturnRows(pgxmock.NewRows(entitlementCols()))

	got, err := repo.GetByToken(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEntitlementRepo_FindActive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEntitlementRepo(mock)
	e := newTestEntitlement()

	mock.ExpectQuery("SELECT .+ FROM entitlements").
		WithArgs(e.AgentID, e.WalletAddress).
		WillReturnRows(entitlementRow(e))

	got, err := repo.FindActive(context.Background(), e.AgentID, e.WalletAddress)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, e.ID, got.ID)
}

func TestEntitlementRepo_ListPreconfirmed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEntitlementRepo(mock)
	e1 := newTestEntitlement()
	e2 := newTestEntitlement()

	mock.ExpectQuery("SELECT .+ FROM entitlements").
		WithArgs(domain.StatusPreconfirmed, 100).
		WillReturnRows(entitlementRow(e1).AddRow(
			e2.ID, e2.Token, e2.AgentID, e2.WalletAddress, e2.PricingModel,
			e2.AmountPaid, e2.Currency, e2.Status, e2.Active,
			e2.ExpiresAt, e2.VerifyDeadline, e2.CreatedAt,
		))

	got, err := repo.ListPreconfirmed(context.Background(), 100)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestEntitlementRepo_UpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEntitlementRepo(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE entitlements").
		WithArgs(id, domain.StatusConfirmed, true).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.UpdateStatus(context.Background(), id, domain.StatusConfirmed, true)
	assert.NoError(t, err)
}

func TestEntitlementRepo_UpdateStatus_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEntitlementRepo(mock)

	mock.ExpectExec("UPDATE entitlements").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.UpdateStatus(context.Background(), uuid.New(), domain.StatusRevoked, false)
	assert.Error(t, err)
}

func TestEntitlementRepo_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEntitlementRepo(mock)
	id := uuid.New()

	mock.ExpectExec("DELETE FROM entitlements").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err = repo.Delete(context.Background(), id)
	assert.NoError(t, err)
}
