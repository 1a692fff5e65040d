package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrTxHashExists is returned by transaction repositories when an insert
// violates the tx_hash uniqueness constraint. This is the replay-protection
// signal that drives the compensating entitlement delete.
var ErrTxHashExists = errors.New("transaction hash already recorded")

// TransactionStatus is the settlement state of an on-chain payment record.
type TransactionStatus string

const (
	TxStatusPending   TransactionStatus = "pending"
	TxStatusConfirmed TransactionStatus = "confirmed"
)

// Transaction records one on-chain payment backing an entitlement.
// tx_hash is globally unique: no two entitlements may share a hash.
// Immutable once confirmed.
type Transaction struct {
	ID              uuid.UUID         `json:"id"`
	TxHash          string            `json:"tx_hash"` // lower-cased
	EntitlementID   uuid.UUID         `json:"entitlement_id"`
	AgentID         uuid.UUID         `json:"agent_id"`
	FromAddress     string            `json:"from_address"`
	ToAddress       string            `json:"to_address"`
	Amount          string            `json:"amount"` // decimal string in Currency units
	Currency        string            `json:"currency"`
	PlatformFee     string            `json:"platform_fee"`
	PublisherAmount string            `json:"publisher_amount"`
	Status          TransactionStatus `json:"status"`
	BlockNumber     *uint64           `json:"block_number,omitempty"`
	Confirmations   uint64            `json:"confirmations"`
	CreatedAt       time.Time         `json:"created_at"`
}

// FeeSplit is the derived platform/publisher revenue division for one payment.
// PlatformAmount + PublisherAmount always equals the original amount exactly.
type FeeSplit struct {
	PlatformAddress  string `json:"platform_address"`
	PlatformAmount   string `json:"platform_amount"`
	PlatformPercent  int    `json:"platform_percent"`
	PublisherAddress string `json:"publisher_address"`
	PublisherAmount  string `json:"publisher_amount"`
	PublisherPercent int    `json:"publisher_percent"`
}
