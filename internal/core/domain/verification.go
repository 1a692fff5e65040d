package domain

import "math/big"

// TxDetails carries the observed on-chain facts about a verified transaction.
type TxDetails struct {
	From          string   `json:"from"`
	To            string   `json:"to"`
	Value         *big.Int `json:"value"`
	BlockNumber   uint64   `json:"block_number"`
	Confirmations uint64   `json:"confirmations"`
}

// VerificationResult is the ephemeral outcome of checking one transaction
// against expected payment parameters. Computed per request, never persisted.
type VerificationResult struct {
	Valid   bool               `json:"valid"`
	Status  ConfirmationStatus `json:"status"`
	Error   string             `json:"error,omitempty"`
	Details *TxDetails         `json:"tx_details,omitempty"`
}

// Invalid builds a failed result. Ambiguity fails closed: the status is
// always revoked when Valid is false.
func Invalid(reason string) VerificationResult {
	return VerificationResult{Valid: false, Status: StatusRevoked, Error: reason}
}
