package domain

import "time"

// TransferAuthorization is a pre-signed gasless transfer authorization over an
// EIP-3009 style typed-data structure. The signature is produced by the payer's
// wallet; this service only forwards it for verification, never signs.
type TransferAuthorization struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"` // token minor units, decimal string
	ValidAfter  int64  `json:"valid_after"`
	ValidBefore int64  `json:"valid_before"`
	Nonce       string `json:"nonce"`
	Signature   string `json:"signature"`
}

// Expired reports whether the authorization's validity window has closed.
func (a *TransferAuthorization) Expired(now time.Time) bool {
	return now.Unix() >= a.ValidBefore
}

// NotYetValid reports whether the authorization cannot be used yet.
func (a *TransferAuthorization) NotYetValid(now time.Time) bool {
	return a.ValidAfter > 0 && now.Unix() < a.ValidAfter
}
