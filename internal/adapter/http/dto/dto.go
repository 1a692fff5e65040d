package dto

// PurchaseRequest is the request body for reconciling an on-chain payment.
type PurchaseRequest struct {
	AgentID       string `json:"agent_id" binding:"required,uuid"`
	WalletAddress string `json:"wallet_address" binding:"required,eth_addr"`
	TxHash        string `json:"tx_hash" binding:"required,tx_hash"`
}

// AuthorizationRequest is the signed transfer authorization on the gasless path.
type AuthorizationRequest struct {
	From        string `json:"from" binding:"required,eth_addr"`
	To          string `json:"to" binding:"required,eth_addr"`
	Value       string `json:"value" binding:"required,numeric"`
	ValidAfter  int64  `json:"valid_after"`
	ValidBefore int64  `json:"valid_before" binding:"required,gt=0"`
	Nonce       string `json:"nonce" binding:"required,max=128"`
}

// GaslessRequest is the request body for a gasless settlement. The signature
// covers the authorization tuple and travels beside it.
type GaslessRequest struct {
	AgentID       string               `json:"agent_id" binding:"required,uuid"`
	WalletAddress string               `json:"wallet_address" binding:"required,eth_addr"`
	Authorization AuthorizationRequest `json:"authorization" binding:"required"`
	Signature     string               `json:"signature" binding:"required,max=300"`
}

// ValidateTokenRequest is the request body for exchanging an entitlement token.
type ValidateTokenRequest struct {
	Token string `json:"token" binding:"required,len=64,hexadecimal"`
}

// FeeSplitResponse mirrors the computed platform/publisher division.
type FeeSplitResponse struct {
	PlatformAddress  string `json:"platform_address"`
	PlatformAmount   string `json:"platform_amount"`
	PlatformPercent  int    `json:"platform_percent"`
	PublisherAddress string `json:"publisher_address"`
	PublisherAmount  string `json:"publisher_amount"`
	PublisherPercent int    `json:"publisher_percent"`
}

// EntitlementResponse is the public view of an entitlement.
type EntitlementResponse struct {
	ID            string  `json:"id"`
	Token         string  `json:"token"`
	AgentID       string  `json:"agent_id"`
	WalletAddress string  `json:"wallet_address"`
	PricingModel  string  `json:"pricing_model"`
	AmountPaid    string  `json:"amount_paid"`
	Currency      string  `json:"currency"`
	Status        string  `json:"status"`
	ExpiresAt     *string `json:"expires_at,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

// TransactionResponse is the public view of a recorded payment.
type TransactionResponse struct {
	TxHash        string  `json:"tx_hash"`
	Amount        string  `json:"amount"`
	Currency      string  `json:"currency"`
	Status        string  `json:"status"`
	BlockNumber   *uint64 `json:"block_number,omitempty"`
	Confirmations uint64  `json:"confirmations"`
}

// ProofResponse echoes the facilitator's settlement proof on the gasless path.
type ProofResponse struct {
	TxHash        string `json:"tx_hash"`
	Status        string `json:"status"`
	Confirmations uint64 `json:"confirmations"`
	Network       string `json:"network,omitempty"`
}

// PurchaseResponse is the response body for both purchase paths. Proof is set
// only on gasless settlements.
type PurchaseResponse struct {
	Entitlement EntitlementResponse `json:"entitlement"`
	Transaction TransactionResponse `json:"transaction"`
	FeeSplit    FeeSplitResponse    `json:"fee_split"`
	Proof       *ProofResponse      `json:"proof,omitempty"`
}

// AccessResponse is the response body for a successful token validation.
type AccessResponse struct {
	AccessToken string              `json:"access_token"`
	ExpiresAt   int64               `json:"expires_at"` // Unix timestamp
	Entitlement EntitlementResponse `json:"entitlement"`
}
