package domain

import (
	"time"

	"github.com/google/uuid"
)

// PricingModel represents how an agent charges for access.
type PricingModel string

const (
	PricingOneTime      PricingModel = "one_time"
	PricingSubscription PricingModel = "subscription"
	PricingUsageBased   PricingModel = "usage_based"
	PricingFree         PricingModel = "free"
)

// Agent is a published AI agent plugin in the marketplace registry.
// The registry itself is owned by the CRUD layer; the payment core only
// reads pricing and publication state and bumps the download counter.
type Agent struct {
	ID           uuid.UUID    `json:"id"`
	Name         string       `json:"name"`
	PublisherID  uuid.UUID    `json:"publisher_id"`
	PricingModel PricingModel `json:"pricing_model"`
	PriceUSD     float64      `json:"price_usd"`
	Published    bool         `json:"published"`
	Downloads    int64        `json:"downloads"`
	CreatedAt    time.Time    `json:"created_at"`
}

// RequiresPayment reports whether purchases must go through payment verification.
func (a *Agent) RequiresPayment() bool {
	return a.PricingModel != PricingFree
}

// Publisher owns agents and receives the publisher share of each sale.
type Publisher struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	PayoutAddress string    `json:"payout_address"` // empty until the publisher configures one
	Verified      bool      `json:"verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// HasPayoutAddress reports whether sales can be settled to this publisher.
func (p *Publisher) HasPayoutAddress() bool {
	return p.PayoutAddress != ""
}
