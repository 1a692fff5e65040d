package service

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"time"

	"agentstore-payments/internal/core/ports"
	"agentstore-payments/pkg/apperror"

	"github.com/rs/zerolog"
)

// nativeDecimals is the minor-unit precision of the chain's native currency.
const nativeDecimals = 18

// OracleServiceImpl implements ports.PriceOracle with a single-cell cache and
// a fallback chain: fresh cache, upstream feed, stale cache, hardcoded price.
// With a fallback configured a price-feed outage degrades freshness but never
// blocks purchases; without one (fallback <= 0) an outage with an empty cache
// surfaces as an upstream error.
type OracleServiceImpl struct {
	feed     ports.PriceFeed
	ttl      time.Duration
	fallback float64
	log      zerolog.Logger
	now      func() time.Time

	mu        sync.Mutex
	cached    float64
	fetchedAt time.Time
}

// NewOracleService creates a new OracleServiceImpl.
func NewOracleService(feed ports.PriceFeed, ttl time.Duration, fallback float64, log zerolog.Logger) *OracleServiceImpl {
	return &OracleServiceImpl{
		feed:     feed,
		ttl:      ttl,
		fallback: fallback,
		log:      log,
		now:      time.Now,
	}
}

// GetPrice returns the USD price of the native currency via the fallback chain.
func (s *OracleServiceImpl) GetPrice(ctx context.Context) (float64, error) {
	now := s.now()

	s.mu.Lock()
	if s.cached > 0 && now.Sub(s.fetchedAt) < s.ttl {
		price := s.cached
		s.mu.Unlock()
		return price, nil
	}
	stale, staleAt := s.cached, s.fetchedAt
	s.mu.Unlock()

	price, err := s.feed.SpotPrice(ctx)
	if err == nil && price > 0 {
		s.mu.Lock()
		s.cached = price
		s.fetchedAt = now
		s.mu.Unlock()
		return price, nil
	}
	if err == nil {
		s.log.Warn().Float64("price", price).Msg("price feed returned non-positive value")
	} else {
		s.log.Warn().Err(err).Msg("price feed unavailable")
	}

	if stale > 0 {
		s.log.Warn().Float64("price", stale).Time("fetched_at", staleAt).
			Msg("using stale cached price")
		return stale, nil
	}

	if s.fallback > 0 {
		s.log.Warn().Float64("price", s.fallback).Msg("using hardcoded fallback price")
		return s.fallback, nil
	}

	// No cache, no fallback configured: nothing left to price against.
	if err == nil {
		err = fmt.Errorf("price feed returned non-positive price %f", price)
	}
	return 0, apperror.ErrPriceFeed(err)
}

// UsdToWei converts a USD amount into wei at the current rate. The division
// runs in floating point: the result only gates a slippage-tolerant
// comparison, never an exact transfer amount.
func (s *OracleServiceImpl) UsdToWei(ctx context.Context, usd float64) (*big.Int, error) {
	if usd < 0 {
		return nil, apperror.Validation("usd amount must not be negative")
	}
	price, err := s.GetPrice(ctx)
	if err != nil {
		return nil, err
	}
	eth := usd / price
	wei, err := ParseUnits(strconv.FormatFloat(eth, 'f', nativeDecimals, 64), nativeDecimals)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return wei, nil
}
