package service

import (
	"fmt"
	"math/big"
	"strings"

	"agentstore-payments/internal/core/domain"
	"agentstore-payments/pkg/apperror"
)

var hundred = big.NewInt(100)

// ParseUnits converts a decimal amount string into integer minor units at the
// given precision. Rejects negative amounts and fractional parts longer than
// the precision allows.
func ParseUnits(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return nil, fmt.Errorf("negative amount %q", s)
	}
	intPart, fracPart := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > decimals {
		return nil, fmt.Errorf("amount %q exceeds %d decimal places", s, decimals)
	}
	digits := intPart + fracPart + strings.Repeat("0", decimals-len(fracPart))
	v, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("malformed amount %q", s)
	}
	return v, nil
}

// FormatUnits renders integer minor units as a decimal string with exactly
// decimals fractional digits.
func FormatUnits(v *big.Int, decimals int) string {
	if decimals == 0 {
		return v.String()
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	quo, rem := new(big.Int).QuoRem(v, scale, new(big.Int))
	return fmt.Sprintf("%s.%0*s", quo.String(), decimals, rem.String())
}

// Split divides a payment amount between the platform and the publisher using
// fixed-point integer math in minor units. The platform share is rounded half
// up; the publisher share is always the remainder, so the two parts sum to the
// input exactly. Addresses are filled in by the caller.
func Split(total string, platformPercent, decimals int) (domain.FeeSplit, error) {
	if platformPercent < 0 || platformPercent > 100 {
		return domain.FeeSplit{}, apperror.Validation(
			fmt.Sprintf("platform percent %d outside [0,100]", platformPercent))
	}
	totalMinor, err := ParseUnits(total, decimals)
	if err != nil {
		return domain.FeeSplit{}, apperror.Validation(err.Error())
	}

	// round-half-up(totalMinor * percent / 100)
	platformMinor := new(big.Int).Mul(totalMinor, big.NewInt(int64(platformPercent)))
	platformMinor.Add(platformMinor, big.NewInt(50))
	platformMinor.Quo(platformMinor, hundred)
	publisherMinor := new(big.Int).Sub(totalMinor, platformMinor)

	return domain.FeeSplit{
		PlatformAmount:   FormatUnits(platformMinor, decimals),
		PlatformPercent:  platformPercent,
		PublisherAmount:  FormatUnits(publisherMinor, decimals),
		PublisherPercent: 100 - platformPercent,
	}, nil
}
