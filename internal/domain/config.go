package domain

import (
	"fmt"
	"math"
	"time"
)

const (
	DefaultReferralBonus   int64   = 50
	DefaultReferralPercent float64 = 0.10
	DefaultDataLimitBytes  int64   = 100_000_000_000 // 100 GB per key

	// ProvisionTimeout bounds every call to a provisioning endpoint.
	ProvisionTimeout = 10 * time.Second

	// GlobalKeyPrefix marks fallback keys for regions without a catalog entry.
	GlobalKeyPrefix = "GL"
)

// Region describes one provisioning endpoint. An empty APIURL marks the
// region unprovisionable; purchases there always get fallback keys.
type Region struct {
	Code      RegionCode
	APIURL    string
	CertPEM   string
	KeyPrefix string
}

func (r Region) Provisionable() bool {
	return r.APIURL != ""
}

// Config is the static configuration surface the core consumes. It is
// validated once at wiring time; lookups after that cannot fail.
type Config struct {
	Regions         map[RegionCode]Region
	Prices          map[int]int64 // duration days -> amount
	ReferralBonus   int64
	ReferralPercent float64
	DataLimitBytes  int64
}

func DefaultConfig() Config {
	return Config{
		Regions: map[RegionCode]Region{
			"EU":   {Code: "EU", KeyPrefix: "EU"},
			"US":   {Code: "US", KeyPrefix: "US"},
			"ASIA": {Code: "ASIA", KeyPrefix: "AS"},
		},
		Prices:          map[int]int64{7: 100, 30: 300, 90: 800},
		ReferralBonus:   DefaultReferralBonus,
		ReferralPercent: DefaultReferralPercent,
		DataLimitBytes:  DefaultDataLimitBytes,
	}
}

func (c Config) Validate() error {
	if len(c.Prices) == 0 {
		return fmt.Errorf("price table is empty")
	}
	for days, amount := range c.Prices {
		if days <= 0 {
			return fmt.Errorf("price table has non-positive duration %d", days)
		}
		if amount <= 0 {
			return fmt.Errorf("price for %d days is non-positive", days)
		}
	}
	if c.ReferralBonus < 0 {
		return fmt.Errorf("referral bonus is negative")
	}
	if c.ReferralPercent < 0 || c.ReferralPercent >= 1 {
		return fmt.Errorf("referral percent %v out of range [0, 1)", c.ReferralPercent)
	}
	if c.DataLimitBytes <= 0 {
		return fmt.Errorf("data limit is non-positive")
	}
	for code, region := range c.Regions {
		if region.KeyPrefix == "" {
			return fmt.Errorf("region %s has no key prefix", code)
		}
	}
	return nil
}

func (c Config) Price(days int) (int64, error) {
	amount, ok := c.Prices[days]
	if !ok {
		return 0, fmt.Errorf("%w: %d days", ErrUnknownDuration, days)
	}
	return amount, nil
}

// Region resolves a catalog entry. Unknown codes resolve to an
// unprovisionable region with the global fallback prefix, so the purchase
// path degrades instead of failing.
func (c Config) Region(code RegionCode) Region {
	if region, ok := c.Regions[code]; ok {
		return region
	}
	return Region{Code: code, KeyPrefix: GlobalKeyPrefix}
}

// Commission is the referrer's floored share of a purchase amount.
func (c Config) Commission(amount int64) int64 {
	return int64(math.Floor(float64(amount) * c.ReferralPercent))
}
