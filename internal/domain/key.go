package domain

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"time"
)

const (
	fallbackTokenLength = 10
	tokenAlphabet       = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var fallbackTokenPattern = regexp.MustCompile(`^[A-Z]{2}-[A-Z0-9]{10}$`)

// Key is an issued access credential. Immutable after creation; expiry is
// always evaluated against the caller's clock, never cached.
type Key struct {
	Token      string
	ProviderID string // provider-side id, empty for locally synthesized keys
	Owner      AccountID
	Region     RegionCode
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

func (k Key) Active(now time.Time) bool {
	return k.ExpiresAt.After(now)
}

func (k Key) Remaining(now time.Time) time.Duration {
	if !k.Active(now) {
		return 0
	}
	return k.ExpiresAt.Sub(now)
}

// Fallback reports whether the key was synthesized locally. Provider tokens
// are opaque access URLs and never match the fixed prefix pattern.
func (k Key) Fallback() bool {
	return IsFallbackToken(k.Token)
}

func IsFallbackToken(token string) bool {
	return fallbackTokenPattern.MatchString(token)
}

// FallbackKey synthesizes a key locally when the provider is unreachable or
// the region is unprovisionable. It has no external dependency and never
// fails.
func FallbackKey(owner AccountID, region RegionCode, prefix string, days int, now time.Time) Key {
	return Key{
		Token:     fmt.Sprintf("%s-%s", prefix, randomToken(fallbackTokenLength)),
		Owner:     owner,
		Region:    region,
		IssuedAt:  now,
		ExpiresAt: now.AddDate(0, 0, days),
	}
}

func randomToken(length int) string {
	out := make([]byte, length)
	for i := range out {
		out[i] = tokenAlphabet[rand.IntN(len(tokenAlphabet))]
	}
	return string(out)
}
