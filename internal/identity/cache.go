package identity

import (
	"context"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultCacheTTL bounds how long a verification result may be reused
// before the ledger is consulted again.
const DefaultCacheTTL = 5 * time.Minute

// CachingVerifier wraps a Verifier with a TTL cache keyed by wallet
// address. Identity lookups hit the ledger over the network, and the
// same wallet is typically verified for every bundle it submits.
//
// The cache is safe for concurrent verifications: go-cache serializes
// access internally, so reads never observe a torn entry during
// TTL eviction. Errors are never cached.
type CachingVerifier struct {
	inner  Verifier
	cache  *gocache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachingVerifier wraps inner with a result cache. A non-positive ttl
// falls back to DefaultCacheTTL; expired entries are swept at twice the
// TTL.
func NewCachingVerifier(inner Verifier, ttl time.Duration, logger *slog.Logger) *CachingVerifier {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachingVerifier{
		inner:  inner,
		cache:  gocache.New(ttl, 2*ttl),
		ttl:    ttl,
		logger: logger,
	}
}

// VerifyWallet returns a cached result when one is fresh, otherwise
// delegates to the wrapped verifier and caches the outcome.
func (v *CachingVerifier) VerifyWallet(ctx context.Context, walletAddress string) (Result, error) {
	if cached, found := v.cache.Get(walletAddress); found {
		res := cached.(Result)
		v.logger.Info("identity.cache.hit", "wallet", walletAddress, "status", res.Status)
		return res, nil
	}

	res, err := v.inner.VerifyWallet(ctx, walletAddress)
	if err != nil {
		return Result{}, err
	}
	v.cache.Set(walletAddress, res, v.ttl)
	return res, nil
}

// Invalidate drops a wallet's cached result, forcing a fresh lookup.
func (v *CachingVerifier) Invalidate(walletAddress string) {
	v.cache.Delete(walletAddress)
}
