package utils

import (
	"ClinicHub/cache"
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// ResetCodeTTL is how long a password reset code stays valid.
const ResetCodeTTL = 15 * time.Minute

// GenerateResetCode generates a random 6-digit reset code.
func GenerateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate reset code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// ResetCodes stores password reset codes in Redis.
type ResetCodes struct {
	cache *cache.Cache
}

func NewResetCodes(cache *cache.Cache) *ResetCodes {
	return &ResetCodes{cache: cache}
}

// Set stores the reset code for a given email for ResetCodeTTL.
func (r *ResetCodes) Set(ctx context.Context, email, code string) error {
	return r.cache.Set(ctx, r.key(email), code, ResetCodeTTL)
}

// Get returns the reset code for email, or "" if none is pending.
func (r *ResetCodes) Get(ctx context.Context, email string) (string, error) {
	return r.cache.Get(ctx, r.key(email))
}

func (r *ResetCodes) Delete(ctx context.Context, email string) error {
	return r.cache.Delete(ctx, r.key(email))
}

func (r *ResetCodes) key(email string) string {
	return "reset_code:" + email
}
