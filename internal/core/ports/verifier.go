package ports

import (
	"context"

	"github.com/bizguardian/manager/internal/core/domain"
)

// VerificationQueue accepts registration confirmations without blocking.
// Enqueue reports false when the request had to be dropped.
type VerificationQueue interface {
	Enqueue(req domain.VerificationRequest) bool
}

// Verifier delivers a single confirmation request (email, sms, log…).
type Verifier interface {
	SendVerification(ctx context.Context, req domain.VerificationRequest) error
}
