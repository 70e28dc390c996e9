// Package notify delivers registration verification requests.
package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/bizguardian/manager/internal/core/domain"
	"github.com/bizguardian/manager/internal/core/ports"
)

// LogVerifier writes each verification request to the log. It stands in for
// a mail or SMS gateway in deployments that have none.
type LogVerifier struct {
	log zerolog.Logger
}

var _ ports.Verifier = (*LogVerifier)(nil)

func NewLogVerifier(log zerolog.Logger) *LogVerifier {
	return &LogVerifier{log: log.With().Str("component", "verifier").Logger()}
}

func (v *LogVerifier) SendVerification(ctx context.Context, req domain.VerificationRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.log.Info().
		Str("profile_id", req.ProfileID).
		Str("identity", req.Identity).
		Str("full_name", req.FullName).
		Time("requested_at", req.RequestedAt).
		Msg("verification requested")
	return nil
}
