package domain

import "time"

// SessionState is the lifecycle state of a client session.
type SessionState string

const (
	StateUnauthenticated SessionState = "unauthenticated"
	StateAuthenticating  SessionState = "authenticating"
	StateAuthenticated   SessionState = "authenticated"
	StateRejected        SessionState = "rejected"
	StateLoggedOut       SessionState = "logged_out"
)

// validSessionTransitions defines the session state machine. A logout or a
// newer login may supersede an attempt that is still Authenticating.
var validSessionTransitions = map[SessionState][]SessionState{
	StateUnauthenticated: {StateAuthenticating, StateAuthenticated},
	StateAuthenticating:  {StateAuthenticating, StateAuthenticated, StateRejected, StateLoggedOut},
	StateAuthenticated:   {StateLoggedOut},
	StateRejected:        {StateAuthenticating, StateAuthenticated},
	StateLoggedOut:       {StateAuthenticating, StateAuthenticated},
}

// CanTransitionTo reports whether a transition from s to next is valid.
// Unauthenticated→Authenticated is the restore path.
func (s SessionState) CanTransitionTo(next SessionState) bool {
	for _, allowed := range validSessionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AssignmentState is the sub-state dashboards see for an authenticated profile.
type AssignmentState string

const (
	ShopAssigned      AssignmentState = "shop_assigned"
	PendingAssignment AssignmentState = "pending_assignment"
)

// Session is the live binding between a client and a profile.
type Session struct {
	Token     string    `json:"token"      yaml:"token"`
	TokenID   string    `json:"token_id"   yaml:"token_id"`
	Profile   Profile   `json:"profile"    yaml:"profile"`
	IssuedAt  time.Time `json:"issued_at"  yaml:"issued_at"`
	ExpiresAt time.Time `json:"expires_at" yaml:"expires_at"`
}

// AssignmentState reports the shop sub-state of the session's profile.
// Admins are always ShopAssigned.
func (s Session) AssignmentState() AssignmentState {
	if s.Profile.PendingAssignment() {
		return PendingAssignment
	}
	return ShopAssigned
}

// Expired reports whether the session token has passed its expiry.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// VerificationRequest asks for out-of-band confirmation of a new registration.
type VerificationRequest struct {
	ProfileID   string
	Identity    string
	FullName    string
	RequestedAt time.Time
}
