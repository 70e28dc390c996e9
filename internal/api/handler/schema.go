package handler

import (
	"time"

	"github.com/bizguardian/manager/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request / Response types ---

type registerRequest struct {
	FullName string `json:"full_name" validate:"required,max=120"`
	Identity string `json:"identity"  validate:"required,max=254"`
	Password string `json:"password"  validate:"required,min=6,max=72"`
	Role     string `json:"role"      validate:"required,role"`
}

type loginRequest struct {
	Identity string `json:"identity" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type assignRequest struct {
	Shop string `json:"shop" validate:"required"`
}

type sessionResponse struct {
	Token           string                 `json:"token,omitempty"`
	ExpiresAt       time.Time              `json:"expires_at"`
	AssignmentState domain.AssignmentState `json:"assignment_state"`
	Profile         domain.Profile         `json:"profile"`
}

type usersResponse struct {
	Users []domain.Profile `json:"users"`
	Count int              `json:"count"`
}

type shopResponse struct {
	ID          domain.Shop `json:"id"`
	DisplayName string      `json:"display_name"`
}

// dashboardResponse is the landing view of an authenticated profile. Kind is
// "admin" or "employee"; exactly one of Overview and Shop is set.
type dashboardResponse struct {
	Kind     string           `json:"kind"`
	Profile  domain.Profile   `json:"profile"`
	Overview *domain.Overview `json:"overview,omitempty"`
	Shop     *shopResponse    `json:"shop,omitempty"`
}

func newSessionResponse(s domain.Session, withToken bool) sessionResponse {
	resp := sessionResponse{
		ExpiresAt:       s.ExpiresAt,
		AssignmentState: s.AssignmentState(),
		Profile:         s.Profile,
	}
	if withToken {
		resp.Token = s.Token
	}
	return resp
}
