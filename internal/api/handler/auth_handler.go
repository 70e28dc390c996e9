package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bizguardian/manager/internal/api/metrics"
	"github.com/bizguardian/manager/internal/core/domain"
	"github.com/bizguardian/manager/internal/core/ports"
)

type AuthHandler struct {
	identity ports.IdentityService
	log      zerolog.Logger
}

func NewAuthHandler(identity ports.IdentityService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{identity: identity, log: log}
}

// Register creates a new account and profile.
//
// @Summary      Register a new profile
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      201   {object}  domain.Profile
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return err
	}

	profile, err := h.identity.Register(c.Request().Context(), ports.RegisterInput{
		FullName: req.FullName,
		Identity: req.Identity,
		Password: req.Password,
		Role:     role,
	})
	metrics.RegistrationsTotal.WithLabelValues(string(role), registrationResult(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, profile)
}

// Login authenticates a profile and returns a bearer token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  sessionResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse  "employee not assigned to a shop yet"
// @Failure      503   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	sess, err := h.identity.Authenticate(c.Request().Context(), req.Identity, req.Password)
	metrics.LoginAttemptsTotal.WithLabelValues(loginResult(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newSessionResponse(*sess, true))
}

// Session returns the session behind the bearer token.
//
// @Summary      Current session
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  sessionResponse
// @Failure      401  {object}  errorResponse
// @Router       /auth/session [get]
func (h *AuthHandler) Session(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newSessionResponse(*sess, false))
}

// Logout revokes the bearer token. It always answers 204; a failed revocation
// is logged and the token expires on its own.
//
// @Summary      Logout
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	if err := h.identity.Revoke(c.Request().Context(), *sess); err != nil {
		h.log.Warn().Err(err).Str("profile_id", sess.Profile.ID).Msg("logout: revoke failed")
	}
	return c.NoContent(http.StatusNoContent)
}

func loginResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrAssignmentPending):
		return "assignment_pending"
	default:
		return "error"
	}
}

func registrationResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrDuplicateIdentity):
		return "duplicate"
	case errors.Is(err, domain.ErrAdminQuotaExceeded):
		return "admin_quota"
	default:
		return "error"
	}
}
