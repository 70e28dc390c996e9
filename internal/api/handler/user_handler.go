package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bizguardian/manager/internal/api/metrics"
	"github.com/bizguardian/manager/internal/core/domain"
	"github.com/bizguardian/manager/internal/core/ports"
)

// UserHandler serves the admin-only roster endpoints. Role checks happen in
// the RBAC middleware.
type UserHandler struct {
	identity ports.IdentityService
}

func NewUserHandler(identity ports.IdentityService) *UserHandler {
	return &UserHandler{identity: identity}
}

// List handles GET /v1/users.
//
// @Summary      List every profile
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        role  query     string  false  "Filter by role (admin, employee)"
// @Success      200   {object}  usersResponse
// @Failure      403   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /v1/users [get]
func (h *UserHandler) List(c echo.Context) error {
	var filter domain.Role
	if v := c.QueryParam("role"); v != "" {
		r, err := domain.ParseRole(v)
		if err != nil {
			return err
		}
		filter = r
	}

	profiles, err := h.identity.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}

	out := make([]domain.Profile, 0, len(profiles))
	for _, p := range profiles {
		if filter != "" && p.Role != filter {
			continue
		}
		out = append(out, p)
	}
	return c.JSON(http.StatusOK, usersResponse{Users: out, Count: len(out)})
}

// Assign handles PUT /v1/users/:id/shop.
//
// @Summary      Assign an employee to a shop
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string         true  "Profile id"
// @Param        body  body      assignRequest  true  "Target shop (boutique, house-decor)"
// @Success      200   {object}  domain.Profile
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/users/{id}/shop [put]
func (h *UserHandler) Assign(c echo.Context) error {
	var req assignRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	shop, err := domain.ParseShop(req.Shop)
	if err != nil {
		return err
	}

	profile, err := h.identity.AssignEmployeeToShop(c.Request().Context(), c.Param("id"), shop)
	if err != nil {
		return err
	}
	metrics.AssignmentsTotal.WithLabelValues(string(shop)).Inc()
	return c.JSON(http.StatusOK, profile)
}

// Delete handles DELETE /v1/users/:id.
//
// @Summary      Delete a profile and its account
// @Tags         users
// @Security     BearerAuth
// @Param        id   path  string  true  "Profile id"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	if err := h.identity.DeleteUser(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Overview handles GET /v1/overview.
//
// @Summary      Roster counters
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.Overview
// @Failure      403  {object}  errorResponse
// @Router       /v1/overview [get]
func (h *UserHandler) Overview(c echo.Context) error {
	ov, err := h.identity.Overview(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ov)
}
