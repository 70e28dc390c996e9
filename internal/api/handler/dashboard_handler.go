package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bizguardian/manager/internal/core/domain"
	"github.com/bizguardian/manager/internal/core/ports"
)

type DashboardHandler struct {
	identity ports.IdentityService
}

func NewDashboardHandler(identity ports.IdentityService) *DashboardHandler {
	return &DashboardHandler{identity: identity}
}

// Get handles GET /v1/dashboard. Admins get the roster overview, employees
// the shop they work in.
//
// @Summary      Landing dashboard
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dashboardResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/dashboard [get]
func (h *DashboardHandler) Get(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	resp := dashboardResponse{Profile: sess.Profile}
	switch st := sess.Profile.Standing().(type) {
	case domain.AdminStanding:
		ov, err := h.identity.Overview(c.Request().Context())
		if err != nil {
			return err
		}
		resp.Kind = "admin"
		resp.Overview = ov
	case domain.EmployeeStanding:
		resp.Kind = "employee"
		resp.Shop = &shopResponse{ID: st.Shop, DisplayName: st.Shop.DisplayName()}
	}
	return c.JSON(http.StatusOK, resp)
}
