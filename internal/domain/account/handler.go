package account

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rapidcare/rapidcare/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts login on public (no credential required) and
// password changes on api.
func (h *Handler) RegisterRoutes(public, api *echo.Group) {
	public.POST("/auth/login", h.Login)
	api.POST("/auth/change-password", h.ChangePassword,
		auth.RequireRole(auth.RoleHospital, auth.RoleDoctor, auth.RoleAmbulance, auth.RoleEMT, auth.RoleDriver))
}

func (h *Handler) Login(c echo.Context) error {
	var in LoginInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess, err := h.svc.Login(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":             true,
		"token":               sess.Token,
		"role":                sess.Role,
		"ref":                 sess.Ref,
		"name":                sess.Name,
		"hospitalId":          sess.HospitalID,
		"forcePasswordChange": sess.ForcePasswordChange,
	})
}

func (h *Handler) ChangePassword(c echo.Context) error {
	var in ChangePasswordInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.IdentityFromContext(c.Request().Context())
	if err := h.svc.ChangePassword(c.Request().Context(), actor, in); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Password updated successfully"})
}
