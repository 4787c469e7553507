package reset

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

// RegisterRoutes mounts POST /reset. Only admins may wipe the store; in
// development anonymous callers act as admin.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/reset", h.Reset, auth.RequireRole(auth.RoleAdmin))
}

func (h *Handler) Reset(c echo.Context) error {
	counts, err := h.svc.Reset(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Database reset successfully",
		"counts":  counts,
	})
}
