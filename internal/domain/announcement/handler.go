package announcement

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

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/announcements")
	g.GET("/:hospitalId", h.List)

	write := g.Group("", auth.RequireRole(auth.RoleHospital))
	write.POST("", h.Post)
	write.PUT("/:announcementId", h.Update)
	write.DELETE("/:announcementId", h.Delete)
}

func (h *Handler) List(c echo.Context) error {
	list, err := h.svc.Active(c.Request().Context(), c.Param("hospitalId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "announcements": list})
}

func (h *Handler) Post(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Post(c.Request().Context(), actor(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "announcement": a, "message": "Announcement posted successfully"})
}

func (h *Handler) Update(c echo.Context) error {
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Update(c.Request().Context(), actor(c), c.Param("announcementId"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "announcement": a, "message": "Announcement updated successfully"})
}

func (h *Handler) Delete(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), actor(c), c.Param("announcementId")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Announcement deleted successfully"})
}

func actor(c echo.Context) auth.Identity {
	return auth.IdentityFromContext(c.Request().Context())
}
