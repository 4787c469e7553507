package bed

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
	g := api.Group("/beds")
	g.GET("/:hospitalId", h.List)

	write := g.Group("", auth.RequireRole(auth.RoleHospital))
	write.POST("", h.Create)
	write.DELETE("/:bedId", h.Delete)
	write.PUT("/:bedId/status", h.UpdateStatus)
	write.POST("/:bedId/discharge", h.Discharge)
	write.POST("/:bedId/cleaned", h.MarkCleaned)
}

func (h *Handler) List(c echo.Context) error {
	beds, err := h.svc.ListByHospital(c.Request().Context(), c.Param("hospitalId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, beds)
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b, err := h.svc.Create(c.Request().Context(), actor(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "bed": b})
}

func (h *Handler) Delete(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), actor(c), c.Param("bedId")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	var in StatusInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b, err := h.svc.UpdateStatus(c.Request().Context(), actor(c), c.Param("bedId"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "bed": b})
}

func (h *Handler) Discharge(c echo.Context) error {
	var in DischargeInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b, err := h.svc.Discharge(c.Request().Context(), actor(c), c.Param("bedId"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "bed": b, "message": "Patient discharged, bed moved to cleaning"})
}

func (h *Handler) MarkCleaned(c echo.Context) error {
	b, err := h.svc.MarkCleaned(c.Request().Context(), actor(c), c.Param("bedId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "bed": b})
}

func actor(c echo.Context) auth.Identity {
	return auth.IdentityFromContext(c.Request().Context())
}
