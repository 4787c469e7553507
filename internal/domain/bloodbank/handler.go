package bloodbank

import (
	"fmt"
	"net/http"
	"strconv"

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
	g := api.Group("/blood-bank")
	g.GET("/alerts/:hospitalId", h.Alerts)
	g.GET("/expiry/:hospitalId", h.Expiring)
	g.GET("/history/:hospitalId", h.History)
	g.GET("/:hospitalId", h.Summary)
	g.POST("", h.Add, auth.RequireRole(auth.RoleHospital))
	g.PUT("/:bloodId/use", h.Use, auth.RequireRole(auth.RoleHospital))
}

func (h *Handler) Summary(c echo.Context) error {
	sum, err := h.svc.Summary(c.Request().Context(), c.Param("hospitalId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "summary": sum.ByType, "totalUnits": sum.TotalUnits})
}

func (h *Handler) Add(c echo.Context) error {
	var in AddInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, total, err := h.svc.Add(c.Request().Context(), actor(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"blood":      u,
		"totalUnits": total,
		"message":    fmt.Sprintf("Added %d units of %s. Total: %d units", u.Quantity, u.BloodType, total),
	})
}

func (h *Handler) Use(c echo.Context) error {
	var in UseInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, remaining, err := h.svc.Use(c.Request().Context(), actor(c), c.Param("bloodId"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":        true,
		"blood":          u,
		"remainingUnits": remaining,
		"message":        fmt.Sprintf("Blood used. Remaining: %d units of %s", remaining, u.BloodType),
	})
}

func (h *Handler) Alerts(c echo.Context) error {
	alerts, err := h.svc.Alerts(c.Request().Context(), c.Param("hospitalId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "alerts": alerts})
}

func (h *Handler) Expiring(c echo.Context) error {
	list, err := h.svc.Expiring(c.Request().Context(), c.Param("hospitalId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "expiringBlood": list})
}

func (h *Handler) History(c echo.Context) error {
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}
	list, err := h.svc.History(c.Request().Context(), c.Param("hospitalId"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "history": list})
}

func actor(c echo.Context) auth.Identity {
	return auth.IdentityFromContext(c.Request().Context())
}
