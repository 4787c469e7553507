package emergency

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
	g := api.Group("/emergency")
	g.POST("", h.Create)
	g.GET("/request/:emergencyId", h.Get)
	g.GET("/:hospitalId", h.List, auth.RequireRole(auth.RoleHospital, auth.RoleAmbulance, auth.RoleEMT, auth.RoleDriver))
	g.PUT("/:emergencyId/status", h.UpdateStatus, auth.RequireRole(auth.RoleHospital, auth.RoleAmbulance, auth.RoleEMT, auth.RoleDriver))
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "emergency": e})
}

func (h *Handler) Get(c echo.Context) error {
	e, err := h.svc.Get(c.Request().Context(), c.Param("emergencyId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) List(c echo.Context) error {
	list, err := h.svc.ListByHospital(c.Request().Context(), actor(c), c.Param("hospitalId"), c.QueryParam("status"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	var in StatusInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e, err := h.svc.UpdateStatus(c.Request().Context(), actor(c), c.Param("emergencyId"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "emergency": e})
}

func actor(c echo.Context) auth.Identity {
	return auth.IdentityFromContext(c.Request().Context())
}
