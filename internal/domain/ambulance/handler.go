package ambulance

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/rapidcare/rapidcare/internal/platform/auth"
	"github.com/rapidcare/rapidcare/internal/platform/geo"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/ambulances")
	hospitalOnly := auth.RequireRole(auth.RoleHospital)
	crew := auth.RequireRole(auth.RoleAmbulance, auth.RoleEMT, auth.RoleDriver)
	operators := auth.RequireRole(auth.RoleHospital, auth.RoleAmbulance, auth.RoleEMT, auth.RoleDriver)

	g.GET("", h.FindByUsername)
	g.POST("", h.Create, hospitalOnly)
	g.POST("/emt", h.RegisterEMT, hospitalOnly)
	g.POST("/driver", h.RegisterDriver, hospitalOnly)
	g.GET("/emts/:hospitalId", h.ListEMTs)
	g.GET("/drivers/:hospitalId", h.ListDrivers)

	g.GET("/:hospitalId", h.List)
	g.PUT("/:ambulanceId", h.Update, operators)
	g.DELETE("/:ambulanceId", h.Delete, hospitalOnly)
	g.PUT("/:ambulanceId/location", h.UpdateLocation, crew)
	g.PATCH("/:ambulanceId/location", h.ReportPosition, crew)
	g.PUT("/:ambulanceId/status", h.UpdateStatus, operators)
	g.GET("/:ambulanceId/eta", h.EstimateArrival)
}

func (h *Handler) List(c echo.Context) error {
	list, err := h.svc.ListByHospital(c.Request().Context(), actor(c), c.Param("hospitalId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) FindByUsername(c echo.Context) error {
	a, err := h.svc.FindByUsername(c.Request().Context(), c.QueryParam("username"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Create(c.Request().Context(), actor(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "ambulance": a})
}

func (h *Handler) Update(c echo.Context) error {
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Update(c.Request().Context(), actor(c), c.Param("ambulanceId"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "ambulance": a})
}

func (h *Handler) Delete(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), actor(c), c.Param("ambulanceId")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (h *Handler) UpdateLocation(c echo.Context) error {
	var loc geo.Point
	if err := c.Bind(&loc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.UpdateLocation(c.Request().Context(), actor(c), c.Param("ambulanceId"), loc)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "location": a.Location})
}

func (h *Handler) ReportPosition(c echo.Context) error {
	var loc geo.Point
	if err := c.Bind(&loc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if _, err := h.svc.ReportPosition(c.Request().Context(), actor(c), c.Param("ambulanceId"), loc); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.UpdateStatus(c.Request().Context(), actor(c), c.Param("ambulanceId"), body.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "ambulance": a})
}

func (h *Handler) EstimateArrival(c echo.Context) error {
	lat, errLat := strconv.ParseFloat(c.QueryParam("destLat"), 64)
	lng, errLng := strconv.ParseFloat(c.QueryParam("destLng"), 64)
	if errLat != nil || errLng != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "destLat and destLng are required")
	}
	eta, err := h.svc.EstimateArrival(c.Request().Context(), c.Param("ambulanceId"), geo.Point{Lat: lat, Lng: lng})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":           true,
		"distance":          eta.Distance,
		"distanceKm":        eta.DistanceKm,
		"etaMinutes":        eta.ETAMinutes,
		"ambulanceLocation": eta.AmbulanceLocation,
	})
}

func (h *Handler) RegisterEMT(c echo.Context) error {
	var in EMTInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e, err := h.svc.RegisterEMT(c.Request().Context(), actor(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "emt": e, "message": "EMT registered successfully. Default password: " + auth.DefaultPassword})
}

func (h *Handler) RegisterDriver(c echo.Context) error {
	var in DriverInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := h.svc.RegisterDriver(c.Request().Context(), actor(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "driver": d, "message": "Driver registered successfully. Default password: " + auth.DefaultPassword})
}

func (h *Handler) ListEMTs(c echo.Context) error {
	list, err := h.svc.ListEMTs(c.Request().Context(), c.Param("hospitalId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "emts": list})
}

func (h *Handler) ListDrivers(c echo.Context) error {
	list, err := h.svc.ListDrivers(c.Request().Context(), c.Param("hospitalId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "drivers": list})
}

func actor(c echo.Context) auth.Identity {
	return auth.IdentityFromContext(c.Request().Context())
}
