package doctor

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
	g := api.Group("/doctors")
	hospitalOnly := auth.RequireRole(auth.RoleHospital)
	doctorOnly := auth.RequireRole(auth.RoleDoctor)
	staff := auth.RequireRole(auth.RoleDoctor, auth.RoleHospital)

	g.GET("/doctor/:doctorId", h.Get)
	g.GET("/attendance/:doctorId", h.History)
	g.POST("/attendance", h.MarkAttendance, staff)
	g.PUT("/attendance/manual-update", h.ManualUpdate, hospitalOnly)
	g.POST("/attendance/gps-check-in", h.GPSCheckIn, doctorOnly)
	g.POST("/attendance/gps-check-out", h.GPSCheckOut, doctorOnly)

	g.GET("/:hospitalId", h.List)
	g.POST("", h.Create, hospitalOnly)
	g.PUT("/:doctorId", h.Update, staff)
	g.DELETE("/:doctorId", h.Delete, hospitalOnly)

	g.POST("/:doctorId/leave", h.RequestLeave, doctorOnly)
	g.GET("/:doctorId/leaves", h.Leaves, staff)
	g.PUT("/:doctorId/leaves/:leaveId/approve", h.DecideLeave, hospitalOnly)
}

func (h *Handler) Get(c echo.Context) error {
	d, err := h.svc.Get(c.Request().Context(), c.Param("doctorId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d.Redacted())
}

func (h *Handler) List(c echo.Context) error {
	list, err := h.svc.ListByHospital(c.Request().Context(), actor(c), c.Param("hospitalId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := h.svc.Create(c.Request().Context(), actor(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "doctor": d})
}

func (h *Handler) Update(c echo.Context) error {
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := h.svc.Update(c.Request().Context(), actor(c), c.Param("doctorId"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "doctor": d})
}

func (h *Handler) Delete(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), actor(c), c.Param("doctorId")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (h *Handler) MarkAttendance(c echo.Context) error {
	var in AttendanceInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	att, err := h.svc.MarkAttendance(c.Request().Context(), actor(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "attendance": att})
}

func (h *Handler) ManualUpdate(c echo.Context) error {
	var in AttendanceInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	att, err := h.svc.ManualUpdate(c.Request().Context(), actor(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "attendance": att, "message": "Attendance updated successfully"})
}

func (h *Handler) History(c echo.Context) error {
	list, err := h.svc.History(c.Request().Context(), c.Param("doctorId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) GPSCheckIn(c echo.Context) error {
	var in GPSInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.GPSCheckIn(c.Request().Context(), actor(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"attendance": res.Attendance,
		"verified":   res.Verified,
		"distance":   res.Distance,
	})
}

func (h *Handler) GPSCheckOut(c echo.Context) error {
	var in GPSInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.GPSCheckOut(c.Request().Context(), actor(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":     true,
		"attendance":  res.Attendance,
		"hoursWorked": res.Attendance.HoursWorked,
		"verified":    res.Verified,
		"distance":    res.Distance,
	})
}

func (h *Handler) RequestLeave(c echo.Context) error {
	var in LeaveInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	l, err := h.svc.RequestLeave(c.Request().Context(), actor(c), c.Param("doctorId"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "leave": l, "message": "Leave request submitted successfully"})
}

func (h *Handler) Leaves(c echo.Context) error {
	list, err := h.svc.Leaves(c.Request().Context(), actor(c), c.Param("doctorId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) DecideLeave(c echo.Context) error {
	var in LeaveDecision
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	l, err := h.svc.DecideLeave(c.Request().Context(), actor(c), c.Param("leaveId"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "leave": l})
}

func actor(c echo.Context) auth.Identity {
	return auth.IdentityFromContext(c.Request().Context())
}
