package bed

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/rapidcare/rapidcare/internal/platform/auth"
)

func TestHandler_List(t *testing.T) {
	svc, _ := newTestService(t)
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("hospitalId")
	c.SetParamValues("HOSP001")
	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var beds []Bed
	if err := json.Unmarshal(rec.Body.Bytes(), &beds); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(beds) != 1 || beds[0].BedID != "HOSP001-ICU-B01" {
		t.Errorf("unexpected beds %+v", beds)
	}
}

func TestHandler_UpdateStatus(t *testing.T) {
	svc, _ := newTestService(t)
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"status":"Reserved"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(auth.WithIdentity(req.Context(), hosp1))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("bedId")
	c.SetParamValues("HOSP001-ICU-B01")
	if err := h.UpdateStatus(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Success bool `json:"success"`
		Bed     Bed  `json:"bed"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if !body.Success || body.Bed.Status != StatusReserved {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestRegisterRoutes_RequiresHospitalRole(t *testing.T) {
	svc, _ := newTestService(t)
	e := echo.New()
	NewHandler(svc).RegisterRoutes(e.Group("/api"))

	req := httptest.NewRequest(http.MethodPut, "/api/beds/HOSP001-ICU-B01/status", strings.NewReader(`{"status":"Vacant"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{Role: auth.RoleDoctor, Ref: "DOC100"}))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}
