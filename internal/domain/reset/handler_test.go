package reset

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/rapidcare/rapidcare/internal/platform/auth"
)

func TestHandler_Reset(t *testing.T) {
	svc, _, _ := newTestService(t)
	e := echo.New()
	NewHandler(svc).RegisterRoutes(e.Group("/api"))

	send := func(id auth.Identity) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/reset", nil)
		req = req.WithContext(auth.WithIdentity(req.Context(), id))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	if rec := send(auth.Identity{Role: auth.RoleHospital, Ref: "HOSP001"}); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for hospital, got %d", rec.Code)
	}

	rec := send(auth.Identity{Role: auth.RoleAdmin, Ref: "ops"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Counts  Counts `json:"counts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.Success || body.Counts.Hospitals != 3 || body.Message != "Database reset successfully" {
		t.Errorf("unexpected body %+v", body)
	}
}
