package booking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carepath/carepath/internal/platform/auth"
	"github.com/carepath/carepath/internal/upstream"
)

func newHandlerFixture(backend *mockBackend) (*echo.Echo, *Handler, *Service) {
	e := echo.New()
	svc := NewService(backend, zerolog.Nop())
	svc.now = fixedNow
	return e, NewHandler(svc), svc
}

func authedContext(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder, userID string) echo.Context {
	ctx := context.WithValue(req.Context(), auth.UserIDKey, userID)
	c := e.NewContext(req.WithContext(ctx), rec)
	return c
}

func TestStartFlowHandler(t *testing.T) {
	e, h, _ := newHandlerFixture(newMockBackend())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/booking/flows",
		strings.NewReader(`{"doctor_id":"d1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, "u1")

	if err := h.StartFlow(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var flow Flow
	if err := json.Unmarshal(rec.Body.Bytes(), &flow); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if flow.ID == "" || flow.State != StateClosed || len(flow.Days) != 4 {
		t.Errorf("unexpected flow: %+v", flow)
	}
}

func TestStartFlowHandler_MissingDoctor(t *testing.T) {
	e, h, _ := newHandlerFixture(newMockBackend())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/booking/flows", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, "u1")

	err := h.StartFlow(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestSelectDateHandler_OutsideWindow(t *testing.T) {
	e, h, svc := newHandlerFixture(newMockBackend())
	flow, err := svc.StartFlow(context.Background(), "u1", "d1")
	if err != nil {
		t.Fatalf("start flow: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/booking/flows/"+flow.ID+"/date",
		strings.NewReader(`{"date":"2024-07-01"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, "u1")
	c.SetParamNames("id")
	c.SetParamValues(flow.ID)

	herr := h.SelectDate(c)
	httpErr, ok := herr.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", herr)
	}
}

func TestConfirmHandler_Conflict(t *testing.T) {
	backend := newMockBackend()
	backend.bookErr = &upstream.APIError{Status: http.StatusConflict, Message: "Slot already booked"}
	e, h, svc := newHandlerFixture(backend)

	flow, err := svc.StartFlow(context.Background(), "u1", "d1")
	if err != nil {
		t.Fatalf("start flow: %v", err)
	}
	svc.SelectDate("u1", flow.ID, "2024-06-17")
	svc.SelectSlot("u1", flow.ID, "09:00-09:30")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/booking/flows/"+flow.ID+"/confirm", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, "u1")
	c.SetParamNames("id")
	c.SetParamValues(flow.ID)

	herr := h.Confirm(c)
	httpErr, ok := herr.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %v", herr)
	}
}

func TestCancelHandler(t *testing.T) {
	backend := newMockBackend()
	e, h, _ := newHandlerFixture(backend)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/appointments/a1", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, "u1")
	c.SetParamNames("id")
	c.SetParamValues("a1")

	if err := h.Cancel(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if backend.lastCancel != "a1" {
		t.Errorf("expected backend delete for a1, got %q", backend.lastCancel)
	}
}

func TestAppointmentsHandler(t *testing.T) {
	backend := newMockBackend()
	backend.appointments = []upstream.Appointment{{ID: "a1", UserID: "u1", DoctorName: "Dr. Rao"}}
	e, h, _ := newHandlerFixture(backend)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, "u1")

	if err := h.Appointments(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var body struct {
		Appointments []upstream.Appointment `json:"appointments"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Appointments) != 1 || body.Appointments[0].DoctorName != "Dr. Rao" {
		t.Errorf("unexpected body: %+v", body.Appointments)
	}
}
