package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scanwise-server/internal/models"
	"scanwise-server/internal/schedule"
)

var testNow = time.Date(2025, 3, 12, 10, 0, 0, 0, time.Local)

type fakeStore struct {
	appts map[string]models.Appointment
	seq   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{appts: make(map[string]models.Appointment)}
}

func (f *fakeStore) List(_ context.Context, q schedule.ListQuery) ([]models.Appointment, error) {
	var out []models.Appointment
	for _, a := range f.appts {
		if q.Email != "" && a.Patient.Email != q.Email {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeStore) Get(_ context.Context, id string) (*models.Appointment, error) {
	a, ok := f.appts[id]
	if !ok {
		return nil, schedule.ErrNotFound
	}
	return &a, nil
}

func (f *fakeStore) Create(_ context.Context, a *models.Appointment) error {
	f.seq++
	a.ID = fmt.Sprintf("appt-%d", f.seq)
	a.Patient.ID = fmt.Sprintf("patient-%d", f.seq)
	a.PatientID = a.Patient.ID
	f.appts[a.ID] = *a
	return nil
}

func (f *fakeStore) Update(_ context.Context, a *models.Appointment) error {
	if _, ok := f.appts[a.ID]; !ok {
		return schedule.ErrNotFound
	}
	f.appts[a.ID] = *a
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	if _, ok := f.appts[id]; !ok {
		return schedule.ErrNotFound
	}
	delete(f.appts, id)
	return nil
}

func (f *fakeStore) add(a models.Appointment) {
	f.appts[a.ID] = a
}

// responseEnvelope mirrors utils.ResponseData with raw data for
// per-test decoding.
type responseEnvelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func setupRouter(store *fakeStore, role models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAppointmentHandler(store, schedule.FixedClock{Instant: testNow}, time.Minute)

	router := gin.New()
	if role != "" {
		router.Use(func(c *gin.Context) {
			c.Set("userID", "user-1")
			c.Set("userRole", role)
		})
	}
	router.POST("/appointments", h.CreateAppointment)
	router.GET("/appointments", h.ListAppointments)
	router.GET("/appointments/slots", h.ListSlots)
	router.GET("/appointments/calendar", h.GetCalendar)
	router.GET("/appointments/:id", h.GetAppointmentByID)
	router.GET("/appointments/:id/ics", h.ExportICS)
	router.PATCH("/appointments/:id/status", h.UpdateAppointmentStatus)
	router.PATCH("/appointments/:id/reschedule", h.RescheduleAppointment)
	router.DELETE("/appointments/:id", h.DeleteAppointment)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, responseEnvelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var envelope responseEnvelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "text/calendar; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	}
	return w, envelope
}

func bookingBody(date, slot string) gin.H {
	return gin.H{
		"fullName":      "Jane Doe",
		"email":         "jane@example.com",
		"date":          date,
		"time":          slot,
		"contactNumber": "555-0101",
		"reasonForScan": "MRI scan",
		"dateOfBirth":   "1990-01-15",
		"gender":        "female",
	}
}

func storedAppointment(id, date, slot string, status models.AppointmentStatus) models.Appointment {
	return models.Appointment{
		BaseModel: models.BaseModel{ID: id},
		PatientID: "patient-1",
		Date:      date,
		Time:      slot,
		Reason:    "MRI scan",
		Priority:  models.PriorityNormal,
		Status:    status,
		Patient: models.Patient{
			BaseModel:     models.BaseModel{ID: "patient-1"},
			FullName:      "Jane Doe",
			Email:         "jane@example.com",
			ContactNumber: "555-0101",
		},
	}
}

func TestCreateAppointment(t *testing.T) {
	store := newFakeStore()
	router := setupRouter(store, "")

	w, envelope := doJSON(t, router, http.MethodPost, "/appointments", bookingBody("2025-03-13", "10:30"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var appt models.Appointment
	require.NoError(t, json.Unmarshal(envelope.Data, &appt))
	assert.Equal(t, models.StatusPending, appt.Status)
	assert.Equal(t, "10:30", appt.Time)
	assert.Len(t, store.appts, 1)
}

func TestCreateAppointmentAccepts12HourLabel(t *testing.T) {
	router := setupRouter(newFakeStore(), "")

	w, envelope := doJSON(t, router, http.MethodPost, "/appointments", bookingBody("2025-03-13", "02:00 PM"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var appt models.Appointment
	require.NoError(t, json.Unmarshal(envelope.Data, &appt))
	assert.Equal(t, "14:00", appt.Time)
}

func TestCreateAppointmentRejectsPastSlot(t *testing.T) {
	router := setupRouter(newFakeStore(), "")

	// now is 10:00 on 2025-03-12; the morning slot has passed
	w, envelope := doJSON(t, router, http.MethodPost, "/appointments", bookingBody("2025-03-12", "09:00"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, envelope.Error, "past")
}

func TestCreateAppointmentRejectsUnknownSlot(t *testing.T) {
	router := setupRouter(newFakeStore(), "")

	w, envelope := doJSON(t, router, http.MethodPost, "/appointments", bookingBody("2025-03-13", "11:15"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, envelope.Error, "slot")
}

func TestCreateAppointmentRejectsMissingFields(t *testing.T) {
	router := setupRouter(newFakeStore(), "")

	body := bookingBody("2025-03-13", "10:30")
	delete(body, "reasonForScan")
	w, _ := doJSON(t, router, http.MethodPost, "/appointments", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListAppointmentsSortedAndFiltered(t *testing.T) {
	store := newFakeStore()
	store.add(storedAppointment("a1", "2025-03-13", "10:30", models.StatusPending))
	store.add(storedAppointment("a2", "2025-03-20", "14:00", models.StatusPending))
	store.add(storedAppointment("a3", "2025-03-14", "09:00", models.StatusCanceled))
	router := setupRouter(store, models.RoleAdmin)

	w, envelope := doJSON(t, router, http.MethodGet, "/appointments?status=pending", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Rows []schedule.ListRow `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	require.Len(t, data.Rows, 2)
	// most recent first
	assert.Equal(t, "a2", data.Rows[0].Appointment.ID)
	assert.Equal(t, "a1", data.Rows[1].Appointment.ID)
}

func TestListAppointmentsScopedByEmail(t *testing.T) {
	store := newFakeStore()
	mine := storedAppointment("a1", "2025-03-13", "10:30", models.StatusPending)
	other := storedAppointment("a2", "2025-03-13", "12:00", models.StatusPending)
	other.Patient.Email = "someone-else@example.com"
	store.add(mine)
	store.add(other)
	router := setupRouter(store, models.RolePatient)

	w, envelope := doJSON(t, router, http.MethodGet, "/appointments?email=jane@example.com", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Rows []schedule.ListRow `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	require.Len(t, data.Rows, 1)
	assert.Equal(t, "a1", data.Rows[0].Appointment.ID)
}

func TestGetCalendarLaysOutConcurrentBookings(t *testing.T) {
	store := newFakeStore()
	first := storedAppointment("a1", "2025-03-13", "10:30", models.StatusPending)
	second := storedAppointment("a2", "2025-03-13", "10:30", models.StatusApproved)
	store.add(first)
	store.add(second)
	router := setupRouter(store, models.RoleAdmin)

	w, envelope := doJSON(t, router, http.MethodGet, "/appointments/calendar?date=2025-03-13", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var proj schedule.CalendarProjection
	require.NoError(t, json.Unmarshal(envelope.Data, &proj))
	require.Len(t, proj.Events, 2)

	assert.Equal(t, proj.Events[0].Top, proj.Events[1].Top)
	assert.NotEqual(t, proj.Events[0].Left, proj.Events[1].Left)
	assert.GreaterOrEqual(t, proj.ContainerWidth,
		schedule.CardMarginPx+2*(schedule.CardWidthPx+schedule.CardGapPx))
	// viewing a day other than today: no marker
	assert.Nil(t, proj.NowMarkerOffset)
}

func TestGetCalendarRejectsBadDate(t *testing.T) {
	router := setupRouter(newFakeStore(), models.RoleAdmin)
	w, _ := doJSON(t, router, http.MethodGet, "/appointments/calendar?date=13-03-2025", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListSlots(t *testing.T) {
	router := setupRouter(newFakeStore(), "")
	w, envelope := doJSON(t, router, http.MethodGet, "/appointments/slots", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Slots  []string `json:"slots"`
		Labels []string `json:"labels"`
	}
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, schedule.Slots(), data.Slots)
	assert.Len(t, data.Labels, len(data.Slots))
}

func TestUpdateStatusApprove(t *testing.T) {
	store := newFakeStore()
	store.add(storedAppointment("a1", "2025-03-13", "10:30", models.StatusPending))
	router := setupRouter(store, models.RoleAdmin)

	w, _ := doJSON(t, router, http.MethodPatch, "/appointments/a1/status", gin.H{"status": "approved"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.StatusApproved, store.appts["a1"].Status)
}

func TestUpdateStatusPatientCanOnlyCancel(t *testing.T) {
	store := newFakeStore()
	store.add(storedAppointment("a1", "2025-03-13", "10:30", models.StatusPending))
	router := setupRouter(store, models.RolePatient)

	w, _ := doJSON(t, router, http.MethodPatch, "/appointments/a1/status", gin.H{"status": "approved"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = doJSON(t, router, http.MethodPatch, "/appointments/a1/status", gin.H{"status": "canceled"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusCanceled, store.appts["a1"].Status)
}

func TestUpdateStatusPassedAppointmentConflicts(t *testing.T) {
	store := newFakeStore()
	store.add(storedAppointment("a1", "2025-03-11", "12:00", models.StatusPending))
	router := setupRouter(store, models.RoleAdmin)

	w, envelope := doJSON(t, router, http.MethodPatch, "/appointments/a1/status", gin.H{"status": "approved"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, envelope.Error, "passed")
	assert.Equal(t, models.StatusPending, store.appts["a1"].Status)
}

func TestUpdateStatusCanceledIsTerminal(t *testing.T) {
	store := newFakeStore()
	store.add(storedAppointment("a1", "2025-03-13", "10:30", models.StatusCanceled))
	router := setupRouter(store, models.RoleAdmin)

	w, _ := doJSON(t, router, http.MethodPatch, "/appointments/a1/status", gin.H{"status": "approved"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, models.StatusCanceled, store.appts["a1"].Status)
}

func TestRescheduleAppointment(t *testing.T) {
	store := newFakeStore()
	store.add(storedAppointment("a1", "2025-03-13", "10:30", models.StatusApproved))
	router := setupRouter(store, models.RolePatient)

	w, _ := doJSON(t, router, http.MethodPatch, "/appointments/a1/reschedule",
		gin.H{"date": "2025-03-14", "time": "03:30 PM"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored := store.appts["a1"]
	assert.Equal(t, "2025-03-14", stored.Date)
	assert.Equal(t, "15:30", stored.Time)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestRescheduleRejectsPastTarget(t *testing.T) {
	store := newFakeStore()
	store.add(storedAppointment("a1", "2025-03-13", "10:30", models.StatusPending))
	router := setupRouter(store, models.RolePatient)

	w, _ := doJSON(t, router, http.MethodPatch, "/appointments/a1/reschedule",
		gin.H{"date": "2025-03-10", "time": "10:30"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAppointmentDerivesStatus(t *testing.T) {
	store := newFakeStore()
	store.add(storedAppointment("a1", "2025-03-11", "12:00", models.StatusApproved))
	router := setupRouter(store, models.RoleAdmin)

	w, envelope := doJSON(t, router, http.MethodGet, "/appointments/a1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Status models.AppointmentStatus `json:"status"`
	}
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, models.StatusPassed, data.Status)
}

func TestGetAppointmentNotFound(t *testing.T) {
	router := setupRouter(newFakeStore(), models.RoleAdmin)
	w, _ := doJSON(t, router, http.MethodGet, "/appointments/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteAppointment(t *testing.T) {
	store := newFakeStore()
	store.add(storedAppointment("a1", "2025-03-13", "10:30", models.StatusPending))
	router := setupRouter(store, models.RoleAdmin)

	w, _ := doJSON(t, router, http.MethodDelete, "/appointments/a1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, store.appts)
}

func TestExportICS(t *testing.T) {
	store := newFakeStore()
	store.add(storedAppointment("a1", "2025-03-13", "10:30", models.StatusApproved))
	router := setupRouter(store, models.RolePatient)

	w, _ := doJSON(t, router, http.MethodGet, "/appointments/a1/ics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, "DTSTART:20250313T103000")
	assert.Contains(t, body, "DTEND:20250313T110000")
	assert.Contains(t, body, "SUMMARY:Appointment for Jane Doe")
}
