package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/now"
	"github.com/rs/zerolog/log"

	"scanwise-server/internal/middleware"
	"scanwise-server/internal/models"
	"scanwise-server/internal/schedule"
	"scanwise-server/internal/utils"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	Store      schedule.Store
	Scheduler  *schedule.Scheduler
	Clock      schedule.Clock
	NowRefresh time.Duration
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(store schedule.Store, clock schedule.Clock, nowRefresh time.Duration) *AppointmentHandler {
	if clock == nil {
		clock = schedule.SystemClock()
	}
	return &AppointmentHandler{
		Store:      store,
		Scheduler:  schedule.NewScheduler(store, clock),
		Clock:      clock,
		NowRefresh: nowRefresh,
	}
}

// CreateAppointmentRequest represents the request body for booking an
// appointment. Time accepts both the stored 24-hour form and the
// 12-hour labels the booking UI shows.
type CreateAppointmentRequest struct {
	FullName      string `json:"fullName" binding:"required"`
	Email         string `json:"email" binding:"required,email"`
	Date          string `json:"date" binding:"required"`
	Time          string `json:"time" binding:"required"`
	ContactNumber string `json:"contactNumber" binding:"required"`
	ReasonForScan string `json:"reasonForScan" binding:"required"`
	DateOfBirth   string `json:"dateOfBirth" binding:"required"`
	Gender        string `json:"gender" binding:"required"`
	Address       string `json:"address"`
	Priority      string `json:"priority"`
}

// CreateAppointment handles a patient booking submission.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	slot, err := schedule.ParseSlotLabel(req.Time)
	if err != nil {
		utils.BadRequest(c, "Time "+req.Time+" is not an available slot")
		return
	}

	appt, err := h.Scheduler.ProposeBooking(c.Request.Context(), schedule.BookingRequest{
		FullName:      req.FullName,
		Email:         req.Email,
		ContactNumber: req.ContactNumber,
		DateOfBirth:   req.DateOfBirth,
		Gender:        req.Gender,
		Address:       req.Address,
		Date:          req.Date,
		Time:          slot,
		Reason:        req.ReasonForScan,
		Priority:      models.AppointmentPriority(req.Priority),
	})
	if err != nil {
		h.respondSchedulingError(c, err)
		return
	}

	utils.Created(c, "Appointment booked successfully", appt)
}

// ListAppointments returns the flat list projection, filtered and
// sorted most recent first.
func (h *AppointmentHandler) ListAppointments(c *gin.Context) {
	appts, err := h.loadAppointments(c)
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments")
		return
	}

	at := h.Clock.Now()
	filtered := parseFilters(c).Apply(appts, at)
	schedule.SortDescending(filtered)

	utils.Success(c, "Appointments fetched successfully", gin.H{
		"rows": schedule.BuildListProjection(filtered, at),
	})
}

// GetCalendar returns the week-grid projection for the requested day.
func (h *AppointmentHandler) GetCalendar(c *gin.Context) {
	at := h.Clock.Now()
	day := at
	if v := c.Query("date"); v != "" {
		parsed, err := time.ParseInLocation(models.DateLayout, v, time.Local)
		if err != nil {
			utils.BadRequest(c, "Invalid date format, expected YYYY-MM-DD")
			return
		}
		day = parsed
	}

	appts, err := h.loadAppointments(c)
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments")
		return
	}

	filters := parseFilters(c)
	filters.WeekOf = &day
	filtered := filters.Apply(appts, at)
	schedule.SortDescending(filtered)

	utils.Success(c, "Calendar fetched successfully",
		schedule.BuildCalendarProjection(filtered, day, at))
}

// StreamNowMarker streams the calendar's current-time marker position
// over SSE, recomputed on the configured interval until the client
// disconnects.
func (h *AppointmentHandler) StreamNowMarker(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	marker := schedule.NewNowMarker(h.Clock, h.NowRefresh)
	marker.Run(c.Request.Context(), func(offset float64, at time.Time) {
		c.SSEvent("now-marker", gin.H{
			"offset": offset,
			"at":     at.Format(time.RFC3339),
		})
		c.Writer.Flush()
	})
}

// ListSlots returns the bookable time-slot catalog.
func (h *AppointmentHandler) ListSlots(c *gin.Context) {
	utils.Success(c, "Slots fetched successfully", gin.H{
		"slots":  schedule.Slots(),
		"labels": schedule.SlotLabels(),
	})
}

// GetAppointmentByID returns a single appointment with its effective
// status recomputed at request time.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	appt, err := h.Store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondSchedulingError(c, err)
		return
	}

	utils.Success(c, "Appointment fetched successfully", gin.H{
		"appointment": appt,
		"status":      schedule.EffectiveStatus(appt, h.Clock.Now()),
	})
}

// UpdateAppointmentStatusRequest represents the request body for a
// status change.
type UpdateAppointmentStatusRequest struct {
	Status models.AppointmentStatus `json:"status" binding:"required,oneof=pending approved completed canceled"`
}

// UpdateAppointmentStatus applies an admin approval/rejection or a
// patient cancellation.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	var req UpdateAppointmentStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	// Patients can only cancel; approval and completion are admin
	// actions.
	role, _ := middleware.GetUserRoleFromContext(c)
	if role == models.RolePatient && req.Status != models.StatusCanceled {
		utils.Forbidden(c, "Patients can only cancel appointments.")
		return
	}

	appt, err := h.Scheduler.ChangeStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.respondSchedulingError(c, err)
		return
	}

	utils.Success(c, "Appointment status updated successfully", appt)
}

// RescheduleAppointmentRequest represents the request body for moving
// an appointment to a new date/time.
type RescheduleAppointmentRequest struct {
	Date string `json:"date" binding:"required"`
	Time string `json:"time" binding:"required"`
}

// RescheduleAppointment moves an appointment and resets it to pending.
func (h *AppointmentHandler) RescheduleAppointment(c *gin.Context) {
	var req RescheduleAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	slot, err := schedule.ParseSlotLabel(req.Time)
	if err != nil {
		utils.BadRequest(c, "Time "+req.Time+" is not an available slot")
		return
	}

	appt, err := h.Scheduler.ProposeReschedule(c.Request.Context(), c.Param("id"), req.Date, slot)
	if err != nil {
		h.respondSchedulingError(c, err)
		return
	}

	utils.Success(c, "Appointment rescheduled successfully", appt)
}

// DeleteAppointment removes a record outright. This is a raw store
// operation outside scheduling logic, restricted to admins.
func (h *AppointmentHandler) DeleteAppointment(c *gin.Context) {
	if err := h.Store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondSchedulingError(c, err)
		return
	}
	utils.Success(c, "Appointment deleted successfully", nil)
}

// ExportICS serves the appointment as a downloadable calendar event.
func (h *AppointmentHandler) ExportICS(c *gin.Context) {
	appt, err := h.Store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondSchedulingError(c, err)
		return
	}
	start, err := appt.StartAt()
	if err != nil {
		utils.BadRequest(c, "Appointment has an invalid date/time")
		return
	}
	end := start.Add(models.AppointmentDuration)

	const stamp = "20060102T150405"
	ics := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"BEGIN:VEVENT",
		"DTSTART:" + start.Format(stamp),
		"DTEND:" + end.Format(stamp),
		"SUMMARY:Appointment for " + appt.Patient.FullName,
		"DESCRIPTION:Reason: " + appt.Reason,
		"LOCATION:Medical Imaging Center",
		"END:VEVENT",
		"END:VCALENDAR",
	}, "\n")

	filename := fmt.Sprintf("Appointment_%s_%s.ics", appt.Date, strings.ReplaceAll(appt.Time, ":", "-"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(200, "text/calendar; charset=utf-8", []byte(ics))
}

// loadAppointments fetches and hydration-checks the collection.
// Malformed rows are flagged and skipped rather than failing the view.
func (h *AppointmentHandler) loadAppointments(c *gin.Context) ([]models.Appointment, error) {
	appts, err := h.Store.List(c.Request.Context(), schedule.ListQuery{Email: c.Query("email")})
	if err != nil {
		log.Error().Err(err).Msg("failed to list appointments")
		return nil, err
	}

	valid := appts[:0]
	for i := range appts {
		if err := appts[i].Validate(); err != nil {
			log.Warn().Err(err).Str("appointment_id", appts[i].ID).Msg("skipping malformed appointment record")
			continue
		}
		valid = append(valid, appts[i])
	}
	return valid, nil
}

// parseFilters builds the predicate pipeline from query parameters.
func parseFilters(c *gin.Context) schedule.Filters {
	f := schedule.Filters{
		Search:           c.Query("search"),
		HighPriorityOnly: c.Query("highPriority") == "true",
	}
	if v := c.Query("status"); v != "" {
		for _, s := range strings.Split(v, ",") {
			f.Statuses = append(f.Statuses, models.AppointmentStatus(strings.TrimSpace(s)))
		}
	}
	if v := c.Query("from"); v != "" {
		if t, err := time.ParseInLocation(models.DateLayout, v, time.Local); err == nil {
			from := now.New(t).BeginningOfDay()
			f.From = &from
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.ParseInLocation(models.DateLayout, v, time.Local); err == nil {
			to := now.New(t).EndOfDay()
			f.To = &to
		}
	}
	return f
}

// respondSchedulingError maps engine rejections and store failures to
// HTTP responses. Rejections carry user-actionable reasons; anything
// else collapses to a single fallback message.
func (h *AppointmentHandler) respondSchedulingError(c *gin.Context, err error) {
	if rej, ok := schedule.AsRejection(err); ok {
		switch rej.Code {
		case schedule.RejectStaleAppointment, schedule.RejectIllegalTransition:
			utils.Conflict(c, rej.Reason)
		default:
			utils.BadRequest(c, rej.Reason)
		}
		return
	}
	if errors.Is(err, schedule.ErrNotFound) {
		utils.NotFound(c, "Appointment not found")
		return
	}
	log.Error().Err(err).Msg("appointment operation failed")
	utils.InternalServerError(c, "Something went wrong. Please try again.")
}
