package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bekicr/universal-clinic/internal/middleware"
	"github.com/bekicr/universal-clinic/internal/models"
	"github.com/bekicr/universal-clinic/internal/policy"
	"github.com/bekicr/universal-clinic/internal/storage"
)

// Accepted appointment_date layouts, tried in order.
var appointmentDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

const queryDateLayout = "2006-01-02"

type CreateAppointmentRequest struct {
	DoctorID        string `json:"doctor_id"`
	AppointmentDate string `json:"appointment_date"`
	Reason          string `json:"reason"`
	PatientID       string `json:"patient_id"`
}

// UpdateAppointmentRequest uses pointers so absent fields stay untouched.
type UpdateAppointmentRequest struct {
	DoctorID        *string `json:"doctor_id"`
	AppointmentDate *string `json:"appointment_date"`
	Reason          *string `json:"reason"`
	Status          *string `json:"status"`
}

func parseAppointmentDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range appointmentDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// actor resolves the caller into a policy.Actor, looking up the doctor
// profile for DOCTOR users.
func (h *Handler) actor(c *gin.Context) (policy.Actor, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return policy.Actor{}, false
	}
	actor := policy.Actor{UserID: user.ID, Role: user.Role}
	if user.Role != models.RoleDoctor {
		return actor, true
	}

	doctor, err := h.Store.FindDoctorByUserID(c.Request.Context(), user.ID)
	switch {
	case err == nil:
		actor.DoctorID = doctor.ID
	case !errors.Is(err, storage.ErrNotFound):
		h.internalError(c, err, "Failed to resolve doctor profile")
		return policy.Actor{}, false
	}
	return actor, true
}

// approvedDoctor loads a doctor that may receive bookings.
func (h *Handler) approvedDoctor(c *gin.Context, id primitive.ObjectID) (models.Doctor, bool) {
	doctor, err := h.Store.FindDoctorByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(c, http.StatusBadRequest, "Doctor not found")
			return models.Doctor{}, false
		}
		h.internalError(c, err, "Failed to load doctor")
		return models.Doctor{}, false
	}
	if doctor.Status != models.DoctorApproved {
		respondError(c, http.StatusBadRequest, "Doctor is not accepting appointments")
		return models.Doctor{}, false
	}
	return doctor, true
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := policy.CanCreate(actor); err != nil {
		h.respondDenial(c, err)
		return
	}

	var req CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.DoctorID) == "" || strings.TrimSpace(req.AppointmentDate) == "" {
		respondError(c, http.StatusBadRequest, "doctor_id and appointment_date are required")
		return
	}

	doctorID, ok := parseObjectID(req.DoctorID)
	if !ok {
		respondError(c, http.StatusBadRequest, "Invalid doctor_id")
		return
	}
	date, ok := parseAppointmentDate(req.AppointmentDate)
	if !ok {
		respondError(c, http.StatusBadRequest, "Invalid appointment_date")
		return
	}

	ctx := c.Request.Context()
	var patient models.User
	if actor.Role == models.RoleAdmin {
		if strings.TrimSpace(req.PatientID) == "" {
			respondError(c, http.StatusBadRequest, "patient_id is required")
			return
		}
		patientID, ok := parseObjectID(req.PatientID)
		if !ok {
			respondError(c, http.StatusBadRequest, "Invalid patient_id")
			return
		}
		found, err := h.Store.FindUserByID(ctx, patientID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				respondError(c, http.StatusBadRequest, "Patient not found")
				return
			}
			h.internalError(c, err, "Failed to create appointment")
			return
		}
		patient = found
	} else {
		patient, _ = middleware.CurrentUser(c)
	}

	doctor, ok := h.approvedDoctor(c, doctorID)
	if !ok {
		return
	}

	apt := models.Appointment{
		PatientID:       patient.ID,
		DoctorID:        doctor.ID,
		AppointmentDate: date,
		Status:          models.StatusPending,
		Reason:          strings.TrimSpace(req.Reason),
	}
	if err := h.Store.CreateAppointment(ctx, &apt); err != nil {
		h.internalError(c, err, "Failed to create appointment")
		return
	}

	h.NotificationSvc.NotifyAppointment(&patient, &apt, doctor.Name)

	c.JSON(http.StatusCreated, apt)
}

// GetAppointments lists what the caller may see, optionally filtered by
// status and by a startDate/endDate day range.
func (h *Handler) GetAppointments(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	filter, visible := policy.ListScope(actor)
	if !visible {
		c.JSON(http.StatusOK, []models.AppointmentView{})
		return
	}

	if status := c.Query("status"); status != "" {
		if !models.ValidAppointmentStatus(status) {
			respondError(c, http.StatusBadRequest, "Invalid status")
			return
		}
		filter.Status = status
	}
	if raw := c.Query("startDate"); raw != "" {
		start, err := time.Parse(queryDateLayout, raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Invalid startDate, use YYYY-MM-DD")
			return
		}
		filter.From = &start
	}
	if raw := c.Query("endDate"); raw != "" {
		end, err := time.Parse(queryDateLayout, raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Invalid endDate, use YYYY-MM-DD")
			return
		}
		// Include the whole end day.
		end = end.Add(24*time.Hour - time.Nanosecond)
		filter.To = &end
	}

	ctx := c.Request.Context()
	appointments, err := h.Store.ListAppointments(ctx, filter)
	if err != nil {
		h.internalError(c, err, "Failed to fetch appointments")
		return
	}

	views, err := h.populate(ctx, appointments)
	if err != nil {
		h.internalError(c, err, "Failed to fetch appointments")
		return
	}
	c.JSON(http.StatusOK, views)
}

// populate attaches doctor and patient summaries. Missing references are
// left empty.
func (h *Handler) populate(ctx context.Context, appointments []models.Appointment) ([]models.AppointmentView, error) {
	views := make([]models.AppointmentView, 0, len(appointments))
	if len(appointments) == 0 {
		return views, nil
	}

	doctorIDs := make([]primitive.ObjectID, 0, len(appointments))
	patientIDs := make([]primitive.ObjectID, 0, len(appointments))
	for _, apt := range appointments {
		doctorIDs = append(doctorIDs, apt.DoctorID)
		patientIDs = append(patientIDs, apt.PatientID)
	}

	doctors, err := h.Store.FindDoctorsByIDs(ctx, doctorIDs)
	if err != nil {
		return nil, err
	}
	patients, err := h.Store.FindUsersByIDs(ctx, patientIDs)
	if err != nil {
		return nil, err
	}

	doctorByID := make(map[primitive.ObjectID]models.Doctor, len(doctors))
	for _, d := range doctors {
		doctorByID[d.ID] = d
	}
	patientByID := make(map[primitive.ObjectID]models.User, len(patients))
	for _, p := range patients {
		patientByID[p.ID] = p
	}

	for _, apt := range appointments {
		view := models.AppointmentView{Appointment: apt}
		if d, ok := doctorByID[apt.DoctorID]; ok {
			view.Doctor = &models.DoctorSummary{ID: d.ID, Name: d.Name, Specialty: d.Specialty}
		}
		if p, ok := patientByID[apt.PatientID]; ok {
			view.Patient = &models.PatientSummary{ID: p.ID, Name: p.Name, Email: p.Email}
		}
		views = append(views, view)
	}
	return views, nil
}

// loadAppointment resolves the :id param and checks access for action.
func (h *Handler) loadAppointment(c *gin.Context, actor policy.Actor, action policy.Action) (models.Appointment, bool) {
	id, ok := parseObjectID(c.Param("id"))
	if !ok {
		respondError(c, http.StatusBadRequest, "Invalid appointment ID")
		return models.Appointment{}, false
	}

	apt, err := h.Store.FindAppointmentByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Appointment not found")
			return models.Appointment{}, false
		}
		h.internalError(c, err, "Failed to fetch appointment")
		return models.Appointment{}, false
	}

	if err := policy.CanAccess(actor, action, apt); err != nil {
		h.respondDenial(c, err)
		return models.Appointment{}, false
	}
	return apt, true
}

func (h *Handler) GetAppointment(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	apt, ok := h.loadAppointment(c, actor, policy.ActionRead)
	if !ok {
		return
	}

	views, err := h.populate(c.Request.Context(), []models.Appointment{apt})
	if err != nil {
		h.internalError(c, err, "Failed to fetch appointment")
		return
	}
	c.JSON(http.StatusOK, views[0])
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	// Ownership is settled before the body is looked at.
	apt, ok := h.loadAppointment(c, actor, policy.ActionUpdate)
	if !ok {
		return
	}

	var req UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.DoctorID == nil && req.AppointmentDate == nil && req.Reason == nil && req.Status == nil {
		respondError(c, http.StatusBadRequest, "No fields to update")
		return
	}

	var change policy.Change
	if req.Status != nil {
		if !models.ValidAppointmentStatus(*req.Status) {
			respondError(c, http.StatusBadRequest, "Invalid status")
			return
		}
		change.Status = req.Status
	}
	if req.AppointmentDate != nil {
		date, ok := parseAppointmentDate(*req.AppointmentDate)
		if !ok {
			respondError(c, http.StatusBadRequest, "Invalid appointment_date")
			return
		}
		change.AppointmentDate = &date
	}
	if req.DoctorID != nil {
		doctorID, ok := parseObjectID(*req.DoctorID)
		if !ok {
			respondError(c, http.StatusBadRequest, "Invalid doctor_id")
			return
		}
		change.DoctorID = &doctorID
	}
	if req.Reason != nil {
		reason := strings.TrimSpace(*req.Reason)
		change.Reason = &reason
	}

	if err := policy.CanUpdate(actor, apt, change); err != nil {
		h.respondDenial(c, err)
		return
	}

	if change.DoctorID != nil && *change.DoctorID != apt.DoctorID {
		if _, ok := h.approvedDoctor(c, *change.DoctorID); !ok {
			return
		}
		apt.DoctorID = *change.DoctorID
	}
	if change.AppointmentDate != nil {
		apt.AppointmentDate = *change.AppointmentDate
	}
	if change.Reason != nil {
		apt.Reason = *change.Reason
	}
	previousStatus := apt.Status
	if change.Status != nil {
		apt.Status = *change.Status
	}

	ctx := c.Request.Context()
	if err := h.Store.SaveAppointment(ctx, &apt); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Appointment not found")
			return
		}
		h.internalError(c, err, "Failed to update appointment")
		return
	}

	views, err := h.populate(ctx, []models.Appointment{apt})
	if err != nil {
		h.internalError(c, err, "Failed to update appointment")
		return
	}
	view := views[0]

	if apt.Status != previousStatus {
		h.notifyStatusChange(ctx, view)
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) notifyStatusChange(ctx context.Context, view models.AppointmentView) {
	patient, err := h.Store.FindUserByID(ctx, view.PatientID)
	if err != nil {
		h.Log.Warn().Err(err).Str("appointment_id", view.ID.Hex()).Msg("notify: load patient")
		return
	}
	doctorName := ""
	if view.Doctor != nil {
		doctorName = view.Doctor.Name
	}
	apt := view.Appointment
	h.NotificationSvc.NotifyAppointment(&patient, &apt, doctorName)
}

func (h *Handler) DeleteAppointment(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	apt, ok := h.loadAppointment(c, actor, policy.ActionDelete)
	if !ok {
		return
	}

	if err := h.Store.DeleteAppointment(c.Request.Context(), apt.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Appointment not found")
			return
		}
		h.internalError(c, err, "Failed to delete appointment")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Appointment deleted"})
}
