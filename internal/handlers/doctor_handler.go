package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bekicr/universal-clinic/internal/middleware"
	"github.com/bekicr/universal-clinic/internal/models"
	"github.com/bekicr/universal-clinic/internal/services"
	"github.com/bekicr/universal-clinic/internal/storage"
	"github.com/bekicr/universal-clinic/internal/utils"
)

const educationFileField = "educationFile"

type RegisterDoctorRequest struct {
	Name       string `form:"name" binding:"required"`
	Email      string `form:"email" binding:"required,email"`
	Password   string `form:"password" binding:"required,min=8"`
	Phone      string `form:"phone"`
	Specialty  string `form:"specialty" binding:"required"`
	Age        int    `form:"age" binding:"required,min=18,max=100"`
	Experience *int   `form:"experience" binding:"required,min=0,max=80"`
	Gender     string `form:"gender" binding:"required,oneof=Male Female Other"`
	Education  string `form:"education" binding:"required"`
	Bio        string `form:"bio"`
}

type DoctorStatusRequest struct {
	Status string `json:"status"`
}

// RegisterDoctor creates a DOCTOR user and a pending profile from a multipart
// form carrying the credential document.
func (h *Handler) RegisterDoctor(c *gin.Context) {
	var req RegisterDoctorRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, bindingMessage(err, "All fields are required"))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Specialty = strings.TrimSpace(req.Specialty)
	req.Education = strings.TrimSpace(req.Education)
	if req.Name == "" || req.Specialty == "" || req.Education == "" {
		respondError(c, http.StatusBadRequest, "All fields are required")
		return
	}

	fileHeader, err := c.FormFile(educationFileField)
	if err != nil {
		respondError(c, http.StatusBadRequest, "All fields are required")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.Store.FindUserByEmail(ctx, req.Email); err == nil {
		respondError(c, http.StatusBadRequest, "User already exists with this email")
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		h.internalError(c, err, "Failed to register doctor")
		return
	}

	fileRef, err := h.Uploads.Save(fileHeader)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrFileTooLarge):
			respondError(c, http.StatusBadRequest, "Education file is too large")
		case errors.Is(err, services.ErrInvalidContentType):
			respondError(c, http.StatusBadRequest, "Education file must be a PDF or an image")
		default:
			h.internalError(c, err, "Failed to register doctor")
		}
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		h.discardUpload(fileRef)
		h.internalError(c, err, "Failed to register doctor")
		return
	}

	user := models.User{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    strings.TrimSpace(req.Phone),
		Password: hashedPassword,
		Role:     models.RoleDoctor,
	}
	if err := h.Store.CreateUser(ctx, &user); err != nil {
		h.discardUpload(fileRef)
		if errors.Is(err, storage.ErrAlreadyExists) {
			respondError(c, http.StatusBadRequest, "User already exists with this email")
			return
		}
		h.internalError(c, err, "Failed to register doctor")
		return
	}

	doctor := models.Doctor{
		UserID:        user.ID,
		Name:          user.Name,
		Email:         user.Email,
		Phone:         user.Phone,
		Specialty:     req.Specialty,
		Age:           req.Age,
		Experience:    *req.Experience,
		Gender:        req.Gender,
		Education:     req.Education,
		EducationFile: fileRef,
		Bio:           strings.TrimSpace(req.Bio),
		Status:        models.DoctorPending,
	}
	if err := h.Store.CreateDoctor(ctx, &doctor); err != nil {
		// Roll back the user so the email can register again.
		if delErr := h.Store.DeleteUser(ctx, user.ID); delErr != nil {
			h.Log.Error().Err(delErr).Str("user_id", user.ID.Hex()).Msg("doctor registration: rollback user")
		}
		h.discardUpload(fileRef)
		h.internalError(c, err, "Failed to register doctor")
		return
	}
	h.Log.Info().Str("doctor_id", doctor.ID.Hex()).Msg("doctor registered, awaiting approval")

	c.JSON(http.StatusCreated, gin.H{
		"message": "Doctor registration successful. Waiting for admin approval.",
		"doctor":  doctor,
	})
}

func (h *Handler) discardUpload(ref string) {
	if err := h.Uploads.Remove(ref); err != nil {
		h.Log.Warn().Err(err).Str("file", ref).Msg("remove upload")
	}
}

// ListDoctors returns approved doctors sorted by name.
func (h *Handler) ListDoctors(c *gin.Context) {
	h.listDoctors(c, models.DoctorApproved, storage.OrderByName, "Failed to fetch doctors")
}

// ListPendingDoctors returns doctors awaiting review, newest first.
func (h *Handler) ListPendingDoctors(c *gin.Context) {
	h.listDoctors(c, models.DoctorPending, storage.OrderByNewest, "Failed to fetch pending doctors")
}

func (h *Handler) listDoctors(c *gin.Context, status string, order storage.DoctorOrder, failure string) {
	doctors, err := h.Store.ListDoctors(c.Request.Context(), status, order)
	if err != nil {
		h.internalError(c, err, failure)
		return
	}
	if doctors == nil {
		doctors = make([]models.Doctor, 0)
	}
	c.JSON(http.StatusOK, doctors)
}

func (h *Handler) GetDoctor(c *gin.Context) {
	id, ok := parseObjectID(c.Param("id"))
	if !ok {
		respondError(c, http.StatusBadRequest, "Invalid doctor ID")
		return
	}

	doctor, err := h.Store.FindDoctorByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Doctor not found")
			return
		}
		h.internalError(c, err, "Failed to fetch doctor")
		return
	}
	c.JSON(http.StatusOK, doctor)
}

// GetDoctorProfile returns the profile owned by the calling doctor.
func (h *Handler) GetDoctorProfile(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	doctor, err := h.Store.FindDoctorByUserID(c.Request.Context(), user.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Doctor profile not found")
			return
		}
		h.internalError(c, err, "Failed to fetch profile")
		return
	}
	c.JSON(http.StatusOK, doctor)
}

// UpdateDoctorStatus approves or rejects a doctor. A decision may be revised.
func (h *Handler) UpdateDoctorStatus(c *gin.Context) {
	var req DoctorStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || !models.DoctorDecision(req.Status) {
		respondError(c, http.StatusBadRequest, "Invalid status")
		return
	}

	id, ok := parseObjectID(c.Param("id"))
	if !ok {
		respondError(c, http.StatusBadRequest, "Invalid doctor ID")
		return
	}

	doctor, err := h.Store.UpdateDoctorStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Doctor not found")
			return
		}
		h.internalError(c, err, "Failed to update doctor status")
		return
	}
	h.Log.Info().Str("doctor_id", doctor.ID.Hex()).Str("status", doctor.Status).Msg("doctor reviewed")

	c.JSON(http.StatusOK, doctor)
}

// DeleteDoctor removes the profile and its user, then cancels the doctor's
// open appointments. Failures after the profile is gone are logged only.
func (h *Handler) DeleteDoctor(c *gin.Context) {
	id, ok := parseObjectID(c.Param("id"))
	if !ok {
		respondError(c, http.StatusBadRequest, "Invalid doctor ID")
		return
	}

	ctx := c.Request.Context()
	doctor, err := h.Store.FindDoctorByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Doctor not found")
			return
		}
		h.internalError(c, err, "Failed to delete doctor")
		return
	}

	if err := h.Store.DeleteDoctor(ctx, doctor.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Doctor not found")
			return
		}
		h.internalError(c, err, "Failed to delete doctor")
		return
	}

	logger := h.Log.With().Str("doctor_id", doctor.ID.Hex()).Logger()
	if err := h.Store.DeleteUser(ctx, doctor.UserID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		logger.Error().Err(err).Str("user_id", doctor.UserID.Hex()).Msg("delete doctor: remove user")
	}
	cancelled, err := h.Store.CancelDoctorAppointments(ctx, doctor.ID)
	if err != nil {
		logger.Error().Err(err).Msg("delete doctor: cancel appointments")
	}
	if doctor.EducationFile != "" {
		h.discardUpload(doctor.EducationFile)
	}
	logger.Info().Int64("cancelled_appointments", cancelled).Msg("doctor deleted")

	c.JSON(http.StatusOK, gin.H{"message": "Doctor deleted"})
}
