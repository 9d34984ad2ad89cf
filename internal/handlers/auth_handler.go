// internal/handlers/auth_handler.go
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bekicr/universal-clinic/internal/middleware"
	"github.com/bekicr/universal-clinic/internal/models"
	"github.com/bekicr/universal-clinic/internal/storage"
	"github.com/bekicr/universal-clinic/internal/utils"
)

type RegisterUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"omitempty,min=8"`
}

type SessionResponse struct {
	User  models.PublicUser `json:"user"`
	Token string            `json:"token"`
}

// RegisterUser creates a PATIENT account and starts a session for it.
func (h *Handler) RegisterUser(c *gin.Context) {
	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, bindingMessage(err, "Name, email and password are required"))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondError(c, http.StatusBadRequest, "Name, email and password are required")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.Store.FindUserByEmail(ctx, req.Email); err == nil {
		respondError(c, http.StatusBadRequest, "User already exists")
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		h.internalError(c, err, "Failed to register user")
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		h.internalError(c, err, "Failed to register user")
		return
	}

	user := models.User{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    strings.TrimSpace(req.Phone),
		Password: hashedPassword,
		Role:     models.RolePatient,
	}
	if err := h.Store.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			respondError(c, http.StatusBadRequest, "User already exists")
			return
		}
		h.internalError(c, err, "Failed to register user")
		return
	}

	token, err := h.Tokens.Generate(user.ID)
	if err != nil {
		h.internalError(c, err, "Failed to register user")
		return
	}
	h.Log.Info().Str("user_id", user.ID.Hex()).Msg("patient registered")

	c.JSON(http.StatusCreated, SessionResponse{User: user.Public(), Token: token})
}

// Login verifies credentials. Unknown emails and wrong passwords get the same answer.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Email and password required")
		return
	}

	user, err := h.Store.FindUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(c, http.StatusBadRequest, "Invalid credentials")
			return
		}
		h.internalError(c, err, "Failed to login")
		return
	}

	if !utils.CheckPasswordHash(req.Password, user.Password) {
		respondError(c, http.StatusBadRequest, "Invalid credentials")
		return
	}

	token, err := h.Tokens.Generate(user.ID)
	if err != nil {
		h.internalError(c, err, "Failed to login")
		return
	}

	c.JSON(http.StatusOK, SessionResponse{User: user.Public(), Token: token})
}

// GetCurrentUser returns the profile of the authenticated user.
func (h *Handler) GetCurrentUser(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateCurrentUser changes name, phone or password of the caller.
func (h *Handler) UpdateCurrentUser(c *gin.Context) {
	current, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, bindingMessage(err, "Invalid request body"))
		return
	}

	var update models.UserUpdate
	if name := strings.TrimSpace(req.Name); name != "" {
		update.Name = &name
	}
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		update.Phone = &phone
	}
	if req.Password != "" {
		hashed, err := utils.HashPassword(req.Password)
		if err != nil {
			h.internalError(c, err, "Failed to update profile")
			return
		}
		update.Password = &hashed
	}
	if update.Empty() {
		respondError(c, http.StatusBadRequest, "No update fields provided")
		return
	}

	user, err := h.Store.UpdateUser(c.Request.Context(), current.ID, update)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(c, http.StatusNotFound, "User not found")
			return
		}
		h.internalError(c, err, "Failed to update profile")
		return
	}

	c.JSON(http.StatusOK, user)
}
