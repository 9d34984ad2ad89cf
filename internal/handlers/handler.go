package handlers

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/bekicr/universal-clinic/internal/services"
	"github.com/bekicr/universal-clinic/internal/storage"
	"github.com/bekicr/universal-clinic/internal/utils"
)

// Handler carries the dependencies shared by every route.
type Handler struct {
	Store           storage.Store
	Tokens          *utils.TokenManager
	Uploads         *services.UploadStore
	NotificationSvc *services.NotificationService
	Log             zerolog.Logger
	StartedAt       time.Time
}

func NewHandler(
	store storage.Store,
	tokens *utils.TokenManager,
	uploads *services.UploadStore,
	notificationSvc *services.NotificationService,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		Store:           store,
		Tokens:          tokens,
		Uploads:         uploads,
		NotificationSvc: notificationSvc,
		Log:             logger,
		StartedAt:       time.Now(),
	}
}
