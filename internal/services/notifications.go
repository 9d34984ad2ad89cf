package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/bekicr/universal-clinic/internal/models"
)

// NotificationService texts patients about their appointments via Textbelt.
// Without an API key every send is skipped and only logged.
type NotificationService struct {
	apiKey   string
	endpoint string
	client   *http.Client
	log      zerolog.Logger
}

func NewNotificationService(apiKey, endpoint string, logger zerolog.Logger) *NotificationService {
	return &NotificationService{
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		log:      logger.With().Str("component", "notifications").Logger(),
	}
}

// AppointmentMessage renders the SMS body for an appointment event.
func AppointmentMessage(apt *models.Appointment, doctorName string) string {
	when := apt.AppointmentDate.Format("Jan 2 at 3:04 PM")
	switch apt.Status {
	case models.StatusConfirmed:
		return fmt.Sprintf("Appointment confirmed with Dr. %s on %s.", doctorName, when)
	case models.StatusCancelled:
		return fmt.Sprintf("Your appointment with Dr. %s on %s was cancelled.", doctorName, when)
	default:
		return fmt.Sprintf("Appointment request received for Dr. %s on %s. We will confirm shortly.", doctorName, when)
	}
}

// NotifyAppointment sends the message in the background so it never delays
// the API response.
func (s *NotificationService) NotifyAppointment(patient *models.User, apt *models.Appointment, doctorName string) {
	if patient.Phone == "" {
		s.log.Debug().Str("patient_id", patient.ID.Hex()).Msg("sms not sent: patient has no phone number")
		return
	}
	if s.apiKey == "" {
		s.log.Debug().Str("appointment_id", apt.ID.Hex()).Msg("sms not sent: TEXTBELT_API_KEY not configured")
		return
	}

	body := AppointmentMessage(apt, doctorName)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.Send(ctx, patient.Phone, body); err != nil {
			s.log.Warn().Err(err).Str("phone", patient.Phone).Msg("failed to send sms")
			return
		}
		s.log.Info().Str("phone", patient.Phone).Msg("sms sent")
	}()
}

type textbeltResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Send posts a single message to the Textbelt endpoint.
func (s *NotificationService) Send(ctx context.Context, phone, message string) error {
	postBody, err := json.Marshal(map[string]string{
		"phone":   phone,
		"message": message,
		"key":     s.apiKey,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(postBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("textbelt request: %w", err)
	}
	defer resp.Body.Close()

	var result textbeltResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode textbelt response: %w", err)
	}
	if !result.Success {
		if result.Error == "" {
			return errors.New("textbelt rejected the message")
		}
		return errors.New(result.Error)
	}
	return nil
}
