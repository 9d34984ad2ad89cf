package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

type Appointment struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PatientID       primitive.ObjectID `bson:"patientId" json:"patientId"`
	DoctorID        primitive.ObjectID `bson:"doctorId" json:"doctorId"`
	AppointmentDate time.Time          `bson:"appointmentDate" json:"appointmentDate"`
	Status          string             `bson:"status" json:"status"`
	Reason          string             `bson:"reason,omitempty" json:"reason,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func ValidAppointmentStatus(status string) bool {
	switch status {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// PatientSummary is embedded in appointment listings.
type PatientSummary struct {
	ID    primitive.ObjectID `json:"id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
}

// AppointmentView is an appointment with its doctor and patient populated.
type AppointmentView struct {
	Appointment
	Doctor  *DoctorSummary  `json:"doctor,omitempty"`
	Patient *PatientSummary `json:"patient,omitempty"`
}
