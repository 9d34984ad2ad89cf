package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bekicr/universal-clinic/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// DoctorOrder selects the sort applied to doctor listings.
type DoctorOrder int

const (
	OrderByName DoctorOrder = iota
	OrderByNewest
)

// AppointmentFilter narrows an appointment listing. Zero values match everything.
type AppointmentFilter struct {
	PatientID primitive.ObjectID
	DoctorID  primitive.ObjectID
	Status    string
	From      *time.Time
	To        *time.Time
}

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	FindUserByEmail(ctx context.Context, email string) (models.User, error)
	FindUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	UpdateUser(ctx context.Context, id primitive.ObjectID, update models.UserUpdate) (models.User, error)
	DeleteUser(ctx context.Context, id primitive.ObjectID) error
}

type DoctorStore interface {
	CreateDoctor(ctx context.Context, doctor *models.Doctor) error
	FindDoctorByID(ctx context.Context, id primitive.ObjectID) (models.Doctor, error)
	FindDoctorByUserID(ctx context.Context, userID primitive.ObjectID) (models.Doctor, error)
	FindDoctorsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Doctor, error)
	ListDoctors(ctx context.Context, status string, order DoctorOrder) ([]models.Doctor, error)
	UpdateDoctorStatus(ctx context.Context, id primitive.ObjectID, status string) (models.Doctor, error)
	DeleteDoctor(ctx context.Context, id primitive.ObjectID) error
}

type AppointmentStore interface {
	CreateAppointment(ctx context.Context, apt *models.Appointment) error
	FindAppointmentByID(ctx context.Context, id primitive.ObjectID) (models.Appointment, error)
	// ListAppointments returns matches sorted by appointment date, newest first.
	ListAppointments(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error)
	SaveAppointment(ctx context.Context, apt *models.Appointment) error
	DeleteAppointment(ctx context.Context, id primitive.ObjectID) error
	// CancelDoctorAppointments cancels every non-cancelled appointment of a doctor.
	CancelDoctorAppointments(ctx context.Context, doctorID primitive.ObjectID) (int64, error)
}

// Store is the full persistence surface the API needs.
type Store interface {
	UserStore
	DoctorStore
	AppointmentStore
}
