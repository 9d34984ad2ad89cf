// Package memory provides an in-process Store for tests and local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bekicr/universal-clinic/internal/models"
	"github.com/bekicr/universal-clinic/internal/storage"
)

// Store keeps every collection in maps guarded by a single mutex.
type Store struct {
	mu           sync.RWMutex
	users        map[primitive.ObjectID]models.User
	doctors      map[primitive.ObjectID]models.Doctor
	appointments map[primitive.ObjectID]models.Appointment
	now          func() time.Time
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:        make(map[primitive.ObjectID]models.User),
		doctors:      make(map[primitive.ObjectID]models.Doctor),
		appointments: make(map[primitive.ObjectID]models.Appointment),
		now:          time.Now,
	}
}

// ---- users ----

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Email = models.NormalizeEmail(user.Email)
	for _, u := range s.users {
		if u.Email == user.Email {
			return storage.ErrAlreadyExists
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := s.now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	s.users[user.ID] = *user
	return nil
}

func (s *Store) FindUserByID(_ context.Context, id primitive.ObjectID) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = models.NormalizeEmail(email)
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (s *Store) FindUsersByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *Store) UpdateUser(_ context.Context, id primitive.ObjectID, update models.UserUpdate) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.Phone != nil {
		u.Phone = *update.Phone
	}
	if update.Password != nil {
		u.Password = *update.Password
	}
	u.UpdatedAt = s.now().UTC()
	s.users[id] = u
	return u, nil
}

func (s *Store) DeleteUser(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

// ---- doctors ----

func (s *Store) CreateDoctor(_ context.Context, doctor *models.Doctor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.doctors {
		if d.UserID == doctor.UserID {
			return storage.ErrAlreadyExists
		}
	}
	if doctor.ID.IsZero() {
		doctor.ID = primitive.NewObjectID()
	}
	now := s.now().UTC()
	doctor.CreatedAt, doctor.UpdatedAt = now, now
	s.doctors[doctor.ID] = *doctor
	return nil
}

func (s *Store) FindDoctorByID(_ context.Context, id primitive.ObjectID) (models.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.doctors[id]
	if !ok {
		return models.Doctor{}, storage.ErrNotFound
	}
	return d, nil
}

func (s *Store) FindDoctorByUserID(_ context.Context, userID primitive.ObjectID) (models.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.doctors {
		if d.UserID == userID {
			return d, nil
		}
	}
	return models.Doctor{}, storage.ErrNotFound
}

func (s *Store) FindDoctorsByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Doctor, 0, len(ids))
	for _, id := range ids {
		if d, ok := s.doctors[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Store) ListDoctors(_ context.Context, status string, order storage.DoctorOrder) ([]models.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Doctor, 0)
	for _, d := range s.doctors {
		if status == "" || d.Status == status {
			out = append(out, d)
		}
	}
	switch order {
	case storage.OrderByNewest:
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	}
	return out, nil
}

func (s *Store) UpdateDoctorStatus(_ context.Context, id primitive.ObjectID, status string) (models.Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.doctors[id]
	if !ok {
		return models.Doctor{}, storage.ErrNotFound
	}
	d.Status = status
	d.UpdatedAt = s.now().UTC()
	s.doctors[id] = d
	return d, nil
}

func (s *Store) DeleteDoctor(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.doctors[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.doctors, id)
	return nil
}

// ---- appointments ----

func (s *Store) CreateAppointment(_ context.Context, apt *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if apt.ID.IsZero() {
		apt.ID = primitive.NewObjectID()
	}
	now := s.now().UTC()
	apt.CreatedAt, apt.UpdatedAt = now, now
	s.appointments[apt.ID] = *apt
	return nil
}

func (s *Store) FindAppointmentByID(_ context.Context, id primitive.ObjectID) (models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appointments[id]
	if !ok {
		return models.Appointment{}, storage.ErrNotFound
	}
	return a, nil
}

func (s *Store) ListAppointments(_ context.Context, filter storage.AppointmentFilter) ([]models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Appointment, 0)
	for _, a := range s.appointments {
		if matches(a, filter) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AppointmentDate.After(out[j].AppointmentDate) })
	return out, nil
}

func matches(a models.Appointment, f storage.AppointmentFilter) bool {
	if !f.PatientID.IsZero() && a.PatientID != f.PatientID {
		return false
	}
	if !f.DoctorID.IsZero() && a.DoctorID != f.DoctorID {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.From != nil && a.AppointmentDate.Before(*f.From) {
		return false
	}
	if f.To != nil && a.AppointmentDate.After(*f.To) {
		return false
	}
	return true
}

func (s *Store) SaveAppointment(_ context.Context, apt *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appointments[apt.ID]; !ok {
		return storage.ErrNotFound
	}
	apt.UpdatedAt = s.now().UTC()
	s.appointments[apt.ID] = *apt
	return nil
}

func (s *Store) DeleteAppointment(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appointments[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.appointments, id)
	return nil
}

func (s *Store) CancelDoctorAppointments(_ context.Context, doctorID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	now := s.now().UTC()
	for id, a := range s.appointments {
		if a.DoctorID == doctorID && a.Status != models.StatusCancelled {
			a.Status = models.StatusCancelled
			a.UpdatedAt = now
			s.appointments[id] = a
			n++
		}
	}
	return n, nil
}
