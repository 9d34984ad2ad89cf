// Package storagetest holds behaviour checks shared by every storage.Store
// implementation.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bekicr/universal-clinic/internal/models"
	"github.com/bekicr/universal-clinic/internal/storage"
)

// Run exercises a fresh store returned by newStore for each subtest.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("doctors", func(t *testing.T) { testDoctors(t, newStore(t)) })
	t.Run("appointments", func(t *testing.T) { testAppointments(t, newStore(t)) })
}

func testUsers(t *testing.T, s storage.Store) {
	ctx := context.Background()

	u := models.User{Name: "Ann", Email: " Ann@Example.COM ", Password: "hash", Role: models.RolePatient}
	require.NoError(t, s.CreateUser(ctx, &u))
	assert.False(t, u.ID.IsZero())
	assert.Equal(t, "ann@example.com", u.Email)
	assert.False(t, u.CreatedAt.IsZero())

	dup := models.User{Name: "Ann 2", Email: "ANN@example.com", Role: models.RolePatient}
	assert.ErrorIs(t, s.CreateUser(ctx, &dup), storage.ErrAlreadyExists)

	got, err := s.FindUserByEmail(ctx, "ann@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash", got.Password)

	_, err = s.FindUserByID(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, storage.ErrNotFound)

	name := "Annie"
	updated, err := s.UpdateUser(ctx, u.ID, models.UserUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Annie", updated.Name)
	assert.Equal(t, "hash", updated.Password)

	_, err = s.UpdateUser(ctx, primitive.NewObjectID(), models.UserUpdate{Name: &name})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	other := models.User{Name: "Ben", Email: "ben@example.com", Role: models.RoleAdmin}
	require.NoError(t, s.CreateUser(ctx, &other))
	users, err := s.FindUsersByIDs(ctx, []primitive.ObjectID{u.ID, other.ID, primitive.NewObjectID()})
	require.NoError(t, err)
	assert.Len(t, users, 2)

	require.NoError(t, s.DeleteUser(ctx, u.ID))
	assert.ErrorIs(t, s.DeleteUser(ctx, u.ID), storage.ErrNotFound)
	_, err = s.FindUserByID(ctx, u.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func newDoctor(name, status string) models.Doctor {
	return models.Doctor{
		UserID:    primitive.NewObjectID(),
		Name:      name,
		Email:     name + "@example.com",
		Specialty: "General",
		Age:       40,
		Gender:    "Other",
		Education: "MD",
		Status:    status,
	}
}

func testDoctors(t *testing.T, s storage.Store) {
	ctx := context.Background()

	zed := newDoctor("Zed", models.DoctorApproved)
	require.NoError(t, s.CreateDoctor(ctx, &zed))
	time.Sleep(5 * time.Millisecond)
	amy := newDoctor("Amy", models.DoctorApproved)
	require.NoError(t, s.CreateDoctor(ctx, &amy))
	time.Sleep(5 * time.Millisecond)
	pend1 := newDoctor("Pete", models.DoctorPending)
	require.NoError(t, s.CreateDoctor(ctx, &pend1))
	time.Sleep(5 * time.Millisecond)
	pend2 := newDoctor("Paula", models.DoctorPending)
	require.NoError(t, s.CreateDoctor(ctx, &pend2))

	dup := newDoctor("Zed again", models.DoctorPending)
	dup.UserID = zed.UserID
	assert.ErrorIs(t, s.CreateDoctor(ctx, &dup), storage.ErrAlreadyExists)

	approved, err := s.ListDoctors(ctx, models.DoctorApproved, storage.OrderByName)
	require.NoError(t, err)
	require.Len(t, approved, 2)
	assert.Equal(t, "Amy", approved[0].Name)
	assert.Equal(t, "Zed", approved[1].Name)

	pending, err := s.ListDoctors(ctx, models.DoctorPending, storage.OrderByNewest)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, pend2.ID, pending[0].ID)
	assert.Equal(t, pend1.ID, pending[1].ID)

	byUser, err := s.FindDoctorByUserID(ctx, amy.UserID)
	require.NoError(t, err)
	assert.Equal(t, amy.ID, byUser.ID)
	_, err = s.FindDoctorByUserID(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, storage.ErrNotFound)

	reviewed, err := s.UpdateDoctorStatus(ctx, pend1.ID, models.DoctorApproved)
	require.NoError(t, err)
	assert.Equal(t, models.DoctorApproved, reviewed.Status)
	assert.Equal(t, "Pete", reviewed.Name)
	_, err = s.UpdateDoctorStatus(ctx, primitive.NewObjectID(), models.DoctorApproved)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	found, err := s.FindDoctorsByIDs(ctx, []primitive.ObjectID{zed.ID, amy.ID})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	require.NoError(t, s.DeleteDoctor(ctx, zed.ID))
	assert.ErrorIs(t, s.DeleteDoctor(ctx, zed.ID), storage.ErrNotFound)
	_, err = s.FindDoctorByID(ctx, zed.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testAppointments(t *testing.T, s storage.Store) {
	ctx := context.Background()
	patient := primitive.NewObjectID()
	doctor := primitive.NewObjectID()
	otherDoctor := primitive.NewObjectID()
	day := func(d int) time.Time { return time.Date(2030, 1, d, 9, 0, 0, 0, time.UTC) }

	mk := func(doctorID primitive.ObjectID, when time.Time, status string) models.Appointment {
		apt := models.Appointment{PatientID: patient, DoctorID: doctorID, AppointmentDate: when, Status: status}
		require.NoError(t, s.CreateAppointment(ctx, &apt))
		return apt
	}
	a1 := mk(doctor, day(1), models.StatusPending)
	a2 := mk(doctor, day(10), models.StatusConfirmed)
	a3 := mk(otherDoctor, day(20), models.StatusCancelled)

	all, err := s.ListAppointments(ctx, storage.AppointmentFilter{PatientID: patient})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, a3.ID, all[0].ID)
	assert.Equal(t, a1.ID, all[2].ID)

	mine, err := s.ListAppointments(ctx, storage.AppointmentFilter{DoctorID: doctor})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	confirmed, err := s.ListAppointments(ctx, storage.AppointmentFilter{Status: models.StatusConfirmed})
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, a2.ID, confirmed[0].ID)

	from, to := day(5), day(15)
	ranged, err := s.ListAppointments(ctx, storage.AppointmentFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, a2.ID, ranged[0].ID)

	a1.Reason = "Rescheduled"
	a1.AppointmentDate = day(2)
	require.NoError(t, s.SaveAppointment(ctx, &a1))
	got, err := s.FindAppointmentByID(ctx, a1.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rescheduled", got.Reason)
	assert.True(t, day(2).Equal(got.AppointmentDate))

	ghost := models.Appointment{ID: primitive.NewObjectID(), Status: models.StatusPending}
	assert.ErrorIs(t, s.SaveAppointment(ctx, &ghost), storage.ErrNotFound)

	n, err := s.CancelDoctorAppointments(ctx, doctor)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	n, err = s.CancelDoctorAppointments(ctx, doctor)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	require.NoError(t, s.DeleteAppointment(ctx, a3.ID))
	assert.ErrorIs(t, s.DeleteAppointment(ctx, a3.ID), storage.ErrNotFound)
	_, err = s.FindAppointmentByID(ctx, a3.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
