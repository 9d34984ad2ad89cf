package policy

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bekicr/universal-clinic/internal/models"
)

type fixture struct {
	patient, otherPatient, doctor, otherDoctor, admin, doctorNoProfile Actor
	apt                                                                models.Appointment
}

func newFixture(status string) fixture {
	f := fixture{
		patient:         Actor{UserID: primitive.NewObjectID(), Role: models.RolePatient},
		otherPatient:    Actor{UserID: primitive.NewObjectID(), Role: models.RolePatient},
		doctor:          Actor{UserID: primitive.NewObjectID(), Role: models.RoleDoctor, DoctorID: primitive.NewObjectID()},
		otherDoctor:     Actor{UserID: primitive.NewObjectID(), Role: models.RoleDoctor, DoctorID: primitive.NewObjectID()},
		admin:           Actor{UserID: primitive.NewObjectID(), Role: models.RoleAdmin},
		doctorNoProfile: Actor{UserID: primitive.NewObjectID(), Role: models.RoleDoctor},
	}
	f.apt = models.Appointment{
		ID:        primitive.NewObjectID(),
		PatientID: f.patient.UserID,
		DoctorID:  f.doctor.DoctorID,
		Status:    status,
	}
	return f
}

func strPtr(s string) *string { return &s }

func TestRelationOf(t *testing.T) {
	f := newFixture(models.StatusPending)

	assert.Equal(t, PatientOwner, RelationOf(f.patient, f.apt))
	assert.Equal(t, Unrelated, RelationOf(f.otherPatient, f.apt))
	assert.Equal(t, DoctorOwner, RelationOf(f.doctor, f.apt))
	assert.Equal(t, Unrelated, RelationOf(f.otherDoctor, f.apt))
	assert.Equal(t, Unrelated, RelationOf(f.doctorNoProfile, f.apt))
	assert.Equal(t, Unrelated, RelationOf(f.admin, f.apt))
}

func TestCanCreate(t *testing.T) {
	f := newFixture(models.StatusPending)

	assert.NoError(t, CanCreate(f.patient))
	assert.NoError(t, CanCreate(f.admin))
	assert.ErrorIs(t, CanCreate(f.doctor), ErrForbidden)
	assert.ErrorIs(t, CanCreate(Actor{Role: "GUEST"}), ErrForbidden)
}

func TestCanAccess(t *testing.T) {
	f := newFixture(models.StatusPending)

	tests := []struct {
		name   string
		actor  Actor
		action Action
		want   error
	}{
		{"admin reads", f.admin, ActionRead, nil},
		{"admin deletes", f.admin, ActionDelete, nil},
		{"owner patient reads", f.patient, ActionRead, nil},
		{"owner patient deletes", f.patient, ActionDelete, nil},
		{"other patient reads", f.otherPatient, ActionRead, ErrForbidden},
		{"other patient deletes", f.otherPatient, ActionDelete, ErrForbidden},
		{"owner doctor reads", f.doctor, ActionRead, nil},
		{"owner doctor deletes", f.doctor, ActionDelete, ErrForbidden},
		{"other doctor reads", f.otherDoctor, ActionRead, ErrForbidden},
		{"doctor without profile reads", f.doctorNoProfile, ActionRead, ErrForbidden},
		{"owner patient updates", f.patient, ActionUpdate, nil},
		{"owner doctor updates", f.doctor, ActionUpdate, nil},
		{"admin updates", f.admin, ActionUpdate, nil},
		{"other patient updates", f.otherPatient, ActionUpdate, ErrForbidden},
		{"other doctor updates", f.otherDoctor, ActionUpdate, ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanAccess(tt.actor, tt.action, f.apt)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCanUpdate_StatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		current string
		who     string
		target  string
		want    error
	}{
		{"doctor confirms pending", models.StatusPending, "doctor", models.StatusConfirmed, nil},
		{"doctor cancels pending", models.StatusPending, "doctor", models.StatusCancelled, nil},
		{"doctor cancels confirmed", models.StatusConfirmed, "doctor", models.StatusCancelled, nil},
		{"doctor re-cancels", models.StatusCancelled, "doctor", models.StatusCancelled, nil},
		{"doctor revives cancelled", models.StatusCancelled, "doctor", models.StatusConfirmed, ErrInvalidTransition},
		{"doctor resets to pending", models.StatusConfirmed, "doctor", models.StatusPending, ErrForbidden},
		{"patient cancels pending", models.StatusPending, "patient", models.StatusCancelled, nil},
		{"patient cancels confirmed", models.StatusConfirmed, "patient", models.StatusCancelled, nil},
		{"patient re-cancels", models.StatusCancelled, "patient", models.StatusCancelled, nil},
		{"patient confirms", models.StatusPending, "patient", models.StatusConfirmed, ErrForbidden},
		{"patient resets to pending", models.StatusCancelled, "patient", models.StatusPending, ErrForbidden},
		{"admin confirms", models.StatusPending, "admin", models.StatusConfirmed, nil},
		{"admin reopens cancelled", models.StatusCancelled, "admin", models.StatusPending, nil},
		{"other doctor confirms", models.StatusPending, "otherDoctor", models.StatusConfirmed, ErrForbidden},
		{"other patient cancels", models.StatusPending, "otherPatient", models.StatusCancelled, ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.current)
			actor := map[string]Actor{
				"doctor":       f.doctor,
				"otherDoctor":  f.otherDoctor,
				"patient":      f.patient,
				"otherPatient": f.otherPatient,
				"admin":        f.admin,
			}[tt.who]

			err := CanUpdate(actor, f.apt, Change{Status: strPtr(tt.target)})
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCanUpdate_FieldRestrictions(t *testing.T) {
	newDate := time.Date(2030, 1, 2, 10, 0, 0, 0, time.UTC)
	newDoctor := primitive.NewObjectID()

	t.Run("patient reschedules pending", func(t *testing.T) {
		f := newFixture(models.StatusPending)
		assert.NoError(t, CanUpdate(f.patient, f.apt, Change{AppointmentDate: &newDate, Reason: strPtr("checkup")}))
	})

	t.Run("patient reschedules confirmed", func(t *testing.T) {
		f := newFixture(models.StatusConfirmed)
		err := CanUpdate(f.patient, f.apt, Change{AppointmentDate: &newDate})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("patient reassigns doctor", func(t *testing.T) {
		f := newFixture(models.StatusPending)
		err := CanUpdate(f.patient, f.apt, Change{DoctorID: &newDoctor})
		assert.ErrorIs(t, err, ErrForbidden)
		var d *Denial
		if assert.True(t, errors.As(err, &d)) {
			assert.Equal(t, "Patients cannot reassign the doctor", d.Reason)
		}
	})

	t.Run("patient cancels and edits reason while pending", func(t *testing.T) {
		f := newFixture(models.StatusPending)
		assert.NoError(t, CanUpdate(f.patient, f.apt, Change{Reason: strPtr("moved"), Status: strPtr(models.StatusCancelled)}))
	})

	t.Run("doctor edits date", func(t *testing.T) {
		f := newFixture(models.StatusPending)
		assert.ErrorIs(t, CanUpdate(f.doctor, f.apt, Change{AppointmentDate: &newDate}), ErrForbidden)
	})

	t.Run("admin edits everything", func(t *testing.T) {
		f := newFixture(models.StatusConfirmed)
		err := CanUpdate(f.admin, f.apt, Change{
			DoctorID:        &newDoctor,
			AppointmentDate: &newDate,
			Reason:          strPtr("follow-up"),
			Status:          strPtr(models.StatusPending),
		})
		assert.NoError(t, err)
	})
}

func TestListScope(t *testing.T) {
	f := newFixture(models.StatusPending)

	filter, ok := ListScope(f.admin)
	assert.True(t, ok)
	assert.True(t, filter.PatientID.IsZero())
	assert.True(t, filter.DoctorID.IsZero())

	filter, ok = ListScope(f.patient)
	assert.True(t, ok)
	assert.Equal(t, f.patient.UserID, filter.PatientID)

	filter, ok = ListScope(f.doctor)
	assert.True(t, ok)
	assert.Equal(t, f.doctor.DoctorID, filter.DoctorID)

	_, ok = ListScope(f.doctorNoProfile)
	assert.False(t, ok)
}
