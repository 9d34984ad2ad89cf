// Package policy holds the appointment authorization rules as a table keyed by
// (role, action, relation). Handlers resolve the actor and the stored
// appointment, then ask this package whether the operation is allowed.
package policy

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bekicr/universal-clinic/internal/models"
	"github.com/bekicr/universal-clinic/internal/storage"
)

var (
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Denial explains why an operation was refused. Reason is safe to show clients.
type Denial struct {
	Kind   error
	Reason string
}

func (d *Denial) Error() string { return d.Reason }
func (d *Denial) Unwrap() error { return d.Kind }

func deny(kind error, reason string) error {
	return &Denial{Kind: kind, Reason: reason}
}

type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Relation is how the actor is tied to an appointment.
type Relation int

const (
	Unrelated Relation = iota
	PatientOwner
	DoctorOwner
	AnyRelation
)

type Field string

const (
	FieldDate   Field = "appointmentDate"
	FieldDoctor Field = "doctorId"
	FieldReason Field = "reason"
	FieldStatus Field = "status"
)

// Actor is the authenticated caller. DoctorID is set only for doctors that
// have a profile.
type Actor struct {
	UserID   primitive.ObjectID
	Role     string
	DoctorID primitive.ObjectID
}

func (a Actor) HasDoctorProfile() bool { return !a.DoctorID.IsZero() }

// Rule describes what an allowed actor may do.
type Rule struct {
	// Fields lists what an update may touch; nil means every field.
	Fields map[Field]bool
	// EditableWhile restricts non-status edits to these current statuses; nil means any.
	EditableWhile map[string]bool
	// Transitions maps current status to the statuses it may move to; nil means any valid status.
	Transitions map[string][]string
}

type ruleKey struct {
	role     string
	action   Action
	relation Relation
}

var (
	adminRule = Rule{}

	patientUpdateRule = Rule{
		Fields:        map[Field]bool{FieldDate: true, FieldReason: true, FieldStatus: true},
		EditableWhile: map[string]bool{models.StatusPending: true},
		Transitions: map[string][]string{
			models.StatusPending:   {models.StatusCancelled},
			models.StatusConfirmed: {models.StatusCancelled},
			models.StatusCancelled: {models.StatusCancelled},
		},
	}

	doctorUpdateRule = Rule{
		Fields: map[Field]bool{FieldStatus: true},
		Transitions: map[string][]string{
			models.StatusPending:   {models.StatusConfirmed, models.StatusCancelled},
			models.StatusConfirmed: {models.StatusConfirmed, models.StatusCancelled},
			models.StatusCancelled: {models.StatusCancelled},
		},
	}
)

// appointmentRules is the complete allow-list; anything absent is denied.
var appointmentRules = map[ruleKey]Rule{
	{models.RoleAdmin, ActionCreate, AnyRelation}: adminRule,
	{models.RoleAdmin, ActionRead, AnyRelation}:   adminRule,
	{models.RoleAdmin, ActionUpdate, AnyRelation}: adminRule,
	{models.RoleAdmin, ActionDelete, AnyRelation}: adminRule,

	{models.RolePatient, ActionCreate, PatientOwner}: {},
	{models.RolePatient, ActionRead, PatientOwner}:   {},
	{models.RolePatient, ActionUpdate, PatientOwner}: patientUpdateRule,
	{models.RolePatient, ActionDelete, PatientOwner}: {},

	{models.RoleDoctor, ActionRead, DoctorOwner}:   {},
	{models.RoleDoctor, ActionUpdate, DoctorOwner}: doctorUpdateRule,
}

// RelationOf reports how actor relates to apt.
func RelationOf(actor Actor, apt models.Appointment) Relation {
	switch actor.Role {
	case models.RolePatient:
		if apt.PatientID == actor.UserID {
			return PatientOwner
		}
	case models.RoleDoctor:
		if actor.HasDoctorProfile() && apt.DoctorID == actor.DoctorID {
			return DoctorOwner
		}
	}
	return Unrelated
}

// Lookup returns the rule for the given key, falling back to AnyRelation.
func Lookup(role string, action Action, relation Relation) (Rule, bool) {
	if rule, ok := appointmentRules[ruleKey{role, action, relation}]; ok {
		return rule, true
	}
	rule, ok := appointmentRules[ruleKey{role, action, AnyRelation}]
	return rule, ok
}

// CanCreate reports whether actor may book appointments. Patients always book
// for themselves, so the relation is PatientOwner.
func CanCreate(actor Actor) error {
	if _, ok := Lookup(actor.Role, ActionCreate, PatientOwner); !ok {
		return deny(ErrForbidden, "Only patients and admins can book appointments")
	}
	return nil
}

// CanAccess checks that actor may perform action on apt at all. For updates
// the field and transition rules are applied later by CanUpdate.
func CanAccess(actor Actor, action Action, apt models.Appointment) error {
	if _, ok := Lookup(actor.Role, action, RelationOf(actor, apt)); !ok {
		return deny(ErrForbidden, "Forbidden")
	}
	return nil
}

// Change is a requested appointment update; nil fields are untouched.
type Change struct {
	DoctorID        *primitive.ObjectID
	AppointmentDate *time.Time
	Reason          *string
	Status          *string
}

func (c Change) fields() []Field {
	var out []Field
	if c.DoctorID != nil {
		out = append(out, FieldDoctor)
	}
	if c.AppointmentDate != nil {
		out = append(out, FieldDate)
	}
	if c.Reason != nil {
		out = append(out, FieldReason)
	}
	if c.Status != nil {
		out = append(out, FieldStatus)
	}
	return out
}

// CanUpdate checks an update request against the rule for actor. The caller
// must have validated that a requested status is a known appointment status.
func CanUpdate(actor Actor, apt models.Appointment, change Change) error {
	rule, ok := Lookup(actor.Role, ActionUpdate, RelationOf(actor, apt))
	if !ok {
		return deny(ErrForbidden, "Forbidden")
	}

	editsOtherFields := false
	for _, f := range change.fields() {
		if rule.Fields != nil && !rule.Fields[f] {
			return deny(ErrForbidden, forbiddenFieldReason(actor.Role, f))
		}
		if f != FieldStatus {
			editsOtherFields = true
		}
	}

	if editsOtherFields && rule.EditableWhile != nil && !rule.EditableWhile[apt.Status] {
		return deny(ErrForbidden, "Appointment can only be changed while it is pending")
	}

	if change.Status != nil && rule.Transitions != nil {
		target := *change.Status
		if !reachable(rule.Transitions, target) {
			return deny(ErrForbidden, forbiddenStatusReason(actor.Role))
		}
		if !contains(rule.Transitions[apt.Status], target) {
			return deny(ErrInvalidTransition, "Cannot change status from "+apt.Status+" to "+target)
		}
	}
	return nil
}

func forbiddenFieldReason(role string, f Field) string {
	switch {
	case role == models.RolePatient && f == FieldDoctor:
		return "Patients cannot reassign the doctor"
	case role == models.RoleDoctor:
		return "Doctors can only change the appointment status"
	default:
		return "Forbidden"
	}
}

func forbiddenStatusReason(role string) string {
	if role == models.RolePatient {
		return "Patients can only cancel appointments"
	}
	return "Forbidden"
}

func reachable(transitions map[string][]string, target string) bool {
	for _, targets := range transitions {
		if contains(targets, target) {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// ListScope narrows a listing to what actor may see. ok is false when the
// actor can see nothing, such as a doctor without a profile.
func ListScope(actor Actor) (filter storage.AppointmentFilter, ok bool) {
	switch actor.Role {
	case models.RoleAdmin:
		return storage.AppointmentFilter{}, true
	case models.RolePatient:
		return storage.AppointmentFilter{PatientID: actor.UserID}, true
	case models.RoleDoctor:
		if !actor.HasDoctorProfile() {
			return storage.AppointmentFilter{}, false
		}
		return storage.AppointmentFilter{DoctorID: actor.DoctorID}, true
	}
	return storage.AppointmentFilter{}, false
}
