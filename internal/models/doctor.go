package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DoctorPending  = "pending"
	DoctorApproved = "approved"
	DoctorRejected = "rejected"
)

// Doctor is the profile paired one-to-one with a DOCTOR user.
type Doctor struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID `bson:"userId" json:"userId"`
	Name          string             `bson:"name" json:"name"`
	Email         string             `bson:"email" json:"email"`
	Phone         string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Specialty     string             `bson:"specialty" json:"specialty"`
	Age           int                `bson:"age" json:"age"`
	Experience    int                `bson:"experience" json:"experience"`
	Gender        string             `bson:"gender" json:"gender"`
	Education     string             `bson:"education" json:"education"`
	EducationFile string             `bson:"educationFile" json:"educationFile"`
	Bio           string             `bson:"bio,omitempty" json:"bio,omitempty"`
	Availability  string             `bson:"availability" json:"availability"`
	Status        string             `bson:"status" json:"status"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// DoctorDecision reports whether status is one an admin may assign.
func DoctorDecision(status string) bool {
	return status == DoctorApproved || status == DoctorRejected
}

// DoctorSummary is embedded in appointment listings.
type DoctorSummary struct {
	ID        primitive.ObjectID `json:"id"`
	Name      string             `json:"name"`
	Specialty string             `json:"specialty"`
}
