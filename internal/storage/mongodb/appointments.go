package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bekicr/universal-clinic/internal/models"
	"github.com/bekicr/universal-clinic/internal/storage"
)

func (s *Store) CreateAppointment(ctx context.Context, apt *models.Appointment) error {
	if apt.ID.IsZero() {
		apt.ID = primitive.NewObjectID()
	}
	now := s.now().UTC()
	apt.CreatedAt, apt.UpdatedAt = now, now
	_, err := s.collection(appointmentsCollection).InsertOne(ctx, apt)
	return translate(err)
}

func (s *Store) FindAppointmentByID(ctx context.Context, id primitive.ObjectID) (models.Appointment, error) {
	var apt models.Appointment
	err := s.collection(appointmentsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&apt)
	return apt, translate(err)
}

func (s *Store) ListAppointments(ctx context.Context, f storage.AppointmentFilter) ([]models.Appointment, error) {
	filter := bson.M{}
	if !f.PatientID.IsZero() {
		filter["patientId"] = f.PatientID
	}
	if !f.DoctorID.IsZero() {
		filter["doctorId"] = f.DoctorID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.From != nil || f.To != nil {
		dateRange := bson.M{}
		if f.From != nil {
			dateRange["$gte"] = *f.From
		}
		if f.To != nil {
			dateRange["$lte"] = *f.To
		}
		filter["appointmentDate"] = dateRange
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "appointmentDate", Value: -1}})
	cursor, err := s.collection(appointmentsCollection).Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	appointments := make([]models.Appointment, 0)
	if err := cursor.All(ctx, &appointments); err != nil {
		return nil, err
	}
	return appointments, nil
}

func (s *Store) SaveAppointment(ctx context.Context, apt *models.Appointment) error {
	apt.UpdatedAt = s.now().UTC()
	res, err := s.collection(appointmentsCollection).ReplaceOne(ctx, bson.M{"_id": apt.ID}, apt)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAppointment(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.collection(appointmentsCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) CancelDoctorAppointments(ctx context.Context, doctorID primitive.ObjectID) (int64, error) {
	res, err := s.collection(appointmentsCollection).UpdateMany(
		ctx,
		bson.M{"doctorId": doctorID, "status": bson.M{"$ne": models.StatusCancelled}},
		bson.M{"$set": bson.M{"status": models.StatusCancelled, "updatedAt": s.now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
