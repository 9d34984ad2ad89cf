package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bekicr/universal-clinic/internal/models"
	"github.com/bekicr/universal-clinic/internal/storage"
)

func (s *Store) CreateDoctor(ctx context.Context, doctor *models.Doctor) error {
	if doctor.ID.IsZero() {
		doctor.ID = primitive.NewObjectID()
	}
	now := s.now().UTC()
	doctor.CreatedAt, doctor.UpdatedAt = now, now
	_, err := s.collection(doctorsCollection).InsertOne(ctx, doctor)
	return translate(err)
}

func (s *Store) FindDoctorByID(ctx context.Context, id primitive.ObjectID) (models.Doctor, error) {
	var doctor models.Doctor
	err := s.collection(doctorsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&doctor)
	return doctor, translate(err)
}

func (s *Store) FindDoctorByUserID(ctx context.Context, userID primitive.ObjectID) (models.Doctor, error) {
	var doctor models.Doctor
	err := s.collection(doctorsCollection).FindOne(ctx, bson.M{"userId": userID}).Decode(&doctor)
	return doctor, translate(err)
}

func (s *Store) FindDoctorsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Doctor, error) {
	doctors := make([]models.Doctor, 0, len(ids))
	if len(ids) == 0 {
		return doctors, nil
	}
	cursor, err := s.collection(doctorsCollection).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, &doctors); err != nil {
		return nil, err
	}
	return doctors, nil
}

func (s *Store) ListDoctors(ctx context.Context, status string, order storage.DoctorOrder) ([]models.Doctor, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	if order == storage.OrderByNewest {
		findOptions = options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	}

	cursor, err := s.collection(doctorsCollection).Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	doctors := make([]models.Doctor, 0)
	if err := cursor.All(ctx, &doctors); err != nil {
		return nil, err
	}
	return doctors, nil
}

func (s *Store) UpdateDoctorStatus(ctx context.Context, id primitive.ObjectID, status string) (models.Doctor, error) {
	var doctor models.Doctor
	err := s.collection(doctorsCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status, "updatedAt": s.now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doctor)
	return doctor, translate(err)
}

func (s *Store) DeleteDoctor(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.collection(doctorsCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}
