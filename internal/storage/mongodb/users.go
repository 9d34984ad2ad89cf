package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bekicr/universal-clinic/internal/models"
	"github.com/bekicr/universal-clinic/internal/storage"
)

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := s.now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	_, err := s.collection(usersCollection).InsertOne(ctx, user)
	return translate(err)
}

func (s *Store) FindUserByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var user models.User
	err := s.collection(usersCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	return user, translate(err)
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := s.collection(usersCollection).
		FindOne(ctx, bson.M{"email": models.NormalizeEmail(email)}).
		Decode(&user)
	return user, translate(err)
}

func (s *Store) FindUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	users := make([]models.User, 0, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	cursor, err := s.collection(usersCollection).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUser(ctx context.Context, id primitive.ObjectID, update models.UserUpdate) (models.User, error) {
	set := bson.M{"updatedAt": s.now().UTC()}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Phone != nil {
		set["phone"] = *update.Phone
	}
	if update.Password != nil {
		set["password"] = *update.Password
	}

	var user models.User
	err := s.collection(usersCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	return user, translate(err)
}

func (s *Store) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.collection(usersCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}
