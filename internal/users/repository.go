package users

import (
	"context"
	"errors"

	"github.com/authrouter/authrouter/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrDuplicate is returned by Insert when a row with the same id already exists.
var ErrDuplicate = errors.New("user already exists")

// UserRepository defines persistence operations for the user table.
// GetByID returns (nil, nil) when no row exists.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	Insert(ctx context.Context, u *models.User) error
	UpdateProfile(ctx context.Context, id, image string) error
}

// MongoUserRepository implements UserRepository using MongoDB. The user id is
// the document _id, so uniqueness is enforced by the primary index.
type MongoUserRepository struct {
	col *mongo.Collection
}

// NewMongoUserRepository creates a new repository for the given collection
func NewMongoUserRepository(col *mongo.Collection) *MongoUserRepository {
	return &MongoUserRepository{col: col}
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *MongoUserRepository) Insert(ctx context.Context, u *models.User) error {
	_, err := r.col.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

// UpdateProfile sets the profile image; an unknown id matches nothing and is not an error.
func (r *MongoUserRepository) UpdateProfile(ctx context.Context, id, image string) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"profile": image}})
	return err
}
