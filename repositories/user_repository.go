package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tribehub/tribehub_backend/models"
)

// ErrUserNotFound is returned when no account matches the identity.
var ErrUserNotFound = errors.New("user not found")

// UserDirectory is the account lookup and credential mutation surface
// the recovery protocol depends on.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	UpdatePassword(ctx context.Context, email, hashedPassword string) error
	MarkNeedsReset(ctx context.Context, username string) (*models.User, error)
}

// UserRepository is the MongoDB-backed user directory.
type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(collection *mongo.Collection) *UserRepository {
	return &UserRepository{collection: collection}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdatePassword stores a new password hash and clears the forced-reset
// flag.
func (r *UserRepository) UpdatePassword(ctx context.Context, email, hashedPassword string) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"email": email},
		bson.M{
			"$set": bson.M{
				"password":   hashedPassword,
				"needsReset": false,
				"updatedAt":  time.Now(),
			},
		},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// MarkNeedsReset flags an account for an administrator-forced password
// reset and returns the account so the caller can issue a code to its
// email.
func (r *UserRepository) MarkNeedsReset(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOneAndUpdate(
		ctx,
		bson.M{"username": username},
		bson.M{"$set": bson.M{"needsReset": true, "updatedAt": time.Now()}},
	).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
