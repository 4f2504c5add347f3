package mongo

import (
	"context"
	"errors"
	"time"

	"sharebox/internal/domain"
	"sharebox/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const userCollectionName = "users"

// mongoUserRepository implements the repository.UserRepository interface using MongoDB.
type mongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new instance of mongoUserRepository.
// It expects a connected *mongo.Database instance.
func NewMongoUserRepository(db *mongo.Database) repository.UserRepository {
	return &mongoUserRepository{
		collection: db.Collection(userCollectionName),
	}
}

// UpsertOnSignIn mirrors the provider identity into the users collection.
// The record is keyed by the provider uid: first sign-in inserts it with
// CreatedAt and a zero upload counter, later sign-ins merge-update the
// mirrored fields and refresh LastSignIn.
func (r *mongoUserRepository) UpsertOnSignIn(ctx context.Context, user *domain.User) (*domain.User, error) {
	if user == nil || user.UID == "" {
		return nil, errors.New("user uid is required")
	}

	now := time.Now().UTC()
	filter := bson.M{"uid": user.UID}
	update := bson.M{
		"$set": bson.M{
			"uid":         user.UID,
			"email":       user.Email,
			"displayName": user.DisplayName,
			"photoURL":    user.PhotoURL,
			"lastSignIn":  now,
		},
		"$setOnInsert": bson.M{
			"createdAt":    now,
			"totalUploads": int64(0),
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stored domain.User
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// GetByUID retrieves a user by their provider-issued id.
func (r *mongoUserRepository) GetByUID(ctx context.Context, uid string) (*domain.User, error) {
	var user domain.User
	filter := bson.M{"uid": uid}

	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// IncrementUploads bumps the upload counter in a single atomic update so
// overlapping uploads by the same user cannot lose increments.
func (r *mongoUserRepository) IncrementUploads(ctx context.Context, uid string, at time.Time) error {
	if uid == "" {
		return errors.New("uid is required")
	}

	filter := bson.M{"uid": uid}
	update := bson.M{
		"$inc": bson.M{"totalUploads": int64(1)},
		"$set": bson.M{"lastUpload": at.UTC()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureUserIndexes creates necessary indexes for the users collection.
// Call this once during application startup.
func EnsureUserIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "uid", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index(),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
