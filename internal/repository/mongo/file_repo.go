package mongo

import (
	"context"
	"errors"
	"time"

	"sharebox/internal/domain"
	"sharebox/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const fileCollectionName = "files"

// mongoFileRepository implements repository.FileRepository
type mongoFileRepository struct {
	collection *mongo.Collection
}

// NewMongoFileRepository creates a new file metadata repository backed by MongoDB.
func NewMongoFileRepository(db *mongo.Database) repository.FileRepository {
	return &mongoFileRepository{
		collection: db.Collection(fileCollectionName),
	}
}

// Create inserts new file metadata into the database. Records are written
// exactly once, at upload completion, and never updated afterwards.
func (r *mongoFileRepository) Create(ctx context.Context, file *domain.FileRecord) (primitive.ObjectID, error) {
	if file.ShareID == "" || file.StorageRef == "" || file.UploadedBy == "" {
		return primitive.NilObjectID, errors.New("file record requires shareId, storageRef, and uploadedBy")
	}

	file.ID = primitive.NewObjectID()
	if file.UploadedAt.IsZero() {
		file.UploadedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, file)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}

	return insertedID, nil
}

// GetByShareID retrieves file metadata by its share token (exact match).
func (r *mongoFileRepository) GetByShareID(ctx context.Context, shareID string) (*domain.FileRecord, error) {
	var file domain.FileRecord
	filter := bson.M{"shareId": shareID}

	err := r.collection.FindOne(ctx, filter).Decode(&file)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &file, nil
}

// GetByDownloadURL retrieves file metadata by its stored capability URL.
func (r *mongoFileRepository) GetByDownloadURL(ctx context.Context, downloadURL string) (*domain.FileRecord, error) {
	var file domain.FileRecord
	filter := bson.M{"downloadURL": downloadURL}

	err := r.collection.FindOne(ctx, filter).Decode(&file)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &file, nil
}

// GetByUploader lists files uploaded by one user, newest first.
func (r *mongoFileRepository) GetByUploader(ctx context.Context, uid string) ([]domain.FileRecord, error) {
	filter := bson.M{"uploadedBy": uid}
	findOptions := options.Find().SetSort(bson.D{{Key: "uploadedAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var files []domain.FileRecord
	if err = cursor.All(ctx, &files); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}

	return files, nil
}

// EnsureFileIndexes creates necessary indexes for the files collection.
// shareId is indexed for the download lookup but deliberately not unique:
// token uniqueness rests on the negligible-collision property of the
// generator, matching how records are minted.
func EnsureFileIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "shareId", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "uploadedBy", Value: 1}, {Key: "uploadedAt", Value: -1}},
			Options: options.Index(),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
