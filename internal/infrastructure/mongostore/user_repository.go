package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// maxAuthRetries bounds optimistic retries of auth array rewrites
const maxAuthRetries = 5

// UserRepositoryImpl implements domain.UserRepository on a MongoDB collection
// with the auth records embedded in the user document.
type UserRepositoryImpl struct {
	users *mongo.Collection
}

// NewUserRepository creates a new MongoDB user repository
func NewUserRepository(db *mongo.Database) domain.UserRepository {
	return &UserRepositoryImpl{users: db.Collection(UsersCollection)}
}

// Create implements domain.UserRepository
func (r *UserRepositoryImpl) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := r.users.InsertOne(ctx, userToDocument(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUserAlreadyExists
		}
		return err
	}
	return nil
}

// FindByID implements domain.UserRepository
func (r *UserRepositoryImpl) FindByID(ctx context.Context, id string) (*domain.User, error) {
	doc, err := r.findOne(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	return documentToUser(doc), nil
}

// FindByEmail implements domain.UserRepository
func (r *UserRepositoryImpl) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	doc, err := r.findOne(ctx, bson.M{"email": email})
	if err != nil {
		return nil, err
	}
	return documentToUser(doc), nil
}

// FindByProvider implements domain.UserRepository
func (r *UserRepositoryImpl) FindByProvider(ctx context.Context, provider domain.AuthProvider, providerID string) (*domain.User, error) {
	doc, err := r.findOne(ctx, bson.M{
		"auth": bson.M{"$elemMatch": bson.M{"provider": string(provider), "providerId": providerID}},
	})
	if err != nil {
		return nil, err
	}
	return documentToUser(doc), nil
}

func (r *UserRepositoryImpl) findOne(ctx context.Context, filter bson.M) (*userDocument, error) {
	var doc userDocument
	if err := r.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// Update implements domain.UserRepository
func (r *UserRepositoryImpl) Update(ctx context.Context, user *domain.User) error {
	doc := userToDocument(user)
	doc.UpdatedAt = time.Now().UTC()

	result, err := r.users.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": bson.M{
		"email":       doc.Email,
		"displayName": doc.DisplayName,
		"role":        doc.Role,
		"isActive":    doc.IsActive,
		"isSuspended": doc.IsSuspended,
		"profile":     doc.Profile,
		"updatedAt":   doc.UpdatedAt,
	}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUserAlreadyExists
		}
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	user.UpdatedAt = doc.UpdatedAt
	return nil
}

// UpsertAuth implements domain.UserRepository. The auth array is rebuilt in
// memory and written back only if no other writer changed it in between.
func (r *UserRepositoryImpl) UpsertAuth(ctx context.Context, userID string, auth domain.UserAuth) error {
	for range maxAuthRetries {
		doc, err := r.findOne(ctx, bson.M{"_id": userID})
		if err != nil {
			return err
		}

		result, err := r.users.UpdateOne(ctx,
			bson.M{"_id": userID, "authVersion": doc.AuthVersion},
			bson.M{
				"$set": bson.M{"auth": replaceAuth(doc.Auth, auth), "updatedAt": time.Now().UTC()},
				"$inc": bson.M{"authVersion": 1},
			})
		if err != nil {
			return err
		}
		if result.MatchedCount == 1 {
			return nil
		}
	}
	return errors.New("auth records changed concurrently, giving up")
}

// RemoveAuth implements domain.UserRepository. Removing a missing record is not an error.
func (r *UserRepositoryImpl) RemoveAuth(ctx context.Context, userID string, provider domain.AuthProvider) error {
	_, err := r.users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$pull": bson.M{"auth": bson.M{"provider": string(provider)}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
		"$inc":  bson.M{"authVersion": 1},
	})
	return err
}

// RecordLogin implements domain.UserRepository
func (r *UserRepositoryImpl) RecordLogin(ctx context.Context, userID string, at time.Time) error {
	result, err := r.users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$inc": bson.M{"loginCount": 1},
		"$set": bson.M{"lastLoginAt": at.UTC()},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
