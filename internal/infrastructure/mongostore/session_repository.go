package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// SessionRepositoryImpl implements domain.SessionRepository on a MongoDB collection
type SessionRepositoryImpl struct {
	sessions *mongo.Collection
}

// NewSessionRepository creates a new MongoDB session repository
func NewSessionRepository(db *mongo.Database) domain.SessionRepository {
	return &SessionRepositoryImpl{sessions: db.Collection(SessionsCollection)}
}

// Create implements domain.SessionRepository
func (r *SessionRepositoryImpl) Create(ctx context.Context, session *domain.Session) error {
	_, err := r.sessions.InsertOne(ctx, sessionToDocument(session))
	return err
}

// FindByID implements domain.SessionRepository
func (r *SessionRepositoryImpl) FindByID(ctx context.Context, sessionToken string) (*domain.Session, error) {
	return r.findOne(ctx, bson.M{"sessionToken": sessionToken})
}

// FindByRefreshToken implements domain.SessionRepository
func (r *SessionRepositoryImpl) FindByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	return r.findOne(ctx, bson.M{"refreshToken": refreshToken})
}

func (r *SessionRepositoryImpl) findOne(ctx context.Context, filter bson.M) (*domain.Session, error) {
	var doc sessionDocument
	if err := r.sessions.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return documentToSession(&doc), nil
}

// FindByUser implements domain.SessionRepository
func (r *SessionRepositoryImpl) FindByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	cursor, err := r.sessions.Find(ctx, bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}

	var docs []sessionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	sessions := make([]*domain.Session, 0, len(docs))
	for i := range docs {
		sessions = append(sessions, documentToSession(&docs[i]))
	}
	return sessions, nil
}

// UpdateLastAccessed implements domain.SessionRepository
func (r *SessionRepositoryImpl) UpdateLastAccessed(ctx context.Context, sessionToken string, at time.Time) error {
	result, err := r.sessions.UpdateOne(ctx,
		bson.M{"sessionToken": sessionToken},
		bson.M{"$set": bson.M{"lastAccessedAt": at.UTC()}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// RotateRefreshToken implements domain.SessionRepository. The filter holds
// both the session and the previous refresh token, so one caller wins.
func (r *SessionRepositoryImpl) RotateRefreshToken(ctx context.Context, sessionToken, previous, next string, expiresAt time.Time) error {
	result, err := r.sessions.UpdateOne(ctx,
		bson.M{"sessionToken": sessionToken, "refreshToken": previous},
		bson.M{"$set": bson.M{
			"refreshToken":   next,
			"expiresAt":      expiresAt.UTC(),
			"lastAccessedAt": time.Now().UTC(),
		}})
	if err != nil {
		return err
	}
	if result.MatchedCount != 1 {
		return domain.ErrRefreshTokenReused
	}
	return nil
}

// Delete implements domain.SessionRepository. Deleting a missing session is not an error.
func (r *SessionRepositoryImpl) Delete(ctx context.Context, sessionToken string) error {
	_, err := r.sessions.DeleteOne(ctx, bson.M{"sessionToken": sessionToken})
	return err
}

// DeleteMany implements domain.SessionRepository
func (r *SessionRepositoryImpl) DeleteMany(ctx context.Context, sessionTokens []string) error {
	if len(sessionTokens) == 0 {
		return nil
	}
	_, err := r.sessions.DeleteMany(ctx, bson.M{"sessionToken": bson.M{"$in": sessionTokens}})
	return err
}

// DeleteExpired implements domain.SessionRepository. The TTL index removes
// expired documents eventually; this makes the sweep deterministic.
func (r *SessionRepositoryImpl) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.sessions.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lt": now.UTC()}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
