package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"footballapp/internal/domain"
)

const usersCollection = "Users"

// MongoUserRepository implementa UserRepository sobre una colección de MongoDB.
type MongoUserRepository struct {
	client *mongo.Client
	col    *mongo.Collection
}

// NewMongoUserRepository conecta, verifica y crea los índices de la colección.
func NewMongoUserRepository(ctx context.Context, uri, dbName string) (*MongoUserRepository, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	r := &MongoUserRepository{
		client: client,
		col:    client.Database(dbName).Collection(usersCollection),
	}
	if err := r.ensureIndexes(pingCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return r, nil
}

func (r *MongoUserRepository) ensureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("users_email_unique"),
		},
		{
			Keys: bson.D{
				{Key: "federated_identity.provider", Value: 1},
				{Key: "federated_identity.provider_user_id", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetName("users_federated_identity_unique").
				SetPartialFilterExpression(bson.D{{Key: "federated_identity", Value: bson.D{{Key: "$exists", Value: true}}}}),
		},
		{Keys: bson.D{{Key: "verification_code", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "password_reset_code", Value: 1}}, Options: options.Index().SetSparse(true)},
	}
	if _, err := r.col.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

// Close libera la conexión con el cluster.
func (r *MongoUserRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *MongoUserRepository) Create(ctx context.Context, user domain.User) error {
	_, err := r.col.InsertOne(ctx, user)
	return mapMongoError(err)
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (r *MongoUserRepository) GetByFederatedIdentity(ctx context.Context, provider, providerUserID string) (domain.User, error) {
	return r.findOne(ctx, bson.D{
		{Key: "federated_identity.provider", Value: provider},
		{Key: "federated_identity.provider_user_id", Value: providerUserID},
	})
}

func (r *MongoUserRepository) GetByVerificationCode(ctx context.Context, code string) (domain.User, error) {
	return r.findOne(ctx, bson.D{{Key: "verification_code", Value: code}})
}

func (r *MongoUserRepository) GetByResetCode(ctx context.Context, code string) (domain.User, error) {
	return r.findOne(ctx, bson.D{{Key: "password_reset_code", Value: code}})
}

func (r *MongoUserRepository) MarkEmailVerified(ctx context.Context, id string, at time.Time) error {
	return r.updateByID(ctx, id, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "email_verified", Value: true},
			{Key: "updated_at", Value: at},
		}},
		{Key: "$unset", Value: bson.D{{Key: "verification_code", Value: ""}}},
	})
}

func (r *MongoUserRepository) SetPasswordResetCode(ctx context.Context, id, code string, expiresAt, at time.Time) error {
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "password_reset_expires_at", Value: nil}},
			bson.D{{Key: "password_reset_expires_at", Value: bson.D{{Key: "$lte", Value: at}}}},
		}},
	}
	err := r.updateOne(ctx, filter, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "password_reset_code", Value: code},
			{Key: "password_reset_expires_at", Value: expiresAt},
			{Key: "updated_at", Value: at},
		}},
	})
	if errors.Is(err, ErrNotFound) {
		return ErrResetCodeActive
	}
	return err
}

func (r *MongoUserRepository) ClearPasswordResetCode(ctx context.Context, id, code string, at time.Time) error {
	filter := bson.D{{Key: "_id", Value: id}, {Key: "password_reset_code", Value: code}}
	return r.updateOne(ctx, filter, bson.D{
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: at}}},
		{Key: "$unset", Value: bson.D{
			{Key: "password_reset_code", Value: ""},
			{Key: "password_reset_expires_at", Value: ""},
		}},
	})
}

func (r *MongoUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error {
	return r.updateByID(ctx, id, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "password_hash", Value: passwordHash},
			{Key: "updated_at", Value: at},
		}},
		{Key: "$unset", Value: bson.D{
			{Key: "password_reset_code", Value: ""},
			{Key: "password_reset_expires_at", Value: ""},
		}},
	})
}

func (r *MongoUserRepository) LinkFederatedIdentity(ctx context.Context, id string, identity domain.FederatedIdentity, at time.Time) error {
	return r.updateByID(ctx, id, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "federated_identity", Value: identity},
			{Key: "email_verified", Value: true},
			{Key: "last_login_at", Value: at},
			{Key: "updated_at", Value: at},
		}},
		{Key: "$unset", Value: bson.D{{Key: "verification_code", Value: ""}}},
	})
}

func (r *MongoUserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.updateByID(ctx, id, bson.D{
		{Key: "$set", Value: bson.D{{Key: "last_login_at", Value: at}}},
	})
}

func (r *MongoUserRepository) UpdateProfile(ctx context.Context, id string, update ProfileUpdate, at time.Time) (domain.User, error) {
	set := bson.D{
		{Key: "name", Value: update.Name},
		{Key: "email", Value: update.Email},
		{Key: "updated_at", Value: at},
	}
	if update.PasswordHash != "" {
		set = append(set, bson.E{Key: "password_hash", Value: update.PasswordHash})
	}
	doc := bson.D{}
	if update.ProfilePictureURL != "" {
		set = append(set, bson.E{Key: "profile_picture_url", Value: update.ProfilePictureURL})
	} else {
		doc = append(doc, bson.E{Key: "$unset", Value: bson.D{{Key: "profile_picture_url", Value: ""}}})
	}
	doc = append(doc, bson.E{Key: "$set", Value: set})

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u domain.User
	err := r.col.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, doc, opts).Decode(&u)
	if err != nil {
		return domain.User{}, mapMongoError(err)
	}
	return u, nil
}

func (r *MongoUserRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.D) (domain.User, error) {
	var u domain.User
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		return domain.User{}, mapMongoError(err)
	}
	return u, nil
}

func (r *MongoUserRepository) updateByID(ctx context.Context, id string, update bson.D) error {
	return r.updateOne(ctx, bson.D{{Key: "_id", Value: id}}, update)
}

func (r *MongoUserRepository) updateOne(ctx context.Context, filter, update bson.D) error {
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return mapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func mapMongoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		var we mongo.WriteException
		if errors.As(err, &we) {
			for _, e := range we.WriteErrors {
				if e.Code == 11000 && containsEmailIndex(e.Message) {
					return ErrDuplicateEmail
				}
			}
		}
		var ce mongo.CommandError
		if errors.As(err, &ce) && containsEmailIndex(ce.Message) {
			return ErrDuplicateEmail
		}
		return ErrDuplicate
	}
	return err
}

func containsEmailIndex(msg string) bool {
	return strings.Contains(msg, "users_email_unique")
}
