package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/charlesng35/otpauth/internal/models"
)

const (
	accountsCollection  = "users"
	passcodesCollection = "otps"
)

type mongoAccount struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Email     string             `bson:"email"`
	IsAdmin   bool               `bson:"isAdmin"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (a mongoAccount) model() *models.Account {
	return &models.Account{
		BaseModel: models.BaseModel{
			ID:        a.ID.Hex(),
			CreatedAt: a.CreatedAt,
			UpdatedAt: a.UpdatedAt,
		},
		Email:   a.Email,
		IsAdmin: a.IsAdmin,
	}
}

type mongoPasscode struct {
	Email     string    `bson:"email"`
	OTP       string    `bson:"otp"`
	ExpiresAt time.Time `bson:"expiresAt"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func (p mongoPasscode) model() *models.PendingPasscode {
	return &models.PendingPasscode{
		Email:     p.Email,
		Code:      p.OTP,
		ExpiresAt: p.ExpiresAt,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// MongoStore implements Store on a MongoDB database using the users and
// otps collections.
type MongoStore struct {
	db        *mongo.Database
	accounts  *mongo.Collection
	passcodes *mongo.Collection
	now       func() time.Time
}

// NewMongoStore wraps db. Call EnsureIndexes before serving traffic.
func NewMongoStore(db *mongo.Database) (*MongoStore, error) {
	if db == nil {
		return nil, errors.New("store: mongo database is required")
	}
	return &MongoStore{
		db:        db,
		accounts:  db.Collection(accountsCollection),
		passcodes: db.Collection(passcodesCollection),
		now:       time.Now,
	}, nil
}

// EnsureIndexes creates the unique email indexes both collections rely on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.accounts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("create users index: %w", err)
	}

	if _, err := s.passcodes.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "expiresAt", Value: 1}},
		},
	}); err != nil {
		return fmt.Errorf("create otps indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) FindAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var doc mongoAccount
	err := s.accounts.FindOne(ctx, bson.M{"email": models.NormalizeEmail(email)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return doc.model(), nil
}

func (s *MongoStore) CreateAccount(ctx context.Context, email string) (*models.Account, error) {
	now := s.now().UTC()
	doc := mongoAccount{
		Email:     models.NormalizeEmail(email),
		CreatedAt: now,
		UpdatedAt: now,
	}

	res, err := s.accounts.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("create account: unexpected id type %T", res.InsertedID)
	}
	doc.ID = id
	return doc.model(), nil
}

func (s *MongoStore) SetAdmin(ctx context.Context, email string, isAdmin bool) (*models.Account, error) {
	var doc mongoAccount
	err := s.accounts.FindOneAndUpdate(ctx,
		bson.M{"email": models.NormalizeEmail(email)},
		bson.M{"$set": bson.M{"isAdmin": isAdmin, "updatedAt": s.now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update account: %w", err)
	}
	return doc.model(), nil
}

func (s *MongoStore) UpsertPasscode(ctx context.Context, email, code string, expiresAt time.Time) error {
	now := s.now().UTC()
	update := bson.M{
		"$set": bson.M{
			"otp":       code,
			"expiresAt": expiresAt.UTC(),
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	opts := options.Update().SetUpsert(true)

	_, err := s.passcodes.UpdateOne(ctx, bson.M{"email": email}, update, opts)
	if mongo.IsDuplicateKeyError(err) {
		// two concurrent upserts raced on insert; the loser now updates
		_, err = s.passcodes.UpdateOne(ctx, bson.M{"email": email}, update, opts)
	}
	if err != nil {
		return fmt.Errorf("upsert passcode: %w", err)
	}
	return nil
}

func (s *MongoStore) FindPasscode(ctx context.Context, email, code string) (*models.PendingPasscode, error) {
	var doc mongoPasscode
	err := s.passcodes.FindOne(ctx, bson.M{"email": email, "otp": code}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find passcode: %w", err)
	}
	return doc.model(), nil
}

func (s *MongoStore) DeletePasscode(ctx context.Context, email string) error {
	if _, err := s.passcodes.DeleteOne(ctx, bson.M{"email": email}); err != nil {
		return fmt.Errorf("delete passcode: %w", err)
	}
	return nil
}

func (s *MongoStore) PurgeExpiredPasscodes(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.passcodes.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lt": before.UTC()}})
	if err != nil {
		return 0, fmt.Errorf("purge passcodes: %w", err)
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}
