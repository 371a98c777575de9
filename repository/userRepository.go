package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"meriawaaz-be/models"
)

// userDocument keeps _id raw: locally registered users get an ObjectID,
// profiles created for an external identity use its uid string.
type userDocument struct {
	ID            bson.RawValue `bson:"_id"`
	Name          string        `bson:"name"`
	Email         string        `bson:"email"`
	Password      string        `bson:"password,omitempty"`
	Phone         string        `bson:"phone"`
	PhoneVerified bool          `bson:"phoneVerified"`
	Avatar        string        `bson:"avatar,omitempty"`
	Address       string        `bson:"address,omitempty"`
	City          string        `bson:"city"`
	State         string        `bson:"state"`
	Pincode       string        `bson:"pincode"`
	Occupation    string        `bson:"occupation,omitempty"`
	DateOfBirth   string        `bson:"dateOfBirth,omitempty"`
	Points        int           `bson:"points"`
	Badges        []string      `bson:"badges"`
	CreatedAt     time.Time     `bson:"createdAt"`
	UpdatedAt     time.Time     `bson:"updatedAt"`
}

func (d userDocument) model() *models.User {
	id := ""
	switch d.ID.Type {
	case bsontype.ObjectID:
		id = d.ID.ObjectID().Hex()
	case bsontype.String:
		id = d.ID.StringValue()
	}
	badges := d.Badges
	if badges == nil {
		badges = []string{}
	}
	return &models.User{
		ID:            id,
		Name:          d.Name,
		Email:         d.Email,
		Password:      d.Password,
		Phone:         d.Phone,
		PhoneVerified: d.PhoneVerified,
		Avatar:        d.Avatar,
		Address:       d.Address,
		City:          d.City,
		State:         d.State,
		Pincode:       d.Pincode,
		Occupation:    d.Occupation,
		DateOfBirth:   d.DateOfBirth,
		Points:        d.Points,
		Badges:        badges,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// userKey maps an id string onto the stored _id value.
func userKey(id string) interface{} {
	if objID, err := primitive.ObjectIDFromHex(id); err == nil {
		return objID
	}
	return id
}

type MongoUserRepository struct {
	users *mongo.Collection
	now   func() time.Time
}

func NewUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{users: db.Collection(UsersCollection), now: time.Now}
}

// Create inserts a profile. An empty ID gets a fresh ObjectID.
func (r *MongoUserRepository) Create(ctx context.Context, user *models.User) (string, error) {
	now := r.now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Badges == nil {
		user.Badges = []string{}
	}

	var key interface{}
	if user.ID == "" {
		objID := primitive.NewObjectID()
		key = objID
		user.ID = objID.Hex()
	} else {
		key = userKey(user.ID)
	}

	doc := bson.M{
		"_id":           key,
		"name":          user.Name,
		"email":         user.Email,
		"phone":         user.Phone,
		"phoneVerified": user.PhoneVerified,
		"city":          user.City,
		"state":         user.State,
		"pincode":       user.Pincode,
		"points":        user.Points,
		"badges":        user.Badges,
		"createdAt":     user.CreatedAt,
		"updatedAt":     user.UpdatedAt,
	}
	optional := map[string]string{
		"password":    user.Password,
		"avatar":      user.Avatar,
		"address":     user.Address,
		"occupation":  user.Occupation,
		"dateOfBirth": user.DateOfBirth,
	}
	for k, v := range optional {
		if v != "" {
			doc[k] = v
		}
	}

	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrDuplicate
		}
		return "", fmt.Errorf("insert user: %w", err)
	}
	return user.ID, nil
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDocument
	if err := r.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.model(), nil
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": userKey(id)})
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// Update merges the set fields of patch into the profile and returns the
// result.
func (r *MongoUserRepository) Update(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	set := bson.M{"updatedAt": r.now().UTC()}
	fields := map[string]*string{
		"name":        patch.Name,
		"email":       patch.Email,
		"phone":       patch.Phone,
		"avatar":      patch.Avatar,
		"address":     patch.Address,
		"city":        patch.City,
		"state":       patch.State,
		"pincode":     patch.Pincode,
		"occupation":  patch.Occupation,
		"dateOfBirth": patch.DateOfBirth,
	}
	for k, v := range fields {
		if v != nil {
			set[k] = *v
		}
	}
	if patch.PhoneVerified != nil {
		set["phoneVerified"] = *patch.PhoneVerified
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc userDocument
	err := r.users.FindOneAndUpdate(ctx, bson.M{"_id": userKey(id)}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("update user %s: %w", id, err)
	}
	return doc.model(), nil
}

func (r *MongoUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	count, err := r.users.CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return count > 0, nil
}
