package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const usersCollection = "users"

// userDocument is the MongoDB shape of a User. The hashed PIN lives under "pin".
type userDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Mobile    string             `bson:"mobile"`
	Email     string             `bson:"email"`
	PIN       string             `bson:"pin"`
	Role      string             `bson:"role"`
	Status    string             `bson:"status"`
	Balance   int64              `bson:"balance"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d userDocument) toUser() User {
	return User{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Mobile:    d.Mobile,
		Email:     d.Email,
		PINHash:   []byte(d.PIN),
		Role:      Role(d.Role),
		Status:    Status(d.Status),
		Balance:   d.Balance,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

// MongoRepository implements Repository on a MongoDB collection.
type MongoRepository struct {
	client *mongo.Client
	users  *mongo.Collection
}

// NewMongoRepository builds a repository over the users collection of db.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{client: db.Client(), users: db.Collection(usersCollection)}
}

// EnsureIndexes declares unique indexes on email and mobile.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("users_email_unique")},
		{Keys: bson.D{{Key: "mobile", Value: 1}}, Options: options.Index().SetUnique(true).SetName("users_mobile_unique")},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

// Ping checks connectivity to the primary.
func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}

// Create inserts a new user after checking that neither identifier is taken.
func (r *MongoRepository) Create(ctx context.Context, user User) (string, error) {
	dup := bson.M{"$or": bson.A{bson.M{"email": user.Email}, bson.M{"mobile": user.Mobile}}}
	err := r.users.FindOne(ctx, dup).Err()
	switch {
	case err == nil:
		return "", ErrConflict
	case !errors.Is(err, mongo.ErrNoDocuments):
		return "", fmt.Errorf("check existing user: %w", err)
	}

	doc := userDocument{
		Name:      user.Name,
		Mobile:    user.Mobile,
		Email:     user.Email,
		PIN:       string(user.PINHash),
		Role:      string(user.Role),
		Status:    string(user.Status),
		Balance:   user.Balance,
		CreatedAt: user.CreatedAt.UTC(),
		UpdatedAt: user.UpdatedAt.UTC(),
	}
	res, err := r.users.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrConflict
		}
		return "", fmt.Errorf("insert user: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("insert user: unexpected id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

// FindByID fetches a user by hex ObjectID. Malformed identifiers are reported as ErrNotFound.
func (r *MongoRepository) FindByID(ctx context.Context, id string) (User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// FindByEmailOrMobile fetches the user whose email or mobile equals identifier.
func (r *MongoRepository) FindByEmailOrMobile(ctx context.Context, identifier string) (User, error) {
	return r.findOne(ctx, bson.M{"$or": bson.A{bson.M{"email": identifier}, bson.M{"mobile": identifier}}})
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (User, error) {
	var doc userDocument
	if err := r.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return doc.toUser(), nil
}

// UpdateStatus sets the account status.
func (r *MongoRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	return r.set(ctx, id, bson.M{"status": string(status)})
}

// UpdateBalance sets the account balance.
func (r *MongoRepository) UpdateBalance(ctx context.Context, id string, balance int64) error {
	return r.set(ctx, id, bson.M{"balance": balance})
}

func (r *MongoRepository) set(ctx context.Context, id string, fields bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	fields["updatedAt"] = time.Now().UTC()
	res, err := r.users.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns users matching filter ordered by creation time.
func (r *MongoRepository) List(ctx context.Context, filter ListFilter) ([]User, error) {
	query := bson.M{}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"email": pattern},
			bson.M{"mobile": pattern},
		}
	}
	if filter.Role != "" {
		query["role"] = string(filter.Role)
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.users.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	users := make([]User, 0, len(docs))
	for _, doc := range docs {
		users = append(users, doc.toUser())
	}
	return users, nil
}
