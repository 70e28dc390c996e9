package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bizguardian/manager/internal/core/domain"
	"github.com/bizguardian/manager/internal/core/ports"
)

const (
	accountCollection = "accounts"
	profileCollection = "profiles"
	counterCollection = "counters"

	adminCounterID = "admins"
)

// IdentityRepository stores accounts and profiles in two collections keyed by
// the same id. Standalone servers have no multi-document transactions, so
// Create inserts the account first and deletes it again when the profile
// insert fails. Admin slots are reserved on a counter document with a
// conditional $inc before anything is inserted.
type IdentityRepository struct {
	accounts *mongo.Collection
	profiles *mongo.Collection
	counters *mongo.Collection
}

var _ ports.IdentityRepository = (*IdentityRepository)(nil)

func NewIdentityRepository(db *mongo.Database) *IdentityRepository {
	return &IdentityRepository{
		accounts: db.Collection(accountCollection),
		profiles: db.Collection(profileCollection),
		counters: db.Collection(counterCollection),
	}
}

type accountDoc struct {
	ID           string    `bson:"_id"`
	Identity     string    `bson:"identity"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
}

type profileDoc struct {
	ID           string    `bson:"_id"`
	Seq          int64     `bson:"seq"`
	FullName     string    `bson:"full_name"`
	Identity     string    `bson:"identity"`
	Role         string    `bson:"role"`
	AssignedShop string    `bson:"assigned_shop,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func (d profileDoc) toDomain() domain.Profile {
	return domain.Profile{
		ID:           d.ID,
		FullName:     d.FullName,
		Identity:     d.Identity,
		Role:         domain.Role(d.Role),
		AssignedShop: domain.Shop(d.AssignedShop),
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

// EnsureIndexes creates the unique identity index on both collections and the
// insertion-order index used by ListProfiles. It also seeds the admin counter
// from the stored profiles when the counter does not exist yet.
func (r *IdentityRepository) EnsureIndexes(ctx context.Context) error {
	unique := mongo.IndexModel{
		Keys:    bson.D{{Key: "identity", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("identity_unique"),
	}
	if _, err := r.accounts.Indexes().CreateOne(ctx, unique); err != nil {
		return fmt.Errorf("ensure account indexes: %w", err)
	}
	_, err := r.profiles.Indexes().CreateMany(ctx, []mongo.IndexModel{
		unique,
		{Keys: bson.D{{Key: "role", Value: 1}}},
		{Keys: bson.D{{Key: "seq", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("ensure profile indexes: %w", err)
	}

	admins, err := r.profiles.CountDocuments(ctx, bson.M{"role": string(domain.RoleAdmin)})
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	_, err = r.counters.UpdateOne(ctx,
		bson.M{"_id": adminCounterID},
		bson.M{"$setOnInsert": bson.M{"n": admins}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("seed admin counter: %w", err)
	}
	return nil
}

// reserveAdmin takes one admin slot. The filter only matches while slots are
// left; once the cap is reached the upsert collides with the existing counter
// on _id and the duplicate key error means the quota is exhausted.
func (r *IdentityRepository) reserveAdmin(ctx context.Context) error {
	_, err := r.counters.UpdateOne(ctx,
		bson.M{"_id": adminCounterID, "n": bson.M{"$lt": domain.MaxAdmins}},
		bson.M{"$inc": bson.M{"n": 1}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAdminQuotaExceeded
		}
		return fmt.Errorf("reserve admin slot: %w", err)
	}
	return nil
}

func (r *IdentityRepository) releaseAdmin(ctx context.Context) error {
	_, err := r.counters.UpdateOne(ctx,
		bson.M{"_id": adminCounterID, "n": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"n": -1}},
	)
	if err != nil {
		return fmt.Errorf("release admin slot: %w", err)
	}
	return nil
}

func (r *IdentityRepository) Create(ctx context.Context, account domain.Account, profile domain.Profile) (err error) {
	if profile.Role == domain.RoleAdmin {
		if err := r.reserveAdmin(ctx); err != nil {
			return err
		}
		defer func() {
			if err == nil {
				return
			}
			if rerr := r.releaseAdmin(ctx); rerr != nil {
				err = fmt.Errorf("%w (%v)", err, rerr)
			}
		}()
	}

	acc := accountDoc{
		ID:           account.ID,
		Identity:     account.Identity,
		PasswordHash: account.PasswordHash,
		CreatedAt:    account.CreatedAt,
	}
	if _, err := r.accounts.InsertOne(ctx, acc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateIdentity
		}
		return fmt.Errorf("insert account: %w", err)
	}

	doc := profileDoc{
		ID:           profile.ID,
		Seq:          profile.CreatedAt.UnixNano(),
		FullName:     profile.FullName,
		Identity:     profile.Identity,
		Role:         string(profile.Role),
		AssignedShop: string(profile.AssignedShop),
		CreatedAt:    profile.CreatedAt,
		UpdatedAt:    profile.UpdatedAt,
	}
	if _, err := r.profiles.InsertOne(ctx, doc); err != nil {
		if _, derr := r.accounts.DeleteOne(ctx, bson.M{"_id": account.ID}); derr != nil {
			return fmt.Errorf("insert profile: %w (account rollback failed: %v)", err, derr)
		}
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateIdentity
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (r *IdentityRepository) FindAccountByIdentity(ctx context.Context, identity string) (*domain.Account, error) {
	var doc accountDoc
	if err := r.accounts.FindOne(ctx, bson.M{"identity": identity}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return &domain.Account{
		ID:           doc.ID,
		Identity:     doc.Identity,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt.UTC(),
	}, nil
}

func (r *IdentityRepository) FindProfile(ctx context.Context, id string) (*domain.Profile, error) {
	var doc profileDoc
	if err := r.profiles.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	p := doc.toDomain()
	return &p, nil
}

func (r *IdentityRepository) CountByRole(ctx context.Context, role domain.Role) (int64, error) {
	n, err := r.profiles.CountDocuments(ctx, bson.M{"role": string(role)})
	if err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return n, nil
}

func (r *IdentityRepository) ListProfiles(ctx context.Context, filter ports.ProfileFilter) ([]domain.Profile, error) {
	q := bson.M{}
	if filter.Role != "" {
		q["role"] = string(filter.Role)
	}

	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.profiles.Find(ctx, q, opts)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []profileDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode profiles: %w", err)
	}

	out := make([]domain.Profile, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *IdentityRepository) UpdateAssignment(ctx context.Context, id string, shop domain.Shop, updatedAt time.Time) error {
	res, err := r.profiles.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"assigned_shop": string(shop), "updated_at": updatedAt}},
	)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

// Delete removes the profile first so that a half-finished delete leaves an
// account that can no longer log in rather than a profile without credentials.
func (r *IdentityRepository) Delete(ctx context.Context, id string) error {
	var doc profileDoc
	if err := r.profiles.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.ErrProfileNotFound
		}
		return fmt.Errorf("delete profile: %w", err)
	}
	if doc.Role == string(domain.RoleAdmin) {
		if err := r.releaseAdmin(ctx); err != nil {
			return err
		}
	}
	if _, err := r.accounts.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

func (r *IdentityRepository) Ping(ctx context.Context) error {
	return r.profiles.Database().Client().Ping(ctx, nil)
}
