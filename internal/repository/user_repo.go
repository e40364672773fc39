package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"edunexus/internal/domain"
)

// UserRepository define el contrato de persistencia para usuarios.
// Cada operación de escritura es una única actualización atómica del documento.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.User, error)
	UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (domain.User, error)
	AddEnrolledCourse(ctx context.Context, userID, courseID string) error
	IssueOTP(ctx context.Context, userID, codeHash string, issuedAt, expiresAt time.Time) (int64, error)
	ConsumeOTP(ctx context.Context, userID string, version int64, now time.Time) (bool, error)
	ResetPassword(ctx context.Context, userID, passwordHash string, now time.Time) (bool, error)
}

// MongoUserRepository implementa UserRepository sobre la colección users.
type MongoUserRepository struct {
	col *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{col: db.Collection(ColUsers)}
}

func (r *MongoUserRepository) Create(ctx context.Context, user domain.User) error {
	if user.EnrolledCourses == nil {
		user.EnrolledCourses = []string{}
	}
	return insertOne(ctx, r.col, user)
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	if !IsValidID(id) {
		return domain.User{}, ErrNotFound
	}
	return findOne[domain.User](ctx, r.col, bson.D{{Key: "_id", Value: id}})
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return findOne[domain.User](ctx, r.col, bson.D{{Key: "email", Value: email}})
}

// ListByIDs devuelve sólo los campos públicos; ids mal formados se ignoran.
func (r *MongoUserRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if IsValidID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []domain.User{}, nil
	}
	opts := options.Find().SetProjection(bson.D{
		{Key: "name", Value: 1},
		{Key: "photo_url", Value: 1},
		{Key: "role", Value: 1},
	})
	return findMany[domain.User](ctx, r.col, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: valid}}}}, opts)
}

func (r *MongoUserRepository) UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (domain.User, error) {
	if !IsValidID(id) {
		return domain.User{}, ErrNotFound
	}
	set := bson.D{{Key: "updated_at", Value: time.Now().UTC()}}
	if update.Name != nil {
		set = append(set, bson.E{Key: "name", Value: *update.Name})
	}
	if update.Description != nil {
		set = append(set, bson.E{Key: "description", Value: *update.Description})
	}
	if update.PhotoURL != nil {
		set = append(set, bson.E{Key: "photo_url", Value: *update.PhotoURL})
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user domain.User
	err := r.col.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: set}},
		opts,
	).Decode(&user)
	if err != nil {
		return domain.User{}, wrapError(err)
	}
	return user, nil
}

// AddEnrolledCourse agrega courseID al conjunto de cursos con $addToSet;
// repetirla no altera el documento.
func (r *MongoUserRepository) AddEnrolledCourse(ctx context.Context, userID, courseID string) error {
	return updateOne(ctx, r.col,
		bson.D{{Key: "_id", Value: userID}},
		bson.D{{Key: "$addToSet", Value: bson.D{{Key: "enrolled_courses", Value: courseID}}}},
	)
}

// IssueOTP reemplaza el código activo e incrementa la versión en una sola
// operación. Devuelve la versión emitida.
func (r *MongoUserRepository) IssueOTP(ctx context.Context, userID, codeHash string, issuedAt, expiresAt time.Time) (int64, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user domain.User
	err := r.col.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: userID}},
		bson.D{
			{Key: "$set", Value: bson.D{
				{Key: "otp.code_hash", Value: codeHash},
				{Key: "otp.issued_at", Value: issuedAt},
				{Key: "otp.expires_at", Value: expiresAt},
				{Key: "otp.verified", Value: false},
			}},
			{Key: "$inc", Value: bson.D{{Key: "otp.version", Value: int64(1)}}},
		},
		opts,
	).Decode(&user)
	if err != nil {
		return 0, wrapError(err)
	}
	if user.OTP == nil {
		return 0, ErrNotFound
	}
	return user.OTP.Version, nil
}

// ConsumeOTP marca como verificado el código de la versión indicada siempre
// que siga vigente y no haya sido consumido. Devuelve false si otra petición
// lo reemplazó o consumió antes.
func (r *MongoUserRepository) ConsumeOTP(ctx context.Context, userID string, version int64, now time.Time) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.D{
			{Key: "_id", Value: userID},
			{Key: "otp.version", Value: version},
			{Key: "otp.verified", Value: false},
			{Key: "otp.code_hash", Value: bson.D{{Key: "$ne", Value: ""}}},
			{Key: "otp.expires_at", Value: bson.D{{Key: "$gte", Value: now}}},
		},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "otp.verified", Value: true},
			{Key: "otp.code_hash", Value: ""},
		}}},
	)
	if err != nil {
		return false, wrapError(err)
	}
	return res.ModifiedCount == 1, nil
}

// ResetPassword guarda el nuevo hash y limpia el estado OTP, sólo si hay una
// verificación previa pendiente de uso. La versión se conserva.
func (r *MongoUserRepository) ResetPassword(ctx context.Context, userID, passwordHash string, now time.Time) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.D{
			{Key: "_id", Value: userID},
			{Key: "otp.verified", Value: true},
		},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "password_hash", Value: passwordHash},
			{Key: "otp.verified", Value: false},
			{Key: "otp.code_hash", Value: ""},
			{Key: "otp.expires_at", Value: time.Time{}},
			{Key: "updated_at", Value: now},
		}}},
	)
	if err != nil {
		return false, wrapError(err)
	}
	return res.ModifiedCount == 1, nil
}
