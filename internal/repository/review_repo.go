package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"edunexus/internal/domain"
)

// ReviewRepository define el contrato de persistencia para reseñas.
// El índice único (course, user) resuelve las carreras entre inserciones.
type ReviewRepository interface {
	Create(ctx context.Context, review domain.Review) error
	GetByCourseAndUser(ctx context.Context, courseID, userID string) (domain.Review, error)
	List(ctx context.Context) ([]domain.Review, error)
	Summary(ctx context.Context, courseID string) (domain.ReviewSummary, error)
}

type MongoReviewRepository struct {
	col *mongo.Collection
}

func NewMongoReviewRepository(db *mongo.Database) *MongoReviewRepository {
	return &MongoReviewRepository{col: db.Collection(ColReviews)}
}

func (r *MongoReviewRepository) Create(ctx context.Context, review domain.Review) error {
	return insertOne(ctx, r.col, review)
}

func (r *MongoReviewRepository) GetByCourseAndUser(ctx context.Context, courseID, userID string) (domain.Review, error) {
	return findOne[domain.Review](ctx, r.col, bson.D{
		{Key: "course", Value: courseID},
		{Key: "user", Value: userID},
	})
}

func (r *MongoReviewRepository) List(ctx context.Context) ([]domain.Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "reviewed_at", Value: -1}})
	return findMany[domain.Review](ctx, r.col, bson.D{}, opts)
}

// Summary agrega promedio y cantidad de calificaciones de un curso.
func (r *MongoReviewRepository) Summary(ctx context.Context, courseID string) (domain.ReviewSummary, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "course", Value: courseID}}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$course"},
			{Key: "average", Value: bson.D{{Key: "$avg", Value: "$rating"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return domain.ReviewSummary{}, wrapError(err)
	}
	defer cursor.Close(ctx)

	summary := domain.ReviewSummary{CourseID: courseID}
	if cursor.Next(ctx) {
		if err := cursor.Decode(&summary); err != nil {
			return domain.ReviewSummary{}, err
		}
	}
	return summary, cursor.Err()
}
