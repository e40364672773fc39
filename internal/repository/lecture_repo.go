package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"edunexus/internal/domain"
)

type LectureRepository interface {
	Create(ctx context.Context, lecture domain.Lecture) error
	GetByID(ctx context.Context, id string) (domain.Lecture, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Lecture, error)
	Update(ctx context.Context, id string, update domain.LectureUpdate) (domain.Lecture, error)
	Delete(ctx context.Context, id string) error
}

type MongoLectureRepository struct {
	col *mongo.Collection
}

func NewMongoLectureRepository(db *mongo.Database) *MongoLectureRepository {
	return &MongoLectureRepository{col: db.Collection(ColLectures)}
}

func (r *MongoLectureRepository) Create(ctx context.Context, lecture domain.Lecture) error {
	return insertOne(ctx, r.col, lecture)
}

func (r *MongoLectureRepository) GetByID(ctx context.Context, id string) (domain.Lecture, error) {
	if !IsValidID(id) {
		return domain.Lecture{}, ErrNotFound
	}
	return findOne[domain.Lecture](ctx, r.col, bson.D{{Key: "_id", Value: id}})
}

// ListByIDs devuelve las clases en el orden de ids, omitiendo las inexistentes.
func (r *MongoLectureRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.Lecture, error) {
	if len(ids) == 0 {
		return []domain.Lecture{}, nil
	}
	found, err := findMany[domain.Lecture](ctx, r.col, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Lecture, len(found))
	for _, l := range found {
		byID[l.ID] = l
	}
	ordered := make([]domain.Lecture, 0, len(found))
	for _, id := range ids {
		if l, ok := byID[id]; ok {
			ordered = append(ordered, l)
		}
	}
	return ordered, nil
}

func (r *MongoLectureRepository) Update(ctx context.Context, id string, update domain.LectureUpdate) (domain.Lecture, error) {
	if !IsValidID(id) {
		return domain.Lecture{}, ErrNotFound
	}
	set := bson.D{{Key: "updated_at", Value: time.Now().UTC()}}
	if update.Title != nil {
		set = append(set, bson.E{Key: "title", Value: *update.Title})
	}
	if update.VideoURL != nil {
		set = append(set, bson.E{Key: "video_url", Value: *update.VideoURL})
	}
	if update.IsPreviewFree != nil {
		set = append(set, bson.E{Key: "is_preview_free", Value: *update.IsPreviewFree})
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var lecture domain.Lecture
	err := r.col.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: set}},
		opts,
	).Decode(&lecture)
	if err != nil {
		return domain.Lecture{}, wrapError(err)
	}
	return lecture, nil
}

func (r *MongoLectureRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return wrapError(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
