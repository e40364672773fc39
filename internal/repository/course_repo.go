package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"edunexus/internal/domain"
)

// CourseRepository define el contrato de persistencia para cursos.
type CourseRepository interface {
	Create(ctx context.Context, course domain.Course) error
	GetByID(ctx context.Context, id string) (domain.Course, error)
	GetByLecture(ctx context.Context, lectureID string) (domain.Course, error)
	ExistsByCreatorAndTitle(ctx context.Context, creatorID, title string) (bool, error)
	ListPublished(ctx context.Context) ([]domain.Course, error)
	ListByCreator(ctx context.Context, creatorID string) ([]domain.Course, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Course, error)
	Search(ctx context.Context, term string) ([]domain.Course, error)
	Update(ctx context.Context, id string, update domain.CourseUpdate) (domain.Course, error)
	SoftDelete(ctx context.Context, id string, at time.Time) error
	AddEnrollmentStudent(ctx context.Context, courseID, userID string) error
	AddLecture(ctx context.Context, courseID, lectureID string) error
	RemoveLecture(ctx context.Context, courseID, lectureID string) error
	AddReview(ctx context.Context, courseID, reviewID string) error
}

// MongoCourseRepository implementa CourseRepository sobre la colección courses.
type MongoCourseRepository struct {
	col *mongo.Collection
}

func NewMongoCourseRepository(db *mongo.Database) *MongoCourseRepository {
	return &MongoCourseRepository{col: db.Collection(ColCourses)}
}

// active filtra los cursos no eliminados; {deleted_at: null} también
// coincide con documentos sin el campo.
func active(filter bson.D) bson.D {
	return append(filter, bson.E{Key: "deleted_at", Value: nil})
}

func (r *MongoCourseRepository) Create(ctx context.Context, course domain.Course) error {
	if course.EnrollmentStudents == nil {
		course.EnrollmentStudents = []string{}
	}
	if course.Lectures == nil {
		course.Lectures = []string{}
	}
	if course.Reviews == nil {
		course.Reviews = []string{}
	}
	return insertOne(ctx, r.col, course)
}

func (r *MongoCourseRepository) GetByID(ctx context.Context, id string) (domain.Course, error) {
	if !IsValidID(id) {
		return domain.Course{}, ErrNotFound
	}
	return findOne[domain.Course](ctx, r.col, active(bson.D{{Key: "_id", Value: id}}))
}

func (r *MongoCourseRepository) GetByLecture(ctx context.Context, lectureID string) (domain.Course, error) {
	return findOne[domain.Course](ctx, r.col, active(bson.D{{Key: "lectures", Value: lectureID}}))
}

func (r *MongoCourseRepository) ExistsByCreatorAndTitle(ctx context.Context, creatorID, title string) (bool, error) {
	n, err := r.col.CountDocuments(ctx, active(bson.D{
		{Key: "creator", Value: creatorID},
		{Key: "title", Value: caseInsensitiveExact(title)},
	}))
	if err != nil {
		return false, wrapError(err)
	}
	return n > 0, nil
}

func (r *MongoCourseRepository) ListPublished(ctx context.Context) ([]domain.Course, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findMany[domain.Course](ctx, r.col, active(bson.D{{Key: "is_published", Value: true}}), opts)
}

func (r *MongoCourseRepository) ListByCreator(ctx context.Context, creatorID string) ([]domain.Course, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findMany[domain.Course](ctx, r.col, active(bson.D{{Key: "creator", Value: creatorID}}), opts)
}

func (r *MongoCourseRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.Course, error) {
	if len(ids) == 0 {
		return []domain.Course{}, nil
	}
	return findMany[domain.Course](ctx, r.col, active(bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}))
}

// Search busca cursos publicados cuyo texto contenga term, tratado como literal.
func (r *MongoCourseRepository) Search(ctx context.Context, term string) ([]domain.Course, error) {
	pattern := containsInsensitive(term)
	filter := active(bson.D{
		{Key: "is_published", Value: true},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "title", Value: pattern}},
			bson.D{{Key: "subtitle", Value: pattern}},
			bson.D{{Key: "description", Value: pattern}},
			bson.D{{Key: "category", Value: pattern}},
			bson.D{{Key: "level", Value: pattern}},
		}},
	})
	opts := options.Find().SetProjection(bson.D{
		{Key: "title", Value: 1},
		{Key: "subtitle", Value: 1},
		{Key: "category", Value: 1},
		{Key: "level", Value: 1},
		{Key: "price", Value: 1},
		{Key: "thumbnail", Value: 1},
		{Key: "creator", Value: 1},
		{Key: "is_published", Value: 1},
	})
	return findMany[domain.Course](ctx, r.col, filter, opts)
}

func (r *MongoCourseRepository) Update(ctx context.Context, id string, update domain.CourseUpdate) (domain.Course, error) {
	if !IsValidID(id) {
		return domain.Course{}, ErrNotFound
	}
	set := bson.D{{Key: "updated_at", Value: time.Now().UTC()}}
	if update.Title != nil {
		set = append(set, bson.E{Key: "title", Value: *update.Title})
	}
	if update.Subtitle != nil {
		set = append(set, bson.E{Key: "subtitle", Value: *update.Subtitle})
	}
	if update.Description != nil {
		set = append(set, bson.E{Key: "description", Value: *update.Description})
	}
	if update.Category != nil {
		set = append(set, bson.E{Key: "category", Value: *update.Category})
	}
	if update.Level != nil {
		set = append(set, bson.E{Key: "level", Value: *update.Level})
	}
	if update.Price != nil {
		set = append(set, bson.E{Key: "price", Value: *update.Price})
	}
	if update.IsPublished != nil {
		set = append(set, bson.E{Key: "is_published", Value: *update.IsPublished})
	}
	if update.Thumbnail != nil {
		set = append(set, bson.E{Key: "thumbnail", Value: *update.Thumbnail})
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var course domain.Course
	err := r.col.FindOneAndUpdate(ctx,
		active(bson.D{{Key: "_id", Value: id}}),
		bson.D{{Key: "$set", Value: set}},
		opts,
	).Decode(&course)
	if err != nil {
		return domain.Course{}, wrapError(err)
	}
	return course, nil
}

func (r *MongoCourseRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	if !IsValidID(id) {
		return ErrNotFound
	}
	return updateOne(ctx, r.col,
		active(bson.D{{Key: "_id", Value: id}}),
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "deleted_at", Value: at},
			{Key: "is_published", Value: false},
		}}},
	)
}

// AddEnrollmentStudent agrega userID al conjunto de inscritos con $addToSet.
func (r *MongoCourseRepository) AddEnrollmentStudent(ctx context.Context, courseID, userID string) error {
	return updateOne(ctx, r.col,
		bson.D{{Key: "_id", Value: courseID}},
		bson.D{{Key: "$addToSet", Value: bson.D{{Key: "enrollment_students", Value: userID}}}},
	)
}

func (r *MongoCourseRepository) AddLecture(ctx context.Context, courseID, lectureID string) error {
	return updateOne(ctx, r.col,
		active(bson.D{{Key: "_id", Value: courseID}}),
		bson.D{{Key: "$push", Value: bson.D{{Key: "lectures", Value: lectureID}}}},
	)
}

func (r *MongoCourseRepository) RemoveLecture(ctx context.Context, courseID, lectureID string) error {
	return updateOne(ctx, r.col,
		bson.D{{Key: "_id", Value: courseID}},
		bson.D{{Key: "$pull", Value: bson.D{{Key: "lectures", Value: lectureID}}}},
	)
}

func (r *MongoCourseRepository) AddReview(ctx context.Context, courseID, reviewID string) error {
	return updateOne(ctx, r.col,
		bson.D{{Key: "_id", Value: courseID}},
		bson.D{{Key: "$addToSet", Value: bson.D{{Key: "reviews", Value: reviewID}}}},
	)
}
