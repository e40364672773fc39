package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"edunexus/internal/domain"
	"edunexus/internal/repository"
)

// ReviewService registra reseñas de cursos, una por usuario y curso.
type ReviewService struct {
	logger  *zap.Logger
	reviews repository.ReviewRepository
	courses repository.CourseRepository
	users   repository.UserRepository
	now     func() time.Time
}

func NewReviewService(logger *zap.Logger, reviews repository.ReviewRepository, courses repository.CourseRepository, users repository.UserRepository) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{
		logger:  logger,
		reviews: reviews,
		courses: courses,
		users:   users,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type ReviewInput struct {
	CourseID string
	Rating   int
	Comment  string
}

// Create inserta la reseña y luego la enlaza al curso. Son dos escrituras:
// si la segunda falla la reseña queda huérfana (existe pero el curso no la
// lista) y sólo se registra en el log.
func (s *ReviewService) Create(ctx context.Context, p Principal, input ReviewInput) (domain.Review, error) {
	comment := strings.TrimSpace(input.Comment)
	if input.Rating < domain.MinRating || input.Rating > domain.MaxRating {
		return domain.Review{}, validationf("rating must be between %d and %d", domain.MinRating, domain.MaxRating)
	}
	if utf8.RuneCountInString(comment) > domain.MaxCommentLength {
		return domain.Review{}, validationf("comment must be at most %d characters", domain.MaxCommentLength)
	}
	if strings.TrimSpace(input.CourseID) == "" {
		return domain.Review{}, validationf("courseId is required")
	}

	course, err := s.courses.GetByID(ctx, input.CourseID)
	if err != nil {
		return domain.Review{}, mapRepoError(err, "course not found")
	}
	if !CanAccess(p, Resource{Course: &course}, ActionReview) {
		return domain.Review{}, ErrForbidden
	}

	if _, err := s.reviews.GetByCourseAndUser(ctx, course.ID, p.UserID); err == nil {
		return domain.Review{}, ErrDuplicateReview
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.Review{}, err
	}

	review := domain.Review{
		ID:         repository.NewID(),
		CourseID:   course.ID,
		UserID:     p.UserID,
		Rating:     input.Rating,
		Comment:    comment,
		ReviewedAt: s.now(),
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		// El índice único resuelve la carrera entre dos envíos simultáneos.
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.Review{}, ErrDuplicateReview
		}
		return domain.Review{}, err
	}

	if err := s.courses.AddReview(ctx, course.ID, review.ID); err != nil {
		s.logger.Error("review created but not linked to course",
			zap.Error(err),
			zap.String("review_id", review.ID),
			zap.String("course_id", course.ID),
		)
	}
	return review, nil
}

// List devuelve las reseñas con el nombre, la foto y el rol de cada autor.
func (s *ReviewService) List(ctx context.Context) ([]domain.ReviewView, error) {
	reviews, err := s.reviews.List(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(reviews))
	seen := make(map[string]bool, len(reviews))
	for _, r := range reviews {
		if !seen[r.UserID] {
			seen[r.UserID] = true
			ids = append(ids, r.UserID)
		}
	}
	users, err := s.users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.Reviewer, len(users))
	for _, u := range users {
		byID[u.ID] = &domain.Reviewer{ID: u.ID, Name: u.Name, PhotoURL: u.PhotoURL, Role: u.Role}
	}

	views := make([]domain.ReviewView, 0, len(reviews))
	for _, r := range reviews {
		views = append(views, domain.ReviewView{Review: r, Reviewer: byID[r.UserID]})
	}
	return views, nil
}

func (s *ReviewService) Summary(ctx context.Context, courseID string) (domain.ReviewSummary, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return domain.ReviewSummary{}, mapRepoError(err, "course not found")
	}
	return s.reviews.Summary(ctx, course.ID)
}
