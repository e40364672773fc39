package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"edunexus/internal/domain"
)

func newReviewFixture() (*ReviewService, *mockReviewRepo, *mockCourseRepo) {
	reviews := &mockReviewRepo{}
	courses := newMockCourseRepo()
	courses.put(domain.Course{ID: testCourseID, Title: "Go for Backend", Creator: testCreatorID, IsPublished: true})
	return NewReviewService(zap.NewNop(), reviews, courses, newMockUserRepo()), reviews, courses
}

var student = Principal{UserID: testUserID, Role: domain.RoleStudent}

func TestReviewCreate(t *testing.T) {
	svc, _, courses := newReviewFixture()
	ctx := context.Background()

	review, err := svc.Create(ctx, student, ReviewInput{CourseID: testCourseID, Rating: 5, Comment: "  great  "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if review.Comment != "great" || review.UserID != testUserID || review.ReviewedAt.IsZero() {
		t.Fatalf("unexpected review %+v", review)
	}
	course, _ := courses.GetByID(ctx, testCourseID)
	if len(course.Reviews) != 1 || course.Reviews[0] != review.ID {
		t.Fatalf("expected review linked to course, got %+v", course.Reviews)
	}
}

func TestReviewCreate_DuplicateIsConflict(t *testing.T) {
	svc, reviews, _ := newReviewFixture()
	ctx := context.Background()

	if _, err := svc.Create(ctx, student, ReviewInput{CourseID: testCourseID, Rating: 4}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := svc.Create(ctx, student, ReviewInput{CourseID: testCourseID, Rating: 2})
	if !errors.Is(err, ErrDuplicateReview) || !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrDuplicateReview, got %v", err)
	}
	if len(reviews.reviews) != 1 {
		t.Fatalf("expected a single review, got %d", len(reviews.reviews))
	}
}

func TestReviewCreate_RaceResolvedByUniqueIndex(t *testing.T) {
	svc, reviews, _ := newReviewFixture()
	ctx := context.Background()

	if _, err := svc.Create(ctx, student, ReviewInput{CourseID: testCourseID, Rating: 4}); err != nil {
		t.Fatalf("create: %v", err)
	}
	reviews.skipPrecheck = true
	if _, err := svc.Create(ctx, student, ReviewInput{CourseID: testCourseID, Rating: 1}); !errors.Is(err, ErrDuplicateReview) {
		t.Fatalf("expected insert to lose the race with ErrDuplicateReview, got %v", err)
	}
	if len(reviews.reviews) != 1 {
		t.Fatalf("expected a single review, got %d", len(reviews.reviews))
	}
}

// Si el enlace al curso falla la reseña queda huérfana: existe, pero el
// curso no la lista. Se tolera y sólo se registra en el log.
func TestReviewCreate_OrphanWhenCourseLinkFails(t *testing.T) {
	svc, reviews, courses := newReviewFixture()
	ctx := context.Background()
	courses.reviewErr = errStoreDown

	if _, err := svc.Create(ctx, student, ReviewInput{CourseID: testCourseID, Rating: 3}); err != nil {
		t.Fatalf("expected success despite link failure, got %v", err)
	}
	course, _ := courses.GetByID(ctx, testCourseID)
	if len(reviews.reviews) != 1 || len(course.Reviews) != 0 {
		t.Fatalf("expected orphan review: stored=%d linked=%d", len(reviews.reviews), len(course.Reviews))
	}
	if _, err := svc.Create(ctx, student, ReviewInput{CourseID: testCourseID, Rating: 3}); !errors.Is(err, ErrDuplicateReview) {
		t.Fatalf("orphan must still count for uniqueness, got %v", err)
	}
}

func TestReviewCreate_Validation(t *testing.T) {
	svc, _, _ := newReviewFixture()
	ctx := context.Background()

	cases := []ReviewInput{
		{CourseID: testCourseID, Rating: 0},
		{CourseID: testCourseID, Rating: 6},
		{CourseID: testCourseID, Rating: 3, Comment: strings.Repeat("x", 1001)},
		{CourseID: "", Rating: 3},
	}
	for _, in := range cases {
		if _, err := svc.Create(ctx, student, in); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation for %+v, got %v", in.Rating, err)
		}
	}

	if _, err := svc.Create(ctx, student, ReviewInput{CourseID: "65f1c0a2b3c4d5e6f7a8ffff", Rating: 3}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing course, got %v", err)
	}
	creator := Principal{UserID: testCreatorID, Role: domain.RoleEducator}
	if _, err := svc.Create(ctx, creator, ReviewInput{CourseID: testCourseID, Rating: 5}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected creator to be forbidden, got %v", err)
	}
}

func TestReviewSummary(t *testing.T) {
	svc, _, _ := newReviewFixture()
	ctx := context.Background()

	for i, rating := range []int{5, 4, 3} {
		p := Principal{UserID: string(rune('a' + i)), Role: domain.RoleStudent}
		if _, err := svc.Create(ctx, p, ReviewInput{CourseID: testCourseID, Rating: rating}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	summary, err := svc.Summary(ctx, testCourseID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Count != 3 || summary.Average != 4 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	list, err := svc.List(ctx)
	if err != nil || len(list) != 3 {
		t.Fatalf("expected 3 reviews, got %d (%v)", len(list), err)
	}
}

func TestReviewList_ResolvesReviewers(t *testing.T) {
	svc, _, _ := newReviewFixture()
	ctx := context.Background()
	users := svc.users.(*mockUserRepo)
	if err := users.Create(ctx, domain.User{
		ID: testUserID, Name: "Ravi", Email: "ravi@example.com",
		Role: domain.RoleStudent, PhotoURL: "https://cdn.test/images/ravi.png", PasswordHash: "hash",
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	if _, err := svc.Create(ctx, student, ReviewInput{CourseID: testCourseID, Rating: 5}); err != nil {
		t.Fatalf("create: %v", err)
	}
	gone := Principal{UserID: "65f1c0a2b3c4d5e6f7a8b9dd", Role: domain.RoleStudent}
	if _, err := svc.Create(ctx, gone, ReviewInput{CourseID: testCourseID, Rating: 2}); err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := svc.List(ctx)
	if err != nil || len(list) != 2 {
		t.Fatalf("expected 2 reviews, got %d (%v)", len(list), err)
	}
	for _, v := range list {
		switch v.UserID {
		case testUserID:
			want := domain.Reviewer{ID: testUserID, Name: "Ravi", PhotoURL: "https://cdn.test/images/ravi.png", Role: domain.RoleStudent}
			if v.Reviewer == nil || *v.Reviewer != want {
				t.Fatalf("unexpected reviewer %+v", v.Reviewer)
			}
		case gone.UserID:
			if v.Reviewer != nil {
				t.Fatalf("missing account must have no reviewer, got %+v", v.Reviewer)
			}
		default:
			t.Fatalf("unexpected review %+v", v)
		}
	}
}
