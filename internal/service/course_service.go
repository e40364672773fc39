package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"edunexus/internal/domain"
	"edunexus/internal/media"
	"edunexus/internal/repository"
)

const (
	minTitleLength       = 3
	maxTitleLength       = 200
	maxSubtitleLength    = 300
	maxDescriptionLength = 5000
	maxCategoryLength    = 100
	maxSearchLength      = 200
)

// CourseService gestiona cursos, sus clases y los archivos asociados.
// La autorización se decide con CanAccess apenas se carga el recurso.
type CourseService struct {
	logger   *zap.Logger
	courses  repository.CourseRepository
	lectures repository.LectureRepository
	media    media.Store
	now      func() time.Time
}

func NewCourseService(logger *zap.Logger, courses repository.CourseRepository, lectures repository.LectureRepository, store media.Store) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = media.NewDisabledStore()
	}
	return &CourseService{
		logger:   logger,
		courses:  courses,
		lectures: lectures,
		media:    store,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type CourseInput struct {
	Title       string
	Subtitle    string
	Description string
	Category    string
	Level       string
	Price       float64
}

// CourseLectures es la vista de un curso con sus clases visibles.
type CourseLectures struct {
	Course   domain.Course    `json:"course"`
	Lectures []domain.Lecture `json:"lectures"`
	Full     bool             `json:"full_access"`
}

func (s *CourseService) Create(ctx context.Context, p Principal, input CourseInput) (domain.Course, error) {
	if !CanAccess(p, Resource{}, ActionCreateCourse) {
		return domain.Course{}, ErrForbidden
	}

	course := domain.Course{
		ID:          repository.NewID(),
		Title:       strings.TrimSpace(input.Title),
		Subtitle:    strings.TrimSpace(input.Subtitle),
		Description: strings.TrimSpace(input.Description),
		Category:    strings.TrimSpace(input.Category),
		Level:       strings.TrimSpace(input.Level),
		Price:       input.Price,
		Creator:     p.UserID,
	}
	if course.Level == "" {
		course.Level = domain.LevelBeginner
	}
	if err := validateCourse(course); err != nil {
		return domain.Course{}, err
	}

	exists, err := s.courses.ExistsByCreatorAndTitle(ctx, p.UserID, course.Title)
	if err != nil {
		return domain.Course{}, err
	}
	if exists {
		return domain.Course{}, fmt.Errorf("%w: you already have a course with this title", ErrConflict)
	}

	now := s.now()
	course.CreatedAt = now
	course.UpdatedAt = now
	course.EnrollmentStudents = []string{}
	course.Lectures = []string{}
	course.Reviews = []string{}
	if err := s.courses.Create(ctx, course); err != nil {
		return domain.Course{}, err
	}
	return course, nil
}

func (s *CourseService) ListPublished(ctx context.Context) ([]domain.Course, error) {
	return s.courses.ListPublished(ctx)
}

func (s *CourseService) ListByCreator(ctx context.Context, p Principal) ([]domain.Course, error) {
	return s.courses.ListByCreator(ctx, p.UserID)
}

func (s *CourseService) Get(ctx context.Context, courseID string) (domain.Course, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return domain.Course{}, mapRepoError(err, "course not found")
	}
	return course, nil
}

// Update aplica los cambios presentes y, si llega, sube la miniatura nueva.
func (s *CourseService) Update(ctx context.Context, p Principal, courseID string, update domain.CourseUpdate, thumbnail *media.File) (domain.Course, error) {
	course, err := s.Get(ctx, courseID)
	if err != nil {
		return domain.Course{}, err
	}
	if !CanAccess(p, Resource{Course: &course}, ActionManageCourse) {
		return domain.Course{}, ErrForbidden
	}

	trimPtr(update.Title)
	trimPtr(update.Subtitle)
	trimPtr(update.Description)
	trimPtr(update.Category)
	trimPtr(update.Level)
	if err := validateCourse(applyCourseUpdate(course, update)); err != nil {
		return domain.Course{}, err
	}

	var uploaded string
	if thumbnail != nil {
		uploaded, err = s.upload(ctx, media.KindThumbnail, *thumbnail)
		if err != nil {
			return domain.Course{}, err
		}
		update.Thumbnail = &uploaded
	}

	updated, err := s.courses.Update(ctx, course.ID, update)
	if err != nil {
		if uploaded != "" {
			s.discard(ctx, uploaded)
		}
		return domain.Course{}, mapRepoError(err, "course not found")
	}
	if uploaded != "" && course.Thumbnail != "" {
		s.discard(ctx, course.Thumbnail)
	}
	return updated, nil
}

// Remove hace un borrado lógico; las inscripciones existentes se conservan.
func (s *CourseService) Remove(ctx context.Context, p Principal, courseID string) error {
	course, err := s.Get(ctx, courseID)
	if err != nil {
		return err
	}
	if !CanAccess(p, Resource{Course: &course}, ActionManageCourse) {
		return ErrForbidden
	}
	return mapRepoError(s.courses.SoftDelete(ctx, course.ID, s.now()), "course not found")
}

func (s *CourseService) CreateLecture(ctx context.Context, p Principal, courseID, title string) (domain.Lecture, error) {
	course, err := s.Get(ctx, courseID)
	if err != nil {
		return domain.Lecture{}, err
	}
	if !CanAccess(p, Resource{Course: &course}, ActionManageLecture) {
		return domain.Lecture{}, ErrForbidden
	}
	title = strings.TrimSpace(title)
	if err := validateLectureTitle(title); err != nil {
		return domain.Lecture{}, err
	}

	now := s.now()
	lecture := domain.Lecture{
		ID:        repository.NewID(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.lectures.Create(ctx, lecture); err != nil {
		return domain.Lecture{}, err
	}
	if err := s.courses.AddLecture(ctx, course.ID, lecture.ID); err != nil {
		s.logger.Error("lecture created but not linked to course",
			zap.Error(err),
			zap.String("lecture_id", lecture.ID),
			zap.String("course_id", course.ID),
		)
		return domain.Lecture{}, mapRepoError(err, "course not found")
	}
	return lecture, nil
}

// CourseLectures devuelve todas las clases al creador y a los inscritos; al
// resto sólo las de vista previa gratuita.
func (s *CourseService) CourseLectures(ctx context.Context, p Principal, courseID string) (CourseLectures, error) {
	course, err := s.Get(ctx, courseID)
	if err != nil {
		return CourseLectures{}, err
	}
	lectures, err := s.lectures.ListByIDs(ctx, course.Lectures)
	if err != nil {
		return CourseLectures{}, err
	}

	full := CanAccess(p, Resource{Course: &course}, ActionViewLectures)
	if !full {
		preview := make([]domain.Lecture, 0, len(lectures))
		for _, l := range lectures {
			if l.IsPreviewFree {
				preview = append(preview, l)
			}
		}
		lectures = preview
	}
	return CourseLectures{Course: course, Lectures: lectures, Full: full}, nil
}

func (s *CourseService) UpdateLecture(ctx context.Context, p Principal, lectureID string, update domain.LectureUpdate, video *media.File) (domain.Lecture, error) {
	lecture, course, err := s.loadLecture(ctx, lectureID)
	if err != nil {
		return domain.Lecture{}, err
	}
	if !CanAccess(p, Resource{Course: &course}, ActionManageLecture) {
		return domain.Lecture{}, ErrForbidden
	}
	if update.Title != nil {
		trimPtr(update.Title)
		if err := validateLectureTitle(*update.Title); err != nil {
			return domain.Lecture{}, err
		}
	}

	var uploaded string
	if video != nil {
		uploaded, err = s.upload(ctx, media.KindVideo, *video)
		if err != nil {
			return domain.Lecture{}, err
		}
		update.VideoURL = &uploaded
	}

	updated, err := s.lectures.Update(ctx, lecture.ID, update)
	if err != nil {
		if uploaded != "" {
			s.discard(ctx, uploaded)
		}
		return domain.Lecture{}, mapRepoError(err, "lecture not found")
	}
	if uploaded != "" && lecture.VideoURL != "" {
		s.discard(ctx, lecture.VideoURL)
	}
	return updated, nil
}

// RemoveLecture borra la clase y quita la referencia del curso. Devuelve el
// id del curso padre.
func (s *CourseService) RemoveLecture(ctx context.Context, p Principal, lectureID string) (string, error) {
	lecture, course, err := s.loadLecture(ctx, lectureID)
	if err != nil {
		return "", err
	}
	if !CanAccess(p, Resource{Course: &course}, ActionManageLecture) {
		return "", ErrForbidden
	}
	if err := s.lectures.Delete(ctx, lecture.ID); err != nil {
		return "", mapRepoError(err, "lecture not found")
	}
	if err := s.courses.RemoveLecture(ctx, course.ID, lecture.ID); err != nil {
		s.logger.Error("lecture deleted but still referenced by course",
			zap.Error(err),
			zap.String("lecture_id", lecture.ID),
			zap.String("course_id", course.ID),
		)
		return "", err
	}
	if lecture.VideoURL != "" {
		s.discard(ctx, lecture.VideoURL)
	}
	return course.ID, nil
}

// Search busca en cursos publicados; term se interpreta literalmente.
func (s *CourseService) Search(ctx context.Context, term string) ([]domain.Course, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, validationf("search query is required")
	}
	if utf8.RuneCountInString(term) > maxSearchLength {
		return nil, validationf("search query must be at most %d characters", maxSearchLength)
	}
	return s.courses.Search(ctx, term)
}

func (s *CourseService) loadLecture(ctx context.Context, lectureID string) (domain.Lecture, domain.Course, error) {
	lecture, err := s.lectures.GetByID(ctx, lectureID)
	if err != nil {
		return domain.Lecture{}, domain.Course{}, mapRepoError(err, "lecture not found")
	}
	course, err := s.courses.GetByLecture(ctx, lecture.ID)
	if err != nil {
		return domain.Lecture{}, domain.Course{}, mapRepoError(err, "parent course not found")
	}
	return lecture, course, nil
}

func (s *CourseService) upload(ctx context.Context, kind media.Kind, file media.File) (string, error) {
	if !kind.Accepts(file.ContentType) {
		return "", validationf("unsupported file type %q", file.ContentType)
	}
	url, err := s.media.Upload(ctx, kind, file)
	if err != nil {
		s.logger.Error("media upload failed", zap.Error(err), zap.String("kind", string(kind)))
		return "", fmt.Errorf("%w: upload %s", ErrExternalService, kind)
	}
	return url, nil
}

func (s *CourseService) discard(ctx context.Context, url string) {
	if err := s.media.Delete(ctx, url); err != nil {
		s.logger.Warn("media cleanup failed", zap.Error(err), zap.String("url", url))
	}
}

func validateCourse(c domain.Course) error {
	titleLen := utf8.RuneCountInString(c.Title)
	if titleLen < minTitleLength || titleLen > maxTitleLength {
		return validationf("title must be between %d and %d characters", minTitleLength, maxTitleLength)
	}
	if c.Category == "" || utf8.RuneCountInString(c.Category) > maxCategoryLength {
		return validationf("category is required and must be at most %d characters", maxCategoryLength)
	}
	if utf8.RuneCountInString(c.Subtitle) > maxSubtitleLength {
		return validationf("subtitle must be at most %d characters", maxSubtitleLength)
	}
	if utf8.RuneCountInString(c.Description) > maxDescriptionLength {
		return validationf("description must be at most %d characters", maxDescriptionLength)
	}
	if !domain.ValidLevel(c.Level) {
		return validationf("level must be one of %s, %s, %s", domain.LevelBeginner, domain.LevelIntermediate, domain.LevelAdvanced)
	}
	if math.IsNaN(c.Price) || c.Price < 0 || c.Price > domain.MaxCoursePrice {
		return validationf("price must be between 0 and %d", domain.MaxCoursePrice)
	}
	return nil
}

func validateLectureTitle(title string) error {
	n := utf8.RuneCountInString(title)
	if n < minTitleLength || n > maxTitleLength {
		return validationf("lecture title must be between %d and %d characters", minTitleLength, maxTitleLength)
	}
	return nil
}

func applyCourseUpdate(c domain.Course, u domain.CourseUpdate) domain.Course {
	if u.Title != nil {
		c.Title = *u.Title
	}
	if u.Subtitle != nil {
		c.Subtitle = *u.Subtitle
	}
	if u.Description != nil {
		c.Description = *u.Description
	}
	if u.Category != nil {
		c.Category = *u.Category
	}
	if u.Level != nil {
		c.Level = *u.Level
	}
	if u.Price != nil {
		c.Price = *u.Price
	}
	return c
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
