package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"edunexus/internal/domain"
	"edunexus/internal/media"
	"edunexus/internal/repository"
)

const maxDescriptionProfileLength = 1000

// UserService expone el perfil del usuario autenticado.
type UserService struct {
	logger  *zap.Logger
	users   repository.UserRepository
	courses repository.CourseRepository
	media   media.Store
}

func NewUserService(logger *zap.Logger, users repository.UserRepository, courses repository.CourseRepository, store media.Store) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = media.NewDisabledStore()
	}
	return &UserService{
		logger:  logger,
		users:   users,
		courses: courses,
		media:   store,
	}
}

// Profile es el usuario con sus cursos inscritos resueltos.
type Profile struct {
	domain.User
	Courses []domain.Course `json:"courses"`
}

func (s *UserService) Me(ctx context.Context, p Principal) (Profile, error) {
	user, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return Profile{}, mapRepoError(err, "user not found")
	}
	courses, err := s.courses.ListByIDs(ctx, user.EnrolledCourses)
	if err != nil {
		return Profile{}, err
	}
	return Profile{User: user, Courses: courses}, nil
}

// Get devuelve el usuario sin resolver relaciones.
func (s *UserService) Get(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.User{}, mapRepoError(err, "user not found")
	}
	return user, nil
}

type ProfileInput struct {
	Name        string
	Description string
	Photo       *media.File
}

// UpdateProfile ignora campos vacíos; si no queda nada por cambiar devuelve
// un error de validación.
func (s *UserService) UpdateProfile(ctx context.Context, p Principal, input ProfileInput) (domain.User, error) {
	if !CanAccess(p, Resource{OwnerID: p.UserID}, ActionManageProfile) {
		return domain.User{}, ErrUnauthorized
	}
	current, err := s.Get(ctx, p.UserID)
	if err != nil {
		return domain.User{}, err
	}

	var update domain.ProfileUpdate
	if name := strings.TrimSpace(input.Name); name != "" {
		if utf8.RuneCountInString(name) > maxNameLength {
			return domain.User{}, validationf("name must be at most %d characters", maxNameLength)
		}
		update.Name = &name
	}
	if desc := strings.TrimSpace(input.Description); desc != "" {
		if utf8.RuneCountInString(desc) > maxDescriptionProfileLength {
			return domain.User{}, validationf("description must be at most %d characters", maxDescriptionProfileLength)
		}
		update.Description = &desc
	}
	if input.Photo != nil {
		if !media.KindPhoto.Accepts(input.Photo.ContentType) {
			return domain.User{}, validationf("unsupported file type %q", input.Photo.ContentType)
		}
		url, err := s.media.Upload(ctx, media.KindPhoto, *input.Photo)
		if err != nil {
			s.logger.Error("profile photo upload failed", zap.Error(err), zap.String("user_id", p.UserID))
			return domain.User{}, fmt.Errorf("%w: upload photo", ErrExternalService)
		}
		update.PhotoURL = &url
	}
	if update.Name == nil && update.Description == nil && update.PhotoURL == nil {
		return domain.User{}, validationf("no update fields provided")
	}

	user, err := s.users.UpdateProfile(ctx, p.UserID, update)
	if err != nil {
		return domain.User{}, mapRepoError(err, "user not found")
	}
	if update.PhotoURL != nil && current.PhotoURL != "" {
		if err := s.media.Delete(ctx, current.PhotoURL); err != nil {
			s.logger.Warn("old profile photo cleanup failed", zap.Error(err))
		}
	}
	return user, nil
}
