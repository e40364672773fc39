package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"edunexus/internal/domain"
	"edunexus/internal/email"
	"edunexus/internal/metrics"
	"edunexus/internal/repository"
)

const (
	otpTTL            = 5 * time.Minute
	otpDigits         = 4
	otpRequestWindow  = 10 * time.Minute
	otpRequestMax     = 3
	minPasswordLength = 6
	maxNameLength     = 100
)

// AuthService coordina registro, login y el flujo de recuperación por OTP.
type AuthService struct {
	logger      *zap.Logger
	users       repository.UserRepository
	emailSender email.Sender
	otpLimiter  OTPRateLimiter
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewAuthService(logger *zap.Logger, users repository.UserRepository, emailSender email.Sender, otpLimiter OTPRateLimiter) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if otpLimiter == nil {
		otpLimiter = NewOTPRateLimiter(otpRequestWindow, otpRequestMax)
	}
	return &AuthService{
		logger:      logger,
		users:       users,
		emailSender: emailSender,
		otpLimiter:  otpLimiter,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *AuthService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// SetClock reemplaza el reloj; usado en pruebas de expiración.
func (s *AuthService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

type SignupInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

func (s *AuthService) Signup(ctx context.Context, input SignupInput) (domain.User, error) {
	name := strings.TrimSpace(input.Name)
	emailAddr := normalizeEmail(input.Email)
	role := strings.ToLower(strings.TrimSpace(input.Role))
	if role == "" {
		role = domain.RoleStudent
	}

	if name == "" || len(name) > maxNameLength {
		return domain.User{}, validationf("name is required and must be at most %d characters", maxNameLength)
	}
	if !isValidEmail(emailAddr) {
		return domain.User{}, ErrInvalidEmail
	}
	if len(input.Password) < minPasswordLength {
		return domain.User{}, validationf("password must be at least %d characters", minPasswordLength)
	}
	if !domain.ValidRole(role) {
		return domain.User{}, validationf("role must be %s or %s", domain.RoleStudent, domain.RoleEducator)
	}

	if _, err := s.users.GetByEmail(ctx, emailAddr); err == nil {
		return domain.User{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, err
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	now := s.now()
	user := domain.User{
		ID:              repository.NewID(),
		Name:            name,
		Email:           emailAddr,
		PasswordHash:    string(hashBytes),
		Role:            role,
		EnrolledCourses: []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *AuthService) Authenticate(ctx context.Context, emailAddr, password string) (domain.User, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if user.PasswordHash == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// RequestOTP emite un código nuevo si la cuenta existe. La respuesta al
// cliente es la misma exista o no la cuenta, por lo que sólo un email mal
// formado o un fallo de almacenamiento devuelven error.
func (s *AuthService) RequestOTP(ctx context.Context, emailAddr string) error {
	emailAddr = normalizeEmail(emailAddr)
	if !isValidEmail(emailAddr) {
		return ErrInvalidEmail
	}

	if !s.otpLimiter.Allow(ctx, emailAddr) {
		s.logger.Info("otp request suppressed by rate limit", zap.String("email", emailAddr))
		s.metrics.OTPEvent("suppressed")
		return nil
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	code, hash, err := generateOTP()
	if err != nil {
		return err
	}
	issuedAt := s.now()
	expiresAt := issuedAt.Add(otpTTL)

	version, err := s.users.IssueOTP(ctx, user.ID, hash, issuedAt, expiresAt)
	if err != nil {
		return err
	}
	s.metrics.OTPEvent("issued")

	if s.emailSender == nil {
		s.logger.Warn("otp issued without email sender", zap.String("user_id", user.ID))
		return nil
	}
	if err := s.emailSender.SendPasswordResetOTP(ctx, emailAddr, code, expiresAt); err != nil {
		s.logger.Warn("send password reset otp failed",
			zap.Error(err),
			zap.String("user_id", user.ID),
			zap.Int64("otp_version", version),
		)
		s.metrics.OTPEvent("mail_failed")
	}
	return nil
}

// VerifyOTP consume el código activo. La transición se condiciona a la
// versión leída: si otra petición emitió o consumió un código entre la
// lectura y la escritura, la verificación falla.
func (s *AuthService) VerifyOTP(ctx context.Context, emailAddr, code string) error {
	emailAddr = normalizeEmail(emailAddr)
	code = strings.TrimSpace(code)
	if !isValidEmail(emailAddr) {
		return ErrInvalidEmail
	}
	if !isValidOTPCode(code) {
		return ErrInvalidOrExpiredOTP
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidOrExpiredOTP
		}
		return err
	}

	otp := user.OTP
	if otp == nil || otp.CodeHash == "" || otp.Verified {
		return ErrInvalidOrExpiredOTP
	}
	now := s.now()
	if now.After(otp.ExpiresAt) {
		return ErrInvalidOrExpiredOTP
	}
	if !verifyOTP(code, otp.CodeHash) {
		return ErrInvalidOrExpiredOTP
	}

	ok, err := s.users.ConsumeOTP(ctx, user.ID, otp.Version, now)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidOrExpiredOTP
	}
	s.metrics.OTPEvent("verified")
	return nil
}

// ResetPassword cambia la contraseña si hay una verificación previa. Un
// error de validación no consume la verificación.
func (s *AuthService) ResetPassword(ctx context.Context, emailAddr, password string) error {
	emailAddr = normalizeEmail(emailAddr)
	if !isValidEmail(emailAddr) {
		return ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return validationf("password must be at least %d characters", minPasswordLength)
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrOTPNotVerified
		}
		return err
	}
	if user.OTP == nil || !user.OTP.Verified {
		return ErrOTPNotVerified
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	ok, err := s.users.ResetPassword(ctx, user.ID, string(hashBytes), s.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrOTPNotVerified
	}
	s.metrics.OTPEvent("password_reset")
	return nil
}

// generateOTP devuelve el código en claro y su hash con sal "salt:hash".
func generateOTP() (string, string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", "", err
	}
	code := fmt.Sprintf("%0*d", otpDigits, 1000+n.Int64())

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", "", err
	}
	saltStr := base64.StdEncoding.EncodeToString(salt)
	return code, saltStr + ":" + hashOTP(saltStr, code), nil
}

func hashOTP(salt, code string) string {
	sum := sha256.Sum256([]byte(salt + ":" + code))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func verifyOTP(code, stored string) bool {
	salt, expected, ok := strings.Cut(stored, ":")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(hashOTP(salt, code)), []byte(expected)) == 1
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isValidEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func isValidOTPCode(code string) bool {
	if len(code) != otpDigits {
		return false
	}
	for _, r := range code {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
