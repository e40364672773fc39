package http

import (
	"context"
	"sync"
	"time"

	"edunexus/internal/domain"
	"edunexus/internal/payment"
	"edunexus/internal/repository"
)

type memUsers struct {
	mu    sync.Mutex
	byID  map[string]domain.User
	email map[string]string
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]domain.User{}, email: map[string]string{}}
}

func (m *memUsers) Create(_ context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.email[u.Email]; ok {
		return repository.ErrDuplicate
	}
	m.byID[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) ListByIDs(_ context.Context, ids []string) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.User{}
	for _, id := range ids {
		if u, ok := m.byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	id, ok := m.email[email]
	m.mu.Unlock()
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return m.GetByID(ctx, id)
}

func (m *memUsers) UpdateProfile(_ context.Context, id string, upd domain.ProfileUpdate) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Description != nil {
		u.Description = *upd.Description
	}
	if upd.PhotoURL != nil {
		u.PhotoURL = *upd.PhotoURL
	}
	m.byID[id] = u
	return u, nil
}

func (m *memUsers) AddEnrolledCourse(_ context.Context, userID, courseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[userID]
	if !ok {
		return repository.ErrNotFound
	}
	if !u.IsEnrolled(courseID) {
		u.EnrolledCourses = append(u.EnrolledCourses, courseID)
	}
	m.byID[userID] = u
	return nil
}

func (m *memUsers) IssueOTP(_ context.Context, userID, codeHash string, issuedAt, expiresAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.byID[userID]
	var version int64 = 1
	if u.OTP != nil {
		version = u.OTP.Version + 1
	}
	u.OTP = &domain.OTPState{CodeHash: codeHash, IssuedAt: issuedAt, ExpiresAt: expiresAt, Version: version}
	m.byID[userID] = u
	return version, nil
}

func (m *memUsers) ConsumeOTP(_ context.Context, userID string, version int64, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.byID[userID]
	if u.OTP == nil || u.OTP.Version != version || u.OTP.Verified || now.After(u.OTP.ExpiresAt) {
		return false, nil
	}
	otp := *u.OTP
	otp.Verified = true
	otp.CodeHash = ""
	u.OTP = &otp
	m.byID[userID] = u
	return true, nil
}

func (m *memUsers) ResetPassword(_ context.Context, userID, hash string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.byID[userID]
	if u.OTP == nil || !u.OTP.Verified {
		return false, nil
	}
	otp := *u.OTP
	otp.Verified = false
	u.OTP = &otp
	u.PasswordHash = hash
	u.UpdatedAt = now
	m.byID[userID] = u
	return true, nil
}

type memCourses struct {
	mu      sync.Mutex
	courses map[string]domain.Course
}

func newMemCourses() *memCourses {
	return &memCourses{courses: map[string]domain.Course{}}
}

func (m *memCourses) Create(_ context.Context, c domain.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses[c.ID] = c
	return nil
}

func (m *memCourses) GetByID(_ context.Context, id string) (domain.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok || c.DeletedAt != nil {
		return domain.Course{}, repository.ErrNotFound
	}
	return c, nil
}

func (m *memCourses) GetByLecture(_ context.Context, lectureID string) (domain.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.courses {
		for _, l := range c.Lectures {
			if l == lectureID {
				return c, nil
			}
		}
	}
	return domain.Course{}, repository.ErrNotFound
}

func (m *memCourses) ExistsByCreatorAndTitle(context.Context, string, string) (bool, error) {
	return false, nil
}

func (m *memCourses) ListPublished(context.Context) ([]domain.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Course{}
	for _, c := range m.courses {
		if c.IsPublished && c.DeletedAt == nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCourses) ListByCreator(context.Context, string) ([]domain.Course, error) {
	return []domain.Course{}, nil
}

func (m *memCourses) ListByIDs(_ context.Context, ids []string) ([]domain.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Course{}
	for _, id := range ids {
		if c, ok := m.courses[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCourses) Search(context.Context, string) ([]domain.Course, error) {
	return []domain.Course{}, nil
}

func (m *memCourses) Update(_ context.Context, id string, _ domain.CourseUpdate) (domain.Course, error) {
	return m.GetByID(context.Background(), id)
}

func (m *memCourses) SoftDelete(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.DeletedAt = &at
	m.courses[id] = c
	return nil
}

func (m *memCourses) AddEnrollmentStudent(_ context.Context, courseID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[courseID]
	if !ok {
		return repository.ErrNotFound
	}
	if !c.HasStudent(userID) {
		c.EnrollmentStudents = append(c.EnrollmentStudents, userID)
	}
	m.courses[courseID] = c
	return nil
}

func (m *memCourses) AddLecture(context.Context, string, string) error    { return nil }
func (m *memCourses) RemoveLecture(context.Context, string, string) error { return nil }

func (m *memCourses) AddReview(_ context.Context, courseID, reviewID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[courseID]
	if !ok {
		return repository.ErrNotFound
	}
	c.Reviews = append(c.Reviews, reviewID)
	m.courses[courseID] = c
	return nil
}

type memLectures struct{}

func (memLectures) Create(context.Context, domain.Lecture) error { return nil }
func (memLectures) GetByID(context.Context, string) (domain.Lecture, error) {
	return domain.Lecture{}, repository.ErrNotFound
}
func (memLectures) ListByIDs(context.Context, []string) ([]domain.Lecture, error) {
	return []domain.Lecture{}, nil
}
func (memLectures) Update(context.Context, string, domain.LectureUpdate) (domain.Lecture, error) {
	return domain.Lecture{}, repository.ErrNotFound
}
func (memLectures) Delete(context.Context, string) error { return repository.ErrNotFound }

type memReviews struct {
	mu      sync.Mutex
	reviews []domain.Review
}

func (m *memReviews) Create(_ context.Context, r domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.reviews {
		if existing.CourseID == r.CourseID && existing.UserID == r.UserID {
			return repository.ErrDuplicate
		}
	}
	m.reviews = append(m.reviews, r)
	return nil
}

func (m *memReviews) GetByCourseAndUser(_ context.Context, courseID, userID string) (domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reviews {
		if r.CourseID == courseID && r.UserID == userID {
			return r, nil
		}
	}
	return domain.Review{}, repository.ErrNotFound
}

func (m *memReviews) List(context.Context) ([]domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Review{}, m.reviews...), nil
}

func (m *memReviews) Summary(_ context.Context, courseID string) (domain.ReviewSummary, error) {
	return domain.ReviewSummary{CourseID: courseID}, nil
}

type fakeGateway struct {
	secret   string
	payments map[string]domain.Payment
	orders   map[string]domain.Order
}

func (g *fakeGateway) CreateOrder(_ context.Context, req payment.OrderRequest) (domain.Order, error) {
	order := domain.Order{ID: "order_1", Amount: req.Amount, Currency: req.Currency, Receipt: req.Receipt, Status: "created", Notes: req.Notes}
	g.putOrder(order)
	return order, nil
}

func (g *fakeGateway) putOrder(order domain.Order) {
	if g.orders == nil {
		g.orders = make(map[string]domain.Order)
	}
	g.orders[order.ID] = order
}

func (g *fakeGateway) FetchOrder(_ context.Context, id string) (domain.Order, error) {
	o, ok := g.orders[id]
	if !ok {
		return domain.Order{}, payment.ErrOrderNotFound
	}
	return o, nil
}

func (g *fakeGateway) FetchPayment(_ context.Context, id string) (domain.Payment, error) {
	p, ok := g.payments[id]
	if !ok {
		return domain.Payment{}, payment.ErrPaymentNotFound
	}
	return p, nil
}

func (g *fakeGateway) KeyID() string { return "rzp_test_key" }

func (g *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return payment.VerifySignature(orderID, paymentID, signature, g.secret)
}

type captureSender struct {
	mu       sync.Mutex
	lastCode string
	sent     int
}

func (s *captureSender) SendPasswordResetOTP(_ context.Context, _ string, code string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCode = code
	s.sent++
	return nil
}

type allowAll struct{}

func (allowAll) Allow(context.Context, string) bool { return true }
