package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"edunexus/internal/domain"
	"edunexus/internal/media"
	"edunexus/internal/payment"
	"edunexus/internal/repository"
)

type mockUserRepo struct {
	mu           sync.Mutex
	usersByID    map[string]domain.User
	usersByEmail map[string]string

	enrollErr   error
	enrollCalls int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.usersByEmail[user.Email]; ok {
		return repository.ErrDuplicate
	}
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user.ID
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return cloneUser(user), nil
}

func (m *mockUserRepo) ListByIDs(_ context.Context, ids []string) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.User{}
	for _, id := range ids {
		if u, ok := m.usersByID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	id, ok := m.usersByEmail[email]
	m.mu.Unlock()
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return m.GetByID(ctx, id)
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, id string, update domain.ProfileUpdate) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	if update.Name != nil {
		user.Name = *update.Name
	}
	if update.Description != nil {
		user.Description = *update.Description
	}
	if update.PhotoURL != nil {
		user.PhotoURL = *update.PhotoURL
	}
	m.usersByID[id] = user
	return cloneUser(user), nil
}

func (m *mockUserRepo) AddEnrolledCourse(_ context.Context, userID, courseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrollCalls++
	if m.enrollErr != nil {
		return m.enrollErr
	}
	user, ok := m.usersByID[userID]
	if !ok {
		return repository.ErrNotFound
	}
	if !user.IsEnrolled(courseID) {
		user.EnrolledCourses = append(user.EnrolledCourses, courseID)
	}
	m.usersByID[userID] = user
	return nil
}

func (m *mockUserRepo) IssueOTP(_ context.Context, userID, codeHash string, issuedAt, expiresAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[userID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	var version int64
	if user.OTP != nil {
		version = user.OTP.Version
	}
	user.OTP = &domain.OTPState{
		CodeHash:  codeHash,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		Version:   version + 1,
	}
	m.usersByID[userID] = user
	return version + 1, nil
}

func (m *mockUserRepo) ConsumeOTP(_ context.Context, userID string, version int64, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[userID]
	if !ok || user.OTP == nil {
		return false, nil
	}
	otp := *user.OTP
	if otp.Version != version || otp.Verified || otp.CodeHash == "" || now.After(otp.ExpiresAt) {
		return false, nil
	}
	otp.Verified = true
	otp.CodeHash = ""
	user.OTP = &otp
	m.usersByID[userID] = user
	return true, nil
}

func (m *mockUserRepo) ResetPassword(_ context.Context, userID, passwordHash string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[userID]
	if !ok || user.OTP == nil || !user.OTP.Verified {
		return false, nil
	}
	otp := *user.OTP
	otp.Verified = false
	otp.CodeHash = ""
	otp.ExpiresAt = time.Time{}
	user.OTP = &otp
	user.PasswordHash = passwordHash
	user.UpdatedAt = now
	m.usersByID[userID] = user
	return true, nil
}

func cloneUser(u domain.User) domain.User {
	u.EnrolledCourses = append([]string(nil), u.EnrolledCourses...)
	if u.OTP != nil {
		otp := *u.OTP
		u.OTP = &otp
	}
	return u
}

type mockCourseRepo struct {
	mu      sync.Mutex
	courses map[string]domain.Course

	enrollErr   error
	enrollCalls int
	reviewErr   error
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{courses: make(map[string]domain.Course)}
}

func (m *mockCourseRepo) put(c domain.Course) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses[c.ID] = c
}

func (m *mockCourseRepo) Create(_ context.Context, course domain.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses[course.ID] = course
	return nil
}

func (m *mockCourseRepo) get(id string) (domain.Course, bool) {
	c, ok := m.courses[id]
	if !ok || c.DeletedAt != nil {
		return domain.Course{}, false
	}
	c.EnrollmentStudents = append([]string(nil), c.EnrollmentStudents...)
	c.Lectures = append([]string(nil), c.Lectures...)
	c.Reviews = append([]string(nil), c.Reviews...)
	return c, true
}

func (m *mockCourseRepo) GetByID(_ context.Context, id string) (domain.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.get(id)
	if !ok {
		return domain.Course{}, repository.ErrNotFound
	}
	return c, nil
}

func (m *mockCourseRepo) GetByLecture(_ context.Context, lectureID string) (domain.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.courses {
		c, ok := m.get(id)
		if !ok {
			continue
		}
		for _, l := range c.Lectures {
			if l == lectureID {
				return c, nil
			}
		}
	}
	return domain.Course{}, repository.ErrNotFound
}

func (m *mockCourseRepo) ExistsByCreatorAndTitle(_ context.Context, creatorID, title string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.courses {
		c, ok := m.get(id)
		if ok && c.Creator == creatorID && equalFold(c.Title, title) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockCourseRepo) list(keep func(domain.Course) bool) []domain.Course {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Course{}
	for id := range m.courses {
		if c, ok := m.get(id); ok && keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockCourseRepo) ListPublished(context.Context) ([]domain.Course, error) {
	return m.list(func(c domain.Course) bool { return c.IsPublished }), nil
}

func (m *mockCourseRepo) ListByCreator(_ context.Context, creatorID string) ([]domain.Course, error) {
	return m.list(func(c domain.Course) bool { return c.Creator == creatorID }), nil
}

func (m *mockCourseRepo) ListByIDs(_ context.Context, ids []string) ([]domain.Course, error) {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return m.list(func(c domain.Course) bool { return set[c.ID] }), nil
}

func (m *mockCourseRepo) Search(_ context.Context, term string) ([]domain.Course, error) {
	return m.list(func(c domain.Course) bool { return c.IsPublished && containsFold(c.Title, term) }), nil
}

func (m *mockCourseRepo) Update(_ context.Context, id string, u domain.CourseUpdate) (domain.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.get(id)
	if !ok {
		return domain.Course{}, repository.ErrNotFound
	}
	c = applyCourseUpdate(c, u)
	if u.IsPublished != nil {
		c.IsPublished = *u.IsPublished
	}
	if u.Thumbnail != nil {
		c.Thumbnail = *u.Thumbnail
	}
	m.courses[id] = c
	return c, nil
}

func (m *mockCourseRepo) SoftDelete(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.get(id)
	if !ok {
		return repository.ErrNotFound
	}
	c.DeletedAt = &at
	c.IsPublished = false
	m.courses[id] = c
	return nil
}

func (m *mockCourseRepo) AddEnrollmentStudent(_ context.Context, courseID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrollCalls++
	if m.enrollErr != nil {
		return m.enrollErr
	}
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

func (m *mockCourseRepo) AddLecture(_ context.Context, courseID, lectureID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[courseID]
	if !ok {
		return repository.ErrNotFound
	}
	c.Lectures = append(c.Lectures, lectureID)
	m.courses[courseID] = c
	return nil
}

func (m *mockCourseRepo) RemoveLecture(_ context.Context, courseID, lectureID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[courseID]
	if !ok {
		return repository.ErrNotFound
	}
	kept := c.Lectures[:0]
	for _, l := range c.Lectures {
		if l != lectureID {
			kept = append(kept, l)
		}
	}
	c.Lectures = kept
	m.courses[courseID] = c
	return nil
}

func (m *mockCourseRepo) AddReview(_ context.Context, courseID, reviewID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reviewErr != nil {
		return m.reviewErr
	}
	c, ok := m.courses[courseID]
	if !ok {
		return repository.ErrNotFound
	}
	c.Reviews = append(c.Reviews, reviewID)
	m.courses[courseID] = c
	return nil
}

type mockLectureRepo struct {
	mu       sync.Mutex
	lectures map[string]domain.Lecture
}

func newMockLectureRepo() *mockLectureRepo {
	return &mockLectureRepo{lectures: make(map[string]domain.Lecture)}
}

func (m *mockLectureRepo) Create(_ context.Context, l domain.Lecture) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lectures[l.ID] = l
	return nil
}

func (m *mockLectureRepo) GetByID(_ context.Context, id string) (domain.Lecture, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lectures[id]
	if !ok {
		return domain.Lecture{}, repository.ErrNotFound
	}
	return l, nil
}

func (m *mockLectureRepo) ListByIDs(_ context.Context, ids []string) ([]domain.Lecture, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Lecture{}
	for _, id := range ids {
		if l, ok := m.lectures[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockLectureRepo) Update(_ context.Context, id string, u domain.LectureUpdate) (domain.Lecture, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lectures[id]
	if !ok {
		return domain.Lecture{}, repository.ErrNotFound
	}
	if u.Title != nil {
		l.Title = *u.Title
	}
	if u.VideoURL != nil {
		l.VideoURL = *u.VideoURL
	}
	if u.IsPreviewFree != nil {
		l.IsPreviewFree = *u.IsPreviewFree
	}
	m.lectures[id] = l
	return l, nil
}

func (m *mockLectureRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lectures[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.lectures, id)
	return nil
}

type mockReviewRepo struct {
	mu      sync.Mutex
	reviews []domain.Review
	// skipPrecheck simula que otra petición insertó entre la consulta y el insert.
	skipPrecheck bool
}

func (m *mockReviewRepo) Create(_ context.Context, r domain.Review) error {
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

func (m *mockReviewRepo) GetByCourseAndUser(_ context.Context, courseID, userID string) (domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.skipPrecheck {
		return domain.Review{}, repository.ErrNotFound
	}
	for _, r := range m.reviews {
		if r.CourseID == courseID && r.UserID == userID {
			return r, nil
		}
	}
	return domain.Review{}, repository.ErrNotFound
}

func (m *mockReviewRepo) List(context.Context) ([]domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Review{}, m.reviews...), nil
}

func (m *mockReviewRepo) Summary(_ context.Context, courseID string) (domain.ReviewSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := domain.ReviewSummary{CourseID: courseID}
	total := 0
	for _, r := range m.reviews {
		if r.CourseID == courseID {
			s.Count++
			total += r.Rating
		}
	}
	if s.Count > 0 {
		s.Average = float64(total) / float64(s.Count)
	}
	return s, nil
}

type mockRepairRepo struct {
	mu      sync.Mutex
	repairs []domain.EnrollmentRepair
}

func (m *mockRepairRepo) Record(_ context.Context, r domain.EnrollmentRepair) (domain.EnrollmentRepair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.repairs {
		if existing.Status == domain.RepairPending && existing.UserID == r.UserID &&
			existing.CourseID == r.CourseID && existing.FailedSide == r.FailedSide {
			m.repairs[i].LastError = r.LastError
			return m.repairs[i], nil
		}
	}
	r.ID = repository.NewID()
	r.Status = domain.RepairPending
	m.repairs = append(m.repairs, r)
	return r, nil
}

func (m *mockRepairRepo) ListPending(_ context.Context, limit int) ([]domain.EnrollmentRepair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.EnrollmentRepair{}
	for _, r := range m.repairs {
		if r.Status == domain.RepairPending && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRepairRepo) MarkResolved(_ context.Context, id string, at time.Time) error {
	return m.update(id, func(r *domain.EnrollmentRepair) {
		r.Status = domain.RepairResolved
		r.Attempts++
		r.UpdatedAt = at
	})
}

func (m *mockRepairRepo) RecordFailure(_ context.Context, id, lastError string, at time.Time) error {
	return m.update(id, func(r *domain.EnrollmentRepair) {
		r.LastError = lastError
		r.Attempts++
		r.UpdatedAt = at
	})
}

func (m *mockRepairRepo) update(id string, fn func(*domain.EnrollmentRepair)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.repairs {
		if m.repairs[i].ID == id {
			fn(&m.repairs[i])
			return nil
		}
	}
	return repository.ErrNotFound
}

type mockGateway struct {
	mu        sync.Mutex
	secret    string
	payments  map[string]domain.Payment
	orders    []payment.OrderRequest
	byID      map[string]domain.Order
	orderErr  error
	fetchErr  error
	nextOrder int
}

func newMockGateway(secret string) *mockGateway {
	return &mockGateway{secret: secret, payments: make(map[string]domain.Payment), byID: make(map[string]domain.Order)}
}

func (m *mockGateway) CreateOrder(_ context.Context, req payment.OrderRequest) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.orderErr != nil {
		return domain.Order{}, m.orderErr
	}
	m.nextOrder++
	m.orders = append(m.orders, req)
	order := domain.Order{
		ID:       "order_" + string(rune('A'+m.nextOrder-1)),
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
		Notes:    req.Notes,
	}
	m.byID[order.ID] = order
	return order, nil
}

func (m *mockGateway) FetchOrder(_ context.Context, id string) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return domain.Order{}, m.fetchErr
	}
	o, ok := m.byID[id]
	if !ok {
		return domain.Order{}, payment.ErrOrderNotFound
	}
	return o, nil
}

// putOrder registra una orden existente ligada a courseID y userID.
func (m *mockGateway) putOrder(id, courseID, userID string, amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[id] = domain.Order{
		ID: id, Amount: amount, Currency: "INR", Status: "paid",
		Notes: map[string]string{"courseId": courseID, "userId": userID},
	}
}

func (m *mockGateway) FetchPayment(_ context.Context, id string) (domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return domain.Payment{}, m.fetchErr
	}
	p, ok := m.payments[id]
	if !ok {
		return domain.Payment{}, payment.ErrPaymentNotFound
	}
	return p, nil
}

func (m *mockGateway) KeyID() string {
	return "rzp_test_key"
}

func (m *mockGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return payment.VerifySignature(orderID, paymentID, signature, m.secret)
}

type mockEmailSender struct {
	mu          sync.Mutex
	sent        int
	lastTo      string
	lastCode    string
	lastExpires time.Time
	err         error
}

func (m *mockEmailSender) SendPasswordResetOTP(_ context.Context, toEmail, code string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent++
	m.lastTo = toEmail
	m.lastCode = code
	m.lastExpires = expiresAt
	return m.err
}

type mockMediaStore struct {
	mu       sync.Mutex
	uploaded []string
	deleted  []string
	err      error
}

func (m *mockMediaStore) Upload(_ context.Context, kind media.Kind, file media.File) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	url := "https://cdn.test/" + string(kind) + "/" + file.Name
	m.uploaded = append(m.uploaded, url)
	return url, nil
}

func (m *mockMediaStore) Delete(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, url)
	return nil
}

type allowAllLimiter struct{}

func (allowAllLimiter) Allow(context.Context, string) bool { return true }

var errStoreDown = errors.New("store unavailable")

func equalFold(a, b string) bool {
	return strings.EqualFold(a, b)
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
