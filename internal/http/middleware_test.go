package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"edunexus/internal/domain"
	"edunexus/internal/service"
)

func protectedRouter(jwtSvc *service.JWTService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", AuthMiddleware(jwtSvc), func(c *gin.Context) {
		p := principal(c)
		if p.UserID != "u1" || p.Role != domain.RoleStudent {
			c.Status(http.StatusTeapot)
			return
		}
		c.Status(http.StatusOK)
	})
	return r
}

func TestAuthMiddleware_CookieAndBearer(t *testing.T) {
	jwtSvc := service.NewJWTService("secret", time.Hour)
	token, _, err := jwtSvc.Issue(domain.User{ID: "u1", Email: "u1@example.com", Role: domain.RoleStudent})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	r := protectedRouter(jwtSvc)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: authCookieName, Value: token})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("cookie: expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("bearer: expected 200, got %d", rec.Code)
	}
}

func TestAuthMiddleware_RejectsRevokedToken(t *testing.T) {
	jwtSvc := service.NewJWTService("secret", time.Hour)
	token, _, err := jwtSvc.Issue(domain.User{ID: "u1", Email: "u1@example.com", Role: domain.RoleStudent})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := jwtSvc.Parse(context.Background(), token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := jwtSvc.Revoke(context.Background(), claims); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: authCookieName, Value: token})
	rec := httptest.NewRecorder()
	protectedRouter(jwtSvc).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/limited", RateLimitMiddleware(2), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/limited", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}

	req := httptest.NewRequest(http.MethodGet, "/limited", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("other ip must keep its own budget, got %d", rec.Code)
	}
}

func TestWriteError(t *testing.T) {
	cases := []struct {
		err     error
		status  int
		code    string
		message string
	}{
		{service.ErrSignatureInvalid, http.StatusBadRequest, "SignatureInvalid", "signature invalid"},
		{service.ErrPaymentNotCaptured, http.StatusBadRequest, "PaymentNotCaptured", "payment not captured"},
		{service.ErrInvalidOrExpiredOTP, http.StatusBadRequest, "InvalidOrExpiredOtp", "invalid or expired otp"},
		{service.ErrOTPNotVerified, http.StatusBadRequest, "OtpNotVerified", "otp not verified"},
		{service.ErrDuplicateReview, http.StatusConflict, "DuplicateReview", "duplicate review"},
		{fmt.Errorf("%w: course not found", service.ErrNotFound), http.StatusNotFound, "NotFound", "course not found"},
		{service.ErrForbidden, http.StatusForbidden, "Forbidden", "forbidden"},
		{service.ErrInvalidCredentials, http.StatusUnauthorized, "Unauthorized", "invalid credentials"},
		{fmt.Errorf("%w: create order", service.ErrExternalService), http.StatusInternalServerError, "ExternalServiceError", genericMessage},
		{errors.New("mongo: connection refused"), http.StatusInternalServerError, "ExternalServiceError", genericMessage},
	}

	gin.SetMode(gin.TestMode)
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
		writeError(c, zap.NewNop(), tc.err)

		body := expectError(t, rec, tc.status, tc.code)
		if body.Message != tc.message {
			t.Fatalf("%v: expected message %q, got %q", tc.err, tc.message, body.Message)
		}
	}
}
