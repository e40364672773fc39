package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"edunexus/internal/domain"
	"edunexus/internal/service"
)

const otpSentMessage = "if the account exists, a reset code was sent to the email"

// AuthHandler agrupa registro, sesión y recuperación de contraseña.
type AuthHandler struct {
	logger       *zap.Logger
	authServ     *service.AuthService
	jwtServ      *service.JWTService
	cookieSecure bool
}

func NewAuthHandler(logger *zap.Logger, authServ *service.AuthService, jwtServ *service.JWTService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		logger:       logger,
		authServ:     authServ,
		jwtServ:      jwtServ,
		cookieSecure: cookieSecure,
	}
}

// Signup maneja POST /api/auth/signup.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid signup request", zap.Error(err))
		badRequest(c, "name, email and password are required")
		return
	}

	user, err := h.authServ.Signup(c.Request.Context(), service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if !h.startSession(c, user) {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "user": user})
}

// Login maneja POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		badRequest(c, "email and password are required")
		return
	}

	user, err := h.authServ.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if !h.startSession(c, user) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// Logout maneja GET /api/auth/logout. Limpia la cookie aunque el token ya no
// sea válido.
func (h *AuthHandler) Logout(c *gin.Context) {
	if token := tokenFromRequest(c); token != "" {
		if claims, err := h.jwtServ.Parse(c.Request.Context(), token); err == nil {
			if err := h.jwtServ.Revoke(c.Request.Context(), claims); err != nil {
				h.logger.Warn("token revoke failed", zap.Error(err), zap.String("user_id", claims.UserID))
			}
		}
	}
	h.setCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "logged out"})
}

// SendOTP maneja POST /api/auth/send-otp. Responde igual exista o no la cuenta.
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email is required")
		return
	}
	if err := h.authServ.RequestOTP(c.Request.Context(), req.Email); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": otpSentMessage})
}

// VerifyOTP maneja POST /api/auth/verify-otp.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
		OTP   string `json:"otp" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and otp are required")
		return
	}
	if err := h.authServ.VerifyOTP(c.Request.Context(), req.Email, req.OTP); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "otp verified"})
}

// ResetPassword maneja POST /api/auth/reset-password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}
	if err := h.authServ.ResetPassword(c.Request.Context(), req.Email, req.Password); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "password reset successfully"})
}

func (h *AuthHandler) startSession(c *gin.Context, user domain.User) bool {
	token, expiresAt, err := h.jwtServ.Issue(user)
	if err != nil {
		writeError(c, h.logger, err)
		return false
	}
	h.setCookie(c, token, int(time.Until(expiresAt).Seconds()))
	return true
}

func (h *AuthHandler) setCookie(c *gin.Context, value string, maxAge int) {
	if h.cookieSecure {
		c.SetSameSite(http.SameSiteNoneMode)
	} else {
		c.SetSameSite(http.SameSiteLaxMode)
	}
	c.SetCookie(authCookieName, value, maxAge, "/", "", h.cookieSecure, true)
}
