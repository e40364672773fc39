package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"edunexus/internal/metrics"
	"edunexus/internal/service"
)

// RouterConfig agrupa los parámetros del router que vienen de la configuración.
type RouterConfig struct {
	ClientURL         string
	AuthRatePerMinute int
}

// NewRouter configura el router de Gin con middlewares y rutas bajo /api.
func NewRouter(
	cfg RouterConfig,
	logger *zap.Logger,
	jwtSvc *service.JWTService,
	m *metrics.Metrics,
	authH *AuthHandler,
	userH *UserHandler,
	courseH *CourseHandler,
	paymentH *PaymentHandler,
	reviewH *ReviewHandler,
) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = 32 << 20

	r.Use(zapLoggerMiddleware(logger), gin.Recovery())
	if m != nil {
		r.Use(m.GinMiddleware())
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.ClientURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	requireAuth := AuthMiddleware(jwtSvc)
	api := r.Group("/api")

	auth := api.Group("/auth", RateLimitMiddleware(cfg.AuthRatePerMinute))
	auth.POST("/signup", authH.Signup)
	auth.POST("/login", authH.Login)
	auth.GET("/logout", authH.Logout)
	auth.POST("/send-otp", authH.SendOTP)
	auth.POST("/verify-otp", authH.VerifyOTP)
	auth.POST("/reset-password", authH.ResetPassword)

	users := api.Group("/users", requireAuth)
	users.GET("/me", userH.Me)
	users.POST("/profile", userH.UpdateProfile)

	course := api.Group("/course")
	course.GET("/getpublished", courseH.Published)
	course.POST("/search", courseH.Search)
	course.POST("/create", requireAuth, courseH.Create)
	course.GET("/get-creator", requireAuth, courseH.CreatorCourses)
	course.GET("/creator", requireAuth, courseH.Creator)
	course.GET("/getcoursebyid/:courseId", requireAuth, courseH.Get)
	course.PUT("/editcourse/:courseId", requireAuth, courseH.Edit)
	course.DELETE("/remove/:courseId", requireAuth, courseH.Remove)
	course.POST("/createlecture/:courseId", requireAuth, courseH.CreateLecture)
	course.GET("/courselecture/:courseId", requireAuth, courseH.CourseLectures)
	course.PUT("/editlecture/:lectureId", requireAuth, courseH.EditLecture)
	course.DELETE("/removelecture/:lectureId", requireAuth, courseH.RemoveLecture)

	payments := api.Group("/payments", requireAuth)
	payments.POST("/order", paymentH.CreateOrder)
	payments.POST("/verify", paymentH.VerifyPayment)

	reviews := api.Group("/reviews")
	reviews.GET("/get", reviewH.List)
	reviews.GET("/summary/:courseId", reviewH.Summary)
	reviews.POST("/create", requireAuth, reviewH.Create)

	return r
}
