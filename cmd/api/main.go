package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"edunexus/internal/config"
	"edunexus/internal/db"
	"edunexus/internal/email"
	apihttp "edunexus/internal/http"
	"edunexus/internal/media"
	"edunexus/internal/metrics"
	"edunexus/internal/payment"
	"edunexus/internal/repository"
	"edunexus/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	mongoClient, mongoDB, err := db.NewMongo(ctx, cfg)
	if err != nil {
		logger.Fatal("mongo connect", zap.Error(err))
	}
	defer func() {
		_ = mongoClient.Disconnect(context.Background())
	}()
	if err := repository.EnsureIndexes(ctx, mongoDB); err != nil {
		logger.Fatal("mongo indexes", zap.Error(err))
	}

	userRepo := repository.NewMongoUserRepository(mongoDB)
	courseRepo := repository.NewMongoCourseRepository(mongoDB)
	lectureRepo := repository.NewMongoLectureRepository(mongoDB)
	reviewRepo := repository.NewMongoReviewRepository(mongoDB)

	var repairRepo repository.RepairRepository
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg, "edunexus-api")
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()
		pgRepairs := repository.NewPgRepairRepository(pool)
		if err := pgRepairs.EnsureSchema(ctx); err != nil {
			logger.Fatal("repair ledger schema", zap.Error(err))
		}
		repairRepo = pgRepairs
	} else {
		logger.Warn("DATABASE_URL not set; partial enrollments will only be logged")
	}

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	var (
		otpLimiter service.OTPRateLimiter
		denylist   service.TokenDenylist
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			otpLimiter = service.NewRedisOTPRateLimiter(redisClient, 10*time.Minute, 3, logger)
			denylist = service.NewRedisTokenDenylist(redisClient)
		}
		cancel()
	}

	var store media.Store = media.NewDisabledStore()
	if cfg.MinIOEndpoint != "" {
		minioStore, err := media.NewMinIOStore(media.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
			PublicURL: cfg.MinIOPublicURL,
		}, logger)
		if err != nil {
			logger.Warn("minio init failed", zap.Error(err))
		} else if err := minioStore.EnsureBucket(ctx); err != nil {
			logger.Warn("minio bucket check failed", zap.Error(err))
		} else {
			store = minioStore
		}
	}

	if cfg.RazorpayKeyID == "" || cfg.RazorpayKeySecret == "" {
		logger.Warn("payment gateway credentials not configured")
	}
	gateway := payment.NewRazorpayClient(payment.RazorpayConfig{
		BaseURL:     cfg.RazorpayBaseURL,
		KeyID:       cfg.RazorpayKeyID,
		KeySecret:   cfg.RazorpayKeySecret,
		Timeout:     cfg.GatewayTimeout(),
		MaxFailures: cfg.GatewayBreakerMaxFailures,
	}, nil, logger)

	m := metrics.New("edunexus")
	jwtSvc := service.NewJWTServiceWithDenylist(cfg.JWTSecret, cfg.JWTTTL(), denylist)

	authSvc := service.NewAuthService(logger, userRepo, emailSender, otpLimiter)
	authSvc.SetMetrics(m)
	userSvc := service.NewUserService(logger, userRepo, courseRepo, store)
	courseSvc := service.NewCourseService(logger, courseRepo, lectureRepo, store)
	saga := service.NewEnrollmentSaga(logger, userRepo, courseRepo, repairRepo, m)
	paymentSvc := service.NewPaymentService(logger, userRepo, courseRepo, gateway, saga, cfg.PaymentCurrency, m)
	reviewSvc := service.NewReviewService(logger, reviewRepo, courseRepo, userRepo)

	router := apihttp.NewRouter(
		apihttp.RouterConfig{ClientURL: cfg.ClientURL, AuthRatePerMinute: cfg.AuthRatePerMinute},
		logger,
		jwtSvc,
		m,
		apihttp.NewAuthHandler(logger, authSvc, jwtSvc, cfg.CookieSecure),
		apihttp.NewUserHandler(logger, userSvc),
		apihttp.NewCourseHandler(logger, courseSvc, userSvc),
		apihttp.NewPaymentHandler(logger, paymentSvc),
		apihttp.NewReviewHandler(logger, reviewSvc),
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}
