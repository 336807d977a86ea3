package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campusportal/internal/attendance"
	"campusportal/internal/auth"
	"campusportal/internal/calendar"
	"campusportal/internal/config"
	"campusportal/internal/handler"
	"campusportal/internal/httpmiddleware"
	"campusportal/internal/notify"
	"campusportal/internal/onduty"
	"campusportal/internal/realtime"
	"campusportal/internal/roster"
	"campusportal/internal/store"
	"campusportal/internal/upload"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func run(cfg config.App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.Migrate(ctx, db.Client); err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q notify.Queue
	if cfg.QueueBackend == "redis" {
		q = notify.NewRedisQueue(redisClient.Client, "campusportal:notify")
	} else {
		q = notify.NewInMemory(64)
	}
	hub := notify.NewHub()
	go func() {
		if err := notify.Dispatch(ctx, q, hub); err != nil && ctx.Err() == nil {
			log.Printf("notify dispatch stopped: %v", err)
		}
	}()
	events := notify.NewBroadcaster(q)

	// Attachment storage: Cloudinary when configured, local disk otherwise.
	var uploads upload.Store
	if cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		uploads = upload.NewCloudinary(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		log.Println("Cloudinary attachment storage configured:", cfg.CloudinaryCloudName)
	} else {
		disk, err := upload.NewDisk(cfg.UploadDir, "/uploads")
		if err != nil {
			return err
		}
		uploads = disk
	}

	tokens := roster.TokenConfig{Issuer: cfg.JWTIssuer, SigningKey: cfg.JWTSigningKey, TTL: cfg.TokenTTL}
	rosterSvc := roster.NewService(roster.NewRepository(db.Client), tokens, events)
	ondutySvc := onduty.NewService(onduty.NewRepository(db.Client), events, cfg.OndutyReactPolicy)
	calendarSvc := calendar.NewService(calendar.NewRepository(db.Client), events)
	attendanceSvc := attendance.NewService(attendance.NewRepository(db.Client), events)

	if generated, err := rosterSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Printf("warning: admin bootstrap failed: %v", err)
	} else if generated != "" {
		log.Printf("admin account created (%s) with generated password: %s — rotate it with cmd/addadmin", cfg.AdminEmail, generated)
	}

	h := handler.New(rosterSvc, ondutySvc, calendarSvc, attendanceSvc, uploads)
	rt := realtime.NewHandler(hub, attendanceSvc, events, cfg.CaptureToken)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := cfg.QueueBackend != "redis" || redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	admin := auth.RequireAuth(cfg.JWTSigningKey, cfg.JWTIssuer, roster.RoleAdmin)
	student := auth.RequireAuth(cfg.JWTSigningKey, cfg.JWTIssuer, roster.RoleStudent)
	anyUser := auth.RequireAuth(cfg.JWTSigningKey, cfg.JWTIssuer)

	api := r.Group("/api")
	api.POST("/register", h.Register)
	api.POST("/login", h.Login)

	api.GET("/admin/students", admin, h.ListStudents)
	api.POST("/admin/approve", admin, h.ApproveStudent)
	api.POST("/admin/deactivate", admin, h.DeactivateStudent)
	api.GET("/admin/attendance", admin, h.TodaysAttendance)

	api.POST("/onduty", student, h.SubmitOnduty)
	api.GET("/onduty", admin, h.ListOnduty)
	api.GET("/student/onduty", student, h.ListMyOnduty)
	api.POST("/onduty/action", admin, h.ActOnduty)

	api.POST("/events", admin, h.CreateEvent)
	api.GET("/events", anyUser, h.ListEvents)

	r.GET("/ws", rt.Serve)
	r.Static("/uploads", cfg.UploadDir)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
