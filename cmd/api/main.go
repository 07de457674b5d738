package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hadirku/internal/attendance"
	"hadirku/internal/auth"
	"hadirku/internal/config"
	"hadirku/internal/httpmiddleware"
	"hadirku/internal/model"
	"hadirku/internal/refcache"
	"hadirku/internal/session"
	"hadirku/internal/store"
	"hadirku/internal/token"
)

// jwtTTL caps how long a login token can be presented at all; the real
// session lifetime is the server-side idle timeout.
const jwtTTL = 12 * time.Hour

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	gw, err := openGateway(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = gw.Close() }()
	log.Printf("storage backend: %s", cfg.StorageBackend)

	sessions := openSessions(cfg)
	defer func() { _ = sessions.Close() }()

	codec := token.NewCodec(cfg.TokenTTL)
	att := attendance.NewService(gw, codec, cfg.GracePeriod)

	cache := refcache.New(context.Background(), gw, cfg.RefreshInterval)
	defer cache.Stop()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewRateLimiter(cfg.RateLimitPerMin).Middleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		healthy := gw.Healthy(c.Request.Context())
		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "storage": healthy})
	})

	r.POST("/v1/login", func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user, err := gw.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			log.Printf("login failed: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
			return
		}
		if user == nil {
			// one shape for unknown email and wrong password
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		s, err := sessions.Create(c.Request.Context(), *user)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
			return
		}
		signed, err := auth.Issue(user.ID, string(user.Role), s.ID, cfg.JWTIssuer, cfg.JWTSigningKey, jwtTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"access_token": signed, "user": user})
	})

	// Logout succeeds even when no live session exists, so a forced logout
	// after idle expiry is always safe.
	r.POST("/v1/logout", func(c *gin.Context) {
		if claims, err := auth.Parse(bearerToken(c), cfg.JWTSigningKey, cfg.JWTIssuer); err == nil {
			_ = sessions.Destroy(c.Request.Context(), claims.SessionID)
		}
		c.Status(http.StatusNoContent)
	})

	authGroup := r.Group("/v1", auth.RequireSession(cfg.JWTSigningKey, cfg.JWTIssuer, sessions))

	for _, col := range store.Collections {
		registerCRUD(authGroup, gw, col)
	}

	authGroup.GET("/refdata", func(c *gin.Context) {
		snap := cache.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"students":    snap.Students,
			"teachers":    snap.Teachers,
			"subjects":    snap.Subjects,
			"schedules":   snap.Schedules,
			"refreshedAt": snap.RefreshedAt,
		})
	})

	authGroup.POST("/tokens", func(c *gin.Context) {
		var req struct {
			ScheduleID string `json:"scheduleId" binding:"required"`
			SubjectID  string `json:"subjectId" binding:"required"`
			Date       string `json:"date" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		payload, err := att.IssueToken(c.Request.Context(), req.ScheduleID, req.SubjectID, req.Date)
		if err != nil {
			writeAttendanceError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"token": payload})
	})

	authGroup.GET("/tokens/qr", func(c *gin.Context) {
		payload := c.Query("token")
		if payload == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token query parameter required"})
			return
		}
		size, _ := strconv.Atoi(c.DefaultQuery("size", "256"))
		png, err := token.QRPNG(payload, size)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "qr render failed"})
			return
		}
		c.Data(http.StatusOK, "image/png", png)
	})

	authGroup.POST("/scans", func(c *gin.Context) {
		var req struct {
			Token     string `json:"token" binding:"required"`
			StudentID string `json:"studentId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		// a student session can only record attendance for itself
		if s := auth.Current(c); s != nil && s.User.Role == model.RoleStudent && s.User.RoleID != req.StudentID {
			c.JSON(http.StatusForbidden, gin.H{"error": "student mismatch"})
			return
		}
		rec, err := att.Record(c.Request.Context(), req.Token, req.StudentID)
		if err != nil {
			writeAttendanceError(c, err)
			return
		}
		c.JSON(http.StatusCreated, rec)
	})

	authGroup.GET("/reports", func(c *gin.Context) {
		req := reportRequest(c)
		records, next, err := att.Report(c.Request.Context(), req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": records, "next_cursor": next})
	})

	authGroup.GET("/reports/export", func(c *gin.Context) {
		req := reportRequest(c)
		req.Cursor = ""
		var all []model.Attendance
		for {
			page, next, err := att.Report(c.Request.Context(), req)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			all = append(all, page...)
			if next == "" {
				break
			}
			req.Cursor = next
		}
		sheet, err := att.ExportXLSX(c.Request.Context(), all)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
			return
		}
		name := attendance.ExportFileName(time.Now())
		c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", sheet)
	})

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}
	log.Println("Server exited")
	return nil
}

func openGateway(cfg config.App) (store.Gateway, error) {
	if cfg.StorageBackend == "postgres" {
		return store.OpenPostgres(cfg.DatabaseURL, cfg.QueryTimeout)
	}
	return store.OpenFileStore(cfg.DataDir)
}

func openSessions(cfg config.App) session.Manager {
	if cfg.SessionBackend == "redis" {
		return session.NewRedis(cfg.RedisAddr, cfg.SessionTimeout)
	}
	return session.NewMemory(cfg.SessionTimeout)
}

// referenceCollections may degrade to an empty list on read failure so the
// UI keeps working while the backend is down; writes always propagate.
var referenceCollections = map[store.Collection]bool{
	store.Students:  true,
	store.Teachers:  true,
	store.Subjects:  true,
	store.Schedules: true,
}

func registerCRUD(g *gin.RouterGroup, gw store.Gateway, col store.Collection) {
	base := "/" + string(col)

	g.GET(base, func(c *gin.Context) {
		docs, err := gw.ListAll(c.Request.Context(), col)
		if err != nil {
			var se *store.StorageError
			if referenceCollections[col] && errors.As(err, &se) {
				log.Printf("warning: list %s degraded to empty: %v", col, err)
				c.JSON(http.StatusOK, gin.H{"records": []store.Document{}})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if docs == nil {
			docs = []store.Document{}
		}
		c.JSON(http.StatusOK, gin.H{"records": docs})
	})

	g.GET(base+"/:id", func(c *gin.Context) {
		doc, err := gw.GetByID(c.Request.Context(), col, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if doc == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusOK, doc)
	})

	g.POST(base, func(c *gin.Context) {
		var doc store.Document
		if err := c.ShouldBindJSON(&doc); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		delete(doc, "id")
		created, err := gw.Create(c.Request.Context(), col, doc)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, created)
	})

	g.PUT(base+"/:id", func(c *gin.Context) {
		var doc store.Document
		if err := c.ShouldBindJSON(&doc); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		delete(doc, "id")
		updated, err := gw.Update(c.Request.Context(), col, c.Param("id"), doc)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, updated)
	})

	g.DELETE(base+"/:id", func(c *gin.Context) {
		err := gw.Delete(c.Request.Context(), col, c.Param("id"))
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func reportRequest(c *gin.Context) attendance.ReportRequest {
	limit, _ := strconv.Atoi(c.Query("limit"))
	return attendance.ReportRequest{
		DateFrom:  c.Query("from"),
		DateTo:    c.Query("to"),
		SubjectID: c.Query("subjectId"),
		StudentID: c.Query("studentId"),
		Cursor:    c.Query("cursor"),
		Limit:     limit,
	}
}

func writeAttendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, attendance.ErrTokenExpired):
		c.JSON(http.StatusGone, gin.H{"error": "token expired"})
	case errors.Is(err, attendance.ErrTokenMalformed):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, attendance.ErrUnknownReference):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func bearerToken(c *gin.Context) string {
	authz := c.GetHeader("Authorization")
	const prefix = "bearer "
	if len(authz) > len(prefix) && strings.EqualFold(authz[:len(prefix)], prefix) {
		return strings.TrimSpace(authz[len(prefix):])
	}
	return ""
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
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
