package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"tagsync/internal/config"
	"tagsync/internal/handler"
	"tagsync/internal/logger"
	authmw "tagsync/internal/middleware"
	"tagsync/internal/storage"
	"tagsync/internal/store"
	"tagsync/internal/version"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load(os.Getenv("TAGSYNC_CONFIG"))
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	if err := logger.InitLogger(cfg.Logging.DataDir, "cmsstub", cfg.Logging.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	zap.L().Info("Starting CMS stub",
		zap.String("version", version.GetInfo().String()),
		zap.String("data_dir", cfg.Stub.DataDir),
	)

	// 3. Restore content
	fs := storage.NewFileSystem(cfg.Stub.DataDir)
	st := store.New()
	h := handler.NewHandler(st, fs, authmw.NewSessions(cfg.Stub.SessionSecret), zap.L())
	h.SetSnapshotKeep(cfg.Stub.SnapshotKeep)

	restored, err := h.RestoreSnapshot(cfg.Stub.SeedFile)
	if err != nil {
		zap.L().Fatal("Failed to restore content", zap.Error(err))
	}
	if !restored {
		zap.L().Warn("Starting with empty content")
	}
	if cfg.Stub.Login != "" {
		if err := st.AddUser(cfg.Stub.Login, cfg.Stub.Password); err != nil {
			zap.L().Fatal("Failed to create user", zap.Error(err))
		}
	}

	scheduler, err := h.StartAutoSnapshot(cfg.Stub.SnapshotSchedule)
	if err != nil {
		zap.L().Fatal("Failed to schedule snapshots", zap.Error(err))
	}

	// 4. Initialize Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetOutput(logger.GetLogWriter())

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(zapLoggerMiddleware())
	e.Use(middleware.Recover())
	e.Use(middleware.Gzip())

	h.Register(e)

	// Version info endpoint (public)
	e.GET("/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, version.GetInfo())
	})

	// Start server
	go func() {
		zap.L().Info("Server starting", zap.String("listen", cfg.Stub.Listen))
		if err := e.Start(cfg.Stub.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		zap.L().Error("Server shutdown failed", zap.Error(err))
	}
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	if err := h.SaveSnapshot(); err != nil {
		zap.L().Error("Final snapshot failed", zap.Error(err))
	}
	zap.L().Info("Server stopped")
}

// zapLoggerMiddleware returns a middleware that logs HTTP requests using zap
func zapLoggerMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			res := c.Response()

			err := next(c)

			// Path only: the query carries the sid.
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", res.Status),
				zap.Int64("bytes_out", res.Size),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_ip", c.RealIP()),
				zap.String("user_agent", req.UserAgent()),
			}

			if reqID := res.Header().Get(echo.HeaderXRequestID); reqID != "" {
				fields = append(fields, zap.String("request_id", reqID))
			}

			if err != nil {
				fields = append(fields, zap.Error(err))
				zap.L().Error("Request failed", fields...)
			} else if res.Status >= 500 {
				zap.L().Error("Server error", fields...)
			} else if res.Status >= 400 {
				zap.L().Warn("Client error", fields...)
			} else {
				zap.L().Info("Request completed", fields...)
			}

			return err
		}
	}
}
