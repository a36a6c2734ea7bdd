// Package handler implements a small CMS backend speaking the tag REST
// API. It backs the integration tests and the cmsstub development server.
package handler

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"tagsync/internal/middleware"
	"tagsync/internal/storage"
	"tagsync/internal/store"
)

type Handler struct {
	store    *store.Store
	fs       *storage.FileSystem
	sessions *middleware.Sessions
	logger   *zap.Logger

	snapshotKeep int
}

func NewHandler(st *store.Store, fs *storage.FileSystem, sessions *middleware.Sessions, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:        st,
		fs:           fs,
		sessions:     sessions,
		logger:       logger,
		snapshotKeep: 10,
	}
}

// SetSnapshotKeep sets how many timestamped snapshots survive pruning.
func (h *Handler) SetSnapshotKeep(n int) {
	h.snapshotKeep = n
}

// Register mounts the REST routes on e.
func (h *Handler) Register(e *echo.Echo) {
	api := e.Group("/rest")

	// Public routes
	api.POST("/auth/login", h.Login)

	protected := api.Group("")
	protected.Use(h.sessions.RequireSession())

	protected.GET("/construct/list", h.ListConstructs)
	protected.GET("/page/render/:id", h.RenderPage)

	protected.GET("/:kind/load/:id", h.LoadContainer)
	protected.POST("/:kind/save/:id", h.SaveContainer)
	protected.POST("/:kind/newtag/:id", h.NewTag)
	protected.POST("/:kind/newtags/:id", h.NewTags)
}
