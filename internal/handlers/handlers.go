package handlers

import (
	"context"

	"video-publisher/internal/database"
	"video-publisher/internal/pipeline"
	"video-publisher/internal/scratch"
	"video-publisher/internal/startup"
)

// publishRunner is the slice of the pipeline the handlers call.
type publishRunner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// Handler holds dependencies for all HTTP handlers.
type Handler struct {
	pipeline publishRunner
	db       *database.DB
	scratch  *scratch.Manager
	config   *startup.Config
}

// New creates a new Handler.
func New(p publishRunner, db *database.DB, sm *scratch.Manager, config *startup.Config) *Handler {
	return &Handler{
		pipeline: p,
		db:       db,
		scratch:  sm,
		config:   config,
	}
}
