package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"video-publisher/internal/catalog"
	"video-publisher/internal/credentials"
	"video-publisher/internal/logging"
	"video-publisher/internal/metrics"
	"video-publisher/internal/repair"
	"video-publisher/internal/scratch"
	"video-publisher/internal/upload"
)

// videoContentType is the type declared for every delivered video.
const videoContentType = "video/mp4"

// Collaborator contracts, narrowed to what the pipeline calls so tests
// can substitute fakes.

type explainerCatalog interface {
	Lookup(ctx context.Context, id string) (*catalog.Explainer, error)
}

type downloader interface {
	Download(ctx context.Context, rawURL, destPath string) error
}

type merger interface {
	Merge(ctx context.Context, primaryPath, explainerPath string) (scratch.Artifact, error)
}

type uploader interface {
	Upload(ctx context.Context, target upload.Target, filePath, contentType string) error
}

type repairAPI interface {
	CreateUploadTarget(ctx context.Context, token string, ref repair.TaskRef, fileName string) (upload.Target, error)
	PatchMetadata(ctx context.Context, token string, ref repair.TaskRef, meta repair.Metadata) error
}

type posterGenerator interface {
	Generate(ctx context.Context, videoPath string) (scratch.Artifact, error)
}

// Request is one publish invocation. SourcePath points at the saved
// inbound video; the pipeline takes ownership of it as a scratch
// artifact.
type Request struct {
	SourcePath    string
	ShopID        string
	RepairOrderID string
	TaskID        string
	Finding       string
	Severity      string
	ExplainerID   string
}

// Result is the outcome of a successful publish.
type Result struct {
	Merged      bool   `json:"merged"`
	Uploaded    bool   `json:"uploaded"`
	ObjectKey   string `json:"objectKey,omitempty"`
	PatchFailed bool   `json:"patchFailed,omitempty"`
}

// Pipeline runs publishes against the configured collaborators.
type Pipeline struct {
	credentials credentials.Provider
	catalog     explainerCatalog
	fetcher     downloader
	merger      merger
	uploader    uploader
	repair      repairAPI
	poster      posterGenerator
	scratch     *scratch.Manager
}

// Config wires a Pipeline. Catalog and Poster are optional; a nil
// Catalog disables merging, a nil Poster disables poster frames.
type Config struct {
	Credentials credentials.Provider
	Catalog     explainerCatalog
	Fetcher     downloader
	Merger      merger
	Uploader    uploader
	Repair      repairAPI
	Poster      posterGenerator
	Scratch     *scratch.Manager
}

// New returns a Pipeline.
func New(cfg Config) *Pipeline {
	return &Pipeline{
		credentials: cfg.Credentials,
		catalog:     cfg.Catalog,
		fetcher:     cfg.Fetcher,
		merger:      cfg.Merger,
		uploader:    cfg.Uploader,
		repair:      cfg.Repair,
		poster:      cfg.Poster,
		scratch:     cfg.Scratch,
	}
}

// Run executes one publish. On success the returned Result reports what
// happened; on failure the error carries a Kind and Severity. Every
// scratch artifact allocated during the run, including the source video,
// is released before Run returns.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	metrics.PipelineRunsInFlight.Inc()
	defer metrics.PipelineRunsInFlight.Dec()

	// All artifacts funnel through this one release, so no exit path can
	// skip cleanup and no artifact is released twice.
	artifacts := []scratch.Artifact{{Path: req.SourcePath, Kind: scratch.KindSourceUpload}}
	defer func() {
		p.scratch.ReleaseAll(artifacts)
	}()

	result, err := p.run(ctx, req, &artifacts)

	metrics.PipelineRunDuration.Observe(time.Since(start).Seconds())
	switch {
	case err != nil:
		metrics.PipelineRunsTotal.WithLabelValues(string(KindOf(err))).Inc()
	case result.Merged:
		metrics.PipelineRunsTotal.WithLabelValues("success").Inc()
	default:
		metrics.PipelineRunsTotal.WithLabelValues("success_unmerged").Inc()
	}
	return result, err
}

func (p *Pipeline) run(ctx context.Context, req Request, artifacts *[]scratch.Artifact) (Result, error) {
	var result Result

	token, err := p.credentials.Issue(ctx, req.ShopID)
	if err != nil {
		if errors.Is(err, credentials.ErrNoCredential) {
			return result, NewError(KindCredential, SeverityFatal, err)
		}
		return result, NewError(KindCredential, SeverityFatal, fmt.Errorf("credential provider unavailable: %w", err))
	}

	deliverable := req.SourcePath
	if req.ExplainerID != "" {
		merged, err := p.tryMerge(ctx, req, artifacts)
		if err != nil {
			return result, err
		}
		if merged != "" {
			deliverable = merged
			result.Merged = true
		}
	}

	ref := repair.TaskRef{ShopID: req.ShopID, RepairOrderID: req.RepairOrderID, TaskID: req.TaskID}

	targetStart := time.Now()
	target, err := p.repair.CreateUploadTarget(ctx, token.Token, ref, filepath.Base(deliverable))
	metrics.PipelineStageDuration.WithLabelValues("upload_target").Observe(time.Since(targetStart).Seconds())
	if err != nil {
		return result, NewError(KindUploadTarget, SeverityFatal, err)
	}

	uploadStart := time.Now()
	err = p.uploader.Upload(ctx, target, deliverable, videoContentType)
	metrics.PipelineStageDuration.WithLabelValues("upload").Observe(time.Since(uploadStart).Seconds())
	if err != nil {
		return result, NewError(KindUpload, SeverityFatal, err)
	}
	result.Uploaded = true
	result.ObjectKey = target.ObjectKey

	p.tryPoster(ctx, req, token.Token, ref, deliverable, artifacts)

	// The upload already succeeded; a patch failure is reported in the
	// result, never allowed to turn success into failure.
	patchStart := time.Now()
	patchErr := p.repair.PatchMetadata(ctx, token.Token, ref, repair.Metadata{
		Finding:  req.Finding,
		Severity: req.Severity,
	})
	metrics.PipelineStageDuration.WithLabelValues("metadata_patch").Observe(time.Since(patchStart).Seconds())
	if patchErr != nil {
		result.PatchFailed = true
		logging.Error("metadata patch for task %s failed after successful upload: %v", req.TaskID, patchErr)
	}

	return result, nil
}

// tryMerge resolves, fetches, and merges the explainer. Lookup and
// download failures are soft: they log, and the publish proceeds with
// the original video ("" return, nil error). A failure in the merge
// itself is fatal, since at that point both inputs were usable and the
// output would be silently wrong to substitute.
func (p *Pipeline) tryMerge(ctx context.Context, req Request, artifacts *[]scratch.Artifact) (string, error) {
	if p.catalog == nil {
		logging.Warn("explainer %s requested but no catalog is configured; publishing unmerged", req.ExplainerID)
		return "", nil
	}

	fetchStart := time.Now()
	explainer, err := p.catalog.Lookup(ctx, req.ExplainerID)
	if err != nil {
		logging.Warn("explainer %s unavailable, publishing unmerged: %v", req.ExplainerID, err)
		return "", nil
	}

	downloaded, err := p.scratch.Allocate(scratch.KindDownloaded, ".mp4")
	if err != nil {
		logging.Warn("could not allocate download path for explainer %s, publishing unmerged: %v", req.ExplainerID, err)
		return "", nil
	}
	*artifacts = append(*artifacts, downloaded)

	if err := p.fetcher.Download(ctx, explainer.SourceURL, downloaded.Path); err != nil {
		metrics.PipelineStageDuration.WithLabelValues("fetch").Observe(time.Since(fetchStart).Seconds())
		logging.Warn("explainer %s download failed, publishing unmerged: %v", req.ExplainerID, err)
		return "", nil
	}
	metrics.PipelineStageDuration.WithLabelValues("fetch").Observe(time.Since(fetchStart).Seconds())

	output, err := p.merger.Merge(ctx, req.SourcePath, downloaded.Path)
	if err != nil {
		return "", NewError(KindMerge, SeverityFatal, err)
	}
	*artifacts = append(*artifacts, output)

	logging.Info("merged task %s video with explainer %q", req.TaskID, explainer.DisplayName)
	return output.Path, nil
}

// tryPoster generates and uploads a poster frame. Strictly best-effort.
func (p *Pipeline) tryPoster(ctx context.Context, req Request, token string, ref repair.TaskRef, videoPath string, artifacts *[]scratch.Artifact) {
	if p.poster == nil {
		return
	}

	start := time.Now()
	defer func() {
		metrics.PipelineStageDuration.WithLabelValues("poster").Observe(time.Since(start).Seconds())
	}()

	frame, err := p.poster.Generate(ctx, videoPath)
	if err != nil {
		logging.Warn("poster generation for task %s failed: %v", req.TaskID, err)
		return
	}
	*artifacts = append(*artifacts, frame)

	target, err := p.repair.CreateUploadTarget(ctx, token, ref, posterName(videoPath))
	if err != nil {
		logging.Warn("poster upload target for task %s failed: %v", req.TaskID, err)
		return
	}
	if err := p.uploader.Upload(ctx, target, frame.Path, "image/jpeg"); err != nil {
		logging.Warn("poster upload for task %s failed: %v", req.TaskID, err)
	}
}

// posterName derives the poster filename from the video it was taken
// from: "<video base>-poster.jpg".
func posterName(videoPath string) string {
	base := filepath.Base(videoPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "-poster.jpg"
}
