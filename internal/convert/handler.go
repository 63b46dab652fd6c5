package convert

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/relieflab/reliefd/internal/channel"
	"github.com/relieflab/reliefd/internal/observability"
)

// Handler bridges assembled channel payloads to the conversion pipeline and
// writes the completion response on success. Request failures are logged and
// isolated; the channel keeps serving.
type Handler struct {
	// OutputDir anchors relative stl paths from requests. Empty leaves
	// request paths untouched.
	OutputDir string
}

func NewHandler(outputDir string) *Handler {
	return &Handler{OutputDir: outputDir}
}

func (h *Handler) HandleRequest(ctx context.Context, req *channel.Request) {
	job, err := ParseRequest([]byte(req.Payload))
	if err != nil {
		observability.RecordConversion(0, false)
		log.Warn().Str("remote", req.Remote).Err(err).Msg("conversion request rejected")
		return
	}
	if h.OutputDir != "" && !filepath.IsAbs(job.OutputPath) {
		job.OutputPath = filepath.Join(h.OutputDir, job.OutputPath)
	}

	start := time.Now()
	out, err := Run(job)
	observability.RecordConversion(time.Since(start), err == nil)
	if err != nil {
		log.Error().Str("remote", req.Remote).Str("stl", job.OutputPath).Err(err).Msg("conversion failed")
		return
	}

	log.Info().
		Str("remote", req.Remote).
		Str("stl", out).
		Dur("duration", time.Since(start)).
		Msg("conversion complete")
	if err := req.Respond(out); err != nil {
		log.Warn().Str("remote", req.Remote).Err(err).Msg("completion response write failed")
	}
}
