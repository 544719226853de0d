package scrape

import (
	"context"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/pevans/regsnap/sources"
)

// SuccessBody is the fixed message returned after every completed pass.
const SuccessBody = "All data processed successfully!"

// Response is the status object handed back to whatever invoked the run.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// SuccessResponse is the response for a completed pass. The status code does
// not reflect per-source failures; callers needing detail must consult the
// report or the logs.
func SuccessResponse() Response {
	return Response{StatusCode: http.StatusOK, Body: SuccessBody}
}

// Handler binds a runner to a source registry behind the invocation
// contract: an opaque trigger payload goes in, a status object comes out.
type Handler struct {
	runner *Runner
	srcs   []sources.Source
	log    *log.Logger
}

// NewHandler creates a Handler. A nil logger discards output.
func NewHandler(runner *Runner, srcs []sources.Source, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Handler{runner: runner, srcs: srcs, log: logger}
}

// Handle runs one pass over every source. The payload is opaque and ignored.
// The response is always 200 with the fixed success body once the pass
// completes, however many sources were exhausted.
func (h *Handler) Handle(ctx context.Context, payload []byte) Response {
	if len(payload) > 0 {
		h.log.Debug("ignoring trigger payload", "bytes", len(payload))
	}

	report := h.runner.Run(ctx, h.srcs)
	h.log.Info("pass complete",
		"run_id", report.RunID.String(),
		"sources", len(report.Results),
		"succeeded", report.Succeeded(),
		"failed", report.Failed(),
	)

	return SuccessResponse()
}
