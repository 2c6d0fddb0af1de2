package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/keagan/tabreel/internal/editor"
	"github.com/keagan/tabreel/internal/export"
	"github.com/keagan/tabreel/internal/media"
	"github.com/keagan/tabreel/internal/timeline"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	UptimeS   int64  `json:"uptime_s"`
	Exporting bool   `json:"exporting"`
}

type MediaListResponse struct {
	Media []media.Entry `json:"media"`
}

type ImportResponse struct {
	ID  string `json:"id"`
	Ref string `json:"ref"`
}

// AddClipRequest places a source; MediaID is shorthand for a store reference
type AddClipRequest struct {
	Source  string `json:"source"`
	MediaID string `json:"mediaId"`
	Name    string `json:"name"`
	ID      string `json:"id"`
}

type UpdateClipRequest struct {
	TimelinePosition *float64 `json:"timelinePosition"`
	SourceTrimStart  *float64 `json:"sourceTrimStart"`
	SourceTrimEnd    *float64 `json:"sourceTrimEnd"`
	DisplayName      *string  `json:"displayName"`
	TimelineColor    *string  `json:"timelineColor"`
	Channel          *string  `json:"channel"`
}

func (r UpdateClipRequest) Patch() timeline.ClipPatch {
	return timeline.ClipPatch(r)
}

type WindowRequest struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// StyleRequest is a partial style update
type StyleRequest = editor.Style

type ExportRequest struct {
	Format  export.Format  `json:"format"`
	Quality export.Quality `json:"quality"`
	FPS     int            `json:"fps"`
}

// Options fills omitted fields from the defaults
func (r ExportRequest) Options() export.Options {
	opts := export.DefaultOptions()
	if r.Format != "" {
		opts.Format = r.Format
	}
	if r.Quality != "" {
		opts.Quality = r.Quality
	}
	if r.FPS != 0 {
		opts.FPS = r.FPS
	}
	return opts
}

func clipView(st timeline.EditorState, id string) (timeline.ClipView, bool) {
	for _, c := range st.Snapshot().Clips {
		if c.ID == id {
			return c, true
		}
	}
	return timeline.ClipView{}, false
}

// writeDomainError maps core errors onto status codes
func writeDomainError(w http.ResponseWriter, err error) {
	var rerr *export.ResourceError
	switch {
	case errors.Is(err, timeline.ErrClipNotFound), errors.Is(err, media.ErrNotFound):
		WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, export.ErrExportInProgress):
		WriteError(w, http.StatusConflict, err.Error(), "EXPORT_IN_PROGRESS")
	case errors.Is(err, timeline.ErrValidation):
		WriteError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
	case errors.As(err, &rerr):
		WriteError(w, http.StatusBadGateway, err.Error(), "RESOURCE_ERROR")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}

func uptime(start time.Time) int64 {
	if start.IsZero() {
		return 0
	}
	return int64(time.Since(start).Seconds())
}
