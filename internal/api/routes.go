package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/keagan/tabreel/internal/geometry"
	"github.com/keagan/tabreel/internal/media"
	"github.com/keagan/tabreel/internal/raster"
	"github.com/keagan/tabreel/internal/store"
	"github.com/keagan/tabreel/internal/timeline"
)

const maxPreviewSide = 3840

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Route("/media", func(r chi.Router) {
		r.Get("/", listMediaHandler(cfg))
		r.Post("/", importMediaHandler(cfg))
		r.Get("/{id}", getMediaHandler(cfg))
	})

	r.Get("/state", stateHandler(cfg))
	r.Post("/clips", addClipHandler(cfg))
	r.Patch("/clips/{id}", updateClipHandler(cfg))
	r.Delete("/clips/{id}", deleteClipHandler(cfg))
	r.Put("/window", windowHandler(cfg))
	r.Put("/style", styleHandler(cfg))

	r.Post("/export", startExportHandler(cfg))
	r.Get("/export", exportStatusHandler(cfg))
	r.Get("/export/artifact", artifactHandler(cfg))

	r.Get("/preview.png", previewHandler(cfg))

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:    "ok",
			UptimeS:   uptime(cfg.StartTime),
			Exporting: cfg.Session.ExportStatus().Running,
		})
	}
}

func listMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := cfg.Library.ListMedia(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list media", "INTERNAL_ERROR")
			return
		}
		if entries == nil {
			entries = []media.Entry{}
		}
		WriteJSON(w, http.StatusOK, MediaListResponse{Media: entries})
	}
}

func importMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		if name == "" {
			WriteError(w, http.StatusBadRequest, "name is required", "BAD_REQUEST")
			return
		}
		mimeType := r.Header.Get("Content-Type")
		id, err := cfg.Library.Import(r.Context(), store.Recording{
			Name:     name,
			MIMEType: mimeType,
		}, r.Body)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		ref := media.StoreRef(id)
		if mimeType == "" {
			mimeType = "video"
		}
		if err := cfg.Session.ImportSource(timeline.Source{ID: ref, Name: name, MediaType: mimeType, Ref: ref}); err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, ImportResponse{ID: id, Ref: ref})
	}
}

// getMediaHandler serves a recording with range support so players can seek
func getMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		entry, err := cfg.Library.Get(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		data, err := cfg.Library.GetMediaBytes(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if entry.MIMEType != "" {
			w.Header().Set("Content-Type", entry.MIMEType)
		}
		http.ServeContent(w, r, entry.Name, entry.CreatedAt, bytes.NewReader(data))
	}
}

func stateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cfg.Session.State().Snapshot())
	}
}

func addClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		ref := req.Source
		if req.MediaID != "" {
			ref = media.StoreRef(req.MediaID)
		}
		if ref == "" {
			WriteError(w, http.StatusBadRequest, "source or mediaId is required", "BAD_REQUEST")
			return
		}

		clip, err := cfg.Session.PlaceSource(r.Context(), ref, req.Name, req.ID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		view, _ := clipView(cfg.Session.State(), clip.ID)
		WriteJSON(w, http.StatusCreated, view)
	}
}

func updateClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		id := chi.URLParam(r, "id")
		if _, err := cfg.Session.UpdateClip(id, req.Patch()); err != nil {
			writeDomainError(w, err)
			return
		}
		view, _ := clipView(cfg.Session.State(), id)
		WriteJSON(w, http.StatusOK, view)
	}
}

func deleteClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Session.RemoveClip(chi.URLParam(r, "id")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func windowHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req WindowRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if err := cfg.Session.SetWindow(req.Start, req.End); err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, cfg.Session.State().Snapshot())
	}
}

func styleHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StyleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		st, err := cfg.Session.SetStyle(req)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, st.Snapshot())
	}
}

func startExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		status, err := cfg.Session.StartExport(r.Context(), req.Options())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, status)
	}
}

func exportStatusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cfg.Session.ExportStatus())
	}
}

func artifactHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		artifact, ok := cfg.Session.Artifact()
		if !ok {
			WriteError(w, http.StatusNotFound, "no finished export", "NOT_FOUND")
			return
		}
		w.Header().Set("Content-Type", artifact.MIMEType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
		http.ServeContent(w, r, artifact.Filename, time.Time{}, bytes.NewReader(artifact.Data))
	}
}

func previewHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Previewer == nil {
			WriteError(w, http.StatusNotImplemented, "preview is not available", "NOT_IMPLEMENTED")
			return
		}
		q := r.URL.Query()
		t, err := floatParam(q.Get("t"), 0)
		if err != nil || t < 0 {
			WriteError(w, http.StatusBadRequest, "invalid t", "BAD_REQUEST")
			return
		}
		width, err1 := intParam(q.Get("w"), 960)
		height, err2 := intParam(q.Get("h"), 540)
		if err1 != nil || err2 != nil || width <= 0 || height <= 0 || width > maxPreviewSide || height > maxPreviewSide {
			WriteError(w, http.StatusBadRequest, "invalid preview size", "BAD_REQUEST")
			return
		}

		img, err := cfg.Previewer.Render(r.Context(), cfg.Session.State(), t, geometry.Size{W: float64(width), H: float64(height)})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		data, err := raster.EncodePNG(img)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to encode preview", "INTERNAL_ERROR")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}

func floatParam(v string, def float64) (float64, error) {
	if v == "" {
		return def, nil
	}
	return strconv.ParseFloat(v, 64)
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
