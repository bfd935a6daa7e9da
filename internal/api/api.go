// Package api exposes the call pipeline over HTTP and MCP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/callsight/callsight/internal/analysis"
	"github.com/callsight/callsight/internal/ingest"
	"github.com/callsight/callsight/internal/report"
	"github.com/callsight/callsight/internal/storage"
	"github.com/callsight/callsight/internal/transcription"
)

// multipart framing overhead on top of the audio payload itself.
const maxUploadBodySize = ingest.MaxUploadBytes + 1<<20

type AppDeps struct {
	Store         *storage.Store
	Ingest        *ingest.Service
	Transcription *transcription.Stage
	Analysis      *analysis.Stage
	Exporter      *report.Exporter
	Token         string // optional; enables bearer auth on /api when set
	Logger        *slog.Logger
}

func NewAppHandler(deps AppDeps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Get("/health", handleHealth)

	r.Route("/api", func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}
		r.Post("/upload-call", handleUploadCall(deps))
		r.Post("/transcribe/{id}", handleTranscribe(deps))
		r.Post("/analyze/{id}", handleAnalyze(deps))
		r.Get("/calls", handleListCalls(deps))
		r.Get("/calls/{id}", handleGetCall(deps))
		r.Get("/export/{id}/{format}", handleExport(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleUploadCall(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBodySize)
		defer r.Body.Close()

		file, header, err := r.FormFile("file")
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				httpError(w, http.StatusRequestEntityTooLarge, "request_too_large", "uploaded file exceeds the size limit")
				return
			}
			httpError(w, http.StatusBadRequest, "invalid_request_error", "multipart field %q is required: %v", "file", err)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				httpError(w, http.StatusRequestEntityTooLarge, "request_too_large", "uploaded file exceeds the size limit")
				return
			}
			httpError(w, http.StatusBadRequest, "invalid_request_error", "reading upload: %v", err)
			return
		}

		var duration *float64
		if raw := r.FormValue("duration_seconds"); raw != "" {
			d, err := strconv.ParseFloat(raw, 64)
			if err != nil || d < 0 {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid duration_seconds: %q", raw)
				return
			}
			duration = &d
		}

		record, err := deps.Ingest.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), data, duration)
		switch {
		case errors.Is(err, ingest.ErrInvalidFormat):
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		case errors.Is(err, ingest.ErrPayloadTooLarge):
			httpError(w, http.StatusRequestEntityTooLarge, "request_too_large", "%v", err)
			return
		case err != nil:
			deps.Logger.Error("upload failed", "filename", header.Filename, "error", err)
			httpError(w, http.StatusInternalServerError, "api_error", "failed to store upload")
			return
		}

		writeJSON(w, http.StatusOK, record)
	}
}

func handleTranscribe(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		text, err := deps.Transcription.Run(r.Context(), id)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			httpError(w, http.StatusNotFound, "not_found", "call not found")
			return
		case err != nil:
			deps.Logger.Warn("transcription request failed", "call_id", id, "error", err)
			httpError(w, http.StatusBadGateway, "upstream_error", "transcription failed: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"id":            id,
			"transcription": text,
			"status":        storage.StatusCompleted,
		})
	}
}

func handleAnalyze(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		_, err := deps.Analysis.Run(r.Context(), id)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			httpError(w, http.StatusNotFound, "not_found", "call not found")
			return
		case errors.Is(err, analysis.ErrNoTranscript):
			httpError(w, http.StatusPreconditionFailed, "precondition_failed", "call has no transcript; transcribe it first")
			return
		case errors.Is(err, analysis.ErrMalformedResponse):
			deps.Logger.Warn("analysis returned malformed output", "call_id", id, "error", err)
			httpError(w, http.StatusBadGateway, "upstream_error", "analysis failed: %v", err)
			return
		case err != nil:
			deps.Logger.Warn("analysis request failed", "call_id", id, "error", err)
			httpError(w, http.StatusBadGateway, "upstream_error", "analysis failed: %v", err)
			return
		}

		record, err := deps.Store.GetCall(id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load analyzed call: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, record)
	}
}

func handleListCalls(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 0, 0)
		offset := parseIntParam(r, "offset", 0, 0)

		calls, err := deps.Store.ListCalls(limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list calls: %v", err)
			return
		}
		if calls == nil {
			calls = []storage.CallListItem{}
		}
		writeJSON(w, http.StatusOK, calls)
	}
}

func handleGetCall(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		record, err := deps.Store.GetCall(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "call not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get call: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, record)
	}
}

func handleExport(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		format := chi.URLParam(r, "format")

		rep, err := deps.Exporter.Export(r.Context(), id, format)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			httpError(w, http.StatusNotFound, "not_found", "call not found")
			return
		case errors.Is(err, report.ErrNotReady):
			httpError(w, http.StatusPreconditionFailed, "precondition_failed", "analysis has not completed for this call")
			return
		case errors.Is(err, report.ErrUnsupportedFormat):
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		case err != nil:
			deps.Logger.Error("export failed", "call_id", id, "format", format, "error", err)
			httpError(w, http.StatusInternalServerError, "api_error", "failed to render report")
			return
		}

		w.Header().Set("Content-Type", rep.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rep.Filename))
		w.WriteHeader(http.StatusOK)
		w.Write(rep.Data)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
