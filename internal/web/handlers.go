package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/CSRExport/internal/core"
)

// EntityResponse describes one exportable entity type.
type EntityResponse struct {
	Type           core.EntityType `json:"type"`
	Label          string          `json:"label"`
	Columns        int             `json:"columns"`
	Filters        []string        `json:"filters"`
	TimestampField string          `json:"timestampField,omitempty"`
}

// SubmitRequest is the body of POST /api/exports.
type SubmitRequest struct {
	Name   string            `json:"name"`
	Config core.ExportConfig `json:"config"`
}

// JobResponse is a job plus its download link once completed.
type JobResponse struct {
	core.ExportJob
	DownloadURL string `json:"downloadUrl,omitempty"`
}

// JobsResponse lists jobs with the current export slot usage.
type JobsResponse struct {
	Jobs    []JobResponse            `json:"jobs"`
	Limiter core.ExportLimiterStatus `json:"limiter"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"formats":  core.RendererFormats(),
		"entities": len(s.service.Entities()),
		"exports":  s.service.LimiterStatus(),
	})
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	defs := s.service.Entities()
	out := make([]EntityResponse, 0, len(defs))
	for _, d := range defs {
		out = append(out, EntityResponse{
			Type:           d.Type,
			Label:          d.Label,
			Columns:        len(d.Columns),
			Filters:        filterDimensions(d.Filters),
			TimestampField: d.TimestampField,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func filterDimensions(b core.FilterBindings) []string {
	return append(b.Dimensions(), "dateRange")
}

func (s *Server) handleEntityColumns(w http.ResponseWriter, r *http.Request) {
	entity := core.EntityType(chi.URLParam(r, "entity"))
	def, ok := core.Lookup(entity)
	if !ok {
		respondError(w, r, fmt.Errorf("unknown entity type: %s", entity), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, def.Columns)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Templates())
}

func (s *Server) handleSubmitExport(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	job, err := s.service.Submit(ctx, req.Name, req.Config)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	s.respondSubmitted(w, r, job)
}

// handlePreviewExport returns a sample of the rows an export would contain.
// The body is a bare export config; ?limit= sets the sample size.
func (s *Server) handlePreviewExport(w http.ResponseWriter, r *http.Request) {
	var cfg core.ExportConfig
	if err := decodeBody(w, r, &cfg, false); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	preview, err := s.service.Preview(r.Context(), cfg, limit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (s *Server) handleSubmitTemplate(w http.ResponseWriter, r *http.Request) {
	var overrides core.ExportConfig
	if err := decodeBody(w, r, &overrides, true); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	job, err := s.service.SubmitTemplate(ctx, chi.URLParam(r, "id"), overrides)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	s.respondSubmitted(w, r, job)
}

// respondSubmitted returns 202 with the pending job, or with ?wait=true
// blocks until the job settles and returns 200.
func (s *Server) respondSubmitted(w http.ResponseWriter, r *http.Request, job core.ExportJob) {
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); !wait {
		writeJSON(w, http.StatusAccepted, s.jobResponse(job))
		return
	}
	settled, err := s.service.Wait(r.Context(), job.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.jobResponse(settled))
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.service.Jobs()
	status := core.JobStatus(r.URL.Query().Get("status"))

	out := make([]JobResponse, 0, len(jobs))
	for _, j := range jobs {
		if status != "" && j.Status != status {
			continue
		}
		out = append(out, s.jobResponse(j))
	}
	writeJSON(w, http.StatusOK, JobsResponse{Jobs: out, Limiter: s.service.LimiterStatus()})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.service.Job(chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.jobResponse(job))
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.service.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.jobResponse(job))
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteJob(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearJobs(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ClearHistory(r.Context()); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "file")
	path, err := s.files.Path(name)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		respondError(w, r, fmt.Errorf("download %s: %w", name, err), http.StatusNotFound)
		return
	}
	if err != nil {
		respondError(w, r, fmt.Errorf("download %s: %w", name, err), http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		respondError(w, r, fmt.Errorf("download %s: %w", name, err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType(name))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func (s *Server) jobResponse(job core.ExportJob) JobResponse {
	resp := JobResponse{ExportJob: job}
	if s.files != nil && job.Status == core.JobCompleted && job.FileName != "" {
		resp.DownloadURL = "/api/downloads/" + url.PathEscape(job.FileName)
	}
	return resp
}

// contentType maps an artifact extension to its format's MIME type.
func contentType(name string) string {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	for _, f := range core.Formats {
		if f.Extension() == ext {
			return f.MIMEType()
		}
	}
	return "application/octet-stream"
}

// decodeBody reads a JSON body, rejecting unknown fields. An empty body is
// accepted when optional is set.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
