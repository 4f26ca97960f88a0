package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/JonMunkholm/tabclass/internal/job"
	"github.com/JonMunkholm/tabclass/internal/sink"
	"github.com/JonMunkholm/tabclass/internal/source"
	"github.com/JonMunkholm/tabclass/internal/store"
	"github.com/JonMunkholm/tabclass/internal/tabular"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// multipartMemory is how much of an upload is held in memory before
// spilling to a temp file.
const multipartMemory = 32 << 20

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := Index(s.registry.All(), s.cfg.Extract.MaxFileSize).Render(r.Context(), w); err != nil {
		respondError(w, r, err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"jobs":    s.registry.Len(),
		"runs":    s.runner.Limiter().Status(),
		"history": s.runs != nil,
	})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.All())
}

// handleRunJob runs a registered job. The response format defaults to the
// job's output format and can be overridden with ?format=.
func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	j, err := s.registry.Get(chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	opts := j.SinkOptions()
	if f := r.URL.Query().Get("format"); f != "" {
		opts.Format = f
	}
	if opts.Format == "" {
		opts.Format = sink.FormatJSON
	}
	if !sink.ValidFormat(opts.Format) {
		respondError(w, r, fmt.Errorf("%w: %q", errBadFormat, opts.Format))
		return
	}

	outcome, err := s.runner.Run(r.Context(), j)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeResult(w, r, outcome, opts, j.Name)
}

// handleExtract runs an ad-hoc extraction over an uploaded file.
//
// Form fields: file, columns, classify, required (comma-separated), unique,
// skip_empty_groups, default, kind, sheet, encoding, comma, header_row,
// format, classify_index.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Extract.MaxFileSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		respondError(w, r, fmt.Errorf("%w: %w", errBadForm, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		respondError(w, r, errNoFile)
		return
	}
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: %w", errBadForm, err))
		return
	}
	defer file.Close()

	form, err := parseExtractForm(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	form.source.Path = header.Filename

	src, err := source.OpenReader(file, form.source)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer src.Close()

	outcome, err := s.runner.Execute(r.Context(), "", header.Filename, src, form.spec)
	if err != nil {
		respondError(w, r, err)
		return
	}

	base := strings.TrimSuffix(header.Filename, path.Ext(header.Filename))
	writeResult(w, r, outcome, form.output, base)
}

type extractForm struct {
	source source.Definition
	spec   tabular.Spec
	output sink.Options
}

func parseExtractForm(r *http.Request) (extractForm, error) {
	var f extractForm

	f.spec = tabular.Spec{
		Columns:  splitList(r.FormValue("columns")),
		Classify: splitList(r.FormValue("classify")),
		Required: splitList(r.FormValue("required")),
		Default:  r.FormValue("default"),
	}
	if err := f.spec.Validate(); err != nil {
		return f, err
	}

	var err error
	if f.spec.Unique, err = formBool(r, "unique"); err != nil {
		return f, err
	}
	if f.spec.SkipEmptyGroups, err = formBool(r, "skip_empty_groups"); err != nil {
		return f, err
	}

	f.source = source.Definition{
		Kind:     r.FormValue("kind"),
		Encoding: r.FormValue("encoding"),
		Comma:    r.FormValue("comma"),
		Sheet:    r.FormValue("sheet"),
	}
	if f.source.HeaderRow, err = formInt(r, "header_row"); err != nil {
		return f, err
	}

	f.output = sink.Options{
		Format:   strings.ToLower(r.FormValue("format")),
		Sheet:    r.FormValue("sheet"),
		Columns:  f.spec.Columns,
		Classify: f.spec.Classify,
	}
	if f.output.Format == "" {
		f.output.Format = sink.FormatJSON
	}
	if !sink.ValidFormat(f.output.Format) {
		return f, fmt.Errorf("%w: %q", errBadFormat, f.output.Format)
	}
	if f.output.ClassifyIndex, err = formInt(r, "classify_index"); err != nil {
		return f, err
	}
	return f, nil
}

// writeResult renders the outcome into a buffer first so a rendering
// failure can still produce a proper error response.
func writeResult(w http.ResponseWriter, r *http.Request, outcome *job.Outcome, opts sink.Options, name string) {
	var buf bytes.Buffer
	if err := sink.Write(&buf, outcome.Result, opts); err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", sink.ContentType(opts.Format))
	w.Header().Set("X-Run-ID", outcome.RunID.String())
	if opts.Format != sink.FormatJSON {
		if name == "" {
			name = "result"
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"."+opts.Format))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		respondError(w, r, errHistoryDisabled)
		return
	}

	limit, err := formInt(r, "limit")
	if err != nil {
		respondError(w, r, err)
		return
	}

	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		respondError(w, r, errHistoryDisabled)
		return
	}

	id, err := runID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	run, err := s.runs.GetRun(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		respondError(w, r, errHistoryDisabled)
		return
	}

	id, err := runID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.runs.DeleteRun(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func runID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", errBadRunID, err)
	}
	return id, nil
}

// splitList splits a comma-separated field, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func formBool(r *http.Request, name string) (bool, error) {
	v := r.FormValue(name)
	if v == "" {
		return false, nil
	}
	// HTML checkboxes submit "on"
	if v == "on" {
		return true, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q", errBadForm, name, v)
	}
	return b, nil
}

func formInt(r *http.Request, name string) (int, error) {
	v := r.FormValue(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s=%q", errBadForm, name, v)
	}
	return n, nil
}
