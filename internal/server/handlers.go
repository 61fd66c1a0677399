package server

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/sentichart/pkg/buildinfo"
	"github.com/matzehuels/sentichart/pkg/errors"
	"github.com/matzehuels/sentichart/pkg/pipeline"
	"github.com/matzehuels/sentichart/pkg/source"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes v before touching w, so an encoding failure becomes a
// 500 error body instead of a truncated success.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		status = http.StatusInternalServerError
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(errorBody{Error: errorDetail{
			Code:    string(errors.ErrCodeInternal),
			Message: "encode response: " + err.Error(),
		}})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: msg}})
}

// fail maps err to its status code and logs server-side failures.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	code := string(errors.GetCode(err))
	if code == "" {
		code = string(errors.ErrCodeInternal)
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "id", RequestID(r.Context()), "path", r.URL.Path, "err", err)
	}
	writeError(w, status, code, errors.UserMessage(err))
}

// ===== Health =====

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status string         `json:"status"`
		Build  buildinfo.Info `json:"build"`
	}{"ok", buildinfo.Get()})
}

// ===== Ticker routes =====

// tickerOptions builds pipeline options from the path and query string.
func (s *Server) tickerOptions(r *http.Request) (pipeline.Options, error) {
	q := r.URL.Query()
	opts := pipeline.Options{
		Ticker:  chi.URLParam(r, "ticker"),
		Start:   q.Get("start"),
		End:     q.Get("end"),
		Refresh: q.Get("refresh") == "true",
	}
	if err := opts.ValidateForFetch(); err != nil {
		return opts, err
	}
	if err := s.applyView(&opts, r); err != nil {
		return opts, err
	}
	return opts, nil
}

// applyView copies width, height and style from the query over the server defaults.
func (s *Server) applyView(opts *pipeline.Options, r *http.Request) error {
	q := r.URL.Query()
	opts.Width, opts.Height = s.viewport.Width, s.viewport.Height
	margins := s.viewport.Margins
	opts.Margins = &margins
	opts.Style = s.style
	opts.Logger = s.logger

	for name, dst := range map[string]*float64{"width": &opts.Width, "height": &opts.Height} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid %s %q", name, v)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return errors.New(errors.ErrCodeInvalidViewport, "%s must be finite, got %q", name, v)
		}
		*dst = f
	}
	if v := q.Get("style"); v != "" {
		opts.Style = v
	}
	if q.Get("legend") == "true" {
		opts.Legend = true
	}
	return nil
}

// fetch runs the fetch stage and records its lifecycle in the tracker.
func (s *Server) fetch(r *http.Request, opts pipeline.Options) (*source.Result, error) {
	id := source.Key{Ticker: opts.Ticker, Start: opts.Start, End: opts.End}.ID()
	if !s.tracker.Start(id) {
		s.logger.Debug("joining fetch in flight", "id", id)
	}
	res, err := s.runner.Fetch(r.Context(), opts)
	s.tracker.Finish(id, err)
	return res, err
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	opts, err := s.tickerOptions(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.fetch(r, opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := s.runner.Layout(r.Context(), res, opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleChartSVG(w http.ResponseWriter, r *http.Request) {
	opts, err := s.tickerOptions(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	opts.Formats = []string{pipeline.FormatSVG}

	res, err := s.fetch(r, opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := s.runner.Layout(r.Context(), res, opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	artifacts, err := s.runner.Render(r.Context(), m, res, opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(artifacts[pipeline.FormatSVG])
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	opts, err := s.tickerOptions(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.fetch(r, opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Summary())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ticker := errors.NormalizeTicker(chi.URLParam(r, "ticker"))
	if err := errors.ValidateTicker(ticker); err != nil {
		s.fail(w, r, err)
		return
	}
	id := source.Key{Ticker: ticker, Start: q.Get("start"), End: q.Get("end")}.ID()
	writeJSON(w, http.StatusOK, s.tracker.Get(id))
}

// ===== Posted data =====

func (s *Server) handlePostLayout(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		s.fail(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "read body"))
		return
	}
	if len(body) > maxBodySize {
		s.fail(w, r, errors.New(errors.ErrCodeInvalidInput, "body exceeds %d bytes", maxBodySize))
		return
	}
	if len(body) == 0 {
		s.fail(w, r, errors.New(errors.ErrCodeInvalidInput, "empty body"))
		return
	}

	opts := pipeline.Options{Input: body}
	if err := s.applyView(&opts, r); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.runner.Fetch(r.Context(), opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := s.runner.Layout(r.Context(), res, opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
