// Package server exposes the choice service to a rendering host over HTTP
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/choice"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/domain/parameter"
	choiceerrors "github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/errors"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/hierarchy"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/jobfile"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/logging"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/resolver"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/roles"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/submission"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const (
	// IdentityHeader carries the caller identity set by the fronting host
	IdentityHeader = "X-Remote-User"
	// RequestIDHeader is set on every response
	RequestIDHeader = "X-Request-Id"

	maxBodyBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
)

// JobSource returns the current job definition. It is called once per request.
type JobSource func() (*jobfile.Job, error)

// Options wires the collaborators of a Server
type Options struct {
	Service *choice.Service
	Jobs    JobSource
	// Roles is consulted after the job file's own grants; may be nil
	Roles roles.Provider
	// Gatherer backs /metrics; nil disables the endpoint
	Gatherer prometheus.Gatherer
	Logger   logrus.FieldLogger
}

// Server holds the dependencies of the HTTP layer
type Server struct {
	service  *choice.Service
	jobs     JobSource
	roles    roles.Provider
	gatherer prometheus.Gatherer
	logger   logrus.FieldLogger
}

// New creates a Server
func New(opts Options) *Server {
	return &Server{
		service:  opts.Service,
		jobs:     opts.Jobs,
		roles:    opts.Roles,
		gatherer: opts.Gatherer,
		logger:   logging.OrDiscard(opts.Logger),
	}
}

// Handler builds the router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestSize(maxBodyBytes))
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/parameters", func(r chi.Router) {
		r.Get("/", s.listParameters)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/value", s.withParameter(s.getValue))
			r.Get("/default", s.withParameter(s.getDefault))
			r.Get("/hierarchy", s.withParameter(s.getHierarchy))
			r.Get("/bound", s.withParameter(s.getBound))
			r.Get("/check", s.withParameter(s.getCheck))
			r.Post("/submit", s.withParameter(s.postSubmit))
			r.Post("/form", s.withParameter(s.postForm))
		})
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type parameterHandler func(w http.ResponseWriter, r *http.Request, job *jobfile.Job, p *parameter.Parameter)

func (s *Server) withParameter(next parameterHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := s.jobs()
		if err != nil {
			s.logger.WithError(err).Error("job file could not be loaded")
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		name := chi.URLParam(r, "name")
		p, ok := job.Parameter(name)
		if !ok {
			writeError(w, http.StatusNotFound, "unknown parameter "+name)
			return
		}
		next(w, r, job, p)
	}
}

func (s *Server) caller(r *http.Request, job *jobfile.Job) resolver.Caller {
	var provider roles.Provider = job.RoleProvider()
	if s.roles != nil {
		provider = roles.Chain{provider, s.roles}
	}
	return resolver.Caller{
		Identity: r.Header.Get(IdentityHeader),
		Roles:    provider,
	}
}

func (s *Server) listParameters(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, job.Parameters)
}

type valueResponse struct {
	Name     string          `json:"name"`
	Value    string          `json:"value"`
	Selected map[string]bool `json:"selected,omitempty"`
}

func (s *Server) getValue(w http.ResponseWriter, r *http.Request, job *jobfile.Job, p *parameter.Parameter) {
	v, err := s.service.EffectiveValue(r.Context(), p, s.caller(r, job))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, valueResponse{Name: p.Name, Value: v})
}

func (s *Server) getDefault(w http.ResponseWriter, r *http.Request, job *jobfile.Job, p *parameter.Parameter) {
	caller := s.caller(r, job)
	v, err := s.service.EffectiveDefaultValue(r.Context(), p, caller)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	selected, err := s.service.DefaultValueMap(r.Context(), p, caller)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, valueResponse{Name: p.Name, Value: v, Selected: selected})
}

type hierarchyResponse struct {
	DropdownIDs string            `json:"dropdownIds"`
	Choices     map[string]string `json:"choices"`
	Entries     []hierarchy.Entry `json:"entries"`
}

func (s *Server) getHierarchy(w http.ResponseWriter, r *http.Request, _ *jobfile.Job, p *parameter.Parameter) {
	h, err := s.service.Hierarchy(r.Context(), p)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hierarchyResponse{
		DropdownIDs: h.JoinedDropdownIDs(),
		Choices:     h.ChoicesByDropdownID(),
		Entries:     h.Entries(),
	})
}

func (s *Server) getBound(w http.ResponseWriter, r *http.Request, _ *jobfile.Job, p *parameter.Parameter) {
	choices, err := s.service.BoundChoices(r.Context(), p, p.PropertyFile, p.PropertyKey, r.URL.Query().Get("src"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"choices": choices})
}

func (s *Server) getCheck(w http.ResponseWriter, r *http.Request, _ *jobfile.Job, p *parameter.Parameter) {
	value, defaults := s.service.CheckParameter(r.Context(), p)
	writeJSON(w, http.StatusOK, map[string]choice.Diagnostic{
		"value":   value,
		"default": defaults,
	})
}

func (s *Server) postSubmit(w http.ResponseWriter, r *http.Request, _ *jobfile.Job, p *parameter.Parameter) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	req, err := submission.DecodeRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	v, err := s.service.CreateValueFromPayload(r.Context(), p, req.Value)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) postForm(w http.ResponseWriter, r *http.Request, job *jobfile.Job, p *parameter.Parameter) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	v, ok, err := s.service.CreateValue(r.Context(), p, s.caller(r, job), r.PostForm["value"])
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case choiceerrors.IsConfigError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case choiceerrors.IsSubmissionError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
			"request_id": ww.Header().Get(RequestIDHeader),
			"identity":   r.Header.Get(IdentityHeader),
		}).Debug("request served")
	})
}

// requestID tags every response, keeping a well-formed id supplied by the caller
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
