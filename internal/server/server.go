// Package server implements the code location collector behind
// "stackscan serve".
//
// The collector accepts code locations posted by upload.HTTPUploader,
// stores them as PENDING and validates them in the background. A record
// whose graph decodes into a consistent graph becomes COMPLETE; anything
// else becomes FAILED with the reason in its error field. Cycles are
// accepted because Go module graphs contain them.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/matzehuels/stackscan/pkg/buildinfo"
	stackerrors "github.com/matzehuels/stackscan/pkg/errors"
	graphio "github.com/matzehuels/stackscan/pkg/io"
	"github.com/matzehuels/stackscan/pkg/store"
)

const (
	defaultWorkers         = 4
	defaultQueueSize       = 256
	defaultShutdownTimeout = 10 * time.Second
	maxBodyBytes           = 32 << 20
	defaultListLimit       = 100
)

// Server is the collector.
type Server struct {
	store   store.Store
	logger  *log.Logger
	workers int
	queue   chan string
	now     func() time.Time

	wg   sync.WaitGroup
	once sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for requests and processing.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWorkers sets how many records are processed concurrently.
func WithWorkers(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.workers = n
		}
	}
}

// New creates a collector backed by st. Call Start before serving.
func New(st store.Store, opts ...Option) *Server {
	s := &Server{
		store:   st,
		logger:  log.NewWithOptions(io.Discard, log.Options{}),
		workers: defaultWorkers,
		queue:   make(chan string, defaultQueueSize),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the processing workers. They stop when ctx ends or
// Close is called.
func (s *Server) Start(ctx context.Context) {
	for range s.workers {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case id, ok := <-s.queue:
					if !ok {
						return
					}
					s.process(ctx, id)
				}
			}
		}()
	}
}

// Close stops accepting work and waits for the workers to drain the queue.
func (s *Server) Close() {
	s.once.Do(func() { close(s.queue) })
	s.wg.Wait()
}

// Handler returns the collector's HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)
	r.Route("/api/v1/codelocations", func(r chi.Router) {
		r.Post("/", s.create)
		r.Get("/", s.list)
		r.Get("/{id}", s.get)
	})
	return r
}

// Run serves h on addr until ctx ends, then shuts down gracefully.
func Run(ctx context.Context, logger *log.Logger, addr string, h http.Handler) error {
	if addr == "" {
		return stackerrors.New(stackerrors.ErrCodeInvalidConfig, "listen address is required")
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("collector listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"service": "stackscan-collector", "status": "ok", "version": buildinfo.Get().Version})
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var rec store.Record
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&rec); err != nil {
		writeError(w, stackerrors.Wrap(stackerrors.ErrCodeInvalidInput, err, "decode code location"))
		return
	}
	if err := stackerrors.ValidateCodeLocationName(rec.Name); err != nil {
		writeError(w, err)
		return
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	} else if _, err := uuid.Parse(rec.ID); err != nil {
		writeError(w, stackerrors.New(stackerrors.ErrCodeInvalidInput, "code location id must be a UUID"))
		return
	}

	now := s.now().UTC()
	rec.Status = store.StatusPending
	rec.Error = ""
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if err := s.store.Put(r.Context(), rec); err != nil {
		writeError(w, err)
		return
	}

	select {
	case s.queue <- rec.ID:
	case <-r.Context().Done():
		writeError(w, stackerrors.Wrap(stackerrors.ErrCodeTimeout, r.Context().Err(), "enqueue %s", rec.ID))
		return
	}
	s.logger.Info("code location received", "id", rec.ID, "name", rec.Name, "nodes", len(rec.Graph.Nodes))
	writeJSON(w, http.StatusAccepted, rec)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := store.ListOptions{
		ProjectName: q.Get("project"),
		Status:      store.Status(q.Get("status")),
		Limit:       defaultListLimit,
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, stackerrors.New(stackerrors.ErrCodeInvalidInput, "limit must be a positive integer"))
			return
		}
		opts.Limit = n
	}

	recs, err := s.store.List(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	if recs == nil {
		recs = []store.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"codelocations": recs})
}

// process validates one stored record and moves it to a terminal status.
func (s *Server) process(ctx context.Context, id string) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		s.logger.Error("load code location", "id", id, "error", err)
		return
	}

	status, msg := store.StatusComplete, ""
	if err := validate(rec); err != nil {
		status, msg = store.StatusFailed, err.Error()
	}
	if err := s.store.SetStatus(ctx, id, status, msg); err != nil {
		s.logger.Error("update code location", "id", id, "error", err)
		return
	}
	s.logger.Info("code location processed", "id", id, "status", status, "error", msg)
}

func validate(rec store.Record) error {
	_, err := graphio.Decode(rec.Graph)
	return err
}
