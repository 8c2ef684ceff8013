package httpbackend

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ValentinKolb/pRepo/lib/backend"
	"github.com/ValentinKolb/pRepo/lib/repository"
	"github.com/VictoriaMetrics/metrics"
	"github.com/go-chi/chi/v5"
)

// errorBody is the JSON error answer.
type errorBody struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Server exposes a repository.IBackend over HTTP.
type Server struct {
	store repository.IBackend
	debug bool
}

// NewServer creates a server for store. With debug every request is logged.
func NewServer(store repository.IBackend, debug bool) *Server {
	return &Server{store: store, debug: debug}
}

// Router returns the routes of the service. The prefix is stripped by the caller
// (e.g. with chi.Router.Mount).
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	if s.debug {
		r.Use(loggerMiddleware)
	}
	r.Use(recoveryMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		metrics.WritePrometheus(w, true)
	})
	r.Get("/{key}", s.handleGet)
	r.Put("/{key}", s.handlePut)
	return r
}

// ListenAndServe serves handler (usually a router with Router mounted) on addr
// until the server fails.
func ListenAndServe(addr string, handler http.Handler) error {
	log.Infof("starting HTTP store on %s", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

// --------------------------------------------------------------------------
// Handler
// --------------------------------------------------------------------------

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	handle, ok := handleParam(w, r)
	if !ok {
		return
	}

	data, err := s.store.Fetch(r.Context(), handle)
	switch {
	case errors.Is(err, backend.ErrUnknownHandle):
		writeError(w, http.StatusNotFound, "unknown handle")
		return
	case err != nil:
		log.Errorf("fetch %s failed: %v", handle, err)
		writeError(w, http.StatusInternalServerError, "fetch failed")
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	handle, ok := handleParam(w, r)
	if !ok {
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxDocumentSize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "document too large")
		return
	}
	data, err := backend.Unmarshal(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "body must be a JSON object")
		return
	}

	if err := s.store.Write(r.Context(), handle, data); err != nil {
		log.Errorf("write %s failed: %v", handle, err)
		writeError(w, http.StatusInternalServerError, "write failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleParam decodes the key route parameter. chi matches on the raw path
// when one is present, so the parameter is unescaped here.
func handleParam(w http.ResponseWriter, r *http.Request) (repository.Handle, bool) {
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err == nil {
		var h repository.Handle
		if h, err = repository.HandleFromKey(key); err == nil && !h.IsZero() {
			return h, true
		}
	}
	writeError(w, http.StatusBadRequest, "invalid handle key")
	return repository.Handle{}, false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debugf("failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Status: status, Message: message})
}

// --------------------------------------------------------------------------
// Middleware
// --------------------------------------------------------------------------

// responseWriter captures the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		log.Debugf("%s %s => %d took %s", r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	})
}

func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Errorf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
