package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"github.com/Galjente/gpm-nodejs/internal/config"
)

// Server is a file-backed development registry. It serves the same HTTP
// surface the client consumes — package metadata documents and archive
// bytes — straight from a storage directory, with no database behind it.
//
// Storage layout: {storage}/{name}/metadata.json for the metadata document
// and {storage}/{name}/{archive}.tgz for tarballs.
type Server struct {
	Config config.ServerConfig
	Logger *log.Logger
}

// RegisterRoutes sets up all registry routes on the router
func RegisterRoutes(r *mux.Router, cfg config.ServerConfig, logger *log.Logger) {
	s := &Server{
		Config: cfg,
		Logger: logger,
	}

	r.Use(s.panicRecoveryMiddleware)
	r.Use(s.loggingMiddleware)

	r.HandleFunc("/-/health", s.healthHandler).Methods("GET")
	r.HandleFunc("/{name}/-/{archive}", s.downloadHandler).Methods("GET")
	r.HandleFunc("/{name}", s.metadataHandler).Methods("GET")
}

// writeJSON writes JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// loggingMiddleware logs every request with its duration
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.Logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start).Round(time.Millisecond))
	})
}

// panicRecoveryMiddleware recovers from panics and returns a 500 error
func (s *Server) panicRecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.Logger.Error("panic", "method", r.Method, "path", r.URL.Path, "error", err)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
