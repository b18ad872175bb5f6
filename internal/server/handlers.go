package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
)

// healthHandler returns registry health status
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": "gpm-registry",
	})
}

// metadataHandler serves a package's metadata document verbatim from storage
func (s *Server) metadataHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	path, ok := s.storagePath(name, "metadata.json")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid package name")
		return
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		writeError(w, http.StatusNotFound, "package not found")
		return
	}
	if err != nil {
		s.Logger.Error("failed to read metadata", "package", name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read metadata")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// downloadHandler serves archive bytes from storage
func (s *Server) downloadHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]
	archive := vars["archive"]

	path, ok := s.storagePath(name, archive)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid archive path")
		return
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		writeError(w, http.StatusNotFound, "archive not found")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeFile(w, r, path)
}

// storagePath joins storage-relative path elements, rejecting traversal.
func (s *Server) storagePath(elems ...string) (string, bool) {
	for _, elem := range elems {
		if elem == "" || strings.Contains(elem, "..") || strings.ContainsAny(elem, "/\\") {
			return "", false
		}
	}

	return filepath.Join(append([]string{s.Config.StoragePath}, elems...)...), true
}
