package handlers

import (
	"net/http"
	"runtime"

	"github.com/gorilla/mux"
)

// Build information, set with -ldflags "-X github.com/benvon/task-manager/internal/handlers.Version=..."
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// VersionInfo describes the running build
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// RegisterVersionRoute registers GET /version
func RegisterVersionRoute(r *mux.Router) {
	r.HandleFunc("/version", ServeVersion).Methods("GET")
}

// ServeVersion reports the build information
func ServeVersion(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, VersionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	})
}
