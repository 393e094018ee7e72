package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"gopkg.in/yaml.v3"
)

// OpenAPIHandler serves the API description as YAML and JSON
type OpenAPIHandler struct {
	yamlDoc []byte
	jsonDoc []byte
	jsonErr error
}

// NewOpenAPIHandler creates a handler for the given YAML document. The JSON
// rendering is produced once here.
func NewOpenAPIHandler(spec []byte) *OpenAPIHandler {
	h := &OpenAPIHandler{yamlDoc: spec}
	if len(spec) > 0 {
		h.jsonDoc, h.jsonErr = yamlToJSON(spec)
	}
	return h
}

// RegisterRoutes registers OpenAPI routes
func (h *OpenAPIHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/openapi.yaml", h.ServeYAML).Methods("GET")
	r.HandleFunc("/api/v1/openapi.json", h.ServeJSON).Methods("GET")
}

// ServeYAML serves the document as written
func (h *OpenAPIHandler) ServeYAML(w http.ResponseWriter, _ *http.Request) {
	h.write(w, "application/yaml", h.yamlDoc, nil)
}

// ServeJSON serves the document converted to JSON
func (h *OpenAPIHandler) ServeJSON(w http.ResponseWriter, _ *http.Request) {
	h.write(w, "application/json", h.jsonDoc, h.jsonErr)
}

func (h *OpenAPIHandler) write(w http.ResponseWriter, contentType string, body []byte, err error) {
	switch {
	case len(h.yamlDoc) == 0:
		http.Error(w, "OpenAPI specification not found", http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, "Failed to parse OpenAPI specification", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(body)
}

// yamlToJSON re-encodes a YAML document as JSON. Response codes and other
// map keys must be strings in the YAML (quote '200').
func yamlToJSON(doc []byte) ([]byte, error) {
	var v map[string]any
	if err := yaml.Unmarshal(doc, &v); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return out, nil
}
