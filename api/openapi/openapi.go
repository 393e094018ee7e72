// Package openapi embeds the HTTP API description served by the server.
package openapi

import _ "embed"

// Spec is the OpenAPI 3 document in YAML form
//
//go:embed openapi.yaml
var Spec []byte
