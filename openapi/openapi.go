// Package openapi embeds the OpenAPI document for the TripMind reference API.
// The HTTP server serves it at /openapi.yaml.
package openapi

import _ "embed"

// Spec contains the raw bytes of openapi.yaml, embedded at compile time.
// Serving it from the binary means the document and the running code are
// always in sync.
//
//go:embed openapi.yaml
var Spec []byte
