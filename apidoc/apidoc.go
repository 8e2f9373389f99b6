// Package apidoc embeds the OpenAPI description of the taxi analytics API.
// The server serves it at /openapi.yaml so the document ships with the binary
// it describes.
package apidoc

import _ "embed"

// OpenAPI is the raw openapi.yaml.
//
//go:embed openapi.yaml
var OpenAPI []byte
