// Package assets embeds static files served by the collector.
package assets

import _ "embed"

// OpenApiData is the OpenAPI description of the collector REST API.
//
//go:embed openapi.yaml
var OpenApiData []byte
