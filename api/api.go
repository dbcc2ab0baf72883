// Package api embeds the OpenAPI document of the admin HTTP API.
package api

import _ "embed"

// OpenAPI is the admin API document; the handlers validate requests against it.
//
//go:embed netsel.openapi.yaml
var OpenAPI []byte
