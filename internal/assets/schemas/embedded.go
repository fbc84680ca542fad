// Package schemasassets provides embedded JSON schemas for standalone binary behavior.
//
// Schemas are embedded at compile time to ensure the CLI and library work
// correctly regardless of the working directory or installation location.
package schemasassets

import _ "embed"

// RenderConfigurationSchema is the embedded render-configuration JSON schema.
//
// This allows configuration validation to work in installed binaries and
// library consumers without requiring the schema file to be present on disk.
//
//go:embed render-configuration.schema.json
var RenderConfigurationSchema []byte
